package billing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/pixelmuse/pixelmuse/internal/shared/biztime"
)

// OrderCodeGenerator mints unique order codes correlating a checkout session
// to a ledger transaction. Codes are never reused; uniqueness is ultimately
// enforced by the ledger's unique index.
type OrderCodeGenerator interface {
	Generate(prefix string) string
}

type DefaultOrderCodeGenerator struct{}

func NewOrderCodeGenerator() OrderCodeGenerator {
	return &DefaultOrderCodeGenerator{}
}

// Generate produces prefix + UTC timestamp + random suffix. The random
// suffix keeps codes unique across concurrent checkouts in the same second.
func (g *DefaultOrderCodeGenerator) Generate(prefix string) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// Fall back to the sub-second clock; the unique index still guards
		// against a collision.
		now := biztime.NowUTC()
		return fmt.Sprintf("%s%s%06d", prefix, now.Format("20060102150405"), now.Nanosecond()%1000000)
	}
	return fmt.Sprintf("%s%s%s",
		prefix,
		biztime.NowUTC().Format("20060102150405"),
		hex.EncodeToString(suffix),
	)
}
