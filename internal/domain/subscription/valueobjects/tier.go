package valueobjects

import "fmt"

// Tier is a named service level defining quota and feature limits.
type Tier string

const (
	TierFree    Tier = "free"
	TierBasic   Tier = "basic"
	TierPremium Tier = "premium"
)

var validTiers = map[Tier]bool{
	TierFree:    true,
	TierBasic:   true,
	TierPremium: true,
}

func (t Tier) String() string {
	return string(t)
}

func (t Tier) IsValid() bool {
	return validTiers[t]
}

func (t Tier) IsPaid() bool {
	return t.IsValid() && t != TierFree
}

func ParseTier(value string) (Tier, error) {
	t := Tier(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid tier: %q", value)
	}
	return t, nil
}
