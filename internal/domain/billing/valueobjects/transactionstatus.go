package valueobjects

import "fmt"

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusPaid       TransactionStatus = "paid"
	TransactionStatusCancelled  TransactionStatus = "cancelled"
	TransactionStatusFailed     TransactionStatus = "failed"
	TransactionStatusExpired    TransactionStatus = "expired"
	TransactionStatusRefunded   TransactionStatus = "refunded"
)

var validTransactionStatuses = map[TransactionStatus]bool{
	TransactionStatusPending:    true,
	TransactionStatusProcessing: true,
	TransactionStatusPaid:       true,
	TransactionStatusCancelled:  true,
	TransactionStatusFailed:     true,
	TransactionStatusExpired:    true,
	TransactionStatusRefunded:   true,
}

func (s TransactionStatus) String() string {
	return string(s)
}

func (s TransactionStatus) IsValid() bool {
	return validTransactionStatuses[s]
}

// IsTerminal reports whether the status admits no further transitions.
// Once terminal, a duplicate webhook delivery for the same status is a
// no-op and one for a different status is a conflicting transition.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusPaid, TransactionStatusCancelled, TransactionStatusFailed,
		TransactionStatusExpired, TransactionStatusRefunded:
		return true
	default:
		return false
	}
}

func (s TransactionStatus) IsPending() bool {
	return s == TransactionStatusPending || s == TransactionStatusProcessing
}

// ParseTransactionStatus deserializes a stored status value. Unknown values
// are rejected so that legacy rows fail loudly instead of flowing through
// the ledger as a guessed status.
func ParseTransactionStatus(value string) (TransactionStatus, error) {
	s := TransactionStatus(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid transaction status: %q", value)
	}
	return s, nil
}
