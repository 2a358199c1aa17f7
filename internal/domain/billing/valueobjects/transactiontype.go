package valueobjects

import "fmt"

type TransactionType string

const (
	TransactionTypeSubscriptionPayment TransactionType = "subscription_payment"
	TransactionTypeRenewal             TransactionType = "renewal"
	TransactionTypeUpgrade             TransactionType = "upgrade"
	TransactionTypeDowngrade           TransactionType = "downgrade"
	TransactionTypeOneTime             TransactionType = "one_time"
	TransactionTypeRefund              TransactionType = "refund"
)

var validTransactionTypes = map[TransactionType]bool{
	TransactionTypeSubscriptionPayment: true,
	TransactionTypeRenewal:             true,
	TransactionTypeUpgrade:             true,
	TransactionTypeDowngrade:           true,
	TransactionTypeOneTime:             true,
	TransactionTypeRefund:              true,
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	return validTransactionTypes[t]
}

func ParseTransactionType(value string) (TransactionType, error) {
	t := TransactionType(value)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type: %q", value)
	}
	return t, nil
}
