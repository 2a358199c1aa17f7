package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound    = errors.New("subscription not found")
	ErrSubscriptionTerminal    = errors.New("subscription is in a terminal state")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnknownTier             = errors.New("unknown subscription tier")
	ErrAlreadySubscribed       = errors.New("user already has an active subscription")
	ErrQuotaExceeded           = errors.New("usage quota exceeded")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, from, to)
}
