package billing

import (
	"errors"
	"fmt"
)

var (
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrDuplicateOrderCode     = errors.New("order code already exists")
	ErrInvalidTransition      = errors.New("invalid transaction status transition")
	ErrConflictingTransition  = errors.New("conflicting transition for terminal transaction")
	ErrConcurrentModification = errors.New("transaction modified concurrently")
)

// ErrTerminalConflict reports a duplicate webhook delivery that targets a
// different terminal status than the one already applied. It is an anomaly
// to surface, not to auto-resolve.
func ErrTerminalConflict(orderCode, current, requested string) error {
	return fmt.Errorf("%w: order %s is %s, requested %s", ErrConflictingTransition, orderCode, current, requested)
}
