package usage

import (
	"context"
	"errors"
	"time"
)

var ErrRecordNotFound = errors.New("usage record not found")

// Counts holds both quota axes for one user and usage type: today's counter
// and the sum of all daily counters in the current month.
type Counts struct {
	Daily   int64
	Monthly int64
}

// Repository stores daily usage counters. Increment is the only write path
// for counts and must be atomic at the database level: insert the day's row
// with the delta, or add the delta to the existing row, in one statement.
type Repository interface {
	// Increment adds delta to the counter for (userID, day, usageType),
	// creating the row if it does not exist yet.
	Increment(ctx context.Context, userID uint, day time.Time, usageType UsageType, delta int64) error
	// GetCounts returns the daily counter for day and the monthly sum over
	// the calendar month containing day. Missing rows count as zero.
	GetCounts(ctx context.Context, userID uint, day time.Time, usageType UsageType) (Counts, error)
	GetDailyCount(ctx context.Context, userID uint, day time.Time, usageType UsageType) (int64, error)
	GetMonthlySum(ctx context.Context, userID uint, monthOf time.Time, usageType UsageType) (int64, error)
	ListByUser(ctx context.Context, userID uint, from, to time.Time, usageType UsageType) ([]*Record, error)
	// PurgeBefore deletes rows whose usage date is strictly before cutoff
	// and returns how many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
