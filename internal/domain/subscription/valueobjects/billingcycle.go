package valueobjects

import (
	"fmt"
	"time"
)

// BillingCycle is the renewal period unit.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) String() string {
	return string(c)
}

func (c BillingCycle) IsValid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

func ParseBillingCycle(value string) (BillingCycle, error) {
	c := BillingCycle(value)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid billing cycle: %q", value)
	}
	return c, nil
}

// Advance returns t plus one billing cycle, clamping to the last day of the
// target month instead of letting the date normalize forward. A monthly
// subscription anchored on Jan 31 renews on Feb 28 (29 in leap years), not
// Mar 2/3. Yearly follows the same rule for Feb 29 anchors.
func (c BillingCycle) Advance(t time.Time) time.Time {
	var years, months int
	switch c {
	case BillingCycleYearly:
		years = 1
	default:
		months = 1
	}

	year, month, day := t.Date()
	targetYear := year + years
	targetMonth := month + time.Month(months)
	if targetMonth > time.December {
		targetMonth -= 12
		targetYear++
	}

	if last := lastDayOfMonth(targetYear, targetMonth); day > last {
		day = last
	}

	h, m, s := t.Clock()
	return time.Date(targetYear, targetMonth, day, h, m, s, t.Nanosecond(), t.Location())
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
