package subscription

import (
	"fmt"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
)

// UnlimitedQuota marks a quota axis with no cap.
const UnlimitedQuota = -1

// Plan is read-only reference data describing one tier: quota limits,
// pricing per cycle, and feature flags. Plans come from configuration,
// not the database, so a catalog change is a deploy, not a migration.
type Plan struct {
	tier                   vo.Tier
	dailyGenerationLimit   int
	monthlyGenerationLimit int
	monthlyPriceCents      int64
	yearlyPriceCents       int64
	watermark              bool
	priorityQueue          bool
}

func (p *Plan) Tier() vo.Tier               { return p.tier }
func (p *Plan) DailyGenerationLimit() int   { return p.dailyGenerationLimit }
func (p *Plan) MonthlyGenerationLimit() int { return p.monthlyGenerationLimit }
func (p *Plan) MonthlyPriceCents() int64    { return p.monthlyPriceCents }
func (p *Plan) YearlyPriceCents() int64     { return p.yearlyPriceCents }
func (p *Plan) Watermark() bool             { return p.watermark }
func (p *Plan) PriorityQueue() bool         { return p.priorityQueue }

// PriceFor returns the charge for one billing cycle.
func (p *Plan) PriceFor(cycle vo.BillingCycle) int64 {
	if cycle == vo.BillingCycleYearly {
		return p.yearlyPriceCents
	}
	return p.monthlyPriceCents
}

// DailyUnlimited reports whether the daily axis has no cap.
func (p *Plan) DailyUnlimited() bool {
	return p.dailyGenerationLimit == UnlimitedQuota
}

// MonthlyUnlimited reports whether the monthly axis has no cap.
func (p *Plan) MonthlyUnlimited() bool {
	return p.monthlyGenerationLimit == UnlimitedQuota
}

// Catalog resolves tiers to plans. Unknown tiers resolve to an error, never
// to a default plan, so quota checks fail closed.
type Catalog struct {
	plans map[vo.Tier]*Plan
}

// NewCatalog builds a catalog from the configured plan map. Keys must be
// valid tier names.
func NewCatalog(cfg map[string]config.PlanConfig) (*Catalog, error) {
	if len(cfg) == 0 {
		return nil, fmt.Errorf("plan catalog is empty")
	}

	plans := make(map[vo.Tier]*Plan, len(cfg))
	for name, pc := range cfg {
		tier, err := vo.ParseTier(name)
		if err != nil {
			return nil, fmt.Errorf("plan catalog: %w", err)
		}
		plans[tier] = &Plan{
			tier:                   tier,
			dailyGenerationLimit:   pc.DailyGenerationLimit,
			monthlyGenerationLimit: pc.MonthlyGenerationLimit,
			monthlyPriceCents:      pc.MonthlyPriceCents,
			yearlyPriceCents:       pc.YearlyPriceCents,
			watermark:              pc.Watermark,
			priorityQueue:          pc.PriorityQueue,
		}
	}

	if _, ok := plans[vo.TierFree]; !ok {
		return nil, fmt.Errorf("plan catalog: free tier is required")
	}

	return &Catalog{plans: plans}, nil
}

// Resolve returns the plan for a tier, or ErrUnknownTier.
func (c *Catalog) Resolve(tier vo.Tier) (*Plan, error) {
	plan, ok := c.plans[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	return plan, nil
}

// Tiers lists the tiers present in the catalog.
func (c *Catalog) Tiers() []vo.Tier {
	tiers := make([]vo.Tier, 0, len(c.plans))
	for t := range c.plans {
		tiers = append(tiers, t)
	}
	return tiers
}
