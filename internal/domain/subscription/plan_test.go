package subscription

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(map[string]config.PlanConfig{
		"free": {
			DailyGenerationLimit:   10,
			MonthlyGenerationLimit: 100,
		},
		"basic": {
			DailyGenerationLimit:   100,
			MonthlyGenerationLimit: 1500,
			MonthlyPriceCents:      999,
			YearlyPriceCents:       9990,
		},
		"premium": {
			DailyGenerationLimit:   UnlimitedQuota,
			MonthlyGenerationLimit: 10000,
			MonthlyPriceCents:      2999,
			YearlyPriceCents:       29990,
			PriorityQueue:          true,
		},
	})
	require.NoError(t, err)
	return catalog
}

func TestNewCatalogRequiresFreeTier(t *testing.T) {
	_, err := NewCatalog(map[string]config.PlanConfig{
		"basic": {DailyGenerationLimit: 100},
	})
	assert.Error(t, err)
}

func TestNewCatalogRejectsUnknownTierNames(t *testing.T) {
	_, err := NewCatalog(map[string]config.PlanConfig{
		"free": {},
		"gold": {},
	})
	assert.Error(t, err)
}

func TestCatalogResolve(t *testing.T) {
	catalog := testCatalog(t)

	plan, err := catalog.Resolve(vo.TierBasic)
	require.NoError(t, err)
	assert.Equal(t, 100, plan.DailyGenerationLimit())
	assert.Equal(t, int64(999), plan.MonthlyPriceCents())

	_, err = catalog.Resolve(vo.Tier("enterprise"))
	assert.True(t, errors.Is(err, ErrUnknownTier))
}

func TestPlanPriceFor(t *testing.T) {
	catalog := testCatalog(t)
	plan, err := catalog.Resolve(vo.TierBasic)
	require.NoError(t, err)

	assert.Equal(t, int64(999), plan.PriceFor(vo.BillingCycleMonthly))
	assert.Equal(t, int64(9990), plan.PriceFor(vo.BillingCycleYearly))
}

func TestPlanUnlimited(t *testing.T) {
	catalog := testCatalog(t)

	premium, err := catalog.Resolve(vo.TierPremium)
	require.NoError(t, err)
	assert.True(t, premium.DailyUnlimited())
	assert.False(t, premium.MonthlyUnlimited())

	free, err := catalog.Resolve(vo.TierFree)
	require.NoError(t, err)
	assert.False(t, free.DailyUnlimited())
}
