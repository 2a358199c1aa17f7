package usecases

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pixelmuse/pixelmuse/internal/domain/subscription"
	subvo "github.com/pixelmuse/pixelmuse/internal/domain/subscription/valueobjects"
	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
	"github.com/pixelmuse/pixelmuse/internal/infrastructure/repository"
	"github.com/pixelmuse/pixelmuse/internal/shared/config"
	"github.com/pixelmuse/pixelmuse/internal/shared/logger"
)

type quotaTestEnv struct {
	subRepo   *repository.SubscriptionRepository
	usageRepo *repository.UsageRepository
	uc        *CheckQuotaUseCase
	now       time.Time
}

var quotaTestDB atomic.Int64

func setupQuotaTest(t *testing.T) *quotaTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:quotatest%d?mode=memory&cache=shared", quotaTestDB.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.SubscriptionModel{},
		&models.UsageTrackingModel{},
	))

	catalog, err := subscription.NewCatalog(map[string]config.PlanConfig{
		"free":    {DailyGenerationLimit: 10, MonthlyGenerationLimit: 100},
		"basic":   {DailyGenerationLimit: 100, MonthlyGenerationLimit: 1500, MonthlyPriceCents: 999},
		"premium": {DailyGenerationLimit: -1, MonthlyGenerationLimit: 10000, MonthlyPriceCents: 2999},
	})
	require.NoError(t, err)

	env := &quotaTestEnv{
		subRepo:   repository.NewSubscriptionRepository(gormDB),
		usageRepo: repository.NewUsageRepository(gormDB),
		now:       time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
	env.uc = NewCheckQuotaUseCase(env.subRepo, env.usageRepo, catalog, logger.NewLogger()).
		WithNow(func() time.Time { return env.now })

	return env
}

func (e *quotaTestEnv) subscribe(t *testing.T, userID uint, tier subvo.Tier) {
	t.Helper()
	sub, err := subscription.NewSubscription(userID, tier, subvo.BillingCycleMonthly, 999, "USD", e.now.AddDate(0, 0, -5), true)
	require.NoError(t, err)
	require.NoError(t, e.subRepo.Create(context.Background(), sub))
}

func (e *quotaTestEnv) record(t *testing.T, userID uint, day time.Time, delta int64) {
	t.Helper()
	require.NoError(t, e.usageRepo.Increment(context.Background(), userID, day, usage.UsageTypeImageGeneration, delta))
}

func TestCheckQuotaFreeTierDefaults(t *testing.T) {
	env := setupQuotaTest(t)

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, subvo.TierFree, decision.Tier)
	assert.Equal(t, int64(10), decision.DailyRemaining)
	assert.Equal(t, int64(100), decision.MonthlyRemaining)
}

func TestCheckQuotaDailyLimitDenies(t *testing.T) {
	env := setupQuotaTest(t)
	env.record(t, 1, env.now, 10)

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "daily", decision.DeniedAxis)
	assert.Equal(t, int64(0), decision.DailyRemaining)
}

func TestCheckQuotaMonthlyLimitDenies(t *testing.T) {
	env := setupQuotaTest(t)
	// Late enough in the month that 20 daily batches all land in it.
	env.now = time.Date(2024, time.March, 25, 12, 0, 0, 0, time.UTC)
	// Spread below the daily limit but past the monthly cap.
	for i := 0; i < 20; i++ {
		env.record(t, 1, env.now.AddDate(0, 0, -i), 5)
	}

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "monthly", decision.DeniedAxis)
}

func TestCheckQuotaPaidTierRaisesLimits(t *testing.T) {
	env := setupQuotaTest(t)
	env.subscribe(t, 1, subvo.TierBasic)
	env.record(t, 1, env.now, 50)

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, subvo.TierBasic, decision.Tier)
	assert.Equal(t, int64(50), decision.DailyRemaining)
}

func TestCheckQuotaUnlimitedDailyAxis(t *testing.T) {
	env := setupQuotaTest(t)
	env.subscribe(t, 1, subvo.TierPremium)
	env.record(t, 1, env.now, 5000)

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(subscription.UnlimitedQuota), decision.DailyRemaining)
	// The monthly axis still applies.
	assert.Equal(t, int64(5000), decision.MonthlyRemaining)
}

func TestCheckQuotaUsageTypesAreIndependent(t *testing.T) {
	env := setupQuotaTest(t)
	env.record(t, 1, env.now, 10)

	decision, err := env.uc.Execute(context.Background(), 1, usage.UsageTypeUpscale)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckQuotaInvalidUsageType(t *testing.T) {
	env := setupQuotaTest(t)
	_, err := env.uc.Execute(context.Background(), 1, usage.UsageType("video"))
	assert.Error(t, err)
}

func TestRecordUsageEnforced(t *testing.T) {
	env := setupQuotaTest(t)
	recordUC := NewRecordUsageUseCase(env.usageRepo, env.uc, logger.NewLogger()).
		WithNow(func() time.Time { return env.now })

	for i := 0; i < 10; i++ {
		require.NoError(t, recordUC.Execute(context.Background(), RecordUsageCommand{
			UserID:    1,
			UsageType: usage.UsageTypeImageGeneration,
			Delta:     1,
			Enforce:   true,
		}))
	}

	err := recordUC.Execute(context.Background(), RecordUsageCommand{
		UserID:    1,
		UsageType: usage.UsageTypeImageGeneration,
		Delta:     1,
		Enforce:   true,
	})
	assert.ErrorIs(t, err, subscription.ErrQuotaExceeded)
}

func TestRecordUsageUnenforcedAlwaysLands(t *testing.T) {
	env := setupQuotaTest(t)
	env.record(t, 1, env.now, 10)

	recordUC := NewRecordUsageUseCase(env.usageRepo, env.uc, logger.NewLogger()).
		WithNow(func() time.Time { return env.now })

	// Work already happened; the units are recorded past the limit.
	require.NoError(t, recordUC.Execute(context.Background(), RecordUsageCommand{
		UserID:    1,
		UsageType: usage.UsageTypeImageGeneration,
		Delta:     2,
	}))

	count, err := env.usageRepo.GetDailyCount(context.Background(), 1, env.now, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestPurgeUsageDropsOldRows(t *testing.T) {
	env := setupQuotaTest(t)
	env.record(t, 1, env.now.AddDate(0, 0, -100), 5)
	env.record(t, 1, env.now, 3)

	purgeUC := NewPurgeUsageUseCase(env.usageRepo, 90, logger.NewLogger()).
		WithNow(func() time.Time { return env.now })

	purged, err := purgeUC.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	count, err := env.usageRepo.GetDailyCount(context.Background(), 1, env.now, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
