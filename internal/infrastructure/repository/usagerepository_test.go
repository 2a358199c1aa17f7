package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelmuse/pixelmuse/internal/domain/usage"
)

func TestUsageRepositoryIncrementAccumulates(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()
	day := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeImageGeneration, 1))
	require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeImageGeneration, 4))
	// Different clock time, same calendar day, same row.
	require.NoError(t, repo.Increment(ctx, 1, day.Add(5*time.Hour), usage.UsageTypeImageGeneration, 2))

	count, err := repo.GetDailyCount(ctx, 1, day, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestUsageRepositoryRowsAreKeyedByUserDayAndType(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()
	day := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeImageGeneration, 5))
	require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeUpscale, 2))
	require.NoError(t, repo.Increment(ctx, 2, day, usage.UsageTypeImageGeneration, 9))
	require.NoError(t, repo.Increment(ctx, 1, day.AddDate(0, 0, 1), usage.UsageTypeImageGeneration, 3))

	count, err := repo.GetDailyCount(ctx, 1, day, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	count, err = repo.GetDailyCount(ctx, 1, day, usage.UsageTypeUpscale)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = repo.GetDailyCount(ctx, 3, day, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUsageRepositoryGetMonthlySumStaysInsideMonth(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, 1, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration, 5))
	require.NoError(t, repo.Increment(ctx, 1, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration, 3))
	require.NoError(t, repo.Increment(ctx, 1, time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration, 4))
	require.NoError(t, repo.Increment(ctx, 1, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration, 7))

	sum, err := repo.GetMonthlySum(ctx, 1, time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(7), sum)
}

func TestUsageRepositoryGetCounts(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()
	day := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(ctx, 1, day.AddDate(0, 0, -3), usage.UsageTypeImageGeneration, 6))
	require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeImageGeneration, 2))

	counts, err := repo.GetCounts(ctx, 1, day, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Daily)
	assert.Equal(t, int64(8), counts.Monthly)
}

func TestUsageRepositoryListByUserOrdered(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()

	days := []time.Time{
		time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC),
	}
	for i, day := range days {
		require.NoError(t, repo.Increment(ctx, 1, day, usage.UsageTypeImageGeneration, int64(i+1)))
	}
	// Outside the requested range.
	require.NoError(t, repo.Increment(ctx, 1, time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC), usage.UsageTypeImageGeneration, 9))

	records, err := repo.ListByUser(ctx, 1,
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC),
		usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 10, records[0].UsageDate().Day())
	assert.Equal(t, 12, records[2].UsageDate().Day())
}

func TestUsageRepositoryPurgeBefore(t *testing.T) {
	repo := NewUsageRepository(setupTestDB(t))
	ctx := context.Background()
	cutoff := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Increment(ctx, 1, cutoff.AddDate(0, 0, -40), usage.UsageTypeImageGeneration, 5))
	require.NoError(t, repo.Increment(ctx, 1, cutoff.AddDate(0, 0, -1), usage.UsageTypeImageGeneration, 5))
	require.NoError(t, repo.Increment(ctx, 1, cutoff, usage.UsageTypeImageGeneration, 5))

	purged, err := repo.PurgeBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	count, err := repo.GetDailyCount(ctx, 1, cutoff, usage.UsageTypeImageGeneration)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}
