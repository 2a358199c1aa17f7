package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pixelmuse/pixelmuse/internal/infrastructure/persistence/models"
)

var testDBCounter atomic.Int64

// setupTestDB opens a fresh in-memory sqlite database with the billing
// schema. The named shared-cache DSN keeps all pooled connections on the
// same database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.TransactionModel{},
		&models.SubscriptionModel{},
		&models.SubscriptionHistoryModel{},
		&models.UsageTrackingModel{},
	))

	return gormDB
}
