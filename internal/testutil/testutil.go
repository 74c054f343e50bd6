package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"checkout-service/internal/database"
	"checkout-service/internal/migrate"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestSQLite поднимает файловую sqlite-базу во временной директории теста.
func SetupTestSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "checkout.db"),
	}
	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { closeDB(db) })
	return db
}

// SetupTestPostgres запускает postgres в testcontainers. Без Docker тест пропускается.
func SetupTestPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("checkout"),
		tcpostgres.WithUsername("checkout"),
		tcpostgres.WithPassword("checkout"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres dsn: %v", err)
	}

	db, err := database.OpenDSN(database.DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { closeDB(db) })
	return db
}

// MigratedSQLite: sqlite с применённой схемой.
func MigratedSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	return migrated(t, SetupTestSQLite(t))
}

func MigratedPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	return migrated(t, SetupTestPostgres(t))
}

func migrated(t *testing.T, db *gorm.DB) *gorm.DB {
	t.Helper()
	if err := migrate.MigrateCheckoutDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func Int32(v int32) *int32 { return &v }
