package config

import (
	"os"
	"testing"
	"time"

	"checkout-service/internal/database"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_SQLiteDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/checkout.db")
	t.Setenv("RESERVATION_TTL", "")
	t.Setenv("REDIS_ENABLED", "")
	t.Setenv("KAFKA_ENABLED", "")

	cfg := Load(zap.NewNop())

	require.Equal(t, database.DriverSQLite, cfg.DB.Driver)
	require.Equal(t, "/tmp/checkout.db", cfg.DB.Path)
	require.Equal(t, 30*time.Minute, cfg.Reservation.TTL)
	require.False(t, cfg.Redis.Enabled)
	require.False(t, cfg.Kafka.Enabled)
	require.NotEmpty(t, cfg.Kafka.GroupID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/checkout.db")
	t.Setenv("RESERVATION_TTL", "0")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("COMMIT_TIMEOUT", "3s")

	cfg := Load(zap.NewNop())

	require.Equal(t, time.Duration(0), cfg.Reservation.TTL)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, 3*time.Second, cfg.CommitTimeout)
}

func TestLoad_MissingRequiredPanics(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "")

	// DB_HOST задан пустым, но DB_PORT не задан вовсе
	unsetForTest(t, "DB_PORT")
	require.Panics(t, func() { Load(zap.NewNop()) })
}

func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestDurationDefault(t *testing.T) {
	require.Equal(t, time.Minute, durationDefault("", time.Minute))
	require.Equal(t, time.Minute, durationDefault("nope", time.Minute))
	require.Equal(t, 5*time.Second, durationDefault("5s", time.Minute))
}
