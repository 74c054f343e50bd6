package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/repository"
	"checkout-service/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(opts)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteOpts(t *testing.T) (*RootOptions, *gorm.DB) {
	db := testutil.SetupTestSQLite(t)
	return &RootOptions{Log: zap.NewNop(), Open: func() (*gorm.DB, error) { return db, nil }}, db
}

func TestMigrateAndItemLifecycle(t *testing.T) {
	opts, db := sqliteOpts(t)

	out, err := run(t, opts, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "migrated")

	_, err = run(t, opts, "item", "upsert", "pasta", "--name", "Pasta", "--price", "1200", "--inventory", "4")
	require.NoError(t, err)

	out, err = run(t, opts, "item", "get", "pasta")
	require.NoError(t, err)
	var got struct {
		ID             string `json:"id"`
		Inventory      *int32 `json:"inventory"`
		CommittedUnits int64  `json:"committed_units"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Equal(t, "pasta", got.ID)
	require.Equal(t, int32(4), *got.Inventory)
	require.Zero(t, got.CommittedUnits)

	_, err = run(t, opts, "item", "set-inventory", "pasta", "--inventory=-1")
	require.NoError(t, err)

	it, err := repository.New(db).Items.Get(context.Background(), "pasta")
	require.NoError(t, err)
	require.False(t, it.Tracked())

	_, err = run(t, opts, "item", "set-inventory", "missing", "--inventory", "1")
	require.Error(t, err)

	out, err = run(t, opts, "item", "list")
	require.NoError(t, err)
	var list []models.MenuItem
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
}

func TestStatsAndPurge(t *testing.T) {
	opts, db := sqliteOpts(t)
	_, err := run(t, opts, "migrate")
	require.NoError(t, err)

	repo := repository.New(db)
	ctx := context.Background()
	require.NoError(t, repo.Orders.Create(ctx, &models.Order{
		OrderNumber: "ORD-1", CustomerName: "A", Status: models.OrderStatusConfirmed,
		SubtotalCents: 1, TotalCents: 1,
	}))
	require.NoError(t, repo.Orders.Create(ctx, &models.Order{
		OrderNumber: "ORD-2", CustomerName: "B", Status: models.OrderStatusCancelled,
		SubtotalCents: 1, TotalCents: 1,
	}))

	out, err := run(t, opts, "stats")
	require.NoError(t, err)
	var v statsView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Equal(t, statsView{Orders: 2, Cancelled: 1, Confirmed: 1}, v)

	old := models.IdempotencyRecord{Key: "old", Result: []byte("{}"), StoredAt: time.Now().UTC().Add(-48 * time.Hour)}
	require.NoError(t, db.Create(&old).Error)

	out, err = run(t, opts, "purge-idempotency", "--older-than", "24h")
	require.NoError(t, err)
	require.Contains(t, out, "purged 1 keys")
}

func TestItemGet_NotFound(t *testing.T) {
	opts, _ := sqliteOpts(t)
	_, err := run(t, opts, "migrate")
	require.NoError(t, err)

	_, err = run(t, opts, "item", "get", "nope")
	require.Error(t, err)
}
