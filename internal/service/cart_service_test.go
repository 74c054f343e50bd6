package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"checkout-service/internal/demand"
	"checkout-service/internal/repository"
	"checkout-service/internal/reservation"
	"checkout-service/internal/service"
	"checkout-service/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCart(t *testing.T) (*service.CartService, *env) {
	t.Helper()
	e := newEnv(t, testutil.MigratedSQLite(t))
	cart := service.NewCartService(e.tracker, e.repo, demand.DefaultThresholds(), zap.NewNop())
	return cart, e
}

func TestCartService_TrackAndRelease(t *testing.T) {
	cart, _ := newCart(t)

	require.NoError(t, cart.TrackCartItem("s1", "a", 2))
	require.NoError(t, cart.TrackCartItem("s1", "b", 1))
	require.ErrorIs(t, cart.TrackCartItem("s1", "a", 0), service.ErrInvalidCartInput)

	require.Equal(t, reservation.Stats{TotalReservations: 2, UniqueSessions: 1, UniqueItems: 2}, cart.Stats())

	cart.ReleaseCartItem("s1", "a")
	require.Len(t, cart.SessionItems("s1"), 1)
	require.Equal(t, 1, cart.ReleaseAllCartItems("s1"))
	require.Equal(t, reservation.Stats{}, cart.Stats())
}

func TestCartService_AvailableStock(t *testing.T) {
	cart, e := newCart(t)
	ctx := context.Background()
	e.seed(t, "cake", true, testutil.Int32(10))
	e.seed(t, "tea", false, nil)

	require.NoError(t, cart.TrackCartItem("s1", "cake", 3))
	require.NoError(t, cart.TrackCartItem("s2", "cake", 4))

	got, err := cart.AvailableStock(ctx, "cake")
	require.NoError(t, err)
	require.EqualValues(t, 3, *got)

	got, err = cart.AvailableStock(ctx, "tea")
	require.NoError(t, err)
	require.Nil(t, got)

	_, err = cart.AvailableStock(ctx, "ghost")
	require.ErrorIs(t, err, service.ErrItemNotFound)
}

func TestCartService_DemandSnapshotCritical(t *testing.T) {
	cart, e := newCart(t)
	ctx := context.Background()
	e.seed(t, "burger", true, testutil.Int32(100))

	for i := 0; i < 10; i++ {
		require.NoError(t, cart.TrackCartItem(fmt.Sprintf("s%d", i), "burger", 1))
	}

	snap, err := cart.DemandSnapshot(ctx, "burger")
	require.NoError(t, err)
	require.Equal(t, demand.TierCritical, snap.UrgencyTier)
	require.Equal(t, 10, snap.ActiveCartCount)
	require.EqualValues(t, 10, snap.TotalReservedQuantity)
	require.EqualValues(t, 90, *snap.AvailableStock)
	require.NotNil(t, snap.UrgencyMessage)
	require.True(t, strings.Contains(*snap.UrgencyMessage, "10"), *snap.UrgencyMessage)
}

func TestCartService_DemandSnapshotUsesRecentOrders(t *testing.T) {
	cart, e := newCart(t)
	ctx := context.Background()
	e.seed(t, "soup", false, nil)

	for i := 0; i < 3; i++ {
		_, err := e.svc.CreateOrderAtomic(ctx, draft(line("soup", 1)), "")
		require.NoError(t, err)
	}
	require.NoError(t, cart.TrackCartItem("s1", "soup", 1))
	require.NoError(t, cart.TrackCartItem("s2", "soup", 1))

	snap, err := cart.DemandSnapshot(ctx, "soup")
	require.NoError(t, err)
	require.Equal(t, demand.TierModerate, snap.UrgencyTier)
	require.Nil(t, snap.AvailableStock)
	require.NotNil(t, snap.SocialProof)
	require.Equal(t, "Ordered 3 times in the last hour", *snap.SocialProof)

	_, err = cart.DemandSnapshot(ctx, "ghost")
	require.True(t, errors.Is(err, service.ErrItemNotFound))
}

func TestIdempotencyGuard_StoreFirstWins(t *testing.T) {
	db := testutil.MigratedSQLite(t)
	repo := repository.New(db)
	cache := NewMockResultCache()
	guard := service.NewIdempotencyGuard(repo.Idempotency, cache, 0, zap.NewNop())
	ctx := context.Background()

	got, err := guard.Check(ctx, "k1")
	require.NoError(t, err)
	require.Nil(t, got)

	first, err := guard.Store(ctx, "k1", []byte(`{"n":1}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(first))

	second, err := guard.Store(ctx, "k1", []byte(`{"n":2}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(second))

	got, err = guard.Check(ctx, "k1")
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(got))
	require.Equal(t, 1, cache.Len())
}
