package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"checkout-service/internal/database"
	"checkout-service/internal/demand"
	"checkout-service/internal/dto"
	"checkout-service/internal/handlers"
	"checkout-service/internal/metrics"
	"checkout-service/internal/models"
	"checkout-service/internal/repository"
	"checkout-service/internal/reservation"
	"checkout-service/internal/router"
	"checkout-service/internal/service"
	"checkout-service/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type server struct {
	engine *gin.Engine
	repo   *repository.Repository
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := zap.NewNop()
	repo := repository.New(testutil.MigratedSQLite(t))
	tracker := reservation.NewTracker(0)
	m := metrics.New()
	m.RegisterTracker(tracker)

	cart := service.NewCartService(tracker, repo, demand.DefaultThresholds(), log)
	orders := service.NewOrderService(repo, nil, log, service.OrderServiceOptions{
		Holds:         tracker,
		Observer:      m,
		CommitTimeout: 10 * time.Second,
	})

	checks := map[string]router.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, repo.DB) },
	}
	return &server{
		engine: router.Router(router.Deps{Cart: cart, Orders: orders, Metrics: m, Log: log, Checks: checks}),
		repo:   repo,
	}
}

func (s *server) seed(t *testing.T, id string, inv *int32) {
	t.Helper()
	err := s.repo.Items.Upsert(context.Background(), &models.MenuItem{
		ID: id, Name: id, PriceCents: 300, InventoryEnabled: inv != nil, Inventory: inv,
	})
	require.NoError(t, err)
}

func (s *server) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func orderRequest(itemID string, qty int32) dto.CreateOrderRequest {
	sub := 300 * int64(qty)
	return dto.CreateOrderRequest{
		SessionID: "sess-http",
		Customer:  dto.CustomerRequest{Name: "Bob", Email: "bob@example.com"},
		Items: []dto.OrderItemRequest{
			{MenuItemID: itemID, Quantity: qty, PriceCents: 300, SubtotalCents: sub},
		},
		SubtotalCents: sub,
		TotalCents:    sub,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/ready", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ready"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "http_requests_total")
}

func TestCart_TrackAndRelease(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", dto.TrackCartItemRequest{SessionID: "s1", ItemID: "pizza", Quantity: 2}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cart dto.CartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	require.Equal(t, int32(2), cart.Items[0].Quantity)

	w = s.do(t, http.MethodGet, "/api/v1/reservations/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats reservation.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	require.Equal(t, 1, stats.TotalReservations)

	w = s.do(t, http.MethodDelete, "/api/v1/cart/s1/items/pizza", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	require.Empty(t, cart.Items)

	// повторное освобождение не ошибка
	w = s.do(t, http.MethodDelete, "/api/v1/cart/s1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"session_id":"s1","released":0}`, w.Body.String())
}

func TestCart_TrackValidation(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", map[string]any{"session_id": "s1", "item_id": "pizza", "quantity": 0}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.ValidationErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "validation_error", resp.Code)
	require.NotEmpty(t, resp.Fields)
}

func TestDemandAndStock(t *testing.T) {
	s := newServer(t)
	s.seed(t, "cake", testutil.Int32(3))

	for i := 0; i < 10; i++ {
		req := dto.TrackCartItemRequest{SessionID: "s" + string(rune('a'+i)), ItemID: "cake", Quantity: 1}
		require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/cart/items", req, nil).Code)
	}

	w := s.do(t, http.MethodGet, "/api/v1/items/cake/demand", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap demand.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	require.Equal(t, demand.TierCritical, snap.UrgencyTier)
	require.NotNil(t, snap.UrgencyMessage)
	require.Contains(t, *snap.UrgencyMessage, "10")

	w = s.do(t, http.MethodGet, "/api/v1/items/cake/stock", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stock dto.StockResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stock))
	require.NotNil(t, stock.Available)
	require.Equal(t, int32(0), *stock.Available)

	w = s.do(t, http.MethodGet, "/api/v1/items/missing/demand", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrder_IdempotentReplay(t *testing.T) {
	s := newServer(t)
	s.seed(t, "soup", testutil.Int32(5))

	hdr := map[string]string{handlers.IdempotencyKeyHeader: "key-http-1"}
	w := s.do(t, http.MethodPost, "/api/v1/orders", orderRequest("soup", 2), hdr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.Equal(t, models.OrderStatusConfirmed, first.Status)

	w = s.do(t, http.MethodPost, "/api/v1/orders", orderRequest("soup", 2), hdr)
	require.Equal(t, http.StatusCreated, w.Code)
	var second models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.Equal(t, first.ID, second.ID)

	it, err := s.repo.Items.Get(context.Background(), "soup")
	require.NoError(t, err)
	require.Equal(t, int32(3), *it.Inventory)

	w = s.do(t, http.MethodGet, "/api/v1/orders/"+first.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/orders?session_id=sess-http", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.OrderListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, int64(1), list.Total)
}

func TestCreateOrder_Insufficient(t *testing.T) {
	s := newServer(t)
	s.seed(t, "pie", testutil.Int32(1))

	w := s.do(t, http.MethodPost, "/api/v1/orders", orderRequest("pie", 2), nil)
	require.Equal(t, http.StatusConflict, w.Code)

	var resp dto.InsufficientInventoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "insufficient_inventory", resp.Code)
	require.Equal(t, "pie", resp.ItemID)
	require.Equal(t, int64(2), resp.Requested)
	require.Equal(t, int32(1), resp.Available)
}

func TestCreateOrder_TotalsMismatch(t *testing.T) {
	s := newServer(t)
	s.seed(t, "tea", nil)

	req := orderRequest("tea", 1)
	req.TotalCents = 1
	w := s.do(t, http.MethodPost, "/api/v1/orders", req, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrder_NotFoundAndCancel(t *testing.T) {
	s := newServer(t)
	s.seed(t, "salad", testutil.Int32(2))

	w := s.do(t, http.MethodGet, "/api/v1/orders/does-not-exist", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/orders", orderRequest("salad", 2), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var ord models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ord))

	w = s.do(t, http.MethodPost, "/api/v1/orders/"+ord.ID+"/cancel", dto.CancelOrderRequest{Reason: "changed mind"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	it, err := s.repo.Items.Get(context.Background(), "salad")
	require.NoError(t, err)
	require.Equal(t, int32(2), *it.Inventory)

	w = s.do(t, http.MethodPost, "/api/v1/orders/"+ord.ID+"/cancel", nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)
}
