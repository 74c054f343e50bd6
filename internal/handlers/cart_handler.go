package handlers

import (
	"context"
	"net/http"

	"checkout-service/internal/demand"
	"checkout-service/internal/dto"
	"checkout-service/internal/reservation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartService interface {
	TrackCartItem(sessionID, itemID string, qty int32) error
	ReleaseCartItem(sessionID, itemID string)
	ReleaseAllCartItems(sessionID string) int
	SessionItems(sessionID string) []reservation.Reservation
	Stats() reservation.Stats
	DemandSnapshot(ctx context.Context, itemID string) (demand.Snapshot, error)
	AvailableStock(ctx context.Context, itemID string) (*int32, error)
}

type CartHandler struct {
	cart CartService
	log  *zap.Logger
}

func NewCartHandler(cart CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log}
}

// TrackItem godoc
// @Summary Добавить позицию в корзину
// @Description Выставляет итоговое количество позиции в корзине сессии (мягкий резерв)
// @Tags cart
// @Accept json
// @Produce json
// @Param item body dto.TrackCartItemRequest true "Позиция"
// @Success 200 {object} dto.CartResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/cart/items [post]
func (h *CartHandler) TrackItem(c *gin.Context) {
	var req dto.TrackCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid track request", zap.Error(err))
		bindError(c, err)
		return
	}

	if err := h.cart.TrackCartItem(req.SessionID, req.ItemID, req.Quantity); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(req.SessionID))
}

// ReleaseItem godoc
// @Summary Убрать позицию из корзины
// @Tags cart
// @Produce json
// @Success 200 {object} dto.CartResponse
// @Router /api/v1/cart/{session_id}/items/{item_id} [delete]
func (h *CartHandler) ReleaseItem(c *gin.Context) {
	sessionID := c.Param("session_id")
	h.cart.ReleaseCartItem(sessionID, c.Param("item_id"))
	c.JSON(http.StatusOK, h.cartResponse(sessionID))
}

// ReleaseAll godoc
// @Summary Очистить корзину
// @Tags cart
// @Produce json
// @Success 200 {object} dto.ReleaseAllResponse
// @Router /api/v1/cart/{session_id} [delete]
func (h *CartHandler) ReleaseAll(c *gin.Context) {
	sessionID := c.Param("session_id")
	n := h.cart.ReleaseAllCartItems(sessionID)
	c.JSON(http.StatusOK, dto.ReleaseAllResponse{SessionID: sessionID, Released: n})
}

// GetCart godoc
// @Summary Текущие резервы сессии
// @Tags cart
// @Produce json
// @Success 200 {object} dto.CartResponse
// @Router /api/v1/cart/{session_id} [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartResponse(c.Param("session_id")))
}

// Demand godoc
// @Summary Уровень спроса по позиции
// @Tags items
// @Produce json
// @Success 200 {object} demand.Snapshot
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/items/{item_id}/demand [get]
func (h *CartHandler) Demand(c *gin.Context) {
	snap, err := h.cart.DemandSnapshot(c.Request.Context(), c.Param("item_id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Stock godoc
// @Summary Остаток с учётом резервов
// @Description available = null для безлимитной позиции
// @Tags items
// @Produce json
// @Success 200 {object} dto.StockResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/items/{item_id}/stock [get]
func (h *CartHandler) Stock(c *gin.Context) {
	itemID := c.Param("item_id")
	avail, err := h.cart.AvailableStock(c.Request.Context(), itemID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.StockResponse{ItemID: itemID, Available: avail, Unlimited: avail == nil})
}

// Stats godoc
// @Summary Статистика резервов
// @Tags cart
// @Produce json
// @Success 200 {object} reservation.Stats
// @Router /api/v1/reservations/stats [get]
func (h *CartHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cart.Stats())
}

func (h *CartHandler) cartResponse(sessionID string) dto.CartResponse {
	res := h.cart.SessionItems(sessionID)
	items := make([]dto.ReservationResponse, 0, len(res))
	for _, r := range res {
		items = append(items, dto.ReservationResponse{ItemID: r.ItemID, Quantity: r.Quantity, UpdatedAt: r.UpdatedAt})
	}
	return dto.CartResponse{SessionID: sessionID, Items: items}
}
