package handlers

import (
	"net/http"
	"strings"

	"checkout-service/internal/dto"
	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// CreateOrder godoc
// @Summary Оформить заказ
// @Description Атомарно списывает остатки и создаёт заказ. Повтор с тем же Idempotency-Key возвращает первый результат.
// @Tags orders
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Ключ идемпотентности"
// @Param order body dto.CreateOrderRequest true "Черновик заказа"
// @Success 201 {object} models.Order
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 409 {object} dto.InsufficientInventoryResponse
// @Failure 503 {object} dto.CommitFailedResponse
// @Router /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid order request", zap.Error(err))
		bindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	ord, err := h.orders.CreateOrderAtomic(c.Request.Context(), toDraft(req), key)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, ord)
}

// GetOrder godoc
// @Summary Получить заказ
// @Tags orders
// @Produce json
// @Success 200 {object} models.Order
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	ord, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

// ListOrders godoc
// @Summary Список заказов
// @Tags orders
// @Produce json
// @Param session_id query string false "Сессия"
// @Param status query string false "Статус"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} dto.OrderListResponse
// @Router /api/v1/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	f := service.ListFilter{SessionID: q.SessionID, Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := models.OrderStatus(q.Status)
		f.Status = &st
	}

	orders, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: orders, Total: total})
}

// CancelOrder godoc
// @Summary Отменить заказ
// @Description Возвращает списанные остатки. Повторная отмена: 409.
// @Tags orders
// @Accept json
// @Produce json
// @Success 200 {object} models.Order
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse
// @Router /api/v1/orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	// тело необязательно
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}

	var reason *string
	if r := strings.TrimSpace(req.Reason); r != "" {
		reason = &r
	}

	ord, err := h.orders.CancelOrder(c.Request.Context(), c.Param("id"), reason)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

func toDraft(req dto.CreateOrderRequest) service.OrderDraft {
	items := make([]service.DraftItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.DraftItem{
			MenuItemID:    it.MenuItemID,
			Quantity:      it.Quantity,
			PriceCents:    it.PriceCents,
			SubtotalCents: it.SubtotalCents,
		})
	}
	return service.OrderDraft{
		SessionID: req.SessionID,
		Customer: service.Customer{
			Name:  req.Customer.Name,
			Email: req.Customer.Email,
			Phone: req.Customer.Phone,
		},
		Items:            items,
		Notes:            req.Notes,
		SubtotalCents:    req.SubtotalCents,
		TaxCents:         req.TaxCents,
		DeliveryFeeCents: req.DeliveryFeeCents,
		DiscountCents:    req.DiscountCents,
		TotalCents:       req.TotalCents,
	}
}
