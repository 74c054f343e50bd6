package router

import (
	"context"
	"net/http"
	"time"

	"checkout-service/internal/handlers"
	"checkout-service/internal/metrics"
	"checkout-service/internal/middleware"
	"checkout-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReadinessCheck: проверка зависимости для /ready (БД, Redis).
type ReadinessCheck func(ctx context.Context) error

type Deps struct {
	Cart    handlers.CartService
	Orders  service.OrderService
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Checks  map[string]ReadinessCheck
}

func Router(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", handlers.IdempotencyKeyHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		failed := gin.H{}
		for name, check := range d.Checks {
			if err := check(ctx); err != nil {
				d.Log.Warn("Readiness check failed", zap.String("check", name), zap.Error(err))
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	cartHandler := handlers.NewCartHandler(d.Cart, d.Log)
	orderHandler := handlers.NewOrderHandler(d.Orders, d.Log)

	api := r.Group("/api/v1")
	{
		cart := api.Group("/cart")
		cart.POST("/items", cartHandler.TrackItem)
		cart.GET("/:session_id", cartHandler.GetCart)
		cart.DELETE("/:session_id", cartHandler.ReleaseAll)
		cart.DELETE("/:session_id/items/:item_id", cartHandler.ReleaseItem)

		api.GET("/items/:item_id/demand", cartHandler.Demand)
		api.GET("/items/:item_id/stock", cartHandler.Stock)
		api.GET("/reservations/stats", cartHandler.Stats)

		orders := api.Group("/orders")
		orders.POST("", orderHandler.CreateOrder)
		orders.GET("", orderHandler.ListOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
	}

	return r
}
