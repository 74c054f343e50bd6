package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"checkout-service/config"
	"checkout-service/internal/cache"
	"checkout-service/internal/cleanup"
	"checkout-service/internal/consumer"
	"checkout-service/internal/database"
	"checkout-service/internal/demand"
	"checkout-service/internal/logger"
	"checkout-service/internal/metrics"
	"checkout-service/internal/producer"
	"checkout-service/internal/repository"
	"checkout-service/internal/reservation"
	"checkout-service/internal/router"
	"checkout-service/internal/service"
	gtransport "checkout-service/internal/transport/grpc"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	thresholds, err := demand.LoadThresholds(cfg.DemandConfigFile)
	if err != nil {
		log.Fatal("Некорректный файл порогов спроса", zap.String("path", cfg.DemandConfigFile), zap.Error(err))
	}

	repos := repository.New(db)
	tracker := reservation.NewTracker(cfg.Reservation.TTL)

	m := metrics.New()
	m.RegisterTracker(tracker)

	checks := map[string]router.ReadinessCheck{
		"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
	}

	// Redis опционален: без него повторы отвечаются из таблицы ключей
	var resultCache service.ResultCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Не удалось подключиться к Redis", zap.Error(err))
		}
		defer rc.Close()
		resultCache = rc
		checks["redis"] = rc.Ping
	}
	guard := service.NewIdempotencyGuard(repos.Idempotency, resultCache, cfg.Idempotency.CacheTTL, log)

	cart := service.NewCartService(tracker, repos, thresholds, log)

	opts := service.OrderServiceOptions{
		Holds:         cart,
		Observer:      m,
		CommitTimeout: cfg.CommitTimeout,
	}

	var orderConsumer *consumer.OrderEventConsumer
	if cfg.Kafka.Enabled {
		prod := producer.NewOrderEventProducer(cfg.Kafka.Brokers, producer.Topics{
			OrderCreated:   cfg.Kafka.TopicOrderCreated,
			OrderCancelled: cfg.Kafka.TopicOrderCancelled,
		}, log)
		prod.OnPublishFailed(m.EventPublishFailed)
		defer prod.Close()
		opts.Events = prod

		orderConsumer = consumer.NewOrderEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TopicOrderCreated, cart, log)
		defer orderConsumer.Close()
	}

	orders := service.NewOrderService(repos, guard, log, opts)

	cleaner := cleanup.NewCleanupService(tracker, repos.Idempotency, cfg.Idempotency.Retention, log)
	scheduler := cleanup.NewScheduler(cleaner, cfg.Reservation.SweepInterval, cfg.Idempotency.PurgeInterval, log)

	httpSrv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router.Router(router.Deps{Cart: cart, Orders: orders, Metrics: m, Log: log, Checks: checks}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatal("failed to listen", zap.Error(err))
	}
	grpcSrv := gtransport.NewServer(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// ключи, накопившиеся пока сервис был остановлен
	if err := scheduler.RunOnceNow(gctx); err != nil {
		log.Warn("Startup cleanup failed", zap.Error(err))
	}
	scheduler.Start(gctx)

	g.Go(func() error {
		log.Info("Starting checkout HTTP server", zap.String("addr", cfg.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return grpcSrv.Serve(lis)
	})
	if orderConsumer != nil {
		g.Go(func() error {
			return orderConsumer.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down checkout service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		grpcSrv.Shutdown()
		scheduler.Stop()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Checkout service stopped with error", zap.Error(err))
		return
	}
	log.Info("Checkout service stopped gracefully")
}
