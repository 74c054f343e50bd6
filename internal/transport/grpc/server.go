package grpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
)

// ServiceName: имя для per-service статуса в health.
const ServiceName = "checkout.v1.Checkout"

// Server отдаёт grpc health для проб оркестратора. Бизнес-API живёт в HTTP.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

func NewServer(log *zap.Logger) *Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			NewRecoveryUnaryServerInterceptor(log),
			NewLoggingUnaryServerInterceptor(log),
		),
	)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)

	// Reflection for local debugging
	reflection.Register(srv)

	return &Server{srv: srv, health: healthSrv, log: log}
}

func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("Starting gRPC health server", zap.String("addr", lis.Addr().String()))
	return s.srv.Serve(lis)
}

// Shutdown сначала переводит health в NOT_SERVING, чтобы балансировщик успел снять трафик.
func (s *Server) Shutdown() {
	s.health.Shutdown()
	s.srv.GracefulStop()
	s.log.Info("gRPC server stopped gracefully")
}

func NewLoggingUnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("gRPC call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("latency", time.Since(start)))
		return resp, err
	}
}

func NewRecoveryUnaryServerInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in gRPC handler", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
