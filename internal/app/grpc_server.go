package app

import (
	"errors"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// OrderAPIServiceName задаёт имя, под которым статус сервиса виден в grpc.health.v1.
const OrderAPIServiceName = "orderapi.OrderAPI"

const grpcStopTimeout = 5 * time.Second

// newGRPCServer собирает gRPC-сервер с health и reflection. Бизнес-методов по gRPC нет:
// сервер нужен оркестраторам и балансировщикам для health-проверок.
func newGRPCServer(registerer prometheus.Registerer, logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := registerer.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(OrderAPIServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(srv)
	grpcMetrics.InitializeMetrics(srv)

	return srv, healthServer
}

// stopGRPC переводит health в NOT_SERVING и ждёт завершения активных вызовов,
// по таймауту останавливает сервер принудительно.
func stopGRPC(srv *grpc.Server, healthServer *health.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	if healthServer != nil {
		healthServer.Shutdown()
	}

	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(grpcStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		srv.Stop()
	}
}
