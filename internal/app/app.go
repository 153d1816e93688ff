package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	healthcheck "github.com/vladislavdragonenkov/orderapi/internal/health"
	"github.com/vladislavdragonenkov/orderapi/internal/metrics"
	"github.com/vladislavdragonenkov/orderapi/internal/service/orders"
	"github.com/vladislavdragonenkov/orderapi/internal/transport/rest"
	"github.com/vladislavdragonenkov/orderapi/internal/version"
)

const readHeaderTimeout = 10 * time.Second

// Run поднимает REST API, admin-сервер (метрики и health) и gRPC health-сервер
// и блокируется до отмены ctx или падения одного из серверов.
// При отмене ctx возвращает ctx.Err().
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if err := cfg.Validate(); err != nil {
		return err
	}

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer deps.close(logger)

	erpClient, err := newOrderCreator(cfg, logger)
	if err != nil {
		return fmt.Errorf("init erp client: %w", err)
	}

	registerer := prometheus.DefaultRegisterer
	serviceOpts := []orders.Option{orders.WithMetrics(metrics.NewOrderMetrics(registerer))}
	if publisher := initEventPublisher(cfg, deps, logger); publisher != nil {
		serviceOpts = append(serviceOpts, orders.WithEvents(publisher))
	}
	svc := orders.NewService(deps.repo, erpClient, newProductCatalog(),
		logger.WithField("layer", "service"), serviceOpts...)

	router := rest.NewRouter(svc, rest.RouterOptions{
		Logger:           logger.WithField("layer", "rest"),
		Metrics:          metrics.NewHTTPMetrics(registerer),
		CORSAllowOrigins: SplitList(cfg.CORSAllowOrigins),
	})
	apiSrv := &http.Server{Handler: router, ReadHeaderTimeout: readHeaderTimeout}

	healthHandler := healthcheck.NewHandler(version.Fields())
	if deps.store != nil {
		healthHandler.RegisterChecker("storage", healthcheck.NewPingChecker("storage", deps.store))
	}
	adminSrv := newAdminServer(healthHandler)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen api: %w", err)
	}
	defer apiLis.Close()

	var adminLis net.Listener
	if cfg.MetricsAddr != "" {
		if adminLis, err = net.Listen("tcp", cfg.MetricsAddr); err != nil {
			return fmt.Errorf("listen admin: %w", err)
		}
		defer adminLis.Close()
	}

	var (
		grpcSrv    *grpc.Server
		grpcHealth *health.Server
		grpcLis    net.Listener
	)
	if cfg.GRPCAddr != "" {
		if grpcLis, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		grpcSrv, grpcHealth = newGRPCServer(registerer, logger.WithField("layer", "grpc"))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("REST API слушает %s%s", apiLis.Addr(), rest.APIPrefix)
		return serveHTTP(apiSrv, apiLis)
	})
	if adminLis != nil {
		g.Go(func() error {
			logger.Infof("метрики доступны по адресу %s/metrics", adminLis.Addr())
			logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", adminLis.Addr(), adminLis.Addr(), adminLis.Addr())
			return serveHTTP(adminSrv, adminLis)
		})
	}
	if grpcSrv != nil {
		g.Go(func() error {
			logger.Infof("gRPC health сервер слушает %s", grpcLis.Addr())
			if err := grpcSrv.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("получен сигнал остановки, останавливаем серверы")
		stopGRPC(grpcSrv, grpcHealth, logger)
		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(adminSrv, cfg.ShutdownTimeout, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// newAdminServer собирает служебный HTTP-сервер: /metrics для Prometheus и health-эндпоинты.
func newAdminServer(healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	healthHandler.Mount(mux)
	return &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
}

func serveHTTP(srv *http.Server, lis net.Listener) error {
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
