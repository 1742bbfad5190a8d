package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	healthcheck "github.com/vladislavdragonenkov/urbanfood/internal/health"
	"github.com/vladislavdragonenkov/urbanfood/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/idempotency"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/outbox"
	"github.com/vladislavdragonenkov/urbanfood/internal/transport/httpapi"
)

const readHeaderTimeout = 5 * time.Second

// Run собирает зависимости и обслуживает HTTP API, метрики и gRPC health
// до отмены ctx. Фоновые воркеры живут столько же, сколько серверы.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	return serve(ctx, cfg, deps)
}

func serve(ctx context.Context, cfg Config, deps *Dependencies) error {
	logger := deps.Logger
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	var limiter *httpapi.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpapi.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	apiSrv := &http.Server{
		Handler: httpapi.NewRouter(httpapi.Dependencies{
			Catalog:        deps.Catalog,
			Orders:         deps.Orders,
			Reviews:        deps.Reviews,
			Idempotency:    deps.Idempotency,
			Limiter:        limiter,
			Logger:         logger.WithField("layer", "http"),
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	metricsSrv := &http.Server{Handler: newMetricsMux(deps.Health), ReadHeaderTimeout: readHeaderTimeout}
	grpcServer, grpcHealth := newOpsGRPCServer(logger)

	apiLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}
	metricsLis, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		_ = apiLis.Close()
		return fmt.Errorf("listen metrics: %w", err)
	}
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = apiLis.Close()
		_ = metricsLis.Close()
		return fmt.Errorf("listen grpc: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(serveHTTP(apiSrv, apiLis))
	g.Go(serveHTTP(metricsSrv, metricsLis))
	g.Go(func() error {
		if err := grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	logger.WithFields(log.Fields{
		"http_addr":    apiLis.Addr().String(),
		"metrics_addr": metricsLis.Addr().String(),
		"grpc_addr":    grpcLis.Addr().String(),
	}).Info("servers started")

	cleanup := idempotency.NewCleanupWorker(deps.IdempotencyRepo,
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	g.Go(func() error { return cleanup.Run(gctx) })

	if limiter != nil {
		g.Go(func() error { return limiter.Run(gctx) })
	}

	var consumer *kafka.Consumer
	if deps.Producer != nil {
		worker := outbox.NewWorker(deps.OutboxRepo, kafka.NewOutboxPublisher(deps.Producer, ""),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(deps.Producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		g.Go(func() error { return worker.Run(gctx) })

		if cfg.RedisAddr != "" {
			if c, err := initCacheInvalidator(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, deps.Catalog, deps.Producer, logger); err == nil && c != nil {
				consumer = c
				if err := consumer.Start(gctx); err != nil {
					logger.WithError(err).Warn("failed to start cache invalidator")
					consumer = nil
				}
			}
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

		shutdownHTTP(apiSrv, cfg.ShutdownTimeout, logger)
		shutdownHTTP(metricsSrv, cfg.ShutdownTimeout, logger)
		stopGRPC(grpcServer, cfg.ShutdownTimeout, logger)
		if consumer != nil {
			if err := consumer.Stop(); err != nil {
				logger.WithError(err).Warn("failed to stop kafka consumer")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// newOpsGRPCServer поднимает служебный gRPC: health, reflection и метрики интерсепторов.
func newOpsGRPCServer(logger *log.Entry) (*grpc.Server, *health.Server) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(grpcMetrics.StreamServerInterceptor()),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)
	grpcMetrics.InitializeMetrics(server)

	return server, healthServer
}

// newMetricsMux отдаёт /metrics и health probes.
func newMetricsMux(healthHandler *healthcheck.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	return mux
}

func serveHTTP(srv *http.Server, lis net.Listener) func() error {
	return func() error {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server %s: %w", lis.Addr(), err)
		}
		return nil
	}
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, timeout time.Duration, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}

func stopGRPC(server *grpc.Server, timeout time.Duration, logger *log.Entry) {
	stopped := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(timeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}
