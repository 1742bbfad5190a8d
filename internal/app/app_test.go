package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/urbanfood/internal/health"
)

func TestMetricsMux_Probes(t *testing.T) {
	handler := healthcheck.NewHandler("test")
	mux := newMetricsMux(handler)

	for _, path := range []string{"/metrics", "/healthz", "/readyz", "/livez"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	handler.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a dependency is down, got %d", rec.Code)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "invalid-address"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected listen error")
	}
}

func TestNewOpsGRPCServer_ReusesMetrics(t *testing.T) {
	logger := log.WithField("test", "grpc")
	first, _ := newOpsGRPCServer(logger)
	second, health := newOpsGRPCServer(logger)
	if first == nil || second == nil || health == nil {
		t.Fatal("expected servers")
	}
	first.Stop()
	second.Stop()
}
