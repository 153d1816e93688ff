package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/orderapi/internal/health"
	"github.com/vladislavdragonenkov/orderapi/internal/version"
)

// findFreePort находит свободный порт для тестов.
func findFreePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func waitForHTTP(t *testing.T, url string) *http.Response {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("server at %s did not start: %v", url, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.StorageDriver = StorageDriverMemory

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "StorageDriver") {
		t.Fatalf("expected storage driver validation error, got %v", err)
	}
}

func TestRun_ServesOrdersAPI(t *testing.T) {
	apiPort := findFreePort(t)
	adminPort := findFreePort(t)

	cfg := DefaultConfig()
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", apiPort)
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", adminPort)
	cfg.GRPCAddr = ""

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	ordersURL := fmt.Sprintf("http://127.0.0.1:%d/api/v1/orders", apiPort)
	resp := waitForHTTP(t, ordersURL)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from list orders, got %d", resp.StatusCode)
	}

	created, err := http.Post(ordersURL, "application/json", strings.NewReader(`{"order_id":"o-run-1","sku":"A"}`))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	_ = created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.StatusCode)
	}

	health := waitForHTTP(t, fmt.Sprintf("http://127.0.0.1:%d/readyz", adminPort))
	_ = health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", health.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	cfg := DefaultConfig()
	cfg.HTTPAddr = busy.Addr().String()
	cfg.MetricsAddr = ""
	cfg.GRPCAddr = ""

	err = Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "listen api") {
		t.Fatalf("expected listen error, got %v", err)
	}
}

func TestAdminServer_Endpoints(t *testing.T) {
	healthHandler := healthcheck.NewHandler(version.Fields())
	srv := httptest.NewServer(newAdminServer(healthHandler).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to get /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		t.Fatalf("expected non-empty /metrics, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to get /healthz: %v", err)
	}
	var payload healthcheck.Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode /healthz: %v", err)
	}
	_ = resp.Body.Close()
	if payload.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy status, got %q", payload.Status)
	}
	if payload.Build["version"] != version.GetVersion() {
		t.Fatalf("expected build version in response, got %v", payload.Build)
	}

	for _, path := range []string{"/livez", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("failed to get %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}
}

func TestAdminServer_UnhealthyStorage(t *testing.T) {
	healthHandler := healthcheck.NewHandler(nil)
	healthHandler.RegisterChecker("postgres", healthcheck.NewFuncChecker("postgres", func(context.Context) error {
		return errors.New("connection refused")
	}))
	srv := httptest.NewServer(newAdminServer(healthHandler).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("failed to get /readyz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestShutdownHTTP_NilServer(t *testing.T) {
	shutdownHTTP(nil, time.Second, log.WithField("test", "shutdown"))
}
