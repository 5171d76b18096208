package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

func TestNew(t *testing.T) {
	cfg := config.Default().Server.HTTP
	s := New(cfg, okHandler(), nil)

	if s.Addr() != cfg.Addr {
		t.Errorf("Addr() = %q, want %q", s.Addr(), cfg.Addr)
	}
	if s.httpServer.ReadTimeout != cfg.ReadTimeout || s.httpServer.IdleTimeout != cfg.IdleTimeout {
		t.Error("timeouts not applied")
	}
	if s.httpServer.ErrorLog == nil {
		t.Error("ErrorLog should be bridged to the logger")
	}
	if s.TLS() {
		t.Error("TLS should be off without cert and key")
	}

	cfg.TLSCertFile, cfg.TLSKeyFile = "cert.pem", "key.pem"
	if !New(cfg, okHandler(), nil).TLS() {
		t.Error("TLS should be on with cert and key")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	s := New(config.HTTPConfig{Addr: ln.Addr().String()}, okHandler(), logger.NewNop())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Serve returned %v, want nil after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	if cfg.Service == nil {
		cfg.Service = service.NewKVService(memory.New())
	}
	return NewRouter(cfg)
}

func TestNewRouter_FullChain(t *testing.T) {
	reg := metric.NewRegistry()
	h := newTestRouter(t, RouterConfig{
		Metrics:            reg,
		CORSAllowedOrigins: []string{"*"},
		RateLimit:          config.RateLimitConfig{Enabled: true, Rate: 100, Burst: 100},
		EnableAudit:        true,
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/keys/alpha", strings.NewReader(`{"value":"one"}`))
	req.Header.Set("Origin", "https://ui.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status = %d, want 201", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "https://ui.example.com" {
		t.Error("CORS header missing")
	}

	var body struct {
		RequestID string `json:"request_id"`
		Data      struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.RequestID != resp.Header.Get("X-Request-ID") {
		t.Errorf("body request_id %q does not match header %q", body.RequestID, resp.Header.Get("X-Request-ID"))
	}
	if body.Data.Outcome != "created" {
		t.Errorf("outcome = %q, want created", body.Data.Outcome)
	}

	got := testutil.ToFloat64(reg.RequestsTotal.WithLabelValues(metric.TransportHTTP, "PUT /keys/{key}", "201"))
	if got != 1 {
		t.Errorf("kvmesh_requests_total for PUT = %v, want 1", got)
	}
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	reg := metric.NewRegistry()
	srv := httptest.NewServer(newTestRouter(t, RouterConfig{Metrics: reg}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	text, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(text), "go_goroutines") {
		t.Error("metrics output should include Go collector metrics")
	}
}

func TestNewRouter_RateLimited(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, RouterConfig{
		RateLimit: config.RateLimitConfig{Enabled: true, Rate: 0.001, Burst: 1},
	}))
	defer srv.Close()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		resp, err := http.Get(srv.URL + "/health")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 429]", codes)
	}
}

func TestRouterConfigFrom(t *testing.T) {
	cfg := config.Default().Server.HTTP
	cfg.CORSAllowedOrigins = []string{"https://a.example.com"}

	rc := RouterConfigFrom(cfg, nil, nil, nil)
	if rc.RateLimit != cfg.RateLimit || rc.EnableAudit != cfg.EnableAudit {
		t.Error("rate limit and audit settings not carried over")
	}
	if len(rc.CORSAllowedOrigins) != 1 {
		t.Errorf("CORSAllowedOrigins = %v", rc.CORSAllowedOrigins)
	}
}
