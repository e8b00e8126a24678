package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sicalc/internal/platform/config"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDriver = config.DriverSQLite
	cfg.DatabaseURL = ":memory:"
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func TestHealthAndReadiness(t *testing.T) {
	app := newTestApp(t, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestMetricsEndpointToggle(t *testing.T) {
	app := newTestApp(t, nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "requestsTotal") {
		t.Fatalf("expected metrics snapshot, got %d %s", rec.Code, rec.Body.String())
	}

	disabled := newTestApp(t, func(c *config.Config) { c.MetricsEnabled = false })
	rec = httptest.NewRecorder()
	disabled.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics disabled, got %d", rec.Code)
	}
}

func TestAPIRoutesMounted(t *testing.T) {
	app := newTestApp(t, nil)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cities", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers")
	}
}

func TestMutationRateLimit(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.RateLimitPerMinute = 1 })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/calculate", strings.NewReader(`{}`))
		req.RemoteAddr = "198.51.100.7:1000"
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusBadRequest || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if app.Metrics.Snapshot()["rateLimitedTotal"] != uint64(1) {
		t.Fatalf("expected rate limited request to be counted")
	}
}

func TestFrontendFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}
	app := newTestApp(t, func(c *config.Config) { c.FrontendDir = dir })

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "app") {
		t.Fatalf("expected index fallback, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.DBDriver = "mysql"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
