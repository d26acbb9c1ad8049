package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratushq/stratus"
	"github.com/stratushq/stratus/config"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Metrics.Enabled = false
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStackWithRoute(t *testing.T, cfg *config.Config) *Server {
	t.Helper()

	engine := stratus.New(stratus.WithLogger(testLogger()))
	require.NoError(t, engine.Register("GET", "/ping", func(args []any) (any, error) {
		return map[string]string{"pong": "true"}, nil
	}))

	srv, err := New(cfg, engine, testLogger())
	require.NoError(t, err)
	return srv
}

func TestServer_ServesEngineRoutes(t *testing.T) {
	srv := newStackWithRoute(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pong":"true"}`, rec.Body.String())

	// The stock middleware stack assigns request IDs.
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_NotFoundPassesThrough(t *testing.T) {
	srv := newStackWithRoute(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "404 - route not found: /nope", rec.Body.String())
}

func TestServer_APIKeyGate(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret-1"}

	srv := newStackWithRoute(t, cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-API-Key", "secret-1")
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RateLimiting(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.DefaultRPS = 1
	cfg.RateLimit.DefaultBurst = 2

	srv := newStackWithRoute(t, cfg)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := newStackWithRoute(t, testConfig())
	srv.RegisterProbe("self", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestServer_WorkerPoolCountsRequests(t *testing.T) {
	cfg := testConfig()
	cfg.Server.WorkerPoolSize = 4

	srv := newStackWithRoute(t, cfg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	stats := srv.PoolStats()
	assert.Equal(t, 4, stats.Size)
	assert.Equal(t, int64(0), stats.InFlight)
	assert.Equal(t, int64(1), stats.Peak)
}

type autoController struct{}

func (autoController) BasePath() string { return "/auto" }

func (autoController) Routes() []stratus.RouteSpec {
	return []stratus.RouteSpec{
		{Method: "GET", Path: "/status", Handler: func(args []any) (any, error) {
			return "registered", nil
		}},
	}
}

func init() {
	stratus.RegisterControllerFactory("servertest.auto", func() stratus.Controller {
		return autoController{}
	})
}

func TestServer_AutoRegistration(t *testing.T) {
	cfg := testConfig()
	cfg.Registration.Prefix = "servertest."

	engine := stratus.New(stratus.WithLogger(testLogger()))
	srv, err := New(cfg, engine, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/auto/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"registered"`, rec.Body.String())
}

func TestServer_AutoRegistrationDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Registration.AutoRegister = false
	cfg.Registration.Prefix = "servertest."

	engine := stratus.New(stratus.WithLogger(testLogger()))
	srv, err := New(cfg, engine, testLogger())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/auto/status", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RunGracefulShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0 // pick a free port
	cfg.Health.Enabled = false
	cfg.Server.ShutdownTimeout = config.Duration(time.Second)

	srv := newStackWithRoute(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// Give the listener a moment, then ask for shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
