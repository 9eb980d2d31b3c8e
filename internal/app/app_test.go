package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
	"outbound-router/internal/config"
	"outbound-router/internal/handlers"
	"outbound-router/internal/routing"
)

const routes = `{
  "destinations": [
    {"name": "echo-a", "type": "log"},
    {"name": "echo-b", "type": "log"}
  ],
  "routers": [
    {"name": "balanced", "type": "round_robin", "routes": ["echo-a", "echo-b"],
     "options": {"correlation": "ALWAYS", "sequential_correlation": true}}
  ]
}`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routes.json")
	require.NoError(t, os.WriteFile(path, []byte(routes), 0o600))

	return &config.Config{
		Port:               "0",
		RoutesFile:         path,
		RequestTimeout:     5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		Correlation:        "IF_NOT_SET",
		Deterministic:      true,
		Counter:            "local",
		ExpressionCacheTTL: time.Minute,
		CorrelatorTimeout:  time.Minute,
	}
}

func TestApp_EndToEnd(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())

	a, err := New(testConfig(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"echo-a", "echo-b"}, a.Destinations.Names())
	assert.Equal(t, routing.StateInitialised, a.Collection.State())

	require.NoError(t, a.Start(context.Background()))

	_, handler := a.NewServer()
	req := httptest.NewRequest(http.MethodPost, "/api/route", strings.NewReader(`{"id": "m1", "payload": [1, 2]}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp handlers.RouteResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Parts, 2)
	assert.Equal(t, "m1-1", resp.Parts[0].Correlation.ID)
	assert.Equal(t, "m1-2", resp.Parts[1].Correlation.ID)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	require.NoError(t, a.Shutdown(context.Background()))
	assert.Equal(t, routing.StateDisposed, a.Collection.State())
}

func TestApp_MissingRoutesFile(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())

	cfg := testConfig(t)
	cfg.RoutesFile = filepath.Join(t.TempDir(), "absent.json")

	_, err := New(cfg)
	assert.Error(t, err)
}

func TestApp_RedisCounter(t *testing.T) {
	logging.SetGlobalLogger(logging.NewNopLogger())
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Counter = "redis"
	cfg.Deterministic = false
	cfg.RedisURL = "redis://" + mr.Addr()

	a, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, a.RedisClient)
	require.NoError(t, a.Start(context.Background()))

	_, handler := a.NewServer()
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/route", strings.NewReader(`{"payload": ["x"]}`)))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	v, err := mr.Get("outbound-router:counter:round-robin")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	require.NoError(t, a.Shutdown(context.Background()))
}
