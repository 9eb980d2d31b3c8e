package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outbound-router/internal/common/logging"
)

type entry struct {
	level  string
	fields map[string]any
}

type captureLogger struct {
	mu      *sync.Mutex
	entries *[]entry
	fields  []logging.Field
}

func newCaptureLogger() captureLogger {
	return captureLogger{mu: &sync.Mutex{}, entries: &[]entry{}}
}

func (c captureLogger) record(level string, fields []logging.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := map[string]any{}
	for _, f := range append(append([]logging.Field{}, c.fields...), fields...) {
		m[f.Key] = f.Value
	}
	*c.entries = append(*c.entries, entry{level: level, fields: m})
}

func (c captureLogger) Debug(_ string, f ...logging.Field)           { c.record("debug", f) }
func (c captureLogger) Info(_ string, f ...logging.Field)            { c.record("info", f) }
func (c captureLogger) Warn(_ string, f ...logging.Field)            { c.record("warn", f) }
func (c captureLogger) Error(_ string, _ error, f ...logging.Field) { c.record("error", f) }
func (c captureLogger) WithFields(f ...logging.Field) logging.Logger {
	c.fields = append(append([]logging.Field{}, c.fields...), f...)
	return c
}
func (c captureLogger) WithContext(ctx context.Context) logging.Logger {
	return c.WithFields(logging.FieldsFromContext(ctx)...)
}

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		requestID string
		wantLevel string
	}{
		{"ok", http.StatusOK, "", "debug"},
		{"client error", http.StatusBadRequest, "req-1", "warn"},
		{"server error", http.StatusBadGateway, "req-2", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := newCaptureLogger()
			var seen []logging.Field
			handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = logging.FieldsFromContext(r.Context())
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/route?x=1", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			id := rr.Header().Get(RequestIDHeader)
			require.NotEmpty(t, id)
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, id)
			}
			require.Len(t, seen, 1)
			assert.Equal(t, id, seen[0].Value)

			require.Len(t, *logger.entries, 1)
			got := (*logger.entries)[0]
			assert.Equal(t, tt.wantLevel, got.level)
			assert.Equal(t, tt.status, got.fields["status"])
			assert.Equal(t, "/api/route", got.fields["path"])
			assert.Equal(t, "x=1", got.fields["query"])
			assert.Equal(t, id, got.fields["request_id"])
		})
	}
}
