package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf, "debug")

	log.Info("order_created", "Order created", "req-1", map[string]interface{}{"order_number": 7})

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "Order created", rec["msg"])
	assert.Equal(t, "order-service", rec["service"])
	assert.Equal(t, "order_created", rec["action"])
	assert.Equal(t, "req-1", rec["request_id"])

	details, ok := rec["details"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 7, details["order_number"])
}

func TestLogger_ErrorGroup(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf, "info")

	log.Error("db_query_failed", "query failed", "", errors.New("boom"), nil)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	group, ok := rec["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "boom", group["msg"])
	assert.NotEmpty(t, group["stack"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("kitchen-display", &buf, "warn")

	log.Debug("poll", "skipped", "", nil)
	log.Info("poll", "skipped", "", nil)
	assert.Zero(t, buf.Len())

	log.Warn("poll", "kept", "", nil)
	assert.NotZero(t, buf.Len())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestGenerateRequestID_Unique(t *testing.T) {
	assert.NotEqual(t, GenerateRequestID(), GenerateRequestID())
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("order-service", &buf, "debug")

	var seen string
	h := log.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), `"status_code":418`)
}

func TestMiddleware_ReusesIncomingRequestID(t *testing.T) {
	log := NewWithWriter("order-service", &bytes.Buffer{}, "info")

	var seen string
	h := log.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc-123", seen)
}
