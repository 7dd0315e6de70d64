package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerRecordsQuoteOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(RoutePatternMiddleware)
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Post("/api/v1/quotes", func(w http.ResponseWriter, r *http.Request) {
		RecordQuote(r.Context(), "", "invalid")
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.RemoteAddr = "198.51.100.2:4321"
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "/api/v1/quotes", entry["route"])
	require.Equal(t, "invalid", entry["quote_result"])
	require.Equal(t, "198.51.100.2", entry["client_ip"])
	require.EqualValues(t, http.StatusUnprocessableEntity, entry["status"])
	require.NotContains(t, entry, "trace_id")
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	require.Contains(t, buf.String(), "shown")

	buf.Reset()
	fallback := newLogger(&buf, "json", "bogus")
	fallback.Info().Msg("fallback")
	require.Contains(t, buf.String(), "fallback")
}
