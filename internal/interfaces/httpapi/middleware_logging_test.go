package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/riskibarqy/career-engine/internal/platform/logging"
	"github.com/stretchr/testify/require"
)

func TestShouldTraceRequest(t *testing.T) {
	for _, path := range []string{"/healthz", "/health", "/livez", "/readyz", "/metrics", " /healthz "} {
		if shouldTraceRequest(path) {
			t.Fatalf("expected no tracing for path %q", path)
		}
	}
	for _, path := range []string{"/v1/games/demo-career/advance", "/v1/internal/jobs/career-actions", "/", "/docs"} {
		if !shouldTraceRequest(path) {
			t.Fatalf("expected tracing for path %q", path)
		}
	}
}

func TestRequestLogging_TagsGameAndDemotesProbes(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, logging.LevelInfo)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/games/{gameID}/advance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})
	handler := RequestLogging(logger, mux)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Zero(t, buf.Len(), "probe requests log at debug")

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/games/save-1/advance", nil))
	line := buf.String()
	require.Equal(t, 1, strings.Count(line, "\n"))
	require.Contains(t, line, `"game_id":"save-1"`)
	require.Contains(t, line, `"status":202`)
}
