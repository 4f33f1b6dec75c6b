package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestShouldCreateHTTPAPISpan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "handler span", in: "httpapi.Handler.AdvanceMatchday", want: true},
		{name: "middleware span", in: "httpapi.RequestLogging", want: false},
		{name: "helper span", in: "httpapi.writeError", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shouldCreateHTTPAPISpan(tt.in)
			if got != tt.want {
				t.Fatalf("shouldCreateHTTPAPISpan(%q)=%v want=%v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStartSpan_WithoutParentIsNoop(t *testing.T) {
	ctx := context.Background()
	got, span := startSpan(ctx, "httpapi.Handler.Healthz")
	if got != ctx || span != noopSpan {
		t.Fatalf("expected no-op span without a request span")
	}
}

func TestRouteAttributes(t *testing.T) {
	var attrs []attribute.KeyValue
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/games/{gameID}/matches/{matchID}/finalize", func(w http.ResponseWriter, r *http.Request) {
		attrs = routeAttributes(r)
	})
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/games/save-1/matches/m-9/finalize", nil))

	if len(attrs) != 2 {
		t.Fatalf("unexpected attributes: %+v", attrs)
	}
	if attrs[0].Value.AsString() != "save-1" || attrs[1].Value.AsString() != "m-9" {
		t.Fatalf("unexpected attribute values: %+v", attrs)
	}
}
