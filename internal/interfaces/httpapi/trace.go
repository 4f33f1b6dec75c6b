package httpapi

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	apiTracer = otel.Tracer("career-engine/internal/interfaces/httpapi")
	noopSpan  = trace.SpanFromContext(context.Background())
)

// startSpan only opens spans for handlers and only under an existing
// request span; helpers and filtered routes get a no-op span.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if !trace.SpanFromContext(ctx).SpanContext().IsValid() || !shouldCreateHTTPAPISpan(name) {
		return ctx, noopSpan
	}
	return apiTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// startHandlerSpan tags the span with the save and match addressed by the
// route, when present.
func startHandlerSpan(r *http.Request, name string) (context.Context, trace.Span) {
	return startSpan(r.Context(), name, routeAttributes(r)...)
}

func routeAttributes(r *http.Request) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := strings.TrimSpace(r.PathValue("gameID")); id != "" {
		attrs = append(attrs, attribute.String("game.id", id))
	}
	if id := strings.TrimSpace(r.PathValue("matchID")); id != "" {
		attrs = append(attrs, attribute.String("match.id", id))
	}
	return attrs
}

func shouldCreateHTTPAPISpan(name string) bool {
	return strings.HasPrefix(name, "httpapi.Handler.")
}
