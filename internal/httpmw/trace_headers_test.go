package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceResponseHeaders(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "req")
	defer span.End()

	h := TraceResponseHeaders("", "")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	sc := span.SpanContext()
	if rec.Header().Get("X-Trace-Id") != sc.TraceID().String() || rec.Header().Get("X-Span-Id") != sc.SpanID().String() {
		t.Fatalf("headers = %v", rec.Header())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Trace-Id") != "" {
		t.Fatal("no span, no header")
	}
}

func TestAnnotateHTTPRoute(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	r := chi.NewRouter()
	r.Use(AnnotateHTTPRoute)
	r.Get("/assets/*", okHandler)

	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /assets/app.js", trace.WithSpanKind(trace.SpanKindServer))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/assets/app.js", nil).WithContext(ctx))
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d", len(ended))
	}
	if got := ended[0].Name(); got != "GET /assets/*" {
		t.Fatalf("span name = %q, want route pattern", got)
	}
}
