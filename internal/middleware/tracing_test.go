// AngelaMos | 2026
// tracing_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const (
	parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	traceparent   = "00-" + parentTraceID + "-00f067aa0ba902b7-01"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(t.Context())
	})

	return recorder
}

func TestTracing_ContinuesIncomingTrace(t *testing.T) {
	recorder := installRecorder(t)

	r := chi.NewRouter()
	r.Use(Tracing)
	r.Get("/users/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	req := httptest.NewRequest(http.MethodGet, "/users/abc", nil)
	req.Header.Set("traceparent", traceparent)
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name() != "GET /users/{id}" {
		t.Errorf("expected span named after route, got %q", span.Name())
	}
	if got := span.SpanContext().TraceID().String(); got != parentTraceID {
		t.Errorf("expected trace %s, got %s", parentTraceID, got)
	}
	if span.Status().Description != http.StatusText(http.StatusBadGateway) {
		t.Errorf("expected error status, got %+v", span.Status())
	}
}

func TestTracing_SkipsProbes(t *testing.T) {
	recorder := installRecorder(t)

	h := Tracing(okHandler)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if n := len(recorder.Ended()); n != 0 {
		t.Errorf("expected no spans for probes, got %d", n)
	}
}
