package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})
	return exporter
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Endpoint != "" {
		t.Errorf("expected tracing disabled by default, got endpoint %q", cfg.Endpoint)
	}
	if cfg.ServiceName != "storeadmin" {
		t.Errorf("expected default service name storeadmin, got %s", cfg.ServiceName)
	}
}

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.TracerProvider() != nil {
		t.Error("expected no SDK provider when endpoint is empty")
	}
	if p.Tracer() == nil {
		t.Error("expected a tracer")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown of disabled provider should not error: %v", err)
	}
}

func TestTransport_CreatesClientSpan(t *testing.T) {
	exporter := setupTestProvider(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Traceparent") == "" {
			t.Error("expected trace context to be propagated")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prevProp)

	client := &http.Client{Transport: Transport(nil)}
	resp, err := client.Get(srv.URL + "/api/billboards/store-1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "GET /api/billboards/store-1" {
		t.Errorf("unexpected span name %q", spans[0].Name)
	}
}

func TestActionTracer(t *testing.T) {
	exporter := setupTestProvider(t)
	at := NewActionTracer(nil)

	ctx, span := at.StartAction(context.Background(), "billboards", "delete", "store-1")
	_, step := at.StartStep(ctx, "delete_asset")
	End(step, errors.New("asset endpoint down"))
	End(span, nil)

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "storeadmin.step.delete_asset" || spans[0].Status.Code != codes.Error {
		t.Errorf("expected failed step span first, got %q %v", spans[0].Name, spans[0].Status)
	}
	if spans[1].Name != "storeadmin.action.delete" || spans[1].Status.Code != codes.Ok {
		t.Errorf("expected ok action span, got %q %v", spans[1].Name, spans[1].Status)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("expected step span to be a child of the action span")
	}
}
