package observe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func counterValue(t *testing.T, m *metricdata.Metrics, key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func TestRecorders(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "grammar", 120*time.Millisecond)
	m.RecordStage(ctx, "spell", 2*time.Millisecond)
	m.RecordFallback(ctx, "spell")
	m.RecordCorrection(ctx, "ok")
	m.RecordCorrection(ctx, "ok")
	m.RecordCorrection(ctx, "empty_input")

	rm := collect(t, reader)

	hist := findMetric(rm, "gramfix.stage.duration")
	if hist == nil {
		t.Fatal("gramfix.stage.duration not found")
	}
	h, ok := hist.Data.(metricdata.Histogram[float64])
	if !ok || len(h.DataPoints) != 2 {
		t.Fatalf("stage histogram = %+v", hist.Data)
	}

	corr := findMetric(rm, "gramfix.corrections")
	if corr == nil {
		t.Fatal("gramfix.corrections not found")
	}
	if got := counterValue(t, corr, "status", "ok"); got != 2 {
		t.Fatalf("corrections{status=ok} = %d, want 2", got)
	}
	if got := counterValue(t, corr, "status", "empty_input"); got != 1 {
		t.Fatalf("corrections{status=empty_input} = %d, want 1", got)
	}

	fb := findMetric(rm, "gramfix.stage.fallbacks")
	if fb == nil || counterValue(t, fb, "stage", "spell") != 1 {
		t.Fatalf("fallbacks = %+v", fb)
	}
}

func TestMiddleware(t *testing.T) {
	m, reader := newTestMetrics(t)
	h := Middleware(m, func(*http.Request) string { return "/spellcheck" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/spellcheck?x=1", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}

	met := findMetric(collect(t, reader), "gramfix.http.request.duration")
	if met == nil {
		t.Fatal("gramfix.http.request.duration not found")
	}
	hist := met.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 {
		t.Fatalf("datapoints = %d", len(hist.DataPoints))
	}
	attrs := hist.DataPoints[0].Attributes
	if v, _ := attrs.Value("status"); v.AsString() != "418" {
		t.Fatalf("status attr = %q", v.AsString())
	}
	if v, _ := attrs.Value("route"); v.AsString() != "/spellcheck" {
		t.Fatalf("route attr = %q", v.AsString())
	}
}

func TestInitProvider_Handler(t *testing.T) {
	p, err := InitProvider(context.Background(), ProviderConfig{ServiceVersion: "test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	defer p.Shutdown(context.Background())

	p.Metrics().RecordCorrection(context.Background(), "ok")

	srv := httptest.NewServer(p.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "gramfix_corrections") {
		t.Fatalf("exposition lacks gramfix_corrections:\n%s", body)
	}
}
