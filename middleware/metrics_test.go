package middleware_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	mw "github.com/automatonhq/automaton/middleware"
)

func setupTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, mp
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
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

func statusAttr(attrs attribute.Set) string {
	v, _ := attrs.Value(attribute.Key("status"))
	return v.AsString()
}

func TestMetrics_RecordsDispatches(t *testing.T) {
	reader, mp := setupTestMeter()
	m := mw.MetricsWithMeter(mp.Meter("test"))

	inv := testInvocation()
	if err := m(context.Background(), inv, func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantErr := errors.New("handler error")
	if err := m(context.Background(), inv, func(_ context.Context) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("expected handler error passthrough, got %v", err)
	}

	rm := collectMetrics(t, reader)

	counter := findMetric(rm, "automaton.action.dispatches")
	if counter == nil {
		t.Fatal("dispatch counter not found")
	}
	sum, ok := counter.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("unexpected counter data type %T", counter.Data)
	}

	var okCount, errCount int64
	for _, dp := range sum.DataPoints {
		switch statusAttr(dp.Attributes) {
		case "ok":
			okCount += dp.Value
		case "error":
			errCount += dp.Value
		}
	}
	if okCount != 1 || errCount != 1 {
		t.Errorf("ok=%d error=%d, want 1/1", okCount, errCount)
	}

	if findMetric(rm, "automaton.action.duration") == nil {
		t.Error("duration histogram not found")
	}
}
