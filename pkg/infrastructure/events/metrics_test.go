package events

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vsinha/craftsman/pkg/domain/entities"
)

func TestMetrics_CountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	ctx := context.Background()
	wo := completedOrder()

	_ = metrics.Handle(ctx, NewProductionCompleted(wo, entities.ItemRef{SKU: "BAGUETTE"}, ""))
	_ = metrics.Handle(ctx, NewProductionCompleted(wo, entities.ItemRef{SKU: "BAGUETTE"}, ""))
	_ = metrics.Handle(ctx, NewOrderCancelled(wo, ""))

	if got := testutil.ToFloat64(metrics.events.WithLabelValues(ProductionCompletedEvent)); got != 2 {
		t.Errorf("Expected 2 completions, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.produced.WithLabelValues("baguette")); got != 90 {
		t.Errorf("Expected 90 produced, got %v", got)
	}

	if _, err := NewMetrics(reg); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
}
