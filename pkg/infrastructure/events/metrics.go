package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts craft events and produced quantities
type Metrics struct {
	events   *prometheus.CounterVec
	produced *prometheus.CounterVec
}

var _ Listener = (*Metrics)(nil)

// NewMetrics registers the collectors with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "craftsman",
			Name:      "events_total",
			Help:      "Production events published, by type.",
		}, []string{"type"}),
		produced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "craftsman",
			Name:      "produced_quantity_total",
			Help:      "Quantity reported by completed work orders, by recipe.",
		}, []string{"recipe"}),
	}
	for _, c := range []prometheus.Collector{m.events, m.produced} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Handle(_ context.Context, event Event) error {
	m.events.WithLabelValues(event.Type()).Inc()
	if data, ok := event.Data().(ProductionCompleted); ok {
		m.produced.WithLabelValues(data.WorkOrder.RecipeCode).Add(data.ActualQuantity.InexactFloat64())
	}
	return nil
}
