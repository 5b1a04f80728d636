package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on the registry handed to NewMetrics so that tests
// and multiple servers in one process do not collide on the default registry.
type Metrics struct {
	Events   *prometheus.CounterVec
	Pending  prometheus.Gauge
	Webhooks *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dareme_indexer_events_total",
			Help: "Program events seen by the indexer, by instruction and outcome",
		}, []string{"kind", "outcome"}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dareme_indexer_pending_events",
			Help: "Events waiting for their dare record or an earlier transition",
		}),
		Webhooks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dareme_indexer_webhooks_total",
			Help: "Webhook deliveries, by result",
		}, []string{"result"}),
	}
}
