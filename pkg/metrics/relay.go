package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics tracks live event fanout.
type RelayMetrics struct {
	published   *prometheus.CounterVec
	delivered   prometheus.Counter
	dropped     prometheus.Counter
	connections prometheus.Gauge
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	m := &RelayMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_published_total",
			Help:      "Events published to relay channels, by channel kind.",
		}, []string{"kind"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_delivered_total",
			Help:      "Events handed to a subscriber buffer.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_events_dropped_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "relay_connections",
			Help:      "Open relay subscriptions.",
		}),
	}
	reg.MustRegister(m.published, m.delivered, m.dropped, m.connections)
	return m
}

func (r *RelayMetrics) IncPublished(kind string) {
	if r == nil || r.published == nil {
		return
	}
	r.published.WithLabelValues(labelOrUnknown(kind)).Inc()
}

func (r *RelayMetrics) IncDelivered() {
	if r == nil || r.delivered == nil {
		return
	}
	r.delivered.Inc()
}

func (r *RelayMetrics) IncDropped() {
	if r == nil || r.dropped == nil {
		return
	}
	r.dropped.Inc()
}

// AddConnections moves the open-subscription gauge by delta.
func (r *RelayMetrics) AddConnections(delta float64) {
	if r == nil || r.connections == nil {
		return
	}
	r.connections.Add(delta)
}
