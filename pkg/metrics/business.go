package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// BusinessMetrics counts ledger operations and order transitions.
type BusinessMetrics struct {
	ledger      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

func NewBusinessMetrics(reg prometheus.Registerer) *BusinessMetrics {
	if reg == nil {
		return &BusinessMetrics{}
	}
	m := &BusinessMetrics{
		ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Wallet ledger operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order status transitions by target status and outcome.",
		}, []string{"status", "outcome"}),
	}
	reg.MustRegister(m.ledger, m.transitions)
	return m
}

// RecordLedger counts one credit, debit, refund or payment attempt.
func (b *BusinessMetrics) RecordLedger(operation string, success bool) {
	if b == nil || b.ledger == nil {
		return
	}
	b.ledger.WithLabelValues(labelOrUnknown(operation), outcome(success)).Inc()
}

// RecordTransition counts one transition attempt towards status.
func (b *BusinessMetrics) RecordTransition(status string, success bool) {
	if b == nil || b.transitions == nil {
		return
	}
	b.transitions.WithLabelValues(labelOrUnknown(status), outcome(success)).Inc()
}

func outcome(success bool) string {
	if success {
		return OutcomeSuccess
	}
	return OutcomeError
}
