package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks checkout and lifecycle counters for orders.
type OrderMetrics struct {
	placed    *prometheus.CounterVec
	cancelled *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders successfully placed, by payment method.",
	}, []string{"payment_method"})
	cancelled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled, by actor.",
	}, []string{"actor"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_stock_conflicts_total",
		Help: "Checkouts rejected because stock ran out during placement.",
	})
	reg.MustRegister(placed, cancelled, conflicts)
	return &OrderMetrics{
		placed:    placed,
		cancelled: cancelled,
		conflicts: conflicts,
	}
}

// IncPlaced increments the placed counter for the payment method.
func (m *OrderMetrics) IncPlaced(paymentMethod string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCancelled increments the cancellation counter for the actor.
func (m *OrderMetrics) IncCancelled(actor string) {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.WithLabelValues(normalizeLabel(actor)).Inc()
}

// IncStockConflict increments the stock-conflict counter.
func (m *OrderMetrics) IncStockConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}
