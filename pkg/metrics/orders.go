package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics tracks order lifecycle outcomes.
type OrderMetrics struct {
	created       *prometheus.CounterVec
	cancelled     prometheus.Counter
	stockRejected prometheus.Counter
	total         prometheus.Histogram
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created, by payment method.",
	}, []string{"payment_method"})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled by customers or staff.",
	})
	stockRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_insufficient_stock_total",
		Help: "Order attempts rejected for insufficient stock.",
	})
	total := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_total_amount",
		Help:    "Distribution of order totals.",
		Buckets: []float64{25, 50, 100, 200, 500, 1000, 2500},
	})
	reg.MustRegister(created, cancelled, stockRejected, total)
	return &OrderMetrics{
		created:       created,
		cancelled:     cancelled,
		stockRejected: stockRejected,
		total:         total,
	}
}

func (m *OrderMetrics) OrderCreated(paymentMethod string, total decimal.Decimal) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
	m.total.Observe(total.InexactFloat64())
}

func (m *OrderMetrics) OrderCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

func (m *OrderMetrics) InsufficientStock() {
	if m == nil || m.stockRejected == nil {
		return
	}
	m.stockRejected.Inc()
}
