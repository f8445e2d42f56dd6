package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pharmacart"

const (
	ResultSuccess  = "success"
	ResultReplayed = "replayed"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	Checkouts        *prometheus.CounterVec
	CheckoutDuration prometheus.Histogram
	Transitions      *prometheus.CounterVec
	WalletOperations *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by payment method and result.",
	}, []string{"payment_method", "result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Checkout latency including retries.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status change requests by target status and result.",
	}, []string{"to", "result"})
	wallet := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_operations_total",
		Help:      "Committed wallet debits and credits.",
	}, []string{"op"})

	reg.MustRegister(checkouts, duration, transitions, wallet)

	return &Metrics{
		Checkouts:        checkouts,
		CheckoutDuration: duration,
		Transitions:      transitions,
		WalletOperations: wallet,
	}
}

func (m *Metrics) ObserveCheckout(paymentMethod, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(paymentMethod, result).Inc()
	m.CheckoutDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTransition(to, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(to, result).Inc()
}

func (m *Metrics) ObserveWalletOperation(op string) {
	if m == nil {
		return
	}
	m.WalletOperations.WithLabelValues(op).Inc()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
