package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Attempts          *prometheus.CounterVec
	StepLatencyMS     *prometheus.HistogramVec
	SweptReservations prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by terminal outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "checkout",
		Name:      "step_duration_ms",
		Help:      "Checkout step latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"step"})
	swept := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "checkout",
		Name:      "swept_reservations_total",
		Help:      "Expired reservations reclaimed by the background sweep.",
	})

	reg.MustRegister(attempts, latency, swept)
	return &CheckoutMetrics{
		Attempts:          attempts,
		StepLatencyMS:     latency,
		SweptReservations: swept,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
