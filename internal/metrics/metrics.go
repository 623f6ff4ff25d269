package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Purchases    *prometheus.CounterVec
	TicketAmount prometheus.Histogram
}

func NewCheckoutMetrics() *CheckoutMetrics {
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goshop",
		Subsystem: "checkout",
		Name:      "purchases_total",
		Help:      "Total number of checkout runs.",
	}, []string{"status"})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "goshop",
		Subsystem: "checkout",
		Name:      "ticket_amount",
		Help:      "Settled ticket amounts.",
		Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000, 5000},
	})

	prometheus.MustRegister(purchases, amount)
	return &CheckoutMetrics{Purchases: purchases, TicketAmount: amount}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
