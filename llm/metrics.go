package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inquiry",
		Subsystem: "llm",
		Name:      "requests_total",
		Help:      "Gateway requests by provider, model, and outcome.",
	}, []string{"provider", "model", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inquiry",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Gateway request latency.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"provider", "model"})
)

// observeRequest records one gateway call outcome.
func observeRequest(provider, model string, err error, elapsed time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = string(AsError(err).Kind)
	}
	requestsTotal.WithLabelValues(provider, model, outcome).Inc()
	requestDuration.WithLabelValues(provider, model).Observe(elapsed.Seconds())
}
