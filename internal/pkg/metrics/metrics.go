package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts reservation use cases by outcome.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "booking",
		Name:      "operations_total",
		Help:      "Reservation use cases by operation and outcome.",
	}, []string{"operation", "outcome"})

	txDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "booking",
		Name:      "transaction_duration_seconds",
		Help:      "Duration of reservation transactions.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

// ObserveOperation records one finished use case.
func ObserveOperation(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	txDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
