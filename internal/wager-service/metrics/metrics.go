package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wager_settlements_total",
			Help: "Total settlements by result",
		},
		[]string{"result"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wager_settlement_duration_ms",
			Help:    "Settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordSettlement registra o resultado de um settlement.
// result: "win", "loss" ou o kind do erro em minúsculas
func RecordSettlement(result string, started time.Time) {
	settlementsTotal.WithLabelValues(result).Inc()
	settlementDuration.WithLabelValues(result).Observe(float64(time.Since(started).Milliseconds()))
}
