package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_requests_total",
			Help: "Total bet slip requests by result and selection bucket",
		},
		[]string{"result", "selections"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bet_request_duration_ms",
			Help:    "Bet slip request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "selections"},
	)
)

// RecordBet records business metrics for a bet slip call.
// result should be "success" or "fail"; selections is bucketed to bound label cardinality.
func RecordBet(result string, selections int, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	sel := selectionBucket(selections)
	betTotal.WithLabelValues(res, sel).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	betDuration.WithLabelValues(res, sel).Observe(durMs)
}

// selectionBucket 选号数量分桶，避免标签基数膨胀
func selectionBucket(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n <= 5:
		return strconv.Itoa(n)
	case n <= 10:
		return "6-10"
	case n <= 50:
		return "11-50"
	default:
		return "50+"
	}
}
