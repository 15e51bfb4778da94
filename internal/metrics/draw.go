package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_requests_total",
			Help: "Total draw result submissions by result",
		},
		[]string{"result"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_request_duration_ms",
			Help:    "Draw result processing duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)
)

// RecordDraw 记录 DrawResult 的业务指标
// result: "success" | "already_declared" | "fail"
func RecordDraw(result string, started time.Time) {
	res := result
	if res != "success" && res != "already_declared" {
		res = "fail"
	}
	drawTotal.WithLabelValues(res).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	drawDuration.WithLabelValues(res).Observe(durMs)
}
