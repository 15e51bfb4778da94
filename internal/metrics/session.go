package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionEventTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_event_total",
			Help: "Total session lifecycle events handled by result and event_type",
		},
		[]string{"result", "event_type"},
	)

	sessionEventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_event_duration_ms",
			Help:    "Session event handling duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result", "event_type"},
	)
)

// RecordSessionEvent 记录场次生命周期事件的业务指标
// result: "success" | "fail"
// eventType: 事件类型（小写）
func RecordSessionEvent(result, eventType string, started time.Time) {
	res := result
	if res != "success" {
		res = "fail"
	}
	et := strings.ToLower(strings.TrimSpace(eventType))
	if et == "" {
		et = "unknown"
	}
	sessionEventTotal.WithLabelValues(res, et).Inc()
	durMs := float64(time.Since(started).Milliseconds())
	sessionEventDuration.WithLabelValues(res, et).Observe(durMs)
}
