package render

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "commentcard_render_duration_sec",
	Help: "Duration of card renders, by backend",
}, []string{"backend"})

var renderCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "commentcard_render_count",
	Help: "Number of card renders, by backend and result (ok/error)",
}, []string{"backend", "result"})

func observe(backend string, start time.Time, err error) {
	renderDuration.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	renderCount.WithLabelValues(backend, result).Inc()
}
