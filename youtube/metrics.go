package youtube

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "commentcard_youtube_fetch_duration_sec",
	Help: "Duration of YouTube comments.list calls",
})

var fetchCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "commentcard_youtube_fetch_count",
	Help: "Number of YouTube comments.list calls, by resulting HTTP status code",
}, []string{"status"})

var quotaRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "commentcard_quota_rejections_total",
	Help: "Comment fetches refused because the daily quota was used up",
})
