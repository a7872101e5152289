package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PendingRequests        = promauto.NewGauge(prometheus.GaugeOpts{Name: "gremlink_pending_requests", Help: "Requests awaiting a terminal response"})
	FramesTotal            = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gremlink_frames_total", Help: "Inbound frames by status class"}, []string{"status"})
	ReconnectsTotal        = promauto.NewCounter(prometheus.CounterOpts{Name: "gremlink_reconnects_total", Help: "Reconnection attempts scheduled"})
	HeartbeatTimeoutsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "gremlink_heartbeat_timeouts_total", Help: "Probe deadlines missed"})
	ErrorsTotal            = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gremlink_errors_total", Help: "Errors by type"}, []string{"type"})
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "gremlink_request_duration_seconds", Help: "Submit to terminal frame latency", Buckets: prometheus.ExponentialBuckets(0.001, 2, 16)})
	CacheHitsTotal         = promauto.NewCounter(prometheus.CounterOpts{Name: "gremlink_cache_hits_total", Help: "Result cache hits"})
	CacheMissesTotal       = promauto.NewCounter(prometheus.CounterOpts{Name: "gremlink_cache_misses_total", Help: "Result cache misses"})
)
