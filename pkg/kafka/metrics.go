package kafka

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Events acknowledged by the brokers.",
	}, []string{"topic"})

	eventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Subsystem: "events",
		Name:      "publish_failures_total",
		Help:      "Events the brokers did not acknowledge.",
	}, []string{"topic"})

	eventBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "warehouse",
		Subsystem: "events",
		Name:      "published_bytes_total",
		Help:      "Encoded size of acknowledged events.",
	}, []string{"topic"})

	publishLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "warehouse",
		Subsystem: "events",
		Name:      "publish_duration_seconds",
		Help:      "Time spent in one broker write.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"topic"})
)

// observePublish records one broker write of size bytes.
func observePublish(topic string, size int, elapsed time.Duration, err error) {
	publishLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
	if err != nil {
		eventsFailed.WithLabelValues(topic).Inc()
		return
	}
	eventsPublished.WithLabelValues(topic).Inc()
	eventBytes.WithLabelValues(topic).Add(float64(size))
}
