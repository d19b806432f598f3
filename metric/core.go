package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every bridge metric name.
const Namespace = "atlasbridge"

// Metrics contains the bridge's core metrics. All Record methods are safe on
// a nil receiver, which disables recording.
type Metrics struct {
	// Notification pipeline
	NotificationsReceived   prometheus.Counter
	NotificationsDispatched *prometheus.CounterVec
	NotificationsDiscarded  *prometheus.CounterVec
	DispatchDuration        *prometheus.HistogramVec

	// Consumer loop
	BatchSize       prometheus.Histogram
	PollErrors      prometheus.Counter
	ConsumerRunning prometheus.Gauge

	// Type catalog
	CatalogTypes prometheus.Gauge

	// Downstream events
	EventsPublished *prometheus.CounterVec
	PublishErrors   *prometheus.CounterVec

	// NATS metrics
	NATSConnected      prometheus.Gauge
	NATSReconnects     prometheus.Counter
	NATSCircuitBreaker prometheus.Gauge
}

// NewMetrics creates the core metrics, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		NotificationsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notifications",
			Name:      "received_total",
			Help:      "Total number of source notifications received",
		}),

		NotificationsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notifications",
			Name:      "dispatched_total",
			Help:      "Total number of notifications handed to a downstream handler",
		}, []string{"event"}),

		NotificationsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "notifications",
			Name:      "discarded_total",
			Help:      "Total number of notifications discarded",
		}, []string{"reason"}),

		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "notifications",
			Name:      "dispatch_duration_seconds",
			Help:      "Time from decode to handler return, in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),

		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "consumer",
			Name:      "batch_size",
			Help:      "Number of records returned by each non-empty poll",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),

		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "consumer",
			Name:      "poll_errors_total",
			Help:      "Total number of failed polls of the notification feed",
		}),

		ConsumerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "consumer",
			Name:      "running",
			Help:      "Consumer loop status (0=stopped, 1=running)",
		}),

		CatalogTypes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "catalog",
			Name:      "types",
			Help:      "Number of translated target types",
		}),

		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of target instance events published",
		}, []string{"event_type"}),

		PublishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Total number of target instance events that failed to publish",
		}, []string{"event_type"}),

		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "connected",
			Help:      "NATS connection status (0=disconnected, 1=connected)",
		}),

		NATSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "reconnects_total",
			Help:      "Total number of NATS reconnections",
		}),

		NATSCircuitBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "nats",
			Name:      "circuit_breaker",
			Help:      "NATS circuit breaker status (0=closed, 1=open)",
		}),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.NotificationsReceived,
		c.NotificationsDispatched,
		c.NotificationsDiscarded,
		c.DispatchDuration,
		c.BatchSize,
		c.PollErrors,
		c.ConsumerRunning,
		c.CatalogTypes,
		c.EventsPublished,
		c.PublishErrors,
		c.NATSConnected,
		c.NATSReconnects,
		c.NATSCircuitBreaker,
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// RecordReceived counts a received notification.
func (c *Metrics) RecordReceived() {
	if c == nil {
		return
	}
	c.NotificationsReceived.Inc()
}

// RecordDispatched counts a notification delivered as event.
func (c *Metrics) RecordDispatched(event string) {
	if c == nil {
		return
	}
	c.NotificationsDispatched.WithLabelValues(event).Inc()
}

// RecordDiscarded counts a notification dropped for reason.
func (c *Metrics) RecordDiscarded(reason string) {
	if c == nil {
		return
	}
	c.NotificationsDiscarded.WithLabelValues(reason).Inc()
}

// RecordDispatchDuration records the processing time of one notification.
func (c *Metrics) RecordDispatchDuration(operation string, d time.Duration) {
	if c == nil {
		return
	}
	c.DispatchDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// RecordBatch records the size of a polled batch.
func (c *Metrics) RecordBatch(n int) {
	if c == nil || n == 0 {
		return
	}
	c.BatchSize.Observe(float64(n))
}

// RecordPollError counts a failed poll.
func (c *Metrics) RecordPollError() {
	if c == nil {
		return
	}
	c.PollErrors.Inc()
}

// RecordConsumerRunning updates the consumer status.
func (c *Metrics) RecordConsumerRunning(running bool) {
	if c == nil {
		return
	}
	c.ConsumerRunning.Set(boolGauge(running))
}

// RecordCatalogTypes updates the catalog size.
func (c *Metrics) RecordCatalogTypes(n int) {
	if c == nil {
		return
	}
	c.CatalogTypes.Set(float64(n))
}

// RecordPublished counts a published event.
func (c *Metrics) RecordPublished(eventType string) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordPublishError counts a failed publish.
func (c *Metrics) RecordPublishError(eventType string) {
	if c == nil {
		return
	}
	c.PublishErrors.WithLabelValues(eventType).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	if c == nil {
		return
	}
	c.NATSConnected.Set(boolGauge(connected))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	if c == nil {
		return
	}
	c.NATSReconnects.Inc()
}

// RecordCircuitBreakerState updates circuit breaker status
func (c *Metrics) RecordCircuitBreakerState(open bool) {
	if c == nil {
		return
	}
	c.NATSCircuitBreaker.Set(boolGauge(open))
}
