package kvstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/metric"
)

const metricsService = "kvstore"

// storeMetrics holds Prometheus metrics for bucket reads and the entity
// cache. A nil *storeMetrics records nothing.
type storeMetrics struct {
	reads       *prometheus.CounterVec   // By record kind and result
	readLatency *prometheus.HistogramVec // By record kind

	cacheLookups   *prometheus.CounterVec // hit, miss
	cacheEvictions prometheus.Counter
	cacheState     *prometheus.GaugeVec // entries, capacity
}

// RegisterMetrics registers the store's metrics with r. Reads before the
// call are not recorded.
func (s *Store) RegisterMetrics(r metric.MetricsRegistrar) error {
	m := &storeMetrics{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "kvstore",
			Name:      "reads_total",
			Help:      "Bucket reads by record kind and result",
		}, []string{"kind", "result"}),
		readLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "kvstore",
			Name:      "read_duration_seconds",
			Help:      "Bucket read latency in seconds",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, 1},
		}, []string{"kind"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "kvstore",
			Name:      "entity_cache_lookups_total",
			Help:      "Entity cache lookups by result",
		}, []string{"result"}),
		cacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "kvstore",
			Name:      "entity_cache_evictions_total",
			Help:      "Entities dropped from the cache",
		}),
		cacheState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "kvstore",
			Name:      "entity_cache",
			Help:      "Entity cache entries and capacity",
		}, []string{"stat"}),
	}

	if err := r.RegisterCounterVec(metricsService, "reads", m.reads); err != nil {
		return err
	}
	if err := r.RegisterHistogramVec(metricsService, "read_latency", m.readLatency); err != nil {
		return err
	}
	if s.cache != nil {
		if err := r.RegisterCounterVec(metricsService, "cache_lookups", m.cacheLookups); err != nil {
			return err
		}
		if err := r.RegisterCounter(metricsService, "cache_evictions", m.cacheEvictions); err != nil {
			return err
		}
		if err := r.RegisterGaugeVec(metricsService, "cache_state", m.cacheState); err != nil {
			return err
		}
		m.cacheState.WithLabelValues("capacity").Set(float64(s.size))
		m.cacheState.WithLabelValues("entries").Set(float64(s.cache.Len()))
	}
	s.metrics = m
	return nil
}

func (m *storeMetrics) recordRead(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "found"
	switch {
	case errors.Is(err, errors.ErrKeyNotFound):
		result = "missing"
	case err != nil:
		result = "error"
	}
	m.reads.WithLabelValues(kind, result).Inc()
	m.readLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *storeMetrics) recordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *storeMetrics) recordEviction() {
	if m == nil {
		return
	}
	m.cacheEvictions.Inc()
}

func (m *storeMetrics) recordCacheSize(entries, capacity int) {
	if m == nil {
		return
	}
	m.cacheState.WithLabelValues("entries").Set(float64(entries))
	m.cacheState.WithLabelValues("capacity").Set(float64(capacity))
}
