package omrsevents

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/planetf1/atlas-sub002/metric"
)

// journalMetrics holds Prometheus metrics for the journal. A nil
// *journalMetrics records nothing.
type journalMetrics struct {
	lines    *prometheus.CounterVec // written, failed
	buffered prometheus.Gauge
	flush    prometheus.Histogram
}

// RegisterMetrics registers the journal's metrics with r. Call it before
// Start.
func (j *Journal) RegisterMetrics(r metric.MetricsRegistrar) error {
	m := &journalMetrics{
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "journal",
			Name:      "lines_total",
			Help:      "Journal lines by write result",
		}, []string{"result"}),
		buffered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "journal",
			Name:      "buffered_lines",
			Help:      "Lines waiting for the next flush",
		}),
		flush: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "journal",
			Name:      "flush_duration_seconds",
			Help:      "Time to write a buffer to the journal file",
			Buckets:   prometheus.ExponentialBuckets(.0001, 4, 8),
		}),
	}
	if err := r.RegisterCounterVec("journal", "lines", m.lines); err != nil {
		return err
	}
	if err := r.RegisterGauge("journal", "buffered", m.buffered); err != nil {
		return err
	}
	if err := r.RegisterHistogram("journal", "flush", m.flush); err != nil {
		return err
	}
	j.metrics = m
	return nil
}

func (m *journalMetrics) recordLines(result string, n int) {
	if m == nil {
		return
	}
	m.lines.WithLabelValues(result).Add(float64(n))
}

func (m *journalMetrics) recordBuffered(n int) {
	if m == nil {
		return
	}
	m.buffered.Set(float64(n))
}

func (m *journalMetrics) recordFlush(start time.Time) {
	if m == nil {
		return
	}
	m.flush.Observe(time.Since(start).Seconds())
}
