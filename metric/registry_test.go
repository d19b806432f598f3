package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
)

func gathered(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestMetricsRegistry_Register(t *testing.T) {
	tests := []struct {
		name     string
		register func(r *MetricsRegistry) error
		metric   string
	}{
		{
			name: "counter",
			register: func(r *MetricsRegistry) error {
				c := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "h"})
				c.Inc()
				return r.RegisterCounter("svc", "test_counter", c)
			},
			metric: "test_counter",
		},
		{
			name: "gauge",
			register: func(r *MetricsRegistry) error {
				g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "h"})
				g.Set(42)
				return r.RegisterGauge("svc", "test_gauge", g)
			},
			metric: "test_gauge",
		},
		{
			name: "histogram",
			register: func(r *MetricsRegistry) error {
				h := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "test_histogram", Help: "h"})
				h.Observe(1.5)
				return r.RegisterHistogram("svc", "test_histogram", h)
			},
			metric: "test_histogram",
		},
		{
			name: "counter vec",
			register: func(r *MetricsRegistry) error {
				v := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_counter_vec", Help: "h"}, []string{"l"})
				v.WithLabelValues("a").Inc()
				return r.RegisterCounterVec("svc", "test_counter_vec", v)
			},
			metric: "test_counter_vec",
		},
		{
			name: "gauge vec",
			register: func(r *MetricsRegistry) error {
				v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "test_gauge_vec", Help: "h"}, []string{"l"})
				v.WithLabelValues("a").Set(1)
				return r.RegisterGaugeVec("svc", "test_gauge_vec", v)
			},
			metric: "test_gauge_vec",
		},
		{
			name: "histogram vec",
			register: func(r *MetricsRegistry) error {
				v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_histogram_vec", Help: "h"}, []string{"l"})
				v.WithLabelValues("a").Observe(1)
				return r.RegisterHistogramVec("svc", "test_histogram_vec", v)
			},
			metric: "test_histogram_vec",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewMetricsRegistry()
			require.NoError(t, tt.register(r))
			assert.True(t, gathered(t, r)[tt.metric])

			err := tt.register(r)
			assert.True(t, errors.IsInvalid(err), "second registration: %v", err)
		})
	}
}

func TestMetricsRegistry_PrometheusConflict(t *testing.T) {
	r := NewMetricsRegistry()
	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "h"})

	require.NoError(t, r.RegisterCounter("a", "dup_counter", first))
	err := r.RegisterCounter("b", "dup_counter", second)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus conflict")
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	r := NewMetricsRegistry()

	var wg sync.WaitGroup
	const n = 10
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_counter_%d", id)
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "h"})
			c.Inc()
			assert.NoError(t, r.RegisterCounter("svc", name, c))
		}(i)
	}
	wg.Wait()

	count := 0
	for name := range gathered(t, r) {
		if strings.HasPrefix(name, "concurrent_counter_") {
			count++
		}
	}
	assert.Equal(t, n, count)
}
