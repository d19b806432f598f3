package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker reports the current health of a component.
type Checker interface {
	Health() Status
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func() Status

// Health implements Checker.
func (f CheckerFunc) Health() Status {
	return f()
}

// Monitor tracks the health of named components. A component either pushes
// its status with Update or is polled through a registered Checker.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checkers map[string]Checker
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checkers: make(map[string]Checker),
	}
}

// Register polls c for the status of name on every read.
func (m *Monitor) Register(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
	delete(m.statuses, name)
}

// Update records the status of name.
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
	delete(m.checkers, name)
}

// UpdateHealthy marks name healthy.
func (m *Monitor) UpdateHealthy(name, message string) {
	m.Update(name, NewHealthy(name, message))
}

// UpdateUnhealthy marks name unhealthy.
func (m *Monitor) UpdateUnhealthy(name, message string) {
	m.Update(name, NewUnhealthy(name, message))
}

// UpdateDegraded marks name degraded.
func (m *Monitor) UpdateDegraded(name, message string) {
	m.Update(name, NewDegraded(name, message))
}

// Get returns the status of name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	c, polled := m.checkers[name]
	status, ok := m.statuses[name]
	m.mu.RUnlock()

	if polled {
		s := c.Health()
		s.Component = name
		return s, true
	}
	return status, ok
}

// GetAll returns the status of every component, sorted by name.
func (m *Monitor) GetAll() []Status {
	m.mu.RLock()
	names := make([]string, 0, len(m.statuses)+len(m.checkers))
	for name := range m.statuses {
		names = append(names, name)
	}
	for name := range m.checkers {
		names = append(names, name)
	}
	m.mu.RUnlock()

	sort.Strings(names)
	out := make([]Status, 0, len(names))
	for _, name := range names {
		if s, ok := m.Get(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// Remove stops tracking name.
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.checkers, name)
}

// AggregateHealth returns the status of the whole system.
func (m *Monitor) AggregateHealth(systemName string) Status {
	return Aggregate(systemName, m.GetAll())
}

// Handler serves the aggregate status as JSON: 200 unless the system is
// unhealthy, then 503.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(systemName)
		w.Header().Set("Content-Type", "application/json")
		if status.IsUnhealthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	})
}
