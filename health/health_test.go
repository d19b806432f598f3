package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{name: "empty", want: StateHealthy},
		{name: "all healthy", subs: []Status{NewHealthy("a", ""), NewHealthy("b", "")}, want: StateHealthy},
		{name: "degraded", subs: []Status{NewHealthy("a", ""), NewDegraded("b", "")}, want: StateDegraded},
		{name: "unhealthy wins", subs: []Status{NewUnhealthy("a", ""), NewDegraded("b", "")}, want: StateUnhealthy},
		{name: "unhealthy after degraded", subs: []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, want: StateUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("bridge", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want == StateHealthy, got.Healthy)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		notWant string
	}{
		{in: "dial nats://10.0.0.1:4222 refused", notWant: "10.0.0.1"},
		{in: "open /etc/bridge/creds.json: no such file", want: "[PATH]"},
		{in: "auth failed token=abc123", want: "[REDACTED]", notWant: "abc123"},
		{in: "host 192.168.1.100 down", want: "[IP]"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Sanitize(tt.in)
			assert.Contains(t, got, tt.want)
			if tt.notWant != "" {
				assert.NotContains(t, got, tt.notWant)
			}
		})
	}
}

func TestStatus_WithError(t *testing.T) {
	s := NewDegraded("feed", "ok").WithError(fmt.Errorf("fetch from nats://example:4222 failed"))
	assert.Equal(t, "fetch from [URL] failed", s.Message)
	assert.Equal(t, "ok", NewHealthy("x", "ok").WithError(nil).Message)
}

func TestMonitor_UpdateAndRegister(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("catalog", "5 types")

	state := StateHealthy
	var mu sync.Mutex
	m.Register("consumer", CheckerFunc(func() Status {
		mu.Lock()
		defer mu.Unlock()
		return newStatus("", state, "polling")
	}))

	s, ok := m.Get("consumer")
	require.True(t, ok)
	assert.Equal(t, "consumer", s.Component)
	assert.True(t, s.IsHealthy())

	mu.Lock()
	state = StateDegraded
	mu.Unlock()
	assert.True(t, m.AggregateHealth("bridge").IsDegraded())

	all := m.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "catalog", all[0].Component)
	assert.Equal(t, "consumer", all[1].Component)

	m.Update("consumer", NewUnhealthy("", "stopped"))
	s, _ = m.Get("consumer")
	assert.True(t, s.IsUnhealthy())

	m.Remove("consumer")
	_, ok = m.Get("consumer")
	assert.False(t, ok)
}

func TestMonitor_Handler(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("nats", "connected")

	serve := func() (*httptest.ResponseRecorder, Status) {
		rec := httptest.NewRecorder()
		m.Handler("atlasbridge").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		var s Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
		return rec, s
	}

	rec, s := serve()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "atlasbridge", s.Component)
	assert.True(t, s.Healthy)

	m.UpdateDegraded("nats", "reconnecting")
	rec, _ = serve()
	assert.Equal(t, http.StatusOK, rec.Code)

	m.UpdateUnhealthy("nats", "closed")
	rec, s = serve()
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, s.Healthy)
	require.Len(t, s.SubStatuses, 1)
	assert.Equal(t, "closed", s.SubStatuses[0].Message)
}
