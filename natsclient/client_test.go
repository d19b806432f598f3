package natsclient

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bridgeerrors "github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/message"
	"github.com/planetf1/atlas-sub002/pkg/tlsutil"
)

func TestNewClient(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", c.URL())
	assert.Equal(t, StatusDisconnected, c.Status())
	assert.False(t, c.IsHealthy())
	assert.Equal(t, time.Second, c.Backoff())

	_, err = NewClient(" ")
	assert.True(t, bridgeerrors.Is(err, bridgeerrors.ErrConfiguration))
}

func TestNewClient_OptionError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewClient("nats://localhost:4222", func(*Client) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.True(t, bridgeerrors.IsFatal(err))
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	c, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(3))
	require.NoError(t, err)

	c.recordFailure()
	c.recordFailure()
	assert.NotEqual(t, StatusCircuitOpen, c.Status())
	assert.Equal(t, int32(2), c.Failures())

	c.recordFailure()
	assert.Equal(t, StatusCircuitOpen, c.Status())
	assert.Equal(t, 2*time.Second, c.Backoff(), "backoff doubles on each trip")
	assert.Equal(t, int32(0), c.Failures())

	assert.ErrorIs(t, c.Connect(context.Background()), ErrCircuitOpen)
	_, err = c.EnsureStream(context.Background(), jetstream.StreamConfig{Name: "S"})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_BackoffCapped(t *testing.T) {
	c, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(1), WithMaxBackoff(2*time.Second))
	require.NoError(t, err)

	c.backoff.Store(int64(2 * time.Second))
	c.recordFailure()
	assert.Equal(t, 2*time.Second, c.Backoff())
}

func TestCircuitBreaker_HalfOpens(t *testing.T) {
	c, err := NewClient("nats://invalid:4222", WithCircuitBreakerThreshold(1))
	require.NoError(t, err)
	c.backoff.Store(int64(10 * time.Millisecond))

	c.recordFailure()
	require.Equal(t, StatusCircuitOpen, c.Status())
	assert.Eventually(t, func() bool { return c.Status() == StatusDisconnected },
		time.Second, 5*time.Millisecond)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(10))
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		c.recordFailure()
	}
	c.backoff.Store(int64(8 * time.Second))

	c.resetCircuit()
	assert.Equal(t, int32(0), c.Failures())
	assert.Equal(t, time.Second, c.Backoff())
}

func TestClient_NotConnected(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.PublishToStream(ctx, "s", nil), ErrNotConnected)
	_, err = c.KeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "B"})
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.Subscribe(ctx, PullConfig{Stream: "S", Durable: "d"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Subscribe(ctx, PullConfig{Stream: "S"})
	assert.True(t, bridgeerrors.Is(err, bridgeerrors.ErrConfiguration))

	assert.NoError(t, c.Close(ctx))
	assert.NoError(t, c.Close(ctx), "second close is a no-op")
	assert.True(t, bridgeerrors.Is(c.Connect(ctx), bridgeerrors.ErrShuttingDown))
}

func TestConnectionOptions(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithName("bridge"),
		WithToken("secret"),
		WithTLS(tlsutil.ClientConfig{MinVersion: "1.3"}),
	)
	require.NoError(t, err)
	// base handlers and timeouts, plus token, TLS and the name
	assert.Len(t, c.connectionOptions(), 9+1+1+1)
	require.NotNil(t, c.tlsConfig)
	assert.Equal(t, uint16(tls.VersionTLS13), c.tlsConfig.MinVersion)

	_, err = NewClient("nats://localhost:4222", WithTLS(tlsutil.ClientConfig{CAFile: "/nonexistent/ca.pem"}))
	assert.True(t, bridgeerrors.IsFatal(err))
}

func TestClientOptions_Timings(t *testing.T) {
	c, err := NewClient("nats://localhost:4222",
		WithPingInterval(7*time.Second),
		WithDrainTimeout(3*time.Second),
	)
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, c.pingInterval)
	assert.Equal(t, 3*time.Second, c.drainTimeout)
}

func TestWaitForConnection(t *testing.T) {
	c, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = c.WaitForConnection(ctx)
	require.Error(t, err)
	assert.True(t, bridgeerrors.IsTransient(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.setStatus(StatusConnected)
	assert.NoError(t, c.WaitForConnection(context.Background()))
}

func TestStatus_String(t *testing.T) {
	tests := map[ConnectionStatus]string{
		StatusDisconnected:   "disconnected",
		StatusConnecting:     "connecting",
		StatusConnected:      "connected",
		StatusReconnecting:   "reconnecting",
		StatusCircuitOpen:    "circuit_open",
		ConnectionStatus(42): "unknown",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
}

func TestRecordFailure_Concurrent(t *testing.T) {
	c, err := NewClient("nats://localhost:4222", WithCircuitBreakerThreshold(1000))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.recordFailure()
			_ = c.GetStatus()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(50), c.Failures())
}

func TestPullSubscription_CommitAcksLastRecord(t *testing.T) {
	first, last := &fakeMsg{}, &fakeMsg{}
	sub := NewPullSubscription(nil, PullConfig{Stream: "S", Durable: "d"}, nil)

	err := sub.Commit([]message.Record{{Ref: first}, {Ref: last}, {Ref: "foreign"}})
	require.NoError(t, err)
	assert.Equal(t, 0, first.acks)
	assert.Equal(t, 1, last.acks)

	assert.NoError(t, sub.Commit(nil))
}

func TestPullSubscription_PollAfterClose(t *testing.T) {
	sub := NewPullSubscription(nil, PullConfig{Stream: "S", Durable: "d"}, nil)
	require.NoError(t, sub.Close())
	_, err := sub.Poll(context.Background(), 10, time.Millisecond)
	assert.True(t, bridgeerrors.Is(err, bridgeerrors.ErrShuttingDown))
}

func TestIsKVNotFoundError(t *testing.T) {
	assert.True(t, IsKVNotFoundError(jetstream.ErrKeyNotFound))
	assert.True(t, IsKVNotFoundError(bridgeerrors.ErrKeyNotFound))
	assert.True(t, IsKVNotFoundError(errors.New("nats: key not found")))
	assert.False(t, IsKVNotFoundError(errors.New("timeout")))
	assert.False(t, IsKVNotFoundError(nil))
}

// fakeMsg records acks; the other jetstream.Msg methods are unused.
type fakeMsg struct {
	jetstream.Msg
	acks int
}

func (m *fakeMsg) Ack() error {
	m.acks++
	return nil
}
