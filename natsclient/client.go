package natsclient

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/planetf1/atlas-sub002/errors"
)

// ConnectionStatus is the state of the client's connection.
type ConnectionStatus int32

const (
	// StatusDisconnected means no connection is established.
	StatusDisconnected ConnectionStatus = iota
	// StatusConnecting means a connection attempt is in progress.
	StatusConnecting
	// StatusConnected means the connection is up.
	StatusConnected
	// StatusReconnecting means the connection dropped and nats.go is retrying.
	StatusReconnecting
	// StatusCircuitOpen means too many consecutive failures; calls fail fast
	// until the backoff expires.
	StatusCircuitOpen
)

func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// Status is a point-in-time view of the connection.
type Status struct {
	Status          ConnectionStatus
	FailureCount    int32
	LastFailureTime time.Time
	Reconnects      uint64
	RTT             time.Duration
}

// Client owns one NATS connection and its JetStream context. Every
// JetStream call goes through the circuit breaker: after circuitThreshold
// consecutive failures the client refuses work for the current backoff,
// which doubles on each trip up to maxBackoff.
type Client struct {
	url    string
	logger *slog.Logger

	status   atomic.Int32
	failures atomic.Int32

	mu   sync.RWMutex
	conn *nats.Conn
	js   jetstream.JetStream

	lastFailure      atomic.Value // time.Time
	backoff          atomic.Int64 // time.Duration
	circuitThreshold int32
	maxBackoff       time.Duration

	maxReconnects int
	reconnectWait time.Duration
	pingInterval  time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration

	username  string
	password  string
	token     string
	credsFile string

	tlsConfig *tls.Config

	clientName string

	onHealthChange func(bool)

	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a client for url. It does not connect.
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.Fatalf(errors.ErrConfiguration, "Client", "NewClient", "empty NATS url")
	}
	c := &Client{
		url:              url,
		logger:           slog.Default(),
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
		maxReconnects:    -1,
		reconnectWait:    2 * time.Second,
		pingInterval:     20 * time.Second,
		timeout:          5 * time.Second,
		drainTimeout:     30 * time.Second,
	}
	c.lastFailure.Store(time.Time{})
	c.backoff.Store(int64(time.Second))

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapFatal(err, "Client", "NewClient", "apply option")
		}
	}
	c.logger = c.logger.With("component", "natsclient")
	return c, nil
}

// URL returns the server url the client was created with.
func (m *Client) URL() string {
	return m.url
}

// Status returns the connection status.
func (m *Client) Status() ConnectionStatus {
	return ConnectionStatus(m.status.Load())
}

func (m *Client) setStatus(s ConnectionStatus) {
	m.status.Store(int32(s))
}

// IsHealthy reports whether the connection is up.
func (m *Client) IsHealthy() bool {
	return m.Status() == StatusConnected
}

// Failures returns the number of failures since the last success.
func (m *Client) Failures() int32 {
	return m.failures.Load()
}

// Backoff returns the current circuit breaker backoff.
func (m *Client) Backoff() time.Duration {
	return time.Duration(m.backoff.Load())
}

// GetStatus returns a snapshot of the connection state.
func (m *Client) GetStatus() *Status {
	st := &Status{
		Status:          m.Status(),
		FailureCount:    m.failures.Load(),
		LastFailureTime: m.lastFailure.Load().(time.Time),
	}
	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()
	if conn != nil && conn.IsConnected() {
		st.Reconnects = conn.Stats().Reconnects
		if rtt, err := conn.RTT(); err == nil {
			st.RTT = rtt
		}
	}
	return st
}

func (m *Client) recordFailure() {
	n := m.failures.Add(1)
	m.lastFailure.Store(time.Now())
	if n < m.circuitThreshold {
		return
	}

	prev := m.Status()
	if prev == StatusCircuitOpen || !m.status.CompareAndSwap(int32(prev), int32(StatusCircuitOpen)) {
		return
	}
	wait := m.Backoff()
	next := wait * 2
	if next > m.maxBackoff {
		next = m.maxBackoff
	}
	m.backoff.Store(int64(next))
	m.failures.Store(0)
	m.logger.Warn("Circuit breaker opened", "failures", n, "backoff", wait)

	resume := prev
	if resume == StatusConnecting {
		resume = StatusDisconnected
	}
	time.AfterFunc(wait, func() {
		if m.status.CompareAndSwap(int32(StatusCircuitOpen), int32(resume)) {
			m.logger.Debug("Circuit breaker half-open", "status", resume.String())
		}
	})
}

func (m *Client) resetCircuit() {
	m.failures.Store(0)
	m.backoff.Store(int64(time.Second))
}

// guard rejects calls while the circuit is open or the client is offline.
func (m *Client) guard() (jetstream.JetStream, error) {
	switch m.Status() {
	case StatusCircuitOpen:
		return nil, ErrCircuitOpen
	case StatusConnected:
	default:
		return nil, ErrNotConnected
	}
	return m.JetStream()
}

// observe feeds the result of a JetStream call into the circuit breaker.
func (m *Client) observe(err error) {
	if err != nil {
		m.recordFailure()
		return
	}
	m.resetCircuit()
}

// Connect dials the server and initialises JetStream. It fails fast while
// the circuit is open.
func (m *Client) Connect(ctx context.Context) error {
	if m.closed.Load() {
		return errors.WrapFatal(errors.ErrShuttingDown, "Client", "Connect", "check client state")
	}
	if m.Status() == StatusCircuitOpen {
		return ErrCircuitOpen
	}

	m.setStatus(StatusConnecting)
	m.logger.Info("Connecting to NATS", "url", m.url)

	type result struct {
		conn *nats.Conn
		js   jetstream.JetStream
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(m.url, m.connectionOptions()...)
		if err != nil {
			done <- result{err: err}
			return
		}
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			done <- result{err: err}
			return
		}
		done <- result{conn: conn, js: js}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			m.recordFailure()
			if m.Status() == StatusCircuitOpen {
				return ErrCircuitOpen
			}
			m.setStatus(StatusDisconnected)
			return errors.WrapTransient(r.err, "Client", "Connect", "establish connection")
		}
		m.mu.Lock()
		m.conn, m.js = r.conn, r.js
		m.mu.Unlock()
	case <-ctx.Done():
		m.recordFailure()
		if m.Status() != StatusCircuitOpen {
			m.setStatus(StatusDisconnected)
		}
		// The dial may still complete; close whatever it produces.
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}

	m.setStatus(StatusConnected)
	m.resetCircuit()
	m.logger.Info("Connected to NATS", "url", m.url)
	m.notifyHealth(true)
	return nil
}

// WaitForConnection blocks until the client is connected or ctx ends.
func (m *Client) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if m.IsHealthy() {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.WrapTransient(ctx.Err(), "Client", "WaitForConnection", "wait for connection")
		case <-ticker.C:
		}
	}
}

func (m *Client) connectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(m.maxReconnects),
		nats.ReconnectWait(m.reconnectWait),
		nats.PingInterval(m.pingInterval),
		nats.Timeout(m.timeout),
		nats.DrainTimeout(m.drainTimeout),
		nats.DisconnectErrHandler(m.handleDisconnect),
		nats.ReconnectHandler(m.handleReconnect),
		nats.ClosedHandler(m.handleClosed),
		nats.ErrorHandler(m.handleError),
	}
	switch {
	case m.credsFile != "":
		opts = append(opts, nats.UserCredentials(m.credsFile))
	case m.token != "":
		opts = append(opts, nats.Token(m.token))
	case m.username != "" && m.password != "":
		opts = append(opts, nats.UserInfo(m.username, m.password))
	}
	if m.tlsConfig != nil {
		opts = append(opts, nats.Secure(m.tlsConfig))
	}
	if m.clientName != "" {
		opts = append(opts, nats.Name(m.clientName))
	}
	return opts
}

// Close drains the connection, bounded by the drain timeout or ctx,
// whichever ends first. Calling Close more than once is a no-op.
func (m *Client) Close(ctx context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()
	if m.closed.Swap(true) {
		return nil
	}

	m.mu.Lock()
	conn := m.conn
	m.conn, m.js = nil, nil
	m.username, m.password, m.token = "", "", ""
	m.mu.Unlock()

	if conn == nil {
		m.setStatus(StatusDisconnected)
		return nil
	}

	timeout := m.drainTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}

	drained := make(chan error, 1)
	go func() { drained <- conn.Drain() }()

	var err error
	select {
	case derr := <-drained:
		if derr != nil {
			err = errors.Wrap(derr, "Client", "Close", "drain connection")
		}
	case <-time.After(timeout):
		err = errors.WrapTransient(fmt.Errorf("drain timeout after %v", timeout), "Client", "Close", "drain")
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "Client", "Close", "drain")
	}
	if err != nil {
		m.logger.Error("Closing NATS connection", "error", err)
	}
	conn.Close()
	m.setStatus(StatusDisconnected)
	return err
}

// JetStream returns the JetStream context of the current connection.
func (m *Client) JetStream() (jetstream.JetStream, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.js == nil {
		return nil, ErrNotConnected
	}
	return m.js, nil
}

// EnsureStream creates the stream or updates its configuration.
func (m *Client) EnsureStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	js, err := m.guard()
	if err != nil {
		return nil, err
	}
	stream, err := js.CreateOrUpdateStream(ctx, cfg)
	m.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "EnsureStream", fmt.Sprintf("create stream %s", cfg.Name))
	}
	m.logger.Debug("Stream ready", "stream", cfg.Name, "subjects", cfg.Subjects)
	return stream, nil
}

// PublishToStream publishes data on a subject captured by a stream and waits
// for the server's ack.
func (m *Client) PublishToStream(ctx context.Context, subject string, data []byte) error {
	js, err := m.guard()
	if err != nil {
		return err
	}
	_, err = js.Publish(ctx, subject, data)
	m.observe(err)
	if err != nil {
		return errors.WrapTransient(err, "Client", "PublishToStream", fmt.Sprintf("publish to %s", subject))
	}
	return nil
}

// KeyValueBucket opens the bucket, creating it with cfg if it does not exist.
func (m *Client) KeyValueBucket(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := m.guard()
	if err != nil {
		return nil, err
	}

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		m.resetCircuit()
		return bucket, nil
	}
	if !stderrors.Is(err, jetstream.ErrBucketNotFound) {
		m.recordFailure()
		return nil, errors.WrapTransient(err, "Client", "KeyValueBucket", fmt.Sprintf("open bucket %s", cfg.Bucket))
	}

	bucket, err = js.CreateKeyValue(ctx, cfg)
	if err != nil && isAlreadyExistsError(err) {
		// Lost a creation race with another process.
		bucket, err = js.KeyValue(ctx, cfg.Bucket)
	}
	m.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "KeyValueBucket", fmt.Sprintf("create bucket %s", cfg.Bucket))
	}
	m.logger.Info("Created KV bucket", "bucket", cfg.Bucket)
	return bucket, nil
}

// PullConsumer creates or updates a durable pull consumer on stream.
func (m *Client) PullConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	js, err := m.guard()
	if err != nil {
		return nil, err
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, stream, cfg)
	m.observe(err)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "PullConsumer",
			fmt.Sprintf("create consumer %s on %s", cfg.Durable, stream))
	}
	return consumer, nil
}

func (m *Client) notifyHealth(healthy bool) {
	m.mu.RLock()
	fn := m.onHealthChange
	m.mu.RUnlock()
	if fn != nil {
		go fn(healthy)
	}
}

func (m *Client) handleDisconnect(_ *nats.Conn, err error) {
	if m.closed.Load() {
		return
	}
	m.setStatus(StatusReconnecting)
	m.logger.Warn("NATS disconnected", "error", err)
	m.notifyHealth(false)
}

func (m *Client) handleReconnect(conn *nats.Conn) {
	m.setStatus(StatusConnected)
	m.resetCircuit()
	m.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
	m.notifyHealth(true)
}

func (m *Client) handleClosed(_ *nats.Conn) {
	m.setStatus(StatusDisconnected)
	m.notifyHealth(false)
}

func (m *Client) handleError(_ *nats.Conn, sub *nats.Subscription, err error) {
	subject := ""
	if sub != nil {
		subject = sub.Subject
	}
	m.logger.Error("NATS async error", "subject", subject, "error", err)
}

func isAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, jetstream.ErrBucketExists) || stderrors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already")
}
