package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/planetf1/atlas-sub002/message"
)

// MockNATSClient is an in-memory stand-in for the JetStream publishing side
// of natsclient.Client. Thread-safe for concurrent use.
type MockNATSClient struct {
	mu       sync.RWMutex
	messages map[string][][]byte
	err      error
	closed   bool
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{messages: make(map[string][][]byte)}
}

// PublishToStream records data under subject (matches natsclient.Client).
func (c *MockNATSClient) PublishToStream(_ context.Context, subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("client is closed")
	}
	if c.err != nil {
		return c.err
	}
	c.messages[subject] = append(c.messages[subject], data)
	return nil
}

// FailWith makes subsequent publishes return err. Nil restores success.
func (c *MockNATSClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Close makes subsequent publishes fail.
func (c *MockNATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// GetMessages returns a copy of the messages published on subject.
func (c *MockNATSClient) GetMessages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([][]byte, len(c.messages[subject]))
	copy(out, c.messages[subject])
	return out
}

// GetMessageCount returns the number of messages published on subject.
func (c *MockNATSClient) GetMessageCount(subject string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages[subject])
}

// Subjects returns the subjects that have received messages.
func (c *MockNATSClient) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.messages))
	for s := range c.messages {
		out = append(out, s)
	}
	return out
}

// WaitForMessageCount waits for count messages on subject (with timeout).
func WaitForMessageCount(t *testing.T, client *MockNATSClient, subject string, count int, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			got := client.GetMessageCount(subject)
			t.Fatalf("timeout waiting for %d messages on subject %s (got %d)", count, subject, got)
			return
		case <-ticker.C:
			if client.GetMessageCount(subject) >= count {
				return
			}
		}
	}
}

// MockFeed serves queued records to Poll and records commits. It behaves
// like a durable pull subscription: polled records stay polled, and an empty
// poll waits up to its timeout for new records.
type MockFeed struct {
	mu        sync.Mutex
	pending   []message.Record
	next      uint64
	committed []message.Record
	pollErrs  []error
	polls     int
	closed    bool
	notify    chan struct{}
}

// NewMockFeed creates an empty feed.
func NewMockFeed() *MockFeed {
	return &MockFeed{notify: make(chan struct{}, 1)}
}

// Add queues raw notifications, numbering them in order.
func (f *MockFeed) Add(data ...[]byte) {
	f.mu.Lock()
	for _, d := range data {
		f.next++
		f.pending = append(f.pending, message.Record{
			Subject:   "atlas.entities",
			Data:      d,
			Sequence:  f.next,
			Published: time.Now(),
		})
	}
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// FailPolls makes the next polls return errs, one per poll.
func (f *MockFeed) FailPolls(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollErrs = append(f.pollErrs, errs...)
}

// Poll returns up to batchSize queued records.
func (f *MockFeed) Poll(ctx context.Context, batchSize int, timeout time.Duration) ([]message.Record, error) {
	f.mu.Lock()
	f.polls++
	f.mu.Unlock()

	if recs, ok, err := f.take(batchSize); ok {
		return recs, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, nil
	case <-timer.C:
		return nil, nil
	case <-f.notify:
		recs, _, err := f.take(batchSize)
		return recs, err
	}
}

func (f *MockFeed) take(batchSize int) ([]message.Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, true, fmt.Errorf("feed is closed")
	}
	if len(f.pollErrs) > 0 {
		err := f.pollErrs[0]
		f.pollErrs = f.pollErrs[1:]
		return nil, true, err
	}
	if len(f.pending) == 0 {
		return nil, false, nil
	}
	n := min(batchSize, len(f.pending))
	recs := make([]message.Record, n)
	copy(recs, f.pending[:n])
	f.pending = f.pending[n:]
	return recs, true, nil
}

// Commit records the committed batch.
func (f *MockFeed) Commit(records []message.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, records...)
	return nil
}

// Close marks the feed closed.
func (f *MockFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Committed returns the sequence numbers of the committed records.
func (f *MockFeed) Committed() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, 0, len(f.committed))
	for _, r := range f.committed {
		out = append(out, r.Sequence)
	}
	return out
}

// Pending returns the number of records not yet polled.
func (f *MockFeed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// Polls returns the number of Poll calls.
func (f *MockFeed) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// IsClosed reports whether Close was called.
func (f *MockFeed) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
