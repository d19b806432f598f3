package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/message"
)

// PullConfig describes a durable pull subscription.
type PullConfig struct {
	Stream        string        // Stream holding the notifications
	Subject       string        // Filter subject, empty for the whole stream
	Durable       string        // Consumer group id shared by every bridge instance
	AckWait       time.Duration // Redelivery delay for unacknowledged records
	MaxAckPending int           // Outstanding records allowed, zero for server default
}

// PullSubscription is a notification feed over a durable JetStream pull
// consumer. The consumer uses AckAll, so committing a batch acknowledges its
// last record and with it every earlier one.
type PullSubscription struct {
	consumer jetstream.Consumer
	cfg      PullConfig
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Subscribe creates or updates the durable consumer described by cfg and
// returns a feed reading from it.
func (m *Client) Subscribe(ctx context.Context, cfg PullConfig) (*PullSubscription, error) {
	if cfg.Stream == "" || cfg.Durable == "" {
		return nil, errors.Fatalf(errors.ErrConfiguration, "Client", "Subscribe",
			"stream and durable name are required")
	}

	consumer, err := m.PullConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		Durable:       cfg.Durable,
		FilterSubject: cfg.Subject,
		AckPolicy:     jetstream.AckAllPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckWait:       cfg.AckWait,
		MaxAckPending: cfg.MaxAckPending,
	})
	if err != nil {
		return nil, err
	}
	return NewPullSubscription(consumer, cfg, m.logger), nil
}

// NewPullSubscription wraps an existing consumer.
func NewPullSubscription(consumer jetstream.Consumer, cfg PullConfig, logger *slog.Logger) *PullSubscription {
	if logger == nil {
		logger = slog.Default()
	}
	return &PullSubscription{
		consumer: consumer,
		cfg:      cfg,
		logger:   logger.With("stream", cfg.Stream, "durable", cfg.Durable),
	}
}

// Poll waits up to timeout for at most batchSize records. An expired wait
// is not an error: it returns an empty batch.
func (p *PullSubscription) Poll(ctx context.Context, batchSize int, timeout time.Duration) ([]message.Record, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, errors.WrapFatal(errors.ErrShuttingDown, "PullSubscription", "Poll", "poll closed feed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := p.consumer.Fetch(batchSize, jetstream.FetchMaxWait(timeout))
	if err != nil {
		if isEmptyFetch(err) {
			return nil, nil
		}
		return nil, errors.WrapTransient(err, "PullSubscription", "Poll", "fetch")
	}

	var records []message.Record
	for msg := range batch.Messages() {
		rec := message.Record{Subject: msg.Subject(), Data: msg.Data(), Ref: msg}
		if meta, err := msg.Metadata(); err == nil {
			rec.Sequence = meta.Sequence.Stream
			rec.Published = meta.Timestamp
		}
		records = append(records, rec)
	}
	if err := batch.Error(); err != nil && !isEmptyFetch(err) {
		// Records already received are still returned; the rest are
		// redelivered after AckWait.
		p.logger.Warn("Fetch ended early", "error", err, "received", len(records))
	}
	return records, nil
}

// Commit acknowledges records. The ack is sent without waiting for the
// server's confirmation; a lost ack means redelivery.
func (p *PullSubscription) Commit(records []message.Record) error {
	for i := len(records) - 1; i >= 0; i-- {
		msg, ok := records[i].Ref.(jetstream.Msg)
		if !ok {
			continue
		}
		if err := msg.Ack(); err != nil {
			return errors.WrapTransient(err, "PullSubscription", "Commit",
				fmt.Sprintf("ack sequence %d", records[i].Sequence))
		}
		return nil
	}
	return nil
}

// Close stops the feed. The durable consumer stays on the server so the
// next subscriber resumes where this one stopped.
func (p *PullSubscription) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func isEmptyFetch(err error) bool {
	return stderrors.Is(err, nats.ErrTimeout) || stderrors.Is(err, jetstream.ErrNoMessages) ||
		stderrors.Is(err, context.DeadlineExceeded)
}
