package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/health"
	"github.com/planetf1/atlas-sub002/message"
	"github.com/planetf1/atlas-sub002/metric"
)

const consumerComponent = "Consumer"

// Feed is an ordered source of raw notifications with an acknowledgement
// position. natsclient.PullSubscription is the production implementation.
type Feed interface {
	// Poll returns up to batchSize records, waiting at most timeout. An
	// empty result is not an error.
	Poll(ctx context.Context, batchSize int, timeout time.Duration) ([]message.Record, error)
	// Commit acknowledges every record up to the last of records.
	Commit(records []message.Record) error
	Close() error
}

// Processor receives each raw notification in feed order.
type Processor interface {
	OnNotification(ctx context.Context, raw []byte)
}

// ConsumerConfig tunes the poll loop.
type ConsumerConfig struct {
	BatchSize   int           `json:"batch_size" yaml:"batch_size"`
	PollTimeout time.Duration `json:"poll_timeout" yaml:"poll_timeout"`
	// ErrorBackoff is the minimum interval between polls after a failed
	// poll.
	ErrorBackoff time.Duration `json:"error_backoff" yaml:"error_backoff"`
}

// DefaultConsumerConfig returns the default poll settings.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BatchSize:    100,
		PollTimeout:  time.Second,
		ErrorBackoff: time.Second,
	}
}

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	d := DefaultConsumerConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = d.ErrorBackoff
	}
	return c
}

// Consumer drives a Processor from a Feed on one goroutine, so
// notifications are processed strictly in feed order. Each batch is
// committed once all of its records were handed to the processor.
type Consumer struct {
	feed      Feed
	processor Processor
	config    ConsumerConfig
	metrics   *metric.Metrics
	logger    *slog.Logger
	limiter   *rate.Limiter

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}

	stopping  atomic.Bool
	running   atomic.Bool
	processed atomic.Int64
	lastErr   atomic.Value // string
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithConsumerMetrics records poll activity in m.
func WithConsumerMetrics(m *metric.Metrics) ConsumerOption {
	return func(c *Consumer) { c.metrics = m }
}

// WithConsumerLogger sets the logger.
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewConsumer creates a consumer of feed.
func NewConsumer(feed Feed, processor Processor, config ConsumerConfig, opts ...ConsumerOption) (*Consumer, error) {
	if feed == nil {
		return nil, errors.Fatalf(errors.ErrConfiguration, consumerComponent, "NewConsumer", "feed is required")
	}
	if processor == nil {
		return nil, errors.Fatalf(errors.ErrConfiguration, consumerComponent, "NewConsumer", "processor is required")
	}
	config = config.withDefaults()
	c := &Consumer{
		feed:      feed,
		processor: processor,
		config:    config,
		logger:    slog.Default(),
		limiter:   rate.NewLimiter(rate.Every(config.ErrorBackoff), 1),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "consumer")
	c.lastErr.Store("")
	return c, nil
}

// Start launches the poll loop. The loop runs until Stop is called or ctx is
// cancelled. A consumer cannot be restarted.
func (c *Consumer) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.stopped {
		return errors.WrapFatal(errors.ErrShuttingDown, consumerComponent, "Start", "check lifecycle state")
	}
	if c.started {
		return errors.WrapFatal(errors.ErrAlreadyStarted, consumerComponent, "Start", "check lifecycle state")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.started = true
	c.running.Store(true)
	c.metrics.RecordConsumerRunning(true)

	go c.run(loopCtx)

	c.logger.Info("Notification consumer started",
		"batch_size", c.config.BatchSize,
		"poll_timeout", c.config.PollTimeout)
	return nil
}

// Stop asks the loop to finish the record in flight and exit, then closes
// the feed. If the loop has not exited within timeout its context is
// cancelled and Stop waits for it again.
func (c *Consumer) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.started || c.stopped {
		return nil
	}
	c.stopped = true
	c.stopping.Store(true)

	var timedOut bool
	select {
	case <-c.done:
	case <-time.After(timeout):
		timedOut = true
		c.logger.Warn("Consumer did not stop in time, cancelling", "timeout", timeout)
		c.cancel()
		<-c.done
	}
	c.cancel()

	if err := c.feed.Close(); err != nil {
		c.logger.Warn("Failed to close feed", "error", err)
	}
	c.logger.Info("Notification consumer stopped", "processed", c.processed.Load())

	if timedOut {
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout),
			consumerComponent, "Stop", "graceful shutdown")
	}
	return nil
}

// Running reports whether the poll loop is active.
func (c *Consumer) Running() bool {
	return c.running.Load()
}

// Processed returns the number of records handed to the processor.
func (c *Consumer) Processed() int64 {
	return c.processed.Load()
}

// Health implements health.Checker.
func (c *Consumer) Health() health.Status {
	if !c.running.Load() {
		return health.NewUnhealthy("consumer", "not running")
	}
	if msg := c.lastErr.Load().(string); msg != "" {
		return health.NewDegraded("consumer", health.Sanitize(msg))
	}
	return health.NewHealthy("consumer", fmt.Sprintf("%d notifications processed", c.processed.Load()))
}

func (c *Consumer) run(ctx context.Context) {
	defer func() {
		c.running.Store(false)
		c.metrics.RecordConsumerRunning(false)
		close(c.done)
	}()

	for !c.stopping.Load() && ctx.Err() == nil {
		records, err := c.feed.Poll(ctx, c.config.BatchSize, c.config.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.pollFailed(ctx, err)
			continue
		}
		c.lastErr.Store("")
		if len(records) == 0 {
			continue
		}
		c.metrics.RecordBatch(len(records))

		handled := c.handleBatch(ctx, records)
		if handled == 0 {
			continue
		}
		if err := c.feed.Commit(records[:handled]); err != nil {
			c.logger.Warn("Failed to commit batch", "error", err, "records", handled)
		}
	}
}

// handleBatch hands records to the processor in order and returns how many
// were handled. It stops early when the consumer is stopping; the rest are
// redelivered after a restart.
func (c *Consumer) handleBatch(ctx context.Context, records []message.Record) int {
	for i, rec := range records {
		if c.stopping.Load() || ctx.Err() != nil {
			return i
		}
		c.handle(ctx, rec)
		c.processed.Add(1)
	}
	return len(records)
}

func (c *Consumer) handle(ctx context.Context, rec message.Record) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Processor panicked", "sequence", rec.Sequence, "panic", r)
		}
	}()
	c.processor.OnNotification(ctx, rec.Data)
}

func (c *Consumer) pollFailed(ctx context.Context, err error) {
	c.metrics.RecordPollError()
	c.lastErr.Store(err.Error())
	c.logger.Warn("Poll failed", "error", err, "transient", errors.IsTransient(err))
	// Wait only fails once ctx is done, which ends the loop anyway.
	_ = c.limiter.Wait(ctx)
}
