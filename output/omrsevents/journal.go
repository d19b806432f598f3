package omrsevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/health"
)

// JournalConfig configures a Journal.
type JournalConfig struct {
	Directory string `json:"directory" yaml:"directory"`
	// FilePrefix names the journal file, <prefix>.jsonl.
	FilePrefix    string        `json:"file_prefix" yaml:"file_prefix"`
	Append        bool          `json:"append" yaml:"append"`
	BufferSize    int           `json:"buffer_size" yaml:"buffer_size"`
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`
}

// DefaultJournalConfig returns the default journal settings.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		Directory:     "/tmp/atlasbridge",
		FilePrefix:    "omrs-events",
		Append:        true,
		BufferSize:    100,
		FlushInterval: time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *JournalConfig) Validate() error {
	if c.Directory == "" {
		return errors.WrapInvalid(errors.ErrConfiguration, "JournalConfig", "Validate", "directory is required")
	}
	if c.BufferSize < 0 {
		return errors.WrapInvalid(errors.ErrConfiguration, "JournalConfig", "Validate",
			"buffer_size cannot be negative")
	}
	return nil
}

// journalLine is one line of the journal file.
type journalLine struct {
	Subject string          `json:"subject"`
	Event   json.RawMessage `json:"event"`
}

// Journal is a Sink that appends events to a JSON lines file. Writes are
// buffered and flushed when the buffer fills, on a timer, and on Stop.
type Journal struct {
	config JournalConfig
	path   string
	logger *slog.Logger

	file   *os.File
	fileMu sync.Mutex

	buffer   [][]byte
	bufferMu sync.Mutex

	lifecycleMu sync.Mutex
	running     bool
	shutdown    chan struct{}
	wg          sync.WaitGroup

	written atomic.Int64
	errs    atomic.Int64
	metrics *journalMetrics
}

// NewJournal creates a journal. Start opens the file.
func NewJournal(config JournalConfig, logger *slog.Logger) (*Journal, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.FilePrefix == "" {
		config.FilePrefix = DefaultJournalConfig().FilePrefix
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultJournalConfig().FlushInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		config: config,
		path:   filepath.Join(config.Directory, config.FilePrefix+".jsonl"),
		logger: logger.With("component", "omrs-journal"),
		buffer: make([][]byte, 0, config.BufferSize),
	}, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Start opens the journal file and launches the flush loop.
func (j *Journal) Start(ctx context.Context) error {
	j.lifecycleMu.Lock()
	defer j.lifecycleMu.Unlock()

	if j.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Journal", "Start", "check running state")
	}
	if err := os.MkdirAll(j.config.Directory, 0o755); err != nil {
		return errors.WrapFatal(err, "Journal", "Start", "create journal directory")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if j.config.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(j.path, flags, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "Journal", "Start", "open journal file")
	}

	j.fileMu.Lock()
	j.file = f
	j.fileMu.Unlock()

	j.shutdown = make(chan struct{})
	j.wg.Add(1)
	go j.flushLoop(ctx)
	j.running = true

	j.logger.Info("Event journal started", "path", j.path, "append", j.config.Append)
	return nil
}

// Stop flushes buffered events and closes the file.
func (j *Journal) Stop(timeout time.Duration) error {
	j.lifecycleMu.Lock()
	defer j.lifecycleMu.Unlock()

	if !j.running {
		return nil
	}
	close(j.shutdown)

	waitCh := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout),
			"Journal", "Stop", "graceful shutdown")
	}

	j.flush()
	j.running = false

	j.fileMu.Lock()
	defer j.fileMu.Unlock()
	if err := j.file.Close(); err != nil {
		return errors.Wrap(err, "Journal", "Stop", "close journal file")
	}
	j.file = nil
	return nil
}

// PublishToStream implements Sink.
func (j *Journal) PublishToStream(_ context.Context, subject string, data []byte) error {
	line, err := json.Marshal(journalLine{Subject: subject, Event: data})
	if err != nil {
		return errors.WrapInvalid(err, "Journal", "PublishToStream", "marshal journal line")
	}

	j.fileMu.Lock()
	open := j.file != nil
	j.fileMu.Unlock()
	if !open {
		return errors.WrapTransient(errors.ErrNotStarted, "Journal", "PublishToStream", "check file state")
	}

	j.bufferMu.Lock()
	j.buffer = append(j.buffer, line)
	buffered := len(j.buffer)
	j.bufferMu.Unlock()
	j.metrics.recordBuffered(buffered)

	full := buffered >= j.config.BufferSize

	if full {
		j.flush()
	}
	return nil
}

// Written returns the number of lines written to the file.
func (j *Journal) Written() int64 {
	return j.written.Load()
}

// Health implements health.Checker.
func (j *Journal) Health() health.Status {
	j.fileMu.Lock()
	open := j.file != nil
	j.fileMu.Unlock()

	if !open {
		return health.NewUnhealthy("journal", "journal file is not open")
	}
	if n := j.errs.Load(); n > 0 {
		return health.NewDegraded("journal", fmt.Sprintf("%d write errors", n))
	}
	return health.NewHealthy("journal", fmt.Sprintf("%d events written", j.written.Load()))
}

func (j *Journal) flushLoop(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.flush()
		case <-j.shutdown:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (j *Journal) flush() {
	j.bufferMu.Lock()
	if len(j.buffer) == 0 {
		j.bufferMu.Unlock()
		return
	}
	lines := j.buffer
	j.buffer = make([][]byte, 0, j.config.BufferSize)
	j.bufferMu.Unlock()
	j.metrics.recordBuffered(0)

	start := time.Now()
	defer func() { j.metrics.recordFlush(start) }()

	j.fileMu.Lock()
	defer j.fileMu.Unlock()
	if j.file == nil {
		j.errs.Add(int64(len(lines)))
		j.metrics.recordLines("failed", len(lines))
		return
	}

	for _, line := range lines {
		if _, err := j.file.Write(append(line, '\n')); err != nil {
			j.errs.Add(1)
			j.metrics.recordLines("failed", 1)
			j.logger.Error("Failed to write event to journal", "error", err)
			continue
		}
		j.written.Add(1)
		j.metrics.recordLines("written", 1)
	}
}
