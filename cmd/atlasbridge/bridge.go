package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/sync/errgroup"

	"github.com/planetf1/atlas-sub002/catalog"
	"github.com/planetf1/atlas-sub002/config"
	"github.com/planetf1/atlas-sub002/health"
	"github.com/planetf1/atlas-sub002/metric"
	"github.com/planetf1/atlas-sub002/natsclient"
	"github.com/planetf1/atlas-sub002/output/omrsevents"
	"github.com/planetf1/atlas-sub002/pkg/retry"
	"github.com/planetf1/atlas-sub002/processor/notification"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/storage/kvstore"
	"github.com/planetf1/atlas-sub002/storage/memstore"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

// bridge holds the running components in start order.
type bridge struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.MetricsRegistry
	monitor *health.Monitor

	nats     *natsclient.Client
	store    storage.Store
	kv       *kvstore.Store // nil in memory mode
	catalog  *catalog.Catalog
	journal  *omrsevents.Journal // nil unless output mode is file
	consumer *notification.Consumer
	server   *metric.Server // nil when metrics are disabled
}

// newBridge connects to NATS, opens the store, loads the type catalog and
// wires the notification pipeline. Nothing consumes the feed until run.
func newBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bridge, error) {
	b := &bridge{
		cfg:     cfg,
		logger:  logger,
		metrics: metric.NewMetricsRegistry(),
		monitor: health.NewMonitor(),
	}
	core := b.metrics.CoreMetrics()

	if err := b.connectNATS(ctx); err != nil {
		return nil, err
	}
	// Anything below that fails leaves an open connection behind.
	ok := false
	defer func() {
		if !ok {
			b.closeNATS()
		}
	}()

	registry, err := newRegistry(cfg.Bridge)
	if err != nil {
		return nil, err
	}

	if err := b.openStore(ctx); err != nil {
		return nil, err
	}

	b.catalog = catalog.New(b.store, registry, logger)
	report, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*catalog.LoadReport, error) {
		return b.catalog.Load(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load type catalog: %w", err)
	}
	core.RecordCatalogTypes(len(b.catalog.Names()))
	if len(report.Rejected) > 0 {
		logger.Warn("Some source types are not available on the target side",
			"rejected", len(report.Rejected))
	}

	sink, err := b.openOutput(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := omrsevents.NewPublisher(sink,
		omrsevents.WithSubjectPrefix(cfg.Output.SubjectPrefix),
		omrsevents.WithMetrics(core),
		omrsevents.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	dispatcher, err := notification.NewDispatcher(b.store, b.catalog, publisher, cfg.Bridge.Identity(),
		notification.WithMetrics(core),
		notification.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if err := b.subscribe(ctx, dispatcher); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		b.server = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, b.metrics)
		b.server.Handle("/healthz", b.monitor.Handler(appName))
	}

	ok = true
	return b, nil
}

func (b *bridge) connectNATS(ctx context.Context) error {
	nc := b.cfg.NATS
	core := b.metrics.CoreMetrics()

	var wasDown atomic.Bool
	opts := []natsclient.ClientOption{
		natsclient.WithLogger(b.logger),
		natsclient.WithName(nc.Name),
		natsclient.WithMaxReconnects(nc.MaxReconnects),
		natsclient.WithHealthChangeCallback(func(healthy bool) {
			core.RecordNATSStatus(healthy)
			if healthy && wasDown.Swap(false) {
				core.RecordNATSReconnect()
			} else if !healthy {
				wasDown.Store(true)
			}
		}),
	}
	if nc.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(nc.ReconnectWait))
	}
	if nc.PingInterval > 0 {
		opts = append(opts, natsclient.WithPingInterval(nc.PingInterval))
	}
	if nc.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(nc.DrainTimeout))
	}
	switch {
	case nc.CredsFile != "":
		opts = append(opts, natsclient.WithCredsFile(nc.CredsFile))
	case nc.Token != "":
		opts = append(opts, natsclient.WithToken(nc.Token))
	case nc.Username != "":
		opts = append(opts, natsclient.WithCredentials(nc.Username, nc.Password))
	}
	if nc.TLS.Enabled {
		opts = append(opts, natsclient.WithTLS(nc.TLS.Client()))
	}

	client, err := natsclient.NewClient(strings.Join(nc.URLs, ","), opts...)
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	b.logger.Info("Connecting to NATS", "urls", nc.URLs)
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return client.Connect(ctx)
	}); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.WaitForConnection(waitCtx); err != nil {
		return fmt.Errorf("wait for NATS: %w", err)
	}
	b.nats = client

	b.monitor.Register("nats", health.CheckerFunc(func() health.Status {
		st := client.GetStatus()
		core.RecordCircuitBreakerState(st.Status == natsclient.StatusCircuitOpen)
		switch st.Status {
		case natsclient.StatusConnected:
			return health.NewHealthy("nats", fmt.Sprintf("connected, rtt %s", st.RTT))
		case natsclient.StatusReconnecting, natsclient.StatusConnecting:
			return health.NewDegraded("nats", st.Status.String())
		default:
			return health.NewUnhealthy("nats", st.Status.String())
		}
	}))
	return nil
}

// newRegistry builds the reserved-name registry, pinning the configured ids.
func newRegistry(bc config.BridgeConfig) (*vocabulary.Registry, error) {
	var opts []vocabulary.Option
	if bc.ReservedPrefix != "" {
		opts = append(opts, vocabulary.WithPrefix(bc.ReservedPrefix))
	}
	registry := vocabulary.NewRegistry(opts...)
	for name, id := range bc.ReservedTypeGUIDs {
		if err := registry.Preload(name, id); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func (b *bridge) openStore(ctx context.Context) error {
	sc := b.cfg.Storage
	mode, err := storage.ParseDeleteMode(sc.DeleteMode)
	if err != nil {
		return err
	}
	localID := b.cfg.Bridge.MetadataCollectionID

	var writer storage.Writer
	switch sc.Mode {
	case config.StorageModeMemory:
		ms := memstore.New(localID, mode)
		b.store, writer = ms, ms
	default:
		kvCfg := kvstore.Config{LocalID: localID, DeleteMode: mode}
		if sc.Mode == config.StorageModeHybrid {
			kvCfg.CacheSize, kvCfg.CacheTTL = sc.CacheSize, sc.CacheTTL
		}
		kv, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*kvstore.Store, error) {
			return kvstore.Open(ctx, b.nats, sc.Buckets, kvCfg, b.logger)
		})
		if err != nil {
			return fmt.Errorf("open KV store: %w", err)
		}
		if err := kv.RegisterMetrics(b.metrics); err != nil {
			return fmt.Errorf("register KV store metrics: %w", err)
		}
		b.kv, b.store, writer = kv, kv, kv
	}

	if sc.SeedFile != "" {
		if err := storage.LoadSeed(ctx, writer, sc.SeedFile); err != nil {
			return err
		}
		b.logger.Info("Store seeded", "file", sc.SeedFile)
	}
	b.logger.Info("Source store ready", "mode", sc.Mode, "delete_mode", mode)
	return nil
}

func (b *bridge) openOutput(ctx context.Context) (omrsevents.Sink, error) {
	oc := b.cfg.Output
	if oc.Mode == config.OutputModeFile {
		journal, err := omrsevents.NewJournal(oc.Journal, b.logger)
		if err != nil {
			return nil, err
		}
		if err := journal.RegisterMetrics(b.metrics); err != nil {
			return nil, err
		}
		b.journal = journal
		b.monitor.Register("journal", journal)
		return journal, nil
	}

	if oc.Stream != "" {
		prefix := strings.Trim(oc.SubjectPrefix, ".")
		if _, err := b.nats.EnsureStream(ctx, jetstream.StreamConfig{
			Name:        oc.Stream,
			Description: "OMRS instance events",
			Subjects:    []string{prefix + ".>"},
		}); err != nil {
			return nil, fmt.Errorf("ensure output stream: %w", err)
		}
	}
	return b.nats, nil
}

func (b *bridge) subscribe(ctx context.Context, processor notification.Processor) error {
	fc := b.cfg.Feed
	if fc.Subject != "" {
		if _, err := b.nats.EnsureStream(ctx, jetstream.StreamConfig{
			Name:        fc.Stream,
			Description: "Atlas entity notifications",
			Subjects:    []string{fc.Subject},
		}); err != nil {
			return fmt.Errorf("ensure feed stream: %w", err)
		}
	}

	feed, err := b.nats.Subscribe(ctx, natsclient.PullConfig{
		Stream:        fc.Stream,
		Subject:       fc.Subject,
		Durable:       fc.GroupID,
		AckWait:       fc.AckWait,
		MaxAckPending: fc.MaxAckPending,
	})
	if err != nil {
		return fmt.Errorf("subscribe to feed: %w", err)
	}

	b.consumer, err = notification.NewConsumer(feed, processor, notification.ConsumerConfig{
		BatchSize:    fc.BatchSize,
		PollTimeout:  fc.PollTimeout,
		ErrorBackoff: fc.ErrorBackoff,
	},
		notification.WithConsumerMetrics(b.metrics.CoreMetrics()),
		notification.WithConsumerLogger(b.logger))
	if err != nil {
		return err
	}
	b.monitor.Register("consumer", b.consumer)
	return nil
}

// run starts every component and blocks until ctx is cancelled or one of
// them fails, then stops them in reverse order.
func (b *bridge) run(ctx context.Context, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)

	if b.journal != nil {
		if err := b.journal.Start(gctx); err != nil {
			b.closeNATS()
			return err
		}
	}
	if b.kv != nil {
		g.Go(func() error {
			if err := b.kv.Invalidate(gctx); err != nil {
				b.logger.Warn("Entity cache is not invalidated on updates", "error", err)
			}
			return nil
		})
	}
	if b.server != nil {
		g.Go(b.server.Start)
		b.logger.Info("Metrics server started", "address", b.server.Address())
	}
	if err := b.consumer.Start(gctx); err != nil {
		b.shutdown(shutdownTimeout)
		return err
	}
	b.logger.Info("Bridge started",
		"collection", b.cfg.Bridge.MetadataCollectionID,
		"feed", b.cfg.Feed.Stream,
		"group", b.cfg.Feed.GroupID,
		"output", b.cfg.Output.Mode)

	g.Go(func() error {
		<-gctx.Done()
		b.logger.Info("Shutting down")
		b.shutdown(shutdownTimeout)
		return nil
	})

	err := g.Wait()
	b.logger.Info("Bridge stopped", "processed", b.consumer.Processed())
	return err
}

// shutdown stops the consumer first so no event is published into a closed
// sink.
func (b *bridge) shutdown(timeout time.Duration) {
	if b.consumer != nil {
		if err := b.consumer.Stop(timeout); err != nil {
			b.logger.Warn("Consumer did not stop cleanly", "error", err)
		}
	}
	if b.journal != nil {
		if err := b.journal.Stop(timeout); err != nil {
			b.logger.Warn("Journal did not stop cleanly", "error", err)
		}
	}
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := b.server.Shutdown(ctx); err != nil {
			b.logger.Warn("Metrics server did not stop cleanly", "error", err)
		}
		cancel()
	}
	b.closeNATS()
}

func (b *bridge) closeNATS() {
	if b.nats == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.nats.Close(ctx); err != nil {
		b.logger.Warn("Closing NATS connection", "error", err)
	}
}
