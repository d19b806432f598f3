package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/planetf1/atlas-sub002/catalog"
	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/message"
	"github.com/planetf1/atlas-sub002/metric"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/translator"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

const dispatcherComponent = "Dispatcher"

// Result is the outcome of processing one notification.
type Result int

const (
	// ResultDelivered means exactly one handler was invoked and returned nil.
	ResultDelivered Result = iota
	// ResultMalformed means the bytes were not a notification.
	ResultMalformed
	// ResultUnsupportedVersion means the envelope has another major version.
	ResultUnsupportedVersion
	// ResultPlaceholder means the entity is a reference-only record.
	ResultPlaceholder
	// ResultRemote means another metadata collection owns the entity.
	ResultRemote
	// ResultFailed means resolving or translating the entity failed.
	ResultFailed
	// ResultUnknownOperation means the operation has no handler.
	ResultUnknownOperation
	// ResultHandlerFailed means the handler returned an error or panicked.
	ResultHandlerFailed
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultMalformed:
		return "malformed"
	case ResultUnsupportedVersion:
		return "unsupported_version"
	case ResultPlaceholder:
		return "placeholder"
	case ResultRemote:
		return "remote"
	case ResultFailed:
		return "failed"
	case ResultUnknownOperation:
		return "unknown_operation"
	case ResultHandlerFailed:
		return "handler_failed"
	default:
		return "unknown"
	}
}

// Dispatcher turns source notifications into handler calls. It keeps no
// state between notifications; Process may be called from one goroutine at a
// time per ordering domain.
type Dispatcher struct {
	store    storage.Store
	catalog  *catalog.Catalog
	handler  Handler
	identity omrs.Identity
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMetrics records outcomes in m.
func WithMetrics(m *metric.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher creates a dispatcher. store, cat and handler are required.
func NewDispatcher(store storage.Store, cat *catalog.Catalog, handler Handler, identity omrs.Identity, opts ...DispatcherOption) (*Dispatcher, error) {
	switch {
	case store == nil:
		return nil, errors.Fatalf(errors.ErrConfiguration, dispatcherComponent, "NewDispatcher", "store is required")
	case cat == nil:
		return nil, errors.Fatalf(errors.ErrConfiguration, dispatcherComponent, "NewDispatcher", "type catalog is required")
	case handler == nil:
		return nil, errors.Fatalf(errors.ErrConfiguration, dispatcherComponent, "NewDispatcher", "handler is required")
	}
	d := &Dispatcher{
		store:    store,
		catalog:  cat,
		handler:  handler,
		identity: identity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")
	return d, nil
}

// OnNotification processes one raw notification. Failures are logged and
// the notification dropped; nothing is returned to the caller.
func (d *Dispatcher) OnNotification(ctx context.Context, raw []byte) {
	d.Process(ctx, raw)
}

// Process decodes raw and runs it through the filter and dispatch steps,
// returning what happened to it.
func (d *Dispatcher) Process(ctx context.Context, raw []byte) Result {
	start := time.Now()
	d.metrics.RecordReceived()

	n, err := message.Decode(raw)
	if err != nil {
		if errors.Is(err, errors.ErrUnsupportedVersion) {
			d.logger.Warn("Discarding notification of unsupported version", "error", err)
			return d.discard(ResultUnsupportedVersion, "unsupported_version")
		}
		d.logger.Warn("Discarding undecodable notification", "error", err, "bytes", len(raw))
		return d.discard(ResultMalformed, "malformed")
	}

	op := n.Operation()
	guid, typeName := n.Entity.GUID, n.Entity.TypeName
	log := d.logger.With("guid", guid, "type", typeName, "operation", n.OperationType,
		"event_time", n.Time())
	defer func() { d.metrics.RecordDispatchDuration(op.String(), time.Since(start)) }()

	// The notification says the entity changed: a cached copy is stale.
	if c, ok := d.store.(storage.EntityEvicter); ok {
		c.EvictEntity(guid)
	}

	placeholder, err := d.store.IsPlaceholder(ctx, guid)
	if err != nil {
		log.Error("Placeholder check failed", "error", err)
		return d.discard(ResultFailed, errors.Kind(err))
	}
	if placeholder {
		log.Debug("Discarding notification for placeholder entity")
		return d.discard(ResultPlaceholder, "placeholder")
	}

	local, err := d.store.IsLocallyOwned(ctx, guid)
	if err != nil {
		log.Error("Ownership check failed", "error", err)
		return d.discard(ResultFailed, errors.Kind(err))
	}
	if !local {
		log.Debug("Discarding notification for remotely owned entity")
		return d.discard(ResultRemote, "remote")
	}

	if op == message.OperationDelete && d.store.DeleteMode() == storage.DeleteHard {
		link, err := d.catalog.TypeLink(ctx, typeName)
		if err != nil {
			log.Warn("Discarding purge of entity with unresolvable type", "error", err, "kind", errors.Kind(err))
			return d.discard(ResultFailed, errors.Kind(err))
		}
		return d.deliver(log, "PurgedEntity", func() error {
			return d.handler.PurgedEntity(ctx, d.identity, link.GUID, link.Name, guid)
		})
	}

	detail, err := d.detail(ctx, guid)
	if err != nil {
		log.Warn("Discarding notification", "error", err, "kind", errors.Kind(err))
		return d.discard(ResultFailed, errors.Kind(err))
	}

	switch op {
	case message.OperationCreate:
		return d.deliver(log, "NewEntity", func() error {
			return d.handler.NewEntity(ctx, d.identity, detail)
		})
	case message.OperationUpdate:
		return d.deliver(log, "UpdatedEntity", func() error {
			return d.handler.UpdatedEntity(ctx, d.identity, nil, detail)
		})
	case message.OperationDelete:
		return d.deliver(log, "DeletedEntity", func() error {
			return d.handler.DeletedEntity(ctx, d.identity, detail)
		})
	case message.OperationClassify:
		return d.deliver(log, "ClassifiedEntity", func() error {
			return d.handler.ClassifiedEntity(ctx, d.identity, detail)
		})
	case message.OperationReclassify:
		return d.deliver(log, "ReclassifiedEntity", func() error {
			return d.handler.ReclassifiedEntity(ctx, d.identity, detail)
		})
	case message.OperationDeclassify:
		return d.deliver(log, "DeclassifiedEntity", func() error {
			return d.handler.DeclassifiedEntity(ctx, d.identity, detail)
		})
	default:
		log.Warn("Discarding notification of unsupported operation")
		return d.discard(ResultUnknownOperation, "unknown_operation")
	}
}

// Refresh pushes entity through the refreshed-entity handler. Unlike
// notifications, failures are returned to the caller.
func (d *Dispatcher) Refresh(ctx context.Context, entity *source.Entity) error {
	if entity == nil {
		return errors.Invalidf(errors.ErrInvalidInstance, dispatcherComponent, "Refresh", "nil entity")
	}
	detail, err := d.translate(ctx, entity)
	if err != nil {
		return err
	}
	if r := d.deliver(d.logger.With("guid", entity.GUID, "type", entity.TypeName), "RefreshedEntity", func() error {
		return d.handler.RefreshedEntity(ctx, d.identity, detail)
	}); r != ResultDelivered {
		return errors.WrapTransient(fmt.Errorf("refresh of %s not delivered", entity.GUID),
			dispatcherComponent, "Refresh", "invoke handler")
	}
	return nil
}

// RefreshGUID reads the entity from the store and refreshes it.
func (d *Dispatcher) RefreshGUID(ctx context.Context, guid string) error {
	entity, err := d.fetch(ctx, guid)
	if err != nil {
		return err
	}
	return d.Refresh(ctx, entity)
}

// TranslateRelationship reads a relationship from the store and converts
// it, fetching both ends through the store. Failures are returned to the
// caller.
func (d *Dispatcher) TranslateRelationship(ctx context.Context, guid string) (*omrs.Relationship, error) {
	rel, err := d.store.Relationship(ctx, guid)
	if err != nil {
		return nil, errors.Wrap(err, dispatcherComponent, "TranslateRelationship", "read relationship")
	}
	if err := d.catalog.EnsureRelationship(ctx, rel); err != nil {
		if errors.Is(err, errors.ErrUnknownType) {
			return nil, errors.Invalidf(fmt.Errorf("%w: %w", errors.ErrMalformedType, err),
				dispatcherComponent, "TranslateRelationship", "relationship %s", guid)
		}
		return nil, err
	}
	return translator.NewRelationshipTranslator(d.catalog, d.identity).
		Translate(ctx, rel, d.catalog.EndResolver(d.store))
}

func (d *Dispatcher) fetch(ctx context.Context, guid string) (*source.Entity, error) {
	entity, err := d.store.Entity(ctx, guid)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.Invalidf(errors.ErrEntityNotKnown, dispatcherComponent, "fetch", "entity %s", guid)
		}
		return nil, errors.Wrap(err, dispatcherComponent, "fetch", "read entity")
	}
	return entity, nil
}

func (d *Dispatcher) detail(ctx context.Context, guid string) (*omrs.EntityDetail, error) {
	entity, err := d.fetch(ctx, guid)
	if err != nil {
		return nil, err
	}
	return d.translate(ctx, entity)
}

func (d *Dispatcher) translate(ctx context.Context, entity *source.Entity) (*omrs.EntityDetail, error) {
	typeDef, err := d.catalog.EnsureEntity(ctx, entity)
	if err != nil {
		return nil, err
	}
	return translator.NewInstanceMapper(typeDef, d.identity, entity, d.catalog).ToDetail()
}

// deliver invokes one handler, converting a panic into a failed result.
func (d *Dispatcher) deliver(log *slog.Logger, event string, call func() error) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Handler panicked", "event", event, "panic", r)
			result = d.discard(ResultHandlerFailed, "handler_panic")
		}
	}()

	if err := call(); err != nil {
		log.Error("Handler failed", "event", event, "error", err)
		return d.discard(ResultHandlerFailed, "handler_error")
	}
	d.metrics.RecordDispatched(event)
	log.Debug("Notification dispatched", "event", event)
	return ResultDelivered
}

func (d *Dispatcher) discard(r Result, reason string) Result {
	d.metrics.RecordDiscarded(reason)
	return r
}
