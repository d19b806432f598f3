package omrsevents

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/metric"
	"github.com/planetf1/atlas-sub002/types/omrs"
)

// DefaultSubjectPrefix is the subject prefix events are published under.
const DefaultSubjectPrefix = "omrs.events"

// Sink delivers one serialised event to a subject. *natsclient.Client and
// *Journal are sinks.
type Sink interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Publisher turns handler calls into InstanceEvents and hands them to a
// Sink, one subject per event type.
type Publisher struct {
	sink    Sink
	prefix  string
	metrics *metric.Metrics
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSubjectPrefix sets the subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix = strings.TrimSuffix(prefix, "."); prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithMetrics records published events in m.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPublisher creates a publisher writing to sink.
func NewPublisher(sink Sink, opts ...Option) (*Publisher, error) {
	if sink == nil {
		return nil, errors.Fatalf(errors.ErrConfiguration, "Publisher", "NewPublisher", "sink is required")
	}
	p := &Publisher{
		sink:   sink,
		prefix: DefaultSubjectPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "omrs-publisher")
	return p, nil
}

// Subject returns the subject events of eventType are published to.
func (p *Publisher) Subject(eventType EventType) string {
	return p.prefix + "." + string(eventType)
}

// Publish serialises event and sends it to the subject of its type.
func (p *Publisher) Publish(ctx context.Context, event *InstanceEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordPublishError(string(event.EventType))
		return errors.WrapInvalid(err, "Publisher", "Publish", "marshal event")
	}

	subject := p.Subject(event.EventType)
	if err := p.sink.PublishToStream(ctx, subject, data); err != nil {
		p.metrics.RecordPublishError(string(event.EventType))
		return errors.WrapTransient(err, "Publisher", "Publish", "publish to "+subject)
	}

	p.metrics.RecordPublished(string(event.EventType))
	p.logger.Debug("Published instance event",
		"event_type", event.EventType,
		"guid", event.InstanceGUID,
		"subject", subject,
		"bytes", len(data))
	return nil
}

func (p *Publisher) publish(ctx context.Context, t EventType, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.Publish(ctx, NewInstanceEvent(t, id, entity))
}

// NewEntity publishes a NEW_ENTITY_EVENT.
func (p *Publisher) NewEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, NewEntity, id, entity)
}

// UpdatedEntity publishes an UPDATED_ENTITY_EVENT. old may be nil.
func (p *Publisher) UpdatedEntity(ctx context.Context, id omrs.Identity, old, updated *omrs.EntityDetail) error {
	e := NewInstanceEvent(UpdatedEntity, id, updated)
	e.OriginalEntity = old
	return p.Publish(ctx, e)
}

// DeletedEntity publishes a DELETED_ENTITY_EVENT.
func (p *Publisher) DeletedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, DeletedEntity, id, entity)
}

// PurgedEntity publishes a PURGED_ENTITY_EVENT carrying only identifiers.
func (p *Publisher) PurgedEntity(ctx context.Context, id omrs.Identity, typeGUID, typeName, guid string) error {
	e := NewInstanceEvent(PurgedEntity, id, nil)
	e.TypeDefGUID = typeGUID
	e.TypeDefName = typeName
	e.InstanceGUID = guid
	return p.Publish(ctx, e)
}

// ClassifiedEntity publishes a CLASSIFIED_ENTITY_EVENT.
func (p *Publisher) ClassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, ClassifiedEntity, id, entity)
}

// ReclassifiedEntity publishes a RECLASSIFIED_ENTITY_EVENT.
func (p *Publisher) ReclassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, ReclassifiedEntity, id, entity)
}

// DeclassifiedEntity publishes a DECLASSIFIED_ENTITY_EVENT.
func (p *Publisher) DeclassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, DeclassifiedEntity, id, entity)
}

// RefreshedEntity publishes a REFRESHED_ENTITY_EVENT.
func (p *Publisher) RefreshedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error {
	return p.publish(ctx, RefreshedEntity, id, entity)
}
