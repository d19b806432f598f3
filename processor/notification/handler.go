package notification

import (
	"context"

	"github.com/planetf1/atlas-sub002/types/omrs"
)

// Handler receives the target events the dispatcher derives from source
// notifications. Each call carries the bridge's identity as the event
// originator. Implementations must not retain or modify the entities.
type Handler interface {
	NewEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
	// UpdatedEntity receives a nil old value: notifications do not carry the
	// previous state.
	UpdatedEntity(ctx context.Context, id omrs.Identity, old, updated *omrs.EntityDetail) error
	DeletedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
	// PurgedEntity reports a hard delete. Only identifiers survive it.
	PurgedEntity(ctx context.Context, id omrs.Identity, typeGUID, typeName, guid string) error
	ClassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
	ReclassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
	DeclassifiedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
	RefreshedEntity(ctx context.Context, id omrs.Identity, entity *omrs.EntityDetail) error
}
