package translator

import (
	"context"
	"fmt"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

const relationshipComponent = "RelationshipTranslator"

// EndResolver fetches the full source record behind a relationship end.
type EndResolver func(ctx context.Context, ref source.ObjectID) (*source.Entity, error)

// RelationshipTranslator converts source relationships.
type RelationshipTranslator struct {
	types    TypeLookup
	identity omrs.Identity
}

// NewRelationshipTranslator creates a translator that finds relationship and
// end types through types.
func NewRelationshipTranslator(types TypeLookup, identity omrs.Identity) *RelationshipTranslator {
	return &RelationshipTranslator{types: types, identity: identity}
}

// Translate converts rel, fetching both ends through resolve and projecting
// each as a proxy. An end that cannot be fetched fails the translation with
// ErrEntityNotKnown.
func (t *RelationshipTranslator) Translate(ctx context.Context, rel *source.Relationship, resolve EndResolver) (*omrs.Relationship, error) {
	const method = "Translate"
	if rel == nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, relationshipComponent, method, "no relationship")
	}

	found, ok := t.types.TypeByName(rel.TypeName)
	if !ok {
		return nil, errors.Invalidf(fmt.Errorf("%w: %w", errors.ErrMalformedType, errors.ErrUnknownType),
			relationshipComponent, method, "relationship %s has type %q", rel.GUID, rel.TypeName)
	}
	def, ok := found.(*omrs.RelationshipDef)
	if !ok {
		return nil, errors.Invalidf(errors.ErrMalformedType, relationshipComponent, method,
			"relationship %s: %q is not a relationship type", rel.GUID, rel.TypeName)
	}

	if rel.Version == nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, relationshipComponent, method,
			"relationship %s has no version", rel.GUID)
	}
	if rel.End1 == nil || rel.End1.IsZero() || rel.End2 == nil || rel.End2.IsZero() {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, relationshipComponent, method,
			"relationship %s is missing an end reference", rel.GUID)
	}
	status, err := instanceStatus(rel.Status)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, relationshipComponent, method,
			"relationship %s: %v", rel.GUID, err)
	}

	end1, err := t.endProxy(ctx, rel, *rel.End1, 1, resolve)
	if err != nil {
		return nil, err
	}
	end2, err := t.endProxy(ctx, rel, *rel.End2, 2, resolve)
	if err != nil {
		return nil, err
	}

	props, err := Properties(AllAttributes(t.types, def), rel.Attributes, nil)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, relationshipComponent, method,
			"relationship %s: %v", rel.GUID, err)
	}

	owner, provenance := ownership(rel.HomeID, t.identity)
	return &omrs.Relationship{
		InstanceHeader: omrs.InstanceHeader{
			Type:                 instanceTypeOf(t.types, def),
			GUID:                 rel.GUID,
			Version:              *rel.Version,
			MetadataCollectionID: owner,
			Provenance:           provenance,
			Status:               status,
			CreatedBy:            rel.CreatedBy,
			UpdatedBy:            rel.UpdatedBy,
			CreateTime:           millisTime(rel.CreateTime),
			UpdateTime:           millisTime(rel.UpdateTime),
		},
		Properties:            props,
		EntityOnePropertyName: def.EndDef1.AttributeName,
		EntityOneProxy:        end1,
		EntityTwoPropertyName: def.EndDef2.AttributeName,
		EntityTwoProxy:        end2,
	}, nil
}

func (t *RelationshipTranslator) endProxy(ctx context.Context, rel *source.Relationship, ref source.ObjectID, n int, resolve EndResolver) (*omrs.EntityProxy, error) {
	const method = "Translate"
	if resolve == nil {
		return nil, errors.Invalidf(errors.ErrEntityNotKnown, relationshipComponent, method,
			"relationship %s end %d: no resolver", rel.GUID, n)
	}
	entity, err := resolve(ctx, ref)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrEntityNotKnown, relationshipComponent, method,
			"relationship %s end %d (%s): %v", rel.GUID, n, ref.GUID, err)
	}
	if entity == nil {
		return nil, errors.Invalidf(errors.ErrEntityNotKnown, relationshipComponent, method,
			"relationship %s end %d (%s) not found", rel.GUID, n, ref.GUID)
	}

	var endDef *omrs.EntityDef
	if found, ok := t.types.TypeByName(entity.TypeName); ok {
		endDef, _ = found.(*omrs.EntityDef)
	}
	return NewInstanceMapper(endDef, t.identity, entity, t.types).ToProxy()
}
