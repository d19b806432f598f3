package translator

import (
	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

// ToClassification converts a classification attached to entityGUID. The
// classification type must resolve to a classification definition; a name
// that does not is an error, never skipped.
func ToClassification(types TypeLookup, entityGUID string, c source.Classification) (*omrs.Classification, error) {
	const method = "ToClassification"
	if types == nil {
		return nil, errors.Invalidf(errors.ErrUnknownClassification, instanceComponent, method,
			"no type lookup for classification %q", c.TypeName)
	}
	found, ok := types.TypeByName(c.TypeName)
	if !ok {
		return nil, errors.Invalidf(errors.ErrUnknownClassification, instanceComponent, method,
			"entity %s carries unknown classification %q", entityGUID, c.TypeName)
	}
	def, ok := found.(*omrs.ClassificationDef)
	if !ok {
		return nil, errors.Invalidf(errors.ErrUnknownClassification, instanceComponent, method,
			"entity %s: %q is not a classification type", entityGUID, c.TypeName)
	}

	status := omrs.StatusActive
	if c.EntityStatus == source.StatusDeleted {
		status = omrs.StatusDeleted
	}

	origin, originGUID := omrs.OriginAssigned, ""
	if c.EntityGUID != "" && c.EntityGUID != entityGUID {
		origin, originGUID = omrs.OriginPropagated, c.EntityGUID
	}

	props, err := Properties(AllAttributes(types, def), c.Attributes, nil)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"classification %q on %s: %v", c.TypeName, entityGUID, err)
	}

	return &omrs.Classification{
		Name:             def.Name,
		Type:             instanceTypeOf(types, def),
		Status:           status,
		Origin:           origin,
		OriginEntityGUID: originGUID,
		Properties:       props,
	}, nil
}
