package translator

import (
	"time"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

const instanceComponent = "InstanceMapper"

// InstanceMapper projects one source entity into the target projections.
// The queries never modify the mapper or the entity; each call builds new
// values.
type InstanceMapper struct {
	typeDef  *omrs.EntityDef
	identity omrs.Identity
	entity   *source.Entity
	types    TypeLookup
}

// NewInstanceMapper creates a mapper for entity. typeDef is the translated
// type of the entity and may be nil when the type could not be resolved;
// every query then fails with ErrUnknownType. types resolves supertypes and
// classification types.
func NewInstanceMapper(typeDef *omrs.EntityDef, identity omrs.Identity, entity *source.Entity, types TypeLookup) *InstanceMapper {
	return &InstanceMapper{
		typeDef:  typeDef,
		identity: identity,
		entity:   entity,
		types:    types,
	}
}

// ToSummary returns the summary projection.
func (m *InstanceMapper) ToSummary() (*omrs.EntitySummary, error) {
	return m.summary("ToSummary")
}

// ToDetail returns the summary plus every declared attribute present in the
// source payload. A placeholder entity has no full property set and is
// rejected.
func (m *InstanceMapper) ToDetail() (*omrs.EntityDetail, error) {
	const method = "ToDetail"
	summary, err := m.summary(method)
	if err != nil {
		return nil, err
	}
	if m.entity.IsPlaceholder() {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity %s is a placeholder without a full record", m.entity.GUID)
	}

	props, err := Properties(AllAttributes(m.types, m.typeDef), m.entity.Attributes, nil)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity %s: %v", m.entity.GUID, err)
	}
	return &omrs.EntityDetail{EntitySummary: *summary, Properties: props}, nil
}

// ToProxy returns the summary plus the unique attributes only. Placeholders
// are valid proxies: their unique attribute values are used.
func (m *InstanceMapper) ToProxy() (*omrs.EntityProxy, error) {
	const method = "ToProxy"
	summary, err := m.summary(method)
	if err != nil {
		return nil, err
	}

	values := m.entity.Attributes
	if m.entity.IsPlaceholder() {
		values = make(map[string]any, len(m.entity.Attributes)+len(m.entity.UniqueAttributes))
		for k, v := range m.entity.Attributes {
			values[k] = v
		}
		for k, v := range m.entity.UniqueAttributes {
			values[k] = v
		}
	}

	unique := func(a omrs.TypeDefAttribute) bool { return a.Unique }
	props, err := Properties(AllAttributes(m.types, m.typeDef), values, unique)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity %s: %v", m.entity.GUID, err)
	}
	return &omrs.EntityProxy{EntitySummary: *summary, UniqueProperties: props}, nil
}

func (m *InstanceMapper) summary(method string) (*omrs.EntitySummary, error) {
	if m.entity == nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method, "no entity")
	}
	if m.typeDef == nil {
		return nil, errors.Invalidf(errors.ErrUnknownType, instanceComponent, method,
			"entity %s has unresolved type %q", m.entity.GUID, m.entity.TypeName)
	}
	if m.entity.GUID == "" {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity of type %q has no guid", m.entity.TypeName)
	}
	if m.entity.Version == nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity %s has no version", m.entity.GUID)
	}

	status, err := instanceStatus(m.entity.Status)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidInstance, instanceComponent, method,
			"entity %s: %v", m.entity.GUID, err)
	}

	classifications := make([]omrs.Classification, 0, len(m.entity.Classifications))
	for _, c := range m.entity.Classifications {
		cls, err := ToClassification(m.types, m.entity.GUID, c)
		if err != nil {
			return nil, err
		}
		classifications = append(classifications, *cls)
	}

	owner, provenance := ownership(m.entity.HomeID, m.identity)
	return &omrs.EntitySummary{
		InstanceHeader: omrs.InstanceHeader{
			Type:                 m.instanceType(),
			GUID:                 m.entity.GUID,
			Version:              *m.entity.Version,
			MetadataCollectionID: owner,
			Provenance:           provenance,
			Status:               status,
			CreatedBy:            m.entity.CreatedBy,
			UpdatedBy:            m.entity.UpdatedBy,
			CreateTime:           millisTime(m.entity.CreateTime),
			UpdateTime:           millisTime(m.entity.UpdateTime),
		},
		Classifications: classifications,
	}, nil
}

func (m *InstanceMapper) instanceType() omrs.InstanceType {
	return instanceTypeOf(m.types, m.typeDef)
}

func instanceTypeOf(types TypeLookup, def omrs.TypeDef) omrs.InstanceType {
	h := def.Header()
	attrs := AllAttributes(types, def)
	names := make([]string, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, a.Name)
	}
	return omrs.InstanceType{
		Category:       h.Category,
		TypeDefGUID:    h.GUID,
		TypeDefName:    h.Name,
		TypeDefVersion: h.Version,
		SuperTypes:     SuperTypeLinks(types, def),
		PropertyNames:  names,
	}
}

// instanceStatus maps the source status. An absent status means active.
func instanceStatus(s source.Status) (omrs.InstanceStatus, error) {
	switch s {
	case source.StatusActive, "":
		return omrs.StatusActive, nil
	case source.StatusDeleted:
		return omrs.StatusDeleted, nil
	default:
		return "", errors.New("unmapped status " + string(s))
	}
}

// ownership returns the owning metadata collection. An empty home id means
// the bridge's own store owns the instance.
func ownership(homeID string, identity omrs.Identity) (string, omrs.Provenance) {
	if homeID == "" || homeID == identity.MetadataCollectionID {
		return identity.MetadataCollectionID, omrs.ProvenanceLocalCohort
	}
	return homeID, omrs.ProvenanceExternalSource
}

func millisTime(ms int64) *time.Time {
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}
