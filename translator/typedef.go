package translator

import (
	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

const typeDefComponent = "TypeDefTranslator"

// GUIDLookup returns the target GUID of a non-reserved source type, if known.
type GUIDLookup func(sourceName string) (string, bool)

// TypeDefTranslator converts source type definitions into target type
// definitions.
type TypeDefTranslator struct {
	registry *vocabulary.Registry
	guids    GUIDLookup
	isEnum   func(name string) bool
}

// TypeDefOption configures a TypeDefTranslator.
type TypeDefOption func(*TypeDefTranslator)

// WithGUIDLookup fills the GUID of links to non-reserved types (supertypes,
// valid entity types, relationship ends). Without it those links carry only
// a name.
func WithGUIDLookup(fn GUIDLookup) TypeDefOption {
	return func(t *TypeDefTranslator) {
		t.guids = fn
	}
}

// WithEnumLookup lets attribute conversion tell enumerations apart from other
// named types.
func WithEnumLookup(fn func(name string) bool) TypeDefOption {
	return func(t *TypeDefTranslator) {
		t.isEnum = fn
	}
}

// NewTypeDefTranslator creates a translator that substitutes reserved names
// through registry.
func NewTypeDefTranslator(registry *vocabulary.Registry, opts ...TypeDefOption) *TypeDefTranslator {
	t := &TypeDefTranslator{registry: registry}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Registry returns the name substitution registry in use.
func (t *TypeDefTranslator) Registry() *vocabulary.Registry {
	return t.registry
}

// Link resolves a source type name to a target link, filling the GUID of
// non-reserved types from the GUID lookup when one is configured.
func (t *TypeDefTranslator) Link(sourceName string) omrs.TypeDefLink {
	link := t.registry.Resolve(sourceName)
	if link.GUID == "" && t.guids != nil {
		if guid, ok := t.guids(sourceName); ok {
			link.GUID = guid
		}
	}
	return link
}

// TranslateEntityType converts an entity type definition.
func (t *TypeDefTranslator) TranslateEntityType(def *source.EntityDef) (*omrs.EntityDef, error) {
	if def == nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, "TranslateEntityType", "nil definition")
	}
	header, err := t.header(&def.TypeDefHeader, omrs.CategoryEntityDef, "TranslateEntityType")
	if err != nil {
		return nil, err
	}
	return &omrs.EntityDef{TypeDefHeader: header}, nil
}

// TranslateClassificationType converts a classification type definition. The
// valid entity types are substituted and de-duplicated, keeping first-seen
// order.
func (t *TypeDefTranslator) TranslateClassificationType(def *source.ClassificationDef) (*omrs.ClassificationDef, error) {
	if def == nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, "TranslateClassificationType", "nil definition")
	}
	header, err := t.header(&def.TypeDefHeader, omrs.CategoryClassificationDef, "TranslateClassificationType")
	if err != nil {
		return nil, err
	}

	valid := make([]omrs.TypeDefLink, 0, len(def.EntityTypes))
	seen := make(map[string]bool, len(def.EntityTypes))
	for _, name := range def.EntityTypes {
		link := t.Link(name)
		if seen[link.Name] {
			continue
		}
		seen[link.Name] = true
		valid = append(valid, link)
	}

	return &omrs.ClassificationDef{
		TypeDefHeader:   header,
		ValidEntityDefs: valid,
		Propagatable:    true,
	}, nil
}

// TranslateRelationshipType converts a relationship type definition. Target
// end N takes the cardinality of source end 3-N.
func (t *TypeDefTranslator) TranslateRelationshipType(def *source.RelationshipDef) (*omrs.RelationshipDef, error) {
	const method = "TranslateRelationshipType"
	if def == nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method, "nil definition")
	}
	header, err := t.header(&def.TypeDefHeader, omrs.CategoryRelationshipDef, method)
	if err != nil {
		return nil, err
	}

	if def.EndDef1 == nil || def.EndDef2 == nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q requires both end definitions", def.Name)
	}
	switch def.RelationshipCategory {
	case source.RelationshipAssociation, source.RelationshipAggregation, source.RelationshipComposition:
	case "":
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q has no category", def.Name)
	default:
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q has unknown category %q", def.Name, def.RelationshipCategory)
	}
	rule, err := propagationRule(def.PropagateTags)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q: %v", def.Name, err)
	}

	for i, end := range []*source.RelationshipEndDef{def.EndDef1, def.EndDef2} {
		if end.Type == "" || end.Name == "" {
			return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
				"relationship %q end %d requires a type and a name", def.Name, i+1)
		}
		if end.IsContainer && !def.RelationshipCategory.AllowsContainer() {
			return nil, errors.Invalidf(errors.ErrInvalidContainment, typeDefComponent, method,
				"relationship %q end %d is a container under %s", def.Name, i+1, def.RelationshipCategory)
		}
	}

	card1, err := endCardinality(def.EndDef2.Cardinality)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q end 2: %v", def.Name, err)
	}
	card2, err := endCardinality(def.EndDef1.Cardinality)
	if err != nil {
		return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"relationship %q end 1: %v", def.Name, err)
	}

	return &omrs.RelationshipDef{
		TypeDefHeader:   header,
		PropagationRule: rule,
		EndDef1:         t.endDef(def.EndDef1, card1),
		EndDef2:         t.endDef(def.EndDef2, card2),
	}, nil
}

func (t *TypeDefTranslator) endDef(end *source.RelationshipEndDef, card omrs.EndCardinality) omrs.RelationshipEndDef {
	return omrs.RelationshipEndDef{
		EntityType:           t.Link(end.Type),
		AttributeName:        end.Name,
		AttributeDescription: end.Description,
		Cardinality:          card,
	}
}

// header builds the common part of every target definition.
func (t *TypeDefTranslator) header(h *source.TypeDefHeader, category omrs.TypeDefCategory, method string) (omrs.TypeDefHeader, error) {
	switch {
	case h.Name == "":
		return omrs.TypeDefHeader{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method, "missing name")
	case h.GUID == "":
		return omrs.TypeDefHeader{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method, "type %q has no guid", h.Name)
	case h.Version == nil:
		return omrs.TypeDefHeader{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method, "type %q has no version", h.Name)
	}

	own := t.registry.Resolve(h.Name)
	if own.GUID == "" {
		own.GUID = h.GUID
	}

	superType, err := t.superType(own.Name, h.Name, h.SuperTypes, method)
	if err != nil {
		return omrs.TypeDefHeader{}, err
	}

	attrs, err := t.translateAttributes(h.AttributeDefs, h.Name, method)
	if err != nil {
		return omrs.TypeDefHeader{}, err
	}

	return omrs.TypeDefHeader{
		Category:    category,
		GUID:        own.GUID,
		Name:        own.Name,
		Version:     *h.Version,
		VersionName: h.TypeVersion,
		Description: h.Description,
		SuperType:   superType,
		Attributes:  attrs,
		CreatedBy:   h.CreatedBy,
		UpdatedBy:   h.UpdatedBy,
	}, nil
}

// superType collapses the source supertype set to at most one link.
//
// When the type's own resolved name is a reserved substitute, supertypes that
// resolve to that same name are dropped: the renamed type must not become its
// own ancestor.
func (t *TypeDefTranslator) superType(ownResolved, sourceName string, superTypes []string, method string) (*omrs.TypeDefLink, error) {
	selfSubstitute := t.registry.IsSubstitute(ownResolved)

	var links []omrs.TypeDefLink
	seen := make(map[string]bool, len(superTypes))
	for _, name := range superTypes {
		link := t.Link(name)
		if selfSubstitute && link.Name == ownResolved {
			continue
		}
		if seen[link.Name] {
			continue
		}
		seen[link.Name] = true
		links = append(links, link)
	}

	switch len(links) {
	case 0:
		return nil, nil
	case 1:
		return &links[0], nil
	default:
		names := make([]string, len(links))
		for i, l := range links {
			names[i] = l.Name
		}
		return nil, errors.Invalidf(errors.ErrAmbiguousSupertype, typeDefComponent, method,
			"type %q resolves to %d supertypes %v", sourceName, len(links), names)
	}
}

func propagationRule(tags source.PropagateTags) (omrs.PropagationRule, error) {
	switch tags {
	case source.PropagateNone:
		return omrs.PropagateNone, nil
	case source.PropagateOneToTwo:
		return omrs.PropagateOneToTwo, nil
	case source.PropagateTwoToOne:
		return omrs.PropagateTwoToOne, nil
	case source.PropagateBoth:
		return omrs.PropagateBothDirections, nil
	case "":
		return "", errors.New("no propagation mode")
	default:
		return "", errors.New("unknown propagation mode " + string(tags))
	}
}

func endCardinality(c source.Cardinality) (omrs.EndCardinality, error) {
	switch c {
	case source.CardinalitySingle, "":
		return omrs.EndAtMostOne, nil
	case source.CardinalityList, source.CardinalitySet:
		return omrs.EndAnyNumber, nil
	default:
		return "", errors.New("unknown cardinality " + string(c))
	}
}
