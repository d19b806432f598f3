package omrs

import (
	"sort"
	"time"
)

// Identity describes the bridge as an event originator. It is passed with
// every downstream event.
type Identity struct {
	SourceName           string `json:"sourceName"`
	MetadataCollectionID string `json:"metadataCollectionId"`
	ServerName           string `json:"serverName"`
	ServerType           string `json:"serverType"`
	Organization         string `json:"organizationName"`
}

// InstanceStatus is the lifecycle status of a target instance.
type InstanceStatus string

// Instance statuses
const (
	StatusActive  InstanceStatus = "ACTIVE"
	StatusDeleted InstanceStatus = "DELETED"
)

// Provenance states where an instance's authoritative copy lives.
type Provenance string

// Provenance values
const (
	ProvenanceLocalCohort    Provenance = "LOCAL_COHORT"
	ProvenanceExternalSource Provenance = "EXTERNAL_SOURCE"
)

// InstanceType describes the type of an instance.
type InstanceType struct {
	Category       TypeDefCategory `json:"typeDefCategory"`
	TypeDefGUID    string          `json:"typeDefGUID"`
	TypeDefName    string          `json:"typeDefName"`
	TypeDefVersion int64           `json:"typeDefVersion"`
	SuperTypes     []TypeDefLink   `json:"typeDefSuperTypes,omitempty"`
	PropertyNames  []string        `json:"validInstanceProperties,omitempty"`
}

// InstanceHeader holds the fields common to all target instances.
type InstanceHeader struct {
	Type                 InstanceType   `json:"type"`
	GUID                 string         `json:"guid"`
	Version              int64          `json:"version"`
	MetadataCollectionID string         `json:"metadataCollectionId,omitempty"`
	Provenance           Provenance     `json:"instanceProvenanceType"`
	Status               InstanceStatus `json:"status"`
	CreatedBy            string         `json:"createdBy,omitempty"`
	UpdatedBy            string         `json:"updatedBy,omitempty"`
	CreateTime           *time.Time     `json:"createTime,omitempty"`
	UpdateTime           *time.Time     `json:"updateTime,omitempty"`
}

// ClassificationOrigin states whether a classification was assigned directly
// or propagated over a relationship.
type ClassificationOrigin string

// Classification origins
const (
	OriginAssigned   ClassificationOrigin = "ASSIGNED"
	OriginPropagated ClassificationOrigin = "PROPAGATED"
)

// Classification is a classification attached to an entity.
type Classification struct {
	Name             string               `json:"name"`
	Type             InstanceType         `json:"type"`
	Status           InstanceStatus       `json:"status"`
	Origin           ClassificationOrigin `json:"classificationOrigin"`
	OriginEntityGUID string               `json:"classificationOriginGUID,omitempty"`
	Properties       InstanceProperties   `json:"classificationProperties,omitempty"`
}

// EntitySummary is the lightest entity projection.
type EntitySummary struct {
	InstanceHeader
	Classifications []Classification `json:"classifications"`
}

// ClassificationNames returns the names of the attached classifications.
func (s *EntitySummary) ClassificationNames() []string {
	names := make([]string, 0, len(s.Classifications))
	for _, c := range s.Classifications {
		names = append(names, c.Name)
	}
	return names
}

// EntityDetail is the full entity projection.
type EntityDetail struct {
	EntitySummary
	Properties InstanceProperties `json:"properties"`
}

// EntityProxy is the reference projection of an entity, carrying only the
// unique properties.
type EntityProxy struct {
	EntitySummary
	UniqueProperties InstanceProperties `json:"uniqueProperties"`
}

// Relationship is a relationship between two entity proxies.
type Relationship struct {
	InstanceHeader
	Properties            InstanceProperties `json:"properties"`
	EntityOnePropertyName string             `json:"entityOnePropertyName,omitempty"`
	EntityOneProxy        *EntityProxy       `json:"entityOneProxy"`
	EntityTwoPropertyName string             `json:"entityTwoPropertyName,omitempty"`
	EntityTwoProxy        *EntityProxy       `json:"entityTwoProxy"`
}

// PropertyCategory classifies an instance property value.
type PropertyCategory string

// Property categories
const (
	PropertyPrimitive PropertyCategory = "PRIMITIVE"
	PropertyArray     PropertyCategory = "ARRAY"
	PropertyMap       PropertyCategory = "MAP"
	PropertyEnum      PropertyCategory = "ENUM"
)

// InstancePropertyValue is one typed property value. Only the fields that
// belong to the category are set.
type InstancePropertyValue struct {
	Category  PropertyCategory                 `json:"instancePropertyCategory"`
	TypeName  string                           `json:"typeName"`
	TypeGUID  string                           `json:"typeGUID,omitempty"`
	Primitive PrimitiveCategory                `json:"primitiveDefCategory,omitempty"`
	Value     any                              `json:"primitiveValue,omitempty"`
	Elements  []InstancePropertyValue          `json:"arrayValues,omitempty"`
	Entries   map[string]InstancePropertyValue `json:"mapValues,omitempty"`
	Symbol    string                           `json:"symbolicName,omitempty"`
}

// InstanceProperties maps property names to typed values.
type InstanceProperties map[string]InstancePropertyValue

// Names returns the property names in sorted order.
func (p InstanceProperties) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
