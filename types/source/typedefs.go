// Package source provides the type and instance model of the source graph
// metadata store. Values are read-only snapshots decoded from the store's
// JSON representation; the bridge never mutates them.
package source

// TypeCategory identifies which kind of type definition a descriptor is.
type TypeCategory string

const (
	// CategoryEntity marks an entity type definition.
	CategoryEntity TypeCategory = "ENTITY"
	// CategoryClassification marks a classification type definition.
	CategoryClassification TypeCategory = "CLASSIFICATION"
	// CategoryRelationship marks a relationship type definition.
	CategoryRelationship TypeCategory = "RELATIONSHIP"
	// CategoryEnum marks an enumeration type definition.
	CategoryEnum TypeCategory = "ENUM"
	// CategoryStruct marks a struct type definition.
	CategoryStruct TypeCategory = "STRUCT"
)

// Cardinality is the end-relative cardinality of an attribute or a
// relationship end.
type Cardinality string

// Cardinality values
const (
	CardinalitySingle Cardinality = "SINGLE"
	CardinalityList   Cardinality = "LIST"
	CardinalitySet    Cardinality = "SET"
)

// IsMulti reports whether the cardinality admits more than one value.
func (c Cardinality) IsMulti() bool {
	return c == CardinalityList || c == CardinalitySet
}

// RelationshipCategory describes the lifecycle coupling between the two ends.
type RelationshipCategory string

// Relationship categories
const (
	RelationshipAssociation RelationshipCategory = "ASSOCIATION"
	RelationshipAggregation RelationshipCategory = "AGGREGATION"
	RelationshipComposition RelationshipCategory = "COMPOSITION"
)

// AllowsContainer reports whether an end may be flagged as a container under
// this category.
func (c RelationshipCategory) AllowsContainer() bool {
	return c == RelationshipAggregation || c == RelationshipComposition
}

// PropagateTags is the classification propagation mode of a relationship.
type PropagateTags string

// Propagation modes
const (
	PropagateNone     PropagateTags = "NONE"
	PropagateOneToTwo PropagateTags = "ONE_TO_TWO"
	PropagateTwoToOne PropagateTags = "TWO_TO_ONE"
	PropagateBoth     PropagateTags = "BOTH"
)

// TypeDefHeader holds the fields common to every structured type definition.
type TypeDefHeader struct {
	Category      TypeCategory   `json:"category,omitempty"`
	GUID          string         `json:"guid,omitempty"`
	Name          string         `json:"name,omitempty"`
	Description   string         `json:"description,omitempty"`
	TypeVersion   string         `json:"typeVersion,omitempty"`
	ServiceType   string         `json:"serviceType,omitempty"`
	Version       *int64         `json:"version,omitempty"`
	CreatedBy     string         `json:"createdBy,omitempty"`
	UpdatedBy     string         `json:"updatedBy,omitempty"`
	SuperTypes    []string       `json:"superTypes,omitempty"`
	AttributeDefs []AttributeDef `json:"attributeDefs,omitempty"`
}

// AttributeDef describes one attribute of a structured type.
type AttributeDef struct {
	Name           string      `json:"name"`
	TypeName       string      `json:"typeName"`
	Description    string      `json:"description,omitempty"`
	IsOptional     bool        `json:"isOptional"`
	IsUnique       bool        `json:"isUnique"`
	IsIndexable    bool        `json:"isIndexable"`
	Cardinality    Cardinality `json:"cardinality,omitempty"`
	ValuesMinCount int         `json:"valuesMinCount,omitempty"`
	ValuesMaxCount int         `json:"valuesMaxCount,omitempty"`
	DefaultValue   string      `json:"defaultValue,omitempty"`
}

// EntityDef is an entity type definition. SuperTypes may name several
// parents; the target model only admits one.
type EntityDef struct {
	TypeDefHeader
}

// ClassificationDef is a classification type definition.
type ClassificationDef struct {
	TypeDefHeader
	EntityTypes []string `json:"entityTypes,omitempty"`
}

// RelationshipEndDef describes one end of a relationship type. Cardinality
// is relative to the end: it states how many of this end's entities may be
// related to one entity at the other end.
type RelationshipEndDef struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	IsContainer bool        `json:"isContainer"`
	Cardinality Cardinality `json:"cardinality"`
}

// RelationshipDef is a relationship type definition.
type RelationshipDef struct {
	TypeDefHeader
	RelationshipCategory RelationshipCategory `json:"relationshipCategory,omitempty"`
	RelationshipLabel    string               `json:"relationshipLabel,omitempty"`
	PropagateTags        PropagateTags        `json:"propagateTags,omitempty"`
	EndDef1              *RelationshipEndDef  `json:"endDef1,omitempty"`
	EndDef2              *RelationshipEndDef  `json:"endDef2,omitempty"`
}

// EnumElement is one symbol of an enumeration.
type EnumElement struct {
	Value       string `json:"value"`
	Ordinal     int    `json:"ordinal"`
	Description string `json:"description,omitempty"`
}

// EnumDef is an enumeration type definition. Enumerations are only referenced
// from attribute types; they are not translated on their own.
type EnumDef struct {
	TypeDefHeader
	ElementDefs []EnumElement `json:"elementDefs,omitempty"`
}

// TypeDefs is the bundle returned by a bulk type query against the store.
type TypeDefs struct {
	EntityDefs         []EntityDef         `json:"entityDefs,omitempty"`
	ClassificationDefs []ClassificationDef `json:"classificationDefs,omitempty"`
	RelationshipDefs   []RelationshipDef   `json:"relationshipDefs,omitempty"`
	EnumDefs           []EnumDef           `json:"enumDefs,omitempty"`
}

// Int64 returns a pointer to v. Handy for building descriptors in code.
func Int64(v int64) *int64 {
	return &v
}
