// Package omrs provides the type and instance model of the target federated
// metadata-exchange layer. Every value is built fresh by a translator, owned
// by the caller and not modified after construction.
package omrs

// TypeDefCategory identifies which kind of type definition a descriptor is.
type TypeDefCategory string

// Type definition categories
const (
	CategoryEntityDef         TypeDefCategory = "ENTITY_DEF"
	CategoryClassificationDef TypeDefCategory = "CLASSIFICATION_DEF"
	CategoryRelationshipDef   TypeDefCategory = "RELATIONSHIP_DEF"
)

// TypeDefLink is the identity pair used wherever a reference to a type is
// enough.
type TypeDefLink struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// IsZero reports whether the link is empty.
func (l TypeDefLink) IsZero() bool {
	return l.GUID == "" && l.Name == ""
}

// TypeDefHeader holds the fields common to all target type definitions.
// SuperType is a single optional link: the target model is single-inheritance.
type TypeDefHeader struct {
	Category    TypeDefCategory    `json:"category"`
	GUID        string             `json:"guid"`
	Name        string             `json:"name"`
	Version     int64              `json:"version"`
	VersionName string             `json:"versionName,omitempty"`
	Description string             `json:"description,omitempty"`
	SuperType   *TypeDefLink       `json:"superType,omitempty"`
	Attributes  []TypeDefAttribute `json:"propertiesDefinition"`
	CreatedBy   string             `json:"createdBy,omitempty"`
	UpdatedBy   string             `json:"updatedBy,omitempty"`
}

// Link returns the identity pair of the type.
func (h *TypeDefHeader) Link() TypeDefLink {
	return TypeDefLink{GUID: h.GUID, Name: h.Name}
}

// Header gives access to the common fields.
func (h *TypeDefHeader) Header() *TypeDefHeader {
	return h
}

// TypeDef is implemented by EntityDef, ClassificationDef and RelationshipDef.
type TypeDef interface {
	Header() *TypeDefHeader
	Link() TypeDefLink
	isTypeDef()
}

// EntityDef is an entity type definition.
type EntityDef struct {
	TypeDefHeader
}

func (*EntityDef) isTypeDef() {}

// ClassificationDef is a classification type definition.
type ClassificationDef struct {
	TypeDefHeader
	ValidEntityDefs []TypeDefLink `json:"validEntityDefs"`
	Propagatable    bool          `json:"propagatable"`
}

func (*ClassificationDef) isTypeDef() {}

// EndCardinality states how many entities may sit at one end of a
// relationship for a single entity at the other end.
type EndCardinality string

// End cardinalities
const (
	EndAtMostOne EndCardinality = "AT_MOST_ONE"
	EndAnyNumber EndCardinality = "ANY_NUMBER"
)

// PropagationRule is the classification propagation rule of a relationship.
type PropagationRule string

// Propagation rules
const (
	PropagateNone           PropagationRule = "NONE"
	PropagateOneToTwo       PropagationRule = "ONE_TO_TWO"
	PropagateTwoToOne       PropagationRule = "TWO_TO_ONE"
	PropagateBothDirections PropagationRule = "BOTH_DIRECTIONS"
)

// RelationshipEndDef describes one end of a relationship type.
type RelationshipEndDef struct {
	EntityType           TypeDefLink    `json:"entityType"`
	AttributeName        string         `json:"attributeName"`
	AttributeDescription string         `json:"attributeDescription,omitempty"`
	Cardinality          EndCardinality `json:"attributeCardinality"`
}

// RelationshipDef is a relationship type definition.
type RelationshipDef struct {
	TypeDefHeader
	PropagationRule PropagationRule    `json:"propagationRule"`
	EndDef1         RelationshipEndDef `json:"endDef1"`
	EndDef2         RelationshipEndDef `json:"endDef2"`
}

func (*RelationshipDef) isTypeDef() {}

// AttributeTypeCategory classifies the type of an attribute.
type AttributeTypeCategory string

// Attribute type categories
const (
	AttributePrimitive  AttributeTypeCategory = "PRIMITIVE"
	AttributeCollection AttributeTypeCategory = "COLLECTION"
	AttributeEnum       AttributeTypeCategory = "ENUM_DEF"
	AttributeUnknown    AttributeTypeCategory = "UNKNOWN_DEF"
)

// PrimitiveCategory names a primitive value type.
type PrimitiveCategory string

// Primitive categories
const (
	PrimitiveBoolean    PrimitiveCategory = "OM_PRIMITIVE_TYPE_BOOLEAN"
	PrimitiveByte       PrimitiveCategory = "OM_PRIMITIVE_TYPE_BYTE"
	PrimitiveChar       PrimitiveCategory = "OM_PRIMITIVE_TYPE_CHAR"
	PrimitiveShort      PrimitiveCategory = "OM_PRIMITIVE_TYPE_SHORT"
	PrimitiveInt        PrimitiveCategory = "OM_PRIMITIVE_TYPE_INT"
	PrimitiveLong       PrimitiveCategory = "OM_PRIMITIVE_TYPE_LONG"
	PrimitiveFloat      PrimitiveCategory = "OM_PRIMITIVE_TYPE_FLOAT"
	PrimitiveDouble     PrimitiveCategory = "OM_PRIMITIVE_TYPE_DOUBLE"
	PrimitiveBigInteger PrimitiveCategory = "OM_PRIMITIVE_TYPE_BIGINTEGER"
	PrimitiveBigDecimal PrimitiveCategory = "OM_PRIMITIVE_TYPE_BIGDECIMAL"
	PrimitiveString     PrimitiveCategory = "OM_PRIMITIVE_TYPE_STRING"
	PrimitiveDate       PrimitiveCategory = "OM_PRIMITIVE_TYPE_DATE"
)

// CollectionKind distinguishes array and map collections.
type CollectionKind string

// Collection kinds
const (
	CollectionArray CollectionKind = "ARRAY"
	CollectionMap   CollectionKind = "MAP"
)

// AttributeTypeDef is the resolved type of an attribute. For collections,
// ElementTypes holds the element type (arrays) or key and value types (maps).
type AttributeTypeDef struct {
	Category     AttributeTypeCategory `json:"category"`
	GUID         string                `json:"guid,omitempty"`
	Name         string                `json:"name"`
	Primitive    PrimitiveCategory     `json:"primitiveDefCategory,omitempty"`
	Collection   CollectionKind        `json:"collectionDefCategory,omitempty"`
	ElementTypes []AttributeTypeDef    `json:"argumentTypes,omitempty"`
}

// AttributeCardinality states how many values an attribute holds.
type AttributeCardinality string

// Attribute cardinalities
const (
	AttributeAtMostOne        AttributeCardinality = "AT_MOST_ONE"
	AttributeOneOnly          AttributeCardinality = "ONE_ONLY"
	AttributeAnyNumberOrdered AttributeCardinality = "ANY_NUMBER_ORDERED"
	AttributeAnyNumberSet     AttributeCardinality = "ANY_NUMBER_UNORDERED"
)

// TypeDefAttribute describes one attribute of a target type.
type TypeDefAttribute struct {
	Name           string               `json:"attributeName"`
	Description    string               `json:"attributeDescription,omitempty"`
	AttributeType  AttributeTypeDef     `json:"attributeType"`
	Cardinality    AttributeCardinality `json:"attributeCardinality"`
	ValuesMinCount int                  `json:"valuesMinCount"`
	ValuesMaxCount int                  `json:"valuesMaxCount"`
	Unique         bool                 `json:"unique"`
	Indexable      bool                 `json:"indexable"`
	DefaultValue   string               `json:"defaultValue,omitempty"`
}
