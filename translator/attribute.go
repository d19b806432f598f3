package translator

import (
	"strings"

	"github.com/google/uuid"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

// primitiveNamespace seeds the name-based GUIDs of primitive types so that
// the same primitive always has the same GUID across processes.
var primitiveNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:atlasbridge:primitive"))

var primitives = map[string]omrs.PrimitiveCategory{
	"boolean":    omrs.PrimitiveBoolean,
	"byte":       omrs.PrimitiveByte,
	"char":       omrs.PrimitiveChar,
	"short":      omrs.PrimitiveShort,
	"int":        omrs.PrimitiveInt,
	"long":       omrs.PrimitiveLong,
	"float":      omrs.PrimitiveFloat,
	"double":     omrs.PrimitiveDouble,
	"biginteger": omrs.PrimitiveBigInteger,
	"bigdecimal": omrs.PrimitiveBigDecimal,
	"string":     omrs.PrimitiveString,
	"date":       omrs.PrimitiveDate,
}

// PrimitiveGUID returns the stable GUID of a primitive type name.
func PrimitiveGUID(name string) string {
	return uuid.NewSHA1(primitiveNamespace, []byte(name)).String()
}

// TranslateAttributes converts a list of attribute definitions. Empty input
// yields an empty, non-nil slice.
func (t *TypeDefTranslator) TranslateAttributes(defs []source.AttributeDef) ([]omrs.TypeDefAttribute, error) {
	return t.translateAttributes(defs, "", "TranslateAttributes")
}

func (t *TypeDefTranslator) translateAttributes(defs []source.AttributeDef, owner, method string) ([]omrs.TypeDefAttribute, error) {
	out := make([]omrs.TypeDefAttribute, 0, len(defs))
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if seen[def.Name] {
			return nil, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
				"type %q declares attribute %q twice", owner, def.Name)
		}
		seen[def.Name] = true

		attr, err := t.TranslateAttribute(def)
		if err != nil {
			return nil, err
		}
		out = append(out, attr)
	}
	return out, nil
}

// TranslateAttribute converts one attribute definition. Uniqueness is passed
// through unchanged.
func (t *TypeDefTranslator) TranslateAttribute(def source.AttributeDef) (omrs.TypeDefAttribute, error) {
	const method = "TranslateAttribute"
	if def.Name == "" {
		return omrs.TypeDefAttribute{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method, "attribute without a name")
	}
	if def.TypeName == "" {
		return omrs.TypeDefAttribute{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"attribute %q has no type", def.Name)
	}

	var card omrs.AttributeCardinality
	switch def.Cardinality {
	case source.CardinalitySingle, "":
		card = omrs.AttributeOneOnly
		if def.IsOptional {
			card = omrs.AttributeAtMostOne
		}
	case source.CardinalityList:
		card = omrs.AttributeAnyNumberOrdered
	case source.CardinalitySet:
		card = omrs.AttributeAnyNumberSet
	default:
		return omrs.TypeDefAttribute{}, errors.Invalidf(errors.ErrMalformedType, typeDefComponent, method,
			"attribute %q has unknown cardinality %q", def.Name, def.Cardinality)
	}

	return omrs.TypeDefAttribute{
		Name:           def.Name,
		Description:    def.Description,
		AttributeType:  t.AttributeType(def.TypeName),
		Cardinality:    card,
		ValuesMinCount: def.ValuesMinCount,
		ValuesMaxCount: def.ValuesMaxCount,
		Unique:         def.IsUnique,
		Indexable:      def.IsIndexable,
		DefaultValue:   def.DefaultValue,
	}, nil
}

// AttributeType resolves a source attribute type name. Primitive names and
// array<T> / map<K,V> collections are understood; any other name becomes a
// named reference (an enumeration when the enum lookup says so).
func (t *TypeDefTranslator) AttributeType(typeName string) omrs.AttributeTypeDef {
	name := strings.TrimSpace(typeName)

	if prim, ok := primitives[name]; ok {
		return omrs.AttributeTypeDef{
			Category:  omrs.AttributePrimitive,
			GUID:      PrimitiveGUID(name),
			Name:      name,
			Primitive: prim,
		}
	}

	if elem, ok := genericArgs(name, "array"); ok && len(elem) == 1 {
		return omrs.AttributeTypeDef{
			Category:     omrs.AttributeCollection,
			Name:         name,
			Collection:   omrs.CollectionArray,
			ElementTypes: []omrs.AttributeTypeDef{t.AttributeType(elem[0])},
		}
	}

	if kv, ok := genericArgs(name, "map"); ok && len(kv) == 2 {
		return omrs.AttributeTypeDef{
			Category:     omrs.AttributeCollection,
			Name:         name,
			Collection:   omrs.CollectionMap,
			ElementTypes: []omrs.AttributeTypeDef{t.AttributeType(kv[0]), t.AttributeType(kv[1])},
		}
	}

	ref := omrs.AttributeTypeDef{Category: omrs.AttributeUnknown, Name: name}
	if t.isEnum != nil && t.isEnum(name) {
		ref.Category = omrs.AttributeEnum
	}
	if t.guids != nil {
		if guid, ok := t.guids(name); ok {
			ref.GUID = guid
		}
	}
	return ref
}

// ReferencedTypes returns the non-primitive type names that appear in a
// source attribute type expression, in order of appearance.
func ReferencedTypes(typeName string) []string {
	name := strings.TrimSpace(typeName)
	if _, ok := primitives[name]; ok || name == "" {
		return nil
	}
	if elem, ok := genericArgs(name, "array"); ok && len(elem) == 1 {
		return ReferencedTypes(elem[0])
	}
	if kv, ok := genericArgs(name, "map"); ok && len(kv) == 2 {
		return append(ReferencedTypes(kv[0]), ReferencedTypes(kv[1])...)
	}
	return []string{name}
}

// genericArgs splits "outer<a,b>" into its top-level arguments.
func genericArgs(typeName, outer string) ([]string, bool) {
	inner, ok := strings.CutPrefix(typeName, outer+"<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return nil, false
	}
	inner = inner[:len(inner)-1]

	var args []string
	depth, start := 0, 0
	for i, r := range inner {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[start:i]))
				start = i + 1
			}
		}
	}
	args = append(args, strings.TrimSpace(inner[start:]))
	for _, a := range args {
		if a == "" {
			return nil, false
		}
	}
	return args, true
}
