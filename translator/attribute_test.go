package translator

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

func TestTranslateAttributes_Empty(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	got, err := tr.TranslateAttributes(nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	def, err := tr.TranslateEntityType(entityDef("Bare", "B"))
	require.NoError(t, err)
	assert.NotNil(t, def.Attributes)
}

func TestTranslateAttributes_Duplicate(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	_, err := tr.TranslateAttributes([]source.AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "name", TypeName: "int"},
	})
	assert.True(t, errors.Is(err, errors.ErrMalformedType))
}

func TestTranslateAttribute(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	tests := []struct {
		name     string
		def      source.AttributeDef
		wantCard omrs.AttributeCardinality
	}{
		{name: "required single", def: source.AttributeDef{Name: "a", TypeName: "string"}, wantCard: omrs.AttributeOneOnly},
		{name: "optional single", def: source.AttributeDef{Name: "a", TypeName: "string", IsOptional: true}, wantCard: omrs.AttributeAtMostOne},
		{name: "list", def: source.AttributeDef{Name: "a", TypeName: "array<int>", Cardinality: source.CardinalityList}, wantCard: omrs.AttributeAnyNumberOrdered},
		{name: "set", def: source.AttributeDef{Name: "a", TypeName: "array<int>", Cardinality: source.CardinalitySet}, wantCard: omrs.AttributeAnyNumberSet},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.TranslateAttribute(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCard, got.Cardinality)
		})
	}

	unique, err := tr.TranslateAttribute(source.AttributeDef{Name: "qn", TypeName: "string", IsUnique: true, IsIndexable: true})
	require.NoError(t, err)
	assert.True(t, unique.Unique)
	assert.True(t, unique.Indexable)

	_, err = tr.TranslateAttribute(source.AttributeDef{TypeName: "string"})
	assert.True(t, errors.Is(err, errors.ErrMalformedType))
	_, err = tr.TranslateAttribute(source.AttributeDef{Name: "x"})
	assert.True(t, errors.Is(err, errors.ErrMalformedType))
	_, err = tr.TranslateAttribute(source.AttributeDef{Name: "x", TypeName: "string", Cardinality: "BAG"})
	assert.True(t, errors.Is(err, errors.ErrMalformedType))
}

func TestAttributeType(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry(),
		WithEnumLookup(func(name string) bool { return name == "SortOrder" }))

	prim := tr.AttributeType("long")
	assert.Equal(t, omrs.AttributePrimitive, prim.Category)
	assert.Equal(t, omrs.PrimitiveLong, prim.Primitive)
	assert.Equal(t, PrimitiveGUID("long"), prim.GUID)
	assert.NotEqual(t, PrimitiveGUID("int"), prim.GUID)

	arr := tr.AttributeType("array<string>")
	assert.Equal(t, omrs.AttributeCollection, arr.Category)
	assert.Equal(t, omrs.CollectionArray, arr.Collection)
	require.Len(t, arr.ElementTypes, 1)
	assert.Equal(t, omrs.PrimitiveString, arr.ElementTypes[0].Primitive)

	m := tr.AttributeType("map<string,array<int>>")
	assert.Equal(t, omrs.CollectionMap, m.Collection)
	require.Len(t, m.ElementTypes, 2)
	assert.Equal(t, omrs.CollectionArray, m.ElementTypes[1].Collection)

	assert.Equal(t, omrs.AttributeEnum, tr.AttributeType("SortOrder").Category)
	assert.Equal(t, omrs.AttributeUnknown, tr.AttributeType("Column").Category)
	assert.Equal(t, omrs.AttributeUnknown, tr.AttributeType("array<>").Category)
}

func TestPropertyValue(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	tests := []struct {
		name    string
		typ     string
		raw     any
		want    any
		wantErr bool
	}{
		{name: "bool", typ: "boolean", raw: true, want: true},
		{name: "bool wrong", typ: "boolean", raw: "true", wantErr: true},
		{name: "int from float", typ: "int", raw: float64(42), want: int64(42)},
		{name: "int fractional", typ: "int", raw: 4.5, wantErr: true},
		{name: "byte overflow", typ: "byte", raw: 300, wantErr: true},
		{name: "long from json number", typ: "long", raw: json.Number("9000000000"), want: int64(9000000000)},
		{name: "double", typ: "double", raw: 1, want: float64(1)},
		{name: "char", typ: "char", raw: "x", want: "x"},
		{name: "char too long", typ: "char", raw: "xy", wantErr: true},
		{name: "biginteger string", typ: "biginteger", raw: "123456789012345678901234567890", want: "123456789012345678901234567890"},
		{name: "biginteger number", typ: "biginteger", raw: float64(12), want: "12"},
		{name: "bigdecimal", typ: "bigdecimal", raw: "1.25", want: "1.25"},
		{name: "bigdecimal bad", typ: "bigdecimal", raw: "abc", wantErr: true},
		{name: "date millis", typ: "date", raw: float64(1700000000000), want: int64(1700000000000)},
		{name: "string", typ: "string", raw: "s", want: "s"},
		{name: "int from uint", typ: "int", raw: uint(7), want: int64(7)},
		{name: "long max", typ: "long", raw: json.Number("9223372036854775807"), want: int64(math.MaxInt64)},
		{name: "long beyond float range", typ: "long", raw: float64(math.MaxInt64), wantErr: true},
		{name: "long at lower bound", typ: "long", raw: float64(math.MinInt64), want: int64(math.MinInt64)},
		{name: "long from large uint", typ: "long", raw: uint64(math.MaxUint64), wantErr: true},
		{name: "double from int8", typ: "double", raw: int8(-3), want: float64(-3)},
		{name: "double from int16", typ: "double", raw: int16(300), want: float64(300)},
		{name: "float from uint64", typ: "float", raw: uint64(5), want: float64(5)},
		{name: "biginteger json number", typ: "biginteger", raw: json.Number("123456789012345678901234567890"), want: "123456789012345678901234567890"},
		{name: "biginteger large float", typ: "biginteger", raw: float64(1e20), want: "100000000000000000000"},
		{name: "biginteger fraction", typ: "biginteger", raw: 1.5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PropertyValue(tr.AttributeType(tt.typ), tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
		})
	}

	_, err := PropertyValue(tr.AttributeType("array<int>"), "not a list")
	assert.Error(t, err)
	_, err = PropertyValue(tr.AttributeType("map<string,int>"), []any{1})
	assert.Error(t, err)
}

func TestPropertyValue_LongFromJSON(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())
	doc := []byte(`{"count": 9223372036854775807}`)

	var attrs map[string]any
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&attrs))
	got, err := PropertyValue(tr.AttributeType("long"), attrs["count"])
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Value)

	// Without UseNumber the value arrives as 2^63 and must not wrap around.
	attrs = nil
	require.NoError(t, json.Unmarshal(doc, &attrs))
	_, err = PropertyValue(tr.AttributeType("long"), attrs["count"])
	assert.Error(t, err)
}

func TestReferencedTypes(t *testing.T) {
	assert.Nil(t, ReferencedTypes("string"))
	assert.Equal(t, []string{"Column"}, ReferencedTypes("array<Column>"))
	assert.Equal(t, []string{"SortOrder", "Column"}, ReferencedTypes("map<SortOrder,array<Column>>"))
	assert.Equal(t, []string{"Table"}, ReferencedTypes(" Table "))
}
