package translator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

var testIdentity = omrs.Identity{
	SourceName:           "atlas",
	MetadataCollectionID: "local-collection",
	ServerName:           "bridge-1",
	ServerType:           "Atlas Bridge",
	Organization:         "Acme",
}

type fixture struct {
	registry *vocabulary.Registry
	types    *StaticTypes
	table    *omrs.EntityDef
	column   *omrs.EntityDef
}

// newFixture translates a small source type system: Referenceable, Table and
// Column entities, a PII classification and a table_columns relationship.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := vocabulary.NewRegistry()
	tr := NewTypeDefTranslator(reg)
	types := NewStaticTypes()

	referenceable := entityDef("Referenceable", "REF")
	referenceable.AttributeDefs = []source.AttributeDef{
		{Name: "qualifiedName", TypeName: "string", IsUnique: true, IsIndexable: true},
	}
	table := entityDef("Table", "TABLE", "Referenceable")
	table.AttributeDefs = []source.AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "rowCount", TypeName: "long", IsOptional: true},
		{Name: "tags", TypeName: "array<string>", Cardinality: source.CardinalitySet},
		{Name: "options", TypeName: "map<string,string>"},
		{Name: "columns", TypeName: "array<Column>", Cardinality: source.CardinalitySet},
	}
	column := entityDef("Column", "COLUMN", "Referenceable")
	column.AttributeDefs = []source.AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "position", TypeName: "int"},
	}

	var defs []*omrs.EntityDef
	for _, def := range []*source.EntityDef{referenceable, table, column} {
		out, err := tr.TranslateEntityType(def)
		require.NoError(t, err)
		types.Add(out, def.Name)
		defs = append(defs, out)
	}

	pii, err := tr.TranslateClassificationType(&source.ClassificationDef{
		TypeDefHeader: source.TypeDefHeader{
			Name:          "PII",
			GUID:          "PII",
			Version:       source.Int64(1),
			AttributeDefs: []source.AttributeDef{{Name: "level", TypeName: "int"}},
		},
		EntityTypes: []string{"Column"},
	})
	require.NoError(t, err)
	types.Add(pii)

	rel := relationshipDef(source.CardinalitySet, source.CardinalitySingle)
	rel.AttributeDefs = []source.AttributeDef{{Name: "note", TypeName: "string"}}
	relDef, err := tr.TranslateRelationshipType(rel)
	require.NoError(t, err)
	types.Add(relDef)

	return &fixture{registry: reg, types: types, table: defs[1], column: defs[2]}
}

func tableEntity() *source.Entity {
	return &source.Entity{
		GUID:       "T-1",
		TypeName:   "Table",
		Status:     source.StatusActive,
		Version:    source.Int64(4),
		CreatedBy:  "admin",
		CreateTime: 1700000000000,
		Attributes: map[string]any{
			"qualifiedName": "db.sales@prod",
			"name":          "sales",
			"rowCount":      float64(1200),
			"tags":          []any{"finance", "daily"},
			"options":       map[string]any{"format": "parquet"},
			"columns":       []any{map[string]any{"guid": "C-1"}},
			"undeclared":    "dropped",
		},
		UniqueAttributes: map[string]any{"qualifiedName": "db.sales@prod"},
	}
}

func columnEntity(guid string) *source.Entity {
	return &source.Entity{
		GUID:     guid,
		TypeName: "Column",
		Status:   source.StatusActive,
		Version:  source.Int64(1),
		Attributes: map[string]any{
			"qualifiedName": "db.sales.id@prod",
			"name":          "id",
			"position":      float64(0),
		},
	}
}
