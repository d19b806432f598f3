package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/storage/memstore"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
)

// LocalCollectionID is the metadata collection id of the fixture store.
const LocalCollectionID = "local-collection"

// Source type guids of the fixture type system.
const (
	ReferenceableGUID = "REF-GUID"
	TableGUID         = "TABLE-GUID"
	ColumnGUID        = "COLUMN-GUID"
	PIIGUID           = "PII-GUID"
	TableColumnsGUID  = "TABLE-COLUMNS-GUID"
	SortOrderGUID     = "SORT-ORDER-GUID"
)

// Identity is the bridge identity used by tests.
var Identity = omrs.Identity{
	SourceName:           "atlas",
	MetadataCollectionID: LocalCollectionID,
	ServerName:           "bridge-test",
	ServerType:           "Atlas Bridge",
	Organization:         "Acme",
}

func header(name, guid string, superTypes ...string) source.TypeDefHeader {
	return source.TypeDefHeader{
		Name:       name,
		GUID:       guid,
		Version:    source.Int64(1),
		SuperTypes: superTypes,
	}
}

// TypeDefs returns the fixture source type system.
func TypeDefs() source.TypeDefs {
	referenceable := source.EntityDef{TypeDefHeader: header("Referenceable", ReferenceableGUID)}
	referenceable.AttributeDefs = []source.AttributeDef{
		{Name: "qualifiedName", TypeName: "string", IsUnique: true, IsIndexable: true},
	}

	table := source.EntityDef{TypeDefHeader: header("Table", TableGUID, "Referenceable")}
	table.AttributeDefs = []source.AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "rowCount", TypeName: "long", IsOptional: true},
		{Name: "tags", TypeName: "array<string>", Cardinality: source.CardinalitySet, IsOptional: true},
		{Name: "columns", TypeName: "array<Column>", Cardinality: source.CardinalitySet, IsOptional: true},
	}

	column := source.EntityDef{TypeDefHeader: header("Column", ColumnGUID, "Referenceable")}
	column.AttributeDefs = []source.AttributeDef{
		{Name: "name", TypeName: "string"},
		{Name: "position", TypeName: "int"},
		{Name: "sortOrder", TypeName: "SortOrder", IsOptional: true},
	}

	pii := source.ClassificationDef{TypeDefHeader: header("PII", PIIGUID), EntityTypes: []string{"Column"}}
	pii.AttributeDefs = []source.AttributeDef{{Name: "level", TypeName: "int"}}

	tableColumns := source.RelationshipDef{
		TypeDefHeader:        header("table_columns", TableColumnsGUID),
		RelationshipCategory: source.RelationshipComposition,
		PropagateTags:        source.PropagateNone,
		EndDef1: &source.RelationshipEndDef{
			Type: "Table", Name: "columns", IsContainer: true, Cardinality: source.CardinalitySet,
		},
		EndDef2: &source.RelationshipEndDef{
			Type: "Column", Name: "table", Cardinality: source.CardinalitySingle,
		},
	}

	sortOrder := source.EnumDef{
		TypeDefHeader: header("SortOrder", SortOrderGUID),
		ElementDefs: []source.EnumElement{
			{Value: "ASCENDING", Ordinal: 0},
			{Value: "DESCENDING", Ordinal: 1},
		},
	}

	return source.TypeDefs{
		EntityDefs:         []source.EntityDef{referenceable, table, column},
		ClassificationDefs: []source.ClassificationDef{pii},
		RelationshipDefs:   []source.RelationshipDef{tableColumns},
		EnumDefs:           []source.EnumDef{sortOrder},
	}
}

// NewStore returns an in-memory store holding the fixture type system and no
// instances.
func NewStore(t testing.TB, mode storage.DeleteMode) *memstore.Store {
	t.Helper()
	s := memstore.New(LocalCollectionID, mode)
	require.NoError(t, s.PutTypeDefs(context.Background(), TypeDefs()))
	return s
}

// TableEntity returns an active, locally owned Table.
func TableEntity(guid string) *source.Entity {
	return &source.Entity{
		GUID:       guid,
		TypeName:   "Table",
		Status:     source.StatusActive,
		Version:    source.Int64(1),
		CreatedBy:  "admin",
		CreateTime: 1700000000000,
		Attributes: map[string]any{
			"qualifiedName": "db." + guid + "@prod",
			"name":          guid,
			"rowCount":      float64(42),
			"tags":          []any{"finance"},
		},
		UniqueAttributes: map[string]any{"qualifiedName": "db." + guid + "@prod"},
	}
}

// ColumnEntity returns an active, locally owned Column carrying the given
// classifications.
func ColumnEntity(guid string, classifications ...string) *source.Entity {
	e := &source.Entity{
		GUID:     guid,
		TypeName: "Column",
		Status:   source.StatusActive,
		Version:  source.Int64(1),
		Attributes: map[string]any{
			"qualifiedName": "db.col." + guid + "@prod",
			"name":          guid,
			"position":      float64(0),
			"sortOrder":     "ASCENDING",
		},
		UniqueAttributes: map[string]any{"qualifiedName": "db.col." + guid + "@prod"},
	}
	for _, name := range classifications {
		e.Classifications = append(e.Classifications, source.Classification{
			TypeName:   name,
			EntityGUID: guid,
			Attributes: map[string]any{"level": float64(2)},
		})
	}
	return e
}

// PlaceholderEntity returns a reference-only Table record.
func PlaceholderEntity(guid string) *source.Entity {
	e := TableEntity(guid)
	e.IsProxy = true
	e.Attributes = nil
	return e
}

// RemoteEntity returns a Table owned by another metadata collection.
func RemoteEntity(guid, homeID string) *source.Entity {
	e := TableEntity(guid)
	e.HomeID = homeID
	return e
}

// TableColumn returns a table_columns relationship from table to column.
func TableColumn(guid, table, column string) *source.Relationship {
	return &source.Relationship{
		GUID:     guid,
		TypeName: "table_columns",
		Status:   source.StatusActive,
		Version:  source.Int64(1),
		End1:     &source.ObjectID{GUID: table, TypeName: "Table"},
		End2:     &source.ObjectID{GUID: column, TypeName: "Column"},
	}
}

// PutEntities writes entities into s.
func PutEntities(t testing.TB, s storage.Writer, entities ...*source.Entity) {
	t.Helper()
	for _, e := range entities {
		require.NoError(t, s.PutEntity(context.Background(), e))
	}
}
