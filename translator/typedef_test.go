package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

func entityDef(name, guid string, supers ...string) *source.EntityDef {
	return &source.EntityDef{TypeDefHeader: source.TypeDefHeader{
		Category:   source.CategoryEntity,
		Name:       name,
		GUID:       guid,
		Version:    source.Int64(1),
		SuperTypes: supers,
	}}
}

func relationshipDef(c1, c2 source.Cardinality) *source.RelationshipDef {
	return &source.RelationshipDef{
		TypeDefHeader: source.TypeDefHeader{
			Category: source.CategoryRelationship,
			Name:     "table_columns",
			GUID:     "R1",
			Version:  source.Int64(3),
		},
		RelationshipCategory: source.RelationshipComposition,
		PropagateTags:        source.PropagateBoth,
		EndDef1:              &source.RelationshipEndDef{Type: "Table", Name: "columns", Cardinality: c1, IsContainer: true},
		EndDef2:              &source.RelationshipEndDef{Type: "Column", Name: "table", Cardinality: c2},
	}
}

func TestTranslateEntityType_ReservedSupertype(t *testing.T) {
	reg := vocabulary.NewRegistry()
	tr := NewTypeDefTranslator(reg)

	got, err := tr.TranslateEntityType(entityDef("Document", "G1", "Referenceable"))
	require.NoError(t, err)

	assert.Equal(t, "Document", got.Name)
	assert.Equal(t, "G1", got.GUID)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, omrs.CategoryEntityDef, got.Category)
	require.NotNil(t, got.SuperType)
	assert.Equal(t, reg.Resolve("Referenceable"), *got.SuperType)
	assert.Equal(t, "OM_Referenceable", got.SuperType.Name)
}

func TestTranslateEntityType_AmbiguousSupertype(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	_, err := tr.TranslateEntityType(entityDef("Folder", "G2", "TypeX", "TypeY"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAmbiguousSupertype))
	assert.True(t, errors.IsInvalid(err))
}

func TestTranslateEntityType_SupertypeCount(t *testing.T) {
	tests := []struct {
		name      string
		supers    []string
		wantSuper string
		wantErr   error
	}{
		{name: "none", supers: nil},
		{name: "one", supers: []string{"Asset"}, wantSuper: "OM_Asset"},
		{name: "duplicates collapse", supers: []string{"TypeX", "TypeX"}, wantSuper: "TypeX"},
		{name: "two distinct", supers: []string{"Asset", "TypeX"}, wantErr: errors.ErrAmbiguousSupertype},
		{name: "three distinct", supers: []string{"A", "B", "C"}, wantErr: errors.ErrAmbiguousSupertype},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTypeDefTranslator(vocabulary.NewRegistry())
			got, err := tr.TranslateEntityType(entityDef("Thing", "G", tt.supers...))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			if tt.wantSuper == "" {
				assert.Nil(t, got.SuperType)
				return
			}
			require.NotNil(t, got.SuperType)
			assert.Equal(t, tt.wantSuper, got.SuperType.Name)
		})
	}
}

func TestTranslateEntityType_ReservedSelfSupertype(t *testing.T) {
	reg := vocabulary.NewRegistry()
	tr := NewTypeDefTranslator(reg)

	got, err := tr.TranslateEntityType(entityDef("OM_Referenceable", "G3", "Referenceable"))
	require.NoError(t, err)
	assert.Equal(t, "OM_Referenceable", got.Name)
	assert.Nil(t, got.SuperType)

	got, err = tr.TranslateEntityType(entityDef("Referenceable", "G4", "Referenceable"))
	require.NoError(t, err)
	assert.Equal(t, "OM_Referenceable", got.Name)
	assert.Equal(t, reg.Resolve("Referenceable").GUID, got.GUID)
	assert.Nil(t, got.SuperType)
}

func TestTranslateEntityType_Malformed(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())

	noName := entityDef("", "G")
	noGUID := entityDef("Thing", "")
	noVersion := entityDef("Thing", "G")
	noVersion.Version = nil

	for name, def := range map[string]*source.EntityDef{
		"no name":    noName,
		"no guid":    noGUID,
		"no version": noVersion,
		"nil":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := tr.TranslateEntityType(def)
			assert.True(t, errors.Is(err, errors.ErrMalformedType))
		})
	}
}

func TestTranslateEntityType_GUIDLookup(t *testing.T) {
	guids := map[string]string{"DataFile": "DF-GUID"}
	tr := NewTypeDefTranslator(vocabulary.NewRegistry(), WithGUIDLookup(func(name string) (string, bool) {
		g, ok := guids[name]
		return g, ok
	}))

	got, err := tr.TranslateEntityType(entityDef("CSVFile", "G5", "DataFile"))
	require.NoError(t, err)
	assert.Equal(t, omrs.TypeDefLink{GUID: "DF-GUID", Name: "DataFile"}, *got.SuperType)
}

func TestTranslateEntityType_Idempotent(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())
	def := entityDef("Document", "G1", "Referenceable")
	def.AttributeDefs = []source.AttributeDef{
		{Name: "qualifiedName", TypeName: "string", IsUnique: true},
		{Name: "tags", TypeName: "array<string>", Cardinality: source.CardinalitySet},
	}

	first, err := tr.TranslateEntityType(def)
	require.NoError(t, err)
	second, err := tr.TranslateEntityType(def)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTranslateClassificationType(t *testing.T) {
	reg := vocabulary.NewRegistry()
	tr := NewTypeDefTranslator(reg)

	def := &source.ClassificationDef{
		TypeDefHeader: source.TypeDefHeader{Name: "PII", GUID: "C1", Version: source.Int64(2)},
		EntityTypes:   []string{"Asset", "Column", "Asset", "Table", "Column"},
	}

	got, err := tr.TranslateClassificationType(def)
	require.NoError(t, err)
	assert.Equal(t, omrs.CategoryClassificationDef, got.Category)
	assert.Equal(t, []omrs.TypeDefLink{
		reg.Resolve("Asset"),
		{Name: "Column"},
		{Name: "Table"},
	}, got.ValidEntityDefs)
}

func TestTranslateRelationshipType_SwapsCardinality(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 source.Cardinality
		want1  omrs.EndCardinality
		want2  omrs.EndCardinality
	}{
		{name: "many to one", c1: source.CardinalitySet, c2: source.CardinalitySingle, want1: omrs.EndAtMostOne, want2: omrs.EndAnyNumber},
		{name: "one to many", c1: source.CardinalitySingle, c2: source.CardinalityList, want1: omrs.EndAnyNumber, want2: omrs.EndAtMostOne},
		{name: "one to one", c1: source.CardinalitySingle, c2: source.CardinalitySingle, want1: omrs.EndAtMostOne, want2: omrs.EndAtMostOne},
		{name: "many to many", c1: source.CardinalityList, c2: source.CardinalitySet, want1: omrs.EndAnyNumber, want2: omrs.EndAnyNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTypeDefTranslator(vocabulary.NewRegistry())
			got, err := tr.TranslateRelationshipType(relationshipDef(tt.c1, tt.c2))
			require.NoError(t, err)
			assert.Equal(t, tt.want1, got.EndDef1.Cardinality)
			assert.Equal(t, tt.want2, got.EndDef2.Cardinality)
		})
	}
}

func TestTranslateRelationshipType_Ends(t *testing.T) {
	reg := vocabulary.NewRegistry()
	tr := NewTypeDefTranslator(reg)
	def := relationshipDef(source.CardinalitySet, source.CardinalitySingle)
	def.EndDef2.Type = "DataSet"

	got, err := tr.TranslateRelationshipType(def)
	require.NoError(t, err)
	assert.Equal(t, omrs.CategoryRelationshipDef, got.Category)
	assert.Equal(t, omrs.PropagateBothDirections, got.PropagationRule)
	assert.Equal(t, "Table", got.EndDef1.EntityType.Name)
	assert.Equal(t, "columns", got.EndDef1.AttributeName)
	assert.Equal(t, reg.Resolve("DataSet"), got.EndDef2.EntityType)
	assert.Equal(t, "table", got.EndDef2.AttributeName)
}

func TestTranslateRelationshipType_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*source.RelationshipDef)
		wantErr error
	}{
		{name: "missing end1", mutate: func(d *source.RelationshipDef) { d.EndDef1 = nil }, wantErr: errors.ErrMalformedType},
		{name: "missing end2", mutate: func(d *source.RelationshipDef) { d.EndDef2 = nil }, wantErr: errors.ErrMalformedType},
		{name: "missing category", mutate: func(d *source.RelationshipDef) { d.RelationshipCategory = "" }, wantErr: errors.ErrMalformedType},
		{name: "missing propagation", mutate: func(d *source.RelationshipDef) { d.PropagateTags = "" }, wantErr: errors.ErrMalformedType},
		{name: "unknown propagation", mutate: func(d *source.RelationshipDef) { d.PropagateTags = "SIDEWAYS" }, wantErr: errors.ErrMalformedType},
		{name: "unknown cardinality", mutate: func(d *source.RelationshipDef) { d.EndDef2.Cardinality = "MANY" }, wantErr: errors.ErrMalformedType},
		{name: "end without type", mutate: func(d *source.RelationshipDef) { d.EndDef2.Type = "" }, wantErr: errors.ErrMalformedType},
		{
			name:    "container on association",
			mutate:  func(d *source.RelationshipDef) { d.RelationshipCategory = source.RelationshipAssociation },
			wantErr: errors.ErrInvalidContainment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTypeDefTranslator(vocabulary.NewRegistry())
			def := relationshipDef(source.CardinalitySet, source.CardinalitySingle)
			tt.mutate(def)
			_, err := tr.TranslateRelationshipType(def)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), err.Error())
		})
	}
}

func TestTranslateRelationshipType_ContainerUnderAggregation(t *testing.T) {
	tr := NewTypeDefTranslator(vocabulary.NewRegistry())
	def := relationshipDef(source.CardinalitySet, source.CardinalitySingle)
	def.RelationshipCategory = source.RelationshipAggregation

	_, err := tr.TranslateRelationshipType(def)
	assert.NoError(t, err)
}
