package catalog

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/storage/memstore"
	"github.com/planetf1/atlas-sub002/testutil"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

func newCatalog(t *testing.T) (*Catalog, *memstore.Store, *vocabulary.Registry) {
	t.Helper()
	store := testutil.NewStore(t, storage.DeleteSoft)
	reg := vocabulary.NewRegistry()
	return New(store, reg, nil), store, reg
}

func TestCatalog_Load(t *testing.T) {
	ctx := context.Background()
	c, _, reg := newCatalog(t)

	report, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, report.Loaded)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"Column", "OM_Referenceable", "PII", "Table", "table_columns"}, c.Names())

	// The reserved root is renamed and keeps the registry's id.
	ref, ok := c.TypeByName("Referenceable")
	require.True(t, ok)
	assert.Equal(t, "OM_Referenceable", ref.Header().Name)
	assert.Equal(t, reg.Resolve("Referenceable").GUID, ref.Header().GUID)
	alias, ok := c.TypeByName("OM_Referenceable")
	require.True(t, ok)
	assert.Same(t, ref, alias)

	table, ok := c.TypeByName("Table")
	require.True(t, ok)
	assert.Equal(t, testutil.TableGUID, table.Header().GUID)
	require.NotNil(t, table.Header().SuperType)
	assert.Equal(t, ref.Link(), *table.Header().SuperType)

	column, ok := c.TypeByName("Column")
	require.True(t, ok)
	var sortOrder *omrs.TypeDefAttribute
	for i, attr := range column.Header().Attributes {
		if attr.Name == "sortOrder" {
			sortOrder = &column.Header().Attributes[i]
		}
	}
	require.NotNil(t, sortOrder)
	assert.Equal(t, omrs.AttributeEnum, sortOrder.AttributeType.Category)
	assert.Equal(t, testutil.SortOrderGUID, sortOrder.AttributeType.GUID)

	rel, ok := c.TypeByName("table_columns")
	require.True(t, ok)
	rd := rel.(*omrs.RelationshipDef)
	assert.Equal(t, testutil.TableGUID, rd.EndDef1.EntityType.GUID)
	assert.Equal(t, testutil.ColumnGUID, rd.EndDef2.EntityType.GUID)

	pii, ok := c.TypeByName("PII")
	require.True(t, ok)
	cd := pii.(*omrs.ClassificationDef)
	require.Len(t, cd.ValidEntityDefs, 1)
	assert.Equal(t, omrs.TypeDefLink{GUID: testutil.ColumnGUID, Name: "Column"}, cd.ValidEntityDefs[0])
}

func TestCatalog_LoadRejectsAmbiguousType(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newCatalog(t)
	require.NoError(t, store.PutTypeDefs(ctx, source.TypeDefs{EntityDefs: []source.EntityDef{{
		TypeDefHeader: source.TypeDefHeader{
			Name:       "TableColumn",
			GUID:       "TC",
			Version:    source.Int64(1),
			SuperTypes: []string{"Table", "Column"},
		},
	}}}))

	report, err := c.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, report.Rejected, "TableColumn")
	assert.True(t, errors.Is(report.Rejected["TableColumn"], errors.ErrAmbiguousSupertype))
	assert.Equal(t, 6, report.Loaded)

	_, ok := c.TypeByName("TableColumn")
	assert.False(t, ok)
}

type failingTypes struct {
	*memstore.Store
}

func (f failingTypes) TypeDefNames(context.Context) ([]string, error) {
	return nil, fmt.Errorf("store offline")
}

func TestCatalog_LoadStorageFailure(t *testing.T) {
	store := testutil.NewStore(t, storage.DeleteSoft)
	c := New(failingTypes{store}, vocabulary.NewRegistry(), nil)

	report, err := c.Load(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
	assert.False(t, errors.IsInvalid(err))
}

func TestCatalog_EnsureOnDemand(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCatalog(t)

	def, err := c.Ensure(ctx, "Table")
	require.NoError(t, err)
	assert.Equal(t, "Table", def.Header().Name)

	// Dependencies came along: supertype, the attribute's element type and its enum.
	for _, name := range []string{"Referenceable", "Column"} {
		_, ok := c.TypeByName(name)
		assert.True(t, ok, name)
	}
	_, ok := c.TypeByName("PII")
	assert.False(t, ok)

	again, err := c.Ensure(ctx, "Table")
	require.NoError(t, err)
	assert.Same(t, def, again)

	enum, err := c.Ensure(ctx, "SortOrder")
	require.NoError(t, err)
	assert.Nil(t, enum)

	_, err = c.Ensure(ctx, "Missing")
	assert.True(t, errors.Is(err, errors.ErrUnknownType))
	assert.True(t, errors.IsInvalid(err))
}

func TestCatalog_EnsureEntity(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCatalog(t)

	tests := []struct {
		name    string
		entity  *source.Entity
		wantErr error
	}{
		{name: "plain", entity: testutil.TableEntity("T-1")},
		{name: "classified", entity: testutil.ColumnEntity("C-1", "PII")},
		{name: "unknown classification", entity: testutil.ColumnEntity("C-2", "Secret"), wantErr: errors.ErrUnknownClassification},
		{name: "unknown type", entity: &source.Entity{GUID: "X", TypeName: "Nope"}, wantErr: errors.ErrUnknownType},
		{name: "not an entity type", entity: &source.Entity{GUID: "X", TypeName: "PII"}, wantErr: errors.ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := c.EnsureEntity(ctx, tt.entity)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.entity.TypeName, def.Name)
		})
	}

	_, ok := c.TypeByName("PII")
	assert.True(t, ok)
}

func TestCatalog_EnsureRelationship(t *testing.T) {
	c, _, _ := newCatalog(t)
	require.NoError(t, c.EnsureRelationship(context.Background(), testutil.TableColumn("R-1", "T-1", "C-1")))
	assert.Equal(t, []string{"Column", "OM_Referenceable", "Table", "table_columns"}, c.Names())
}

func TestCatalog_EndResolver(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, storage.DeleteSoft)
	c := New(store, vocabulary.NewRegistry(), nil)
	testutil.PutEntities(t, store, testutil.TableEntity("T-1"))
	resolve := c.EndResolver(store)

	entity, err := resolve(ctx, source.ObjectID{GUID: "T-1", TypeName: "Table"})
	require.NoError(t, err)
	assert.Equal(t, "T-1", entity.GUID)
	_, ok := c.TypeByName("Table")
	assert.True(t, ok, "end type is loaded with the end")

	_, err = resolve(ctx, source.ObjectID{GUID: "missing", TypeName: "Table"})
	assert.True(t, errors.Is(err, errors.ErrEntityNotKnown))
	assert.True(t, errors.IsInvalid(err))
}

func TestCatalog_TypeLink(t *testing.T) {
	ctx := context.Background()
	c, _, reg := newCatalog(t)

	link, err := c.TypeLink(ctx, "Table")
	require.NoError(t, err)
	assert.Equal(t, omrs.TypeDefLink{GUID: testutil.TableGUID, Name: "Table"}, link)
	assert.Zero(t, c.Len(), "a link lookup does not translate")

	link, err = c.TypeLink(ctx, "Referenceable")
	require.NoError(t, err)
	assert.Equal(t, reg.Resolve("Referenceable"), link)

	_, err = c.TypeLink(ctx, "Gone")
	assert.True(t, errors.Is(err, errors.ErrUnknownType))

	_, err = c.Ensure(ctx, "Column")
	require.NoError(t, err)
	link, err = c.TypeLink(ctx, "Column")
	require.NoError(t, err)
	assert.Equal(t, testutil.ColumnGUID, link.GUID)
}

func TestCatalog_Forget(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newCatalog(t)

	before, err := c.Ensure(ctx, "Column")
	require.NoError(t, err)

	defs := testutil.TypeDefs()
	col := defs.EntityDefs[2]
	col.Version = source.Int64(2)
	require.NoError(t, store.PutTypeDefs(ctx, source.TypeDefs{EntityDefs: []source.EntityDef{col}}))

	cached, err := c.Ensure(ctx, "Column")
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Header().Version)

	c.Forget("Column")
	_, ok := c.TypeByName("Column")
	assert.False(t, ok)

	after, err := c.Ensure(ctx, "Column")
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.Equal(t, int64(2), after.Header().Version)
}

func TestCatalog_ConcurrentEnsure(t *testing.T) {
	ctx := context.Background()
	c, _, reg := newCatalog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := []string{"Table", "Column", "PII", "table_columns"}[i%4]
			_, err := c.Ensure(ctx, name)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, c.Len())
	ref, ok := c.TypeByName("OM_Referenceable")
	require.True(t, ok)
	assert.Equal(t, reg.Resolve("Referenceable").GUID, ref.Header().GUID)
}
