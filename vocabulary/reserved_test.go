package vocabulary

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
)

func TestReservedNames(t *testing.T) {
	assert.Equal(t, []string{"Asset", "DataSet", "Infrastructure", "Process", "Referenceable"}, ReservedNames())
	assert.True(t, IsReservedName("Referenceable"))
	assert.False(t, IsReservedName("referenceable"))
	assert.False(t, IsReservedName("OM_Referenceable"))
}

func TestRegistry_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantGUID bool
	}{
		{name: "reserved", input: "Referenceable", wantName: "OM_Referenceable", wantGUID: true},
		{name: "reserved asset", input: "Asset", wantName: "OM_Asset", wantGUID: true},
		{name: "passthrough", input: "Document", wantName: "Document"},
		{name: "already substituted", input: "OM_Referenceable", wantName: "OM_Referenceable"},
		{name: "empty", input: "", wantName: ""},
	}

	reg := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := reg.Resolve(tt.input)
			assert.Equal(t, tt.wantName, link.Name)
			if tt.wantGUID {
				assert.NotEmpty(t, link.GUID)
			} else {
				assert.Empty(t, link.GUID)
			}
		})
	}
}

func TestRegistry_ResolveIsStable(t *testing.T) {
	reg := NewRegistry()
	first := reg.Resolve("DataSet")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, reg.Resolve("DataSet"))
	}
	assert.NotEqual(t, first.GUID, reg.Resolve("Process").GUID)
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	var calls int
	var callsMu sync.Mutex
	reg := NewRegistry(WithIDGenerator(func() string {
		callsMu.Lock()
		defer callsMu.Unlock()
		calls++
		return fmt.Sprintf("id-%d", calls)
	}))

	const workers = 50
	results := make([]string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = reg.Resolve("Asset").GUID
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, calls)
	for _, id := range results {
		assert.Equal(t, "id-1", id)
	}
}

func TestRegistry_ReverseLookup(t *testing.T) {
	reg := NewRegistry()
	link := reg.Resolve("Infrastructure")

	name, ok := reg.ReverseLookup(link.GUID)
	require.True(t, ok)
	assert.Equal(t, "Infrastructure", name)

	_, ok = reg.ReverseLookup("missing")
	assert.False(t, ok)
}

func TestRegistry_Substitutes(t *testing.T) {
	reg := NewRegistry(WithPrefix("XX"))

	assert.Equal(t, "XX", reg.Prefix())
	assert.Equal(t, "XX_Asset", reg.SubstituteName("Asset"))
	assert.Equal(t, "Column", reg.SubstituteName("Column"))
	assert.True(t, reg.IsSubstitute("XX_Asset"))
	assert.False(t, reg.IsSubstitute("OM_Asset"))
	assert.False(t, reg.IsSubstitute("XX_Column"))

	name, ok := reg.OriginalName("XX_Process")
	require.True(t, ok)
	assert.Equal(t, "Process", name)
}

func TestRegistry_Preload(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Preload("Referenceable", "store-id"))
	require.NoError(t, reg.Preload("Referenceable", "store-id"))
	assert.Equal(t, "store-id", reg.Resolve("Referenceable").GUID)

	err := reg.Preload("Referenceable", "other-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrLogic))
	assert.True(t, errors.IsFatal(err))

	err = reg.Preload("Asset", "store-id")
	assert.True(t, errors.Is(err, errors.ErrLogic))

	err = reg.Preload("Document", "doc-id")
	assert.True(t, errors.Is(err, errors.ErrLogic))
}

func TestRegistry_Reset(t *testing.T) {
	reg := NewRegistry()
	id := reg.Resolve("Asset").GUID
	assert.Len(t, reg.Snapshot(), 1)

	reg.Reset()
	assert.Empty(t, reg.Snapshot())
	_, ok := reg.ReverseLookup(id)
	assert.False(t, ok)
	assert.NotEqual(t, id, reg.Resolve("Asset").GUID)
}
