//go:build integration

package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/natsclient"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/types/source"
)

func TestIntegration_OpenAndInvalidate(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithJetStream())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := Open(ctx, tc.Client, DefaultBucketNames(), Config{
		LocalID:   "local",
		CacheSize: 100,
		CacheTTL:  time.Hour,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, storage.Apply(ctx, s, &storage.Seed{
		TypeDefs: source.TypeDefs{EntityDefs: []source.EntityDef{{TypeDefHeader: source.TypeDefHeader{Name: "Table", GUID: "T"}}}},
		Entities: []source.Entity{{GUID: "e1", TypeName: "Table"}},
	}))

	names, err := s.TypeDefNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Table"}, names)

	done := make(chan error, 1)
	go func() { done <- s.Invalidate(ctx) }()

	_, err = s.Entity(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, 1, s.CacheLen())

	// Write behind the store's back; the watcher evicts the stale entry.
	other := New(s.typeDefs, s.entities, s.relationships, Config{}, nil)
	require.Eventually(t, func() bool {
		_ = other.PutEntity(ctx, &source.Entity{GUID: "e1", TypeName: "View"})
		return s.CacheLen() == 0
	}, 5*time.Second, 50*time.Millisecond)

	e, err := s.Entity(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "View", e.TypeName)

	_, err = s.Entity(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrKeyNotFound))

	cancel()
	assert.NoError(t, <-done)
}
