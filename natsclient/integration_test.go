//go:build integration

package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planetf1/atlas-sub002/errors"
)

func TestIntegration_Connect(t *testing.T) {
	tc := NewTestClient(t)

	assert.Equal(t, StatusConnected, tc.Client.Status())
	st := tc.Client.GetStatus()
	assert.Equal(t, StatusConnected, st.Status)
	assert.Zero(t, st.FailureCount)
}

func TestIntegration_KVStore(t *testing.T) {
	tc := NewTestClient(t, WithKVBuckets("TEST_KV"))
	ctx := context.Background()

	kv, err := tc.KVStore(ctx, "TEST_KV")
	require.NoError(t, err)
	assert.Equal(t, "TEST_KV", kv.Bucket())

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	rev, err := kv.Put(ctx, "a", []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.NotZero(t, rev)

	entry, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(entry.Value))
	assert.Equal(t, rev, entry.Revision)

	keys, err = kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys)

	require.NoError(t, kv.Delete(ctx, "a"))
	require.NoError(t, kv.Delete(ctx, "never-written"))
	_, err = kv.Get(ctx, "a")
	assert.True(t, errors.Is(err, errors.ErrKeyNotFound))
}

func TestIntegration_PullSubscription(t *testing.T) {
	tc := NewTestClient(t, WithStreams(jetstream.StreamConfig{
		Name:     "NOTIFY",
		Subjects: []string{"atlas.entities"},
	}))
	ctx := context.Background()
	cfg := PullConfig{Stream: "NOTIFY", Subject: "atlas.entities", Durable: "bridge", AckWait: 2 * time.Second}

	for i := 0; i < 5; i++ {
		require.NoError(t, tc.Client.PublishToStream(ctx, "atlas.entities", []byte(fmt.Sprintf("n%d", i))))
	}

	sub, err := tc.Client.Subscribe(ctx, cfg)
	require.NoError(t, err)

	recs, err := sub.Poll(ctx, 3, time.Second)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for i, r := range recs {
		assert.Equal(t, fmt.Sprintf("n%d", i), string(r.Data))
		assert.Equal(t, uint64(i+1), r.Sequence)
	}
	require.NoError(t, sub.Commit(recs))
	require.NoError(t, sub.Close())

	// A new subscriber in the same group resumes after the committed batch.
	sub2, err := tc.Client.Subscribe(ctx, cfg)
	require.NoError(t, err)
	defer sub2.Close()

	var rest []string
	deadline := time.Now().Add(10 * time.Second)
	for len(rest) < 2 && time.Now().Before(deadline) {
		recs, err := sub2.Poll(ctx, 10, 200*time.Millisecond)
		require.NoError(t, err)
		for _, r := range recs {
			rest = append(rest, string(r.Data))
		}
		require.NoError(t, sub2.Commit(recs))
	}
	assert.Equal(t, []string{"n3", "n4"}, rest)

	empty, err := sub2.Poll(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
