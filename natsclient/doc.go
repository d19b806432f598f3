// Package natsclient wraps the NATS Go client for the bridge: one connection
// guarded by a circuit breaker, JetStream streams, key-value buckets and a
// durable pull subscription that serves as the notification feed.
//
// # Circuit breaker
//
// Every JetStream call is observed. After a threshold of consecutive
// failures (default 5) the client opens the circuit and fails fast with
// ErrCircuitOpen for the current backoff. The backoff starts at one second
// and doubles on each trip up to the configured maximum; any success resets
// it.
//
// # Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithLogger(logger),
//	    natsclient.WithName("atlasbridge"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(context.Background())
//
//	feed, err := client.Subscribe(ctx, natsclient.PullConfig{
//	    Stream:  "ATLAS_ENTITIES",
//	    Subject: "atlas.entities",
//	    Durable: "atlasbridge",
//	})
//
// # Key-value buckets
//
// KVStore wraps a bucket with per-operation timeouts and maps missing keys to
// errors.ErrKeyNotFound:
//
//	bucket, err := client.KeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "ATLAS_ENTITIES"})
//	kv := client.NewKVStore(bucket)
//	entry, err := kv.Get(ctx, guid)
//
// # Testing
//
// NewTestClient starts a NATS server in a container with testcontainers-go
// and returns a connected client. Integration tests using it carry the
// integration build tag.
package natsclient
