// Package atlasbridge republishes Apache Atlas metadata changes as OMRS
// instance events.
//
// Atlas announces entity changes on a notification feed. The bridge reads
// the feed with a durable consumer group, looks the affected entity up in a
// read-only copy of the Atlas store, translates its type and instance into
// the OMRS model and hands the result to an event handler, which publishes
// it on NATS or appends it to a journal file.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│     Notification feed (JetStream)   │  ENTITY_CREATE, ENTITY_UPDATE,
//	│   durable consumer, shared group id │  ENTITY_DELETE, CLASSIFICATION_*
//	└─────────────────────────────────────┘
//	           ↓ batches, committed in order
//	┌─────────────────────────────────────┐
//	│  processor/notification             │  Consumer: poll, dispatch, commit
//	│  Consumer → Dispatcher              │  Dispatcher: filter, read, translate
//	└─────────────────────────────────────┘
//	           ↓ reads                  ↓ translates
//	┌──────────────────────┐  ┌────────────────────────────┐
//	│ storage (kv, memory) │  │ catalog, translator,       │
//	│ types, entities      │  │ vocabulary (reserved names)│
//	└──────────────────────┘  └────────────────────────────┘
//	           ↓ one call per event
//	┌─────────────────────────────────────┐
//	│  output/omrsevents                  │  NEW_ENTITY_EVENT ... PURGED_ENTITY_EVENT
//	│  Publisher → NATS stream or journal │
//	└─────────────────────────────────────┘
//
// # Packages
//
//	types/source          Atlas records: type definitions, entities, relationships
//	types/omrs            OMRS records: type definitions, entity details, identity
//	vocabulary            reserved type names and their substituted identities
//	translator            type and instance translation rules
//	catalog               lazily translated, cached target types
//	storage               read interfaces, delete mode, seed files
//	storage/memstore      in-memory store
//	storage/kvstore       NATS KV store with an expiring entity cache
//	message               notification envelopes and feed records
//	processor/notification  dispatcher and feed consumer
//	output/omrsevents     instance events, publisher, journal
//	natsclient            connection, circuit breaker, streams, KV, pull feed
//	config                layered JSON/YAML configuration with env overrides
//	errors                classified errors (transient, invalid, fatal)
//	metric, health        Prometheus metrics and health endpoint
//	pkg/retry             startup backoff
//	pkg/tlsutil           TLS client settings for NATS
//
// # Delivery
//
// Records are processed one at a time in feed order and committed after
// their batch. A notification that cannot be translated is logged, counted
// and discarded; it is never retried. A bridge that stops mid-batch leaves
// the rest of the batch uncommitted, so it is delivered again to whichever
// group member polls next.
//
// # Binary
//
// cmd/atlasbridge runs the bridge:
//
//	atlasbridge -config=bridge.yaml
//	atlasbridge -config=base.yaml -config=prod.yaml -log-format=text
package atlasbridge
