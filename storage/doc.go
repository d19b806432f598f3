// Package storage is the bridge's view of the source metadata store.
//
// The bridge never queries the graph engine directly. Everything it needs
// (type definitions by name, entities and relationships by guid, and two
// predicates used to filter notifications) goes through Store. Two adapters
// are provided:
//
//   - memstore: an in-memory store, for tests and local runs from a seed file
//   - kvstore: NATS JetStream key-value buckets holding JSON records, with an
//     optional expiring LRU in front of entity reads
//
// Records are decoded into the types in types/source. They are read-only
// snapshots; a caller that needs fresh data reads again.
//
// # Seeding
//
// A seed file is a JSON document with type definitions, entities and
// relationships:
//
//	{
//	  "typeDefs": {"entityDefs": [...], "classificationDefs": [...], "relationshipDefs": [...]},
//	  "entities": [...],
//	  "relationships": [...]
//	}
//
// LoadSeed checks it against seed_schema.json, then writes it into any
// Writer. Schema violations are reported together, with their JSON paths.
package storage
