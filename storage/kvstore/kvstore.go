// Package kvstore implements storage.Store over NATS JetStream key-value
// buckets holding JSON records.
//
// Type definitions live in one bucket keyed "<category>.<name>" (entity,
// classification, relationship, enum). Entities and relationships live in
// their own buckets keyed by guid. With a cache size set, entity reads go
// through an expiring LRU; Invalidate evicts entries as the bucket changes.
package kvstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/natsclient"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/types/source"
)

// Bucket is the subset of natsclient.KVStore the store uses.
type Bucket interface {
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Watcher is implemented by buckets that can report changes.
type Watcher interface {
	Watch(ctx context.Context, pattern string, opts ...jetstream.WatchOpt) (jetstream.KeyWatcher, error)
}

var _ Bucket = (*natsclient.KVStore)(nil)

const (
	prefixEntity         = "entity."
	prefixClassification = "classification."
	prefixRelationship   = "relationship."
	prefixEnum           = "enum."
)

// BucketNames names the three buckets.
type BucketNames struct {
	TypeDefs      string `json:"typedefs" yaml:"typedefs"`
	Entities      string `json:"entities" yaml:"entities"`
	Relationships string `json:"relationships" yaml:"relationships"`
}

// DefaultBucketNames returns the standard bucket names.
func DefaultBucketNames() BucketNames {
	return BucketNames{
		TypeDefs:      "ATLAS_TYPEDEFS",
		Entities:      "ATLAS_ENTITIES",
		Relationships: "ATLAS_RELATIONSHIPS",
	}
}

// Config configures a Store.
type Config struct {
	LocalID    string
	DeleteMode storage.DeleteMode
	CacheSize  int           // Entity cache entries, zero disables the cache
	CacheTTL   time.Duration // Entity cache lifetime, zero for no expiry
}

// Store reads source records from key-value buckets.
type Store struct {
	typeDefs      Bucket
	entities      Bucket
	relationships Bucket

	localID string
	mode    storage.DeleteMode
	cache   *expirable.LRU[string, source.Entity]
	size    int
	metrics *storeMetrics
	logger  *slog.Logger
}

var (
	_ storage.Store         = (*Store)(nil)
	_ storage.Writer        = (*Store)(nil)
	_ storage.EntityEvicter = (*Store)(nil)
)

// New creates a store over the given buckets.
func New(typeDefs, entities, relationships Bucket, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DeleteMode == "" {
		cfg.DeleteMode = storage.DeleteSoft
	}
	s := &Store{
		typeDefs:      typeDefs,
		entities:      entities,
		relationships: relationships,
		localID:       cfg.LocalID,
		mode:          cfg.DeleteMode,
		logger:        logger.With("component", "kvstore"),
	}
	if cfg.CacheSize > 0 {
		s.size = cfg.CacheSize
		s.cache = expirable.NewLRU[string, source.Entity](cfg.CacheSize, func(string, source.Entity) {
			s.metrics.recordEviction()
		}, cfg.CacheTTL)
	}
	return s
}

// Open creates or opens the buckets through client and returns a store over
// them.
func Open(ctx context.Context, client *natsclient.Client, names BucketNames, cfg Config, logger *slog.Logger) (*Store, error) {
	open := func(name string) (*natsclient.KVStore, error) {
		kv, err := client.KeyValueBucket(ctx, jetstream.KeyValueConfig{
			Bucket:      name,
			Description: "source metadata records",
		})
		if err != nil {
			return nil, errors.Wrap(err, "kvstore", "Open", "open bucket "+name)
		}
		return client.NewKVStore(kv), nil
	}

	typeDefs, err := open(names.TypeDefs)
	if err != nil {
		return nil, err
	}
	entities, err := open(names.Entities)
	if err != nil {
		return nil, err
	}
	relationships, err := open(names.Relationships)
	if err != nil {
		return nil, err
	}
	return New(typeDefs, entities, relationships, cfg, logger), nil
}

// DeleteMode implements storage.Store.
func (s *Store) DeleteMode() storage.DeleteMode {
	return s.mode
}

func get[T any](ctx context.Context, m *storeMetrics, b Bucket, kind, key string) (*T, error) {
	start := time.Now()
	entry, err := b.Get(ctx, key)
	m.recordRead(kind, start, err)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, storage.NotFound(kind, key)
		}
		return nil, err
	}
	var v T
	if err := storage.UnmarshalRecord(entry.Value, &v); err != nil {
		return nil, errors.Invalidf(errors.ErrInvalidData, "kvstore", "get", "%s %q: %v", kind, key, err)
	}
	return &v, nil
}

func put(ctx context.Context, b Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInvalid(err, "kvstore", "put", "marshal "+key)
	}
	_, err = b.Put(ctx, key, data)
	return err
}

// EntityDef implements storage.TypeReader.
func (s *Store) EntityDef(ctx context.Context, name string) (*source.EntityDef, error) {
	return get[source.EntityDef](ctx, s.metrics, s.typeDefs, "entity type", prefixEntity+name)
}

// ClassificationDef implements storage.TypeReader.
func (s *Store) ClassificationDef(ctx context.Context, name string) (*source.ClassificationDef, error) {
	return get[source.ClassificationDef](ctx, s.metrics, s.typeDefs, "classification type", prefixClassification+name)
}

// RelationshipDef implements storage.TypeReader.
func (s *Store) RelationshipDef(ctx context.Context, name string) (*source.RelationshipDef, error) {
	return get[source.RelationshipDef](ctx, s.metrics, s.typeDefs, "relationship type", prefixRelationship+name)
}

// TypeDefByName implements storage.TypeReader.
func (s *Store) TypeDefByName(ctx context.Context, name string) (*source.TypeDefHeader, error) {
	for _, c := range []struct {
		prefix   string
		category source.TypeCategory
	}{
		{prefixEntity, source.CategoryEntity},
		{prefixClassification, source.CategoryClassification},
		{prefixRelationship, source.CategoryRelationship},
		{prefixEnum, source.CategoryEnum},
	} {
		h, err := get[source.TypeDefHeader](ctx, s.metrics, s.typeDefs, "type", c.prefix+name)
		if errors.Is(err, errors.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		h.Category = c.category
		return h, nil
	}
	return nil, storage.NotFound("type", name)
}

// TypeDefNames implements storage.TypeReader.
func (s *Store) TypeDefNames(ctx context.Context) ([]string, error) {
	keys, err := s.typeDefs.Keys(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(keys))
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		_, name, ok := strings.Cut(k, ".")
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Entity implements storage.InstanceReader.
func (s *Store) Entity(ctx context.Context, guid string) (*source.Entity, error) {
	if s.cache != nil {
		if e, ok := s.cache.Get(guid); ok {
			s.metrics.recordCacheLookup(true)
			return &e, nil
		}
		s.metrics.recordCacheLookup(false)
	}
	e, err := get[source.Entity](ctx, s.metrics, s.entities, "entity", guid)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(guid, *e)
		s.metrics.recordCacheSize(s.cache.Len(), s.size)
	}
	return e, nil
}

// Relationship implements storage.InstanceReader.
func (s *Store) Relationship(ctx context.Context, guid string) (*source.Relationship, error) {
	return get[source.Relationship](ctx, s.metrics, s.relationships, "relationship", guid)
}

// IsPlaceholder implements storage.InstanceReader.
func (s *Store) IsPlaceholder(ctx context.Context, guid string) (bool, error) {
	e, err := s.Entity(ctx, guid)
	if errors.Is(err, errors.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.IsPlaceholder(), nil
}

// IsLocallyOwned implements storage.InstanceReader.
func (s *Store) IsLocallyOwned(ctx context.Context, guid string) (bool, error) {
	e, err := s.Entity(ctx, guid)
	if errors.Is(err, errors.ErrKeyNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return storage.IsLocal(e, s.localID), nil
}

// PutTypeDefs implements storage.Writer.
func (s *Store) PutTypeDefs(ctx context.Context, defs source.TypeDefs) error {
	for i := range defs.EntityDefs {
		if err := put(ctx, s.typeDefs, prefixEntity+defs.EntityDefs[i].Name, &defs.EntityDefs[i]); err != nil {
			return err
		}
	}
	for i := range defs.ClassificationDefs {
		if err := put(ctx, s.typeDefs, prefixClassification+defs.ClassificationDefs[i].Name, &defs.ClassificationDefs[i]); err != nil {
			return err
		}
	}
	for i := range defs.RelationshipDefs {
		if err := put(ctx, s.typeDefs, prefixRelationship+defs.RelationshipDefs[i].Name, &defs.RelationshipDefs[i]); err != nil {
			return err
		}
	}
	for i := range defs.EnumDefs {
		if err := put(ctx, s.typeDefs, prefixEnum+defs.EnumDefs[i].Name, &defs.EnumDefs[i]); err != nil {
			return err
		}
	}
	return nil
}

// PutEntity implements storage.Writer.
func (s *Store) PutEntity(ctx context.Context, entity *source.Entity) error {
	if err := put(ctx, s.entities, entity.GUID, entity); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Remove(entity.GUID)
	}
	return nil
}

// PutRelationship implements storage.Writer.
func (s *Store) PutRelationship(ctx context.Context, rel *source.Relationship) error {
	return put(ctx, s.relationships, rel.GUID, rel)
}

// DeleteEntity implements storage.Writer.
func (s *Store) DeleteEntity(ctx context.Context, guid string) error {
	if err := s.entities.Delete(ctx, guid); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Remove(guid)
	}
	return nil
}

// EvictEntity implements storage.EntityEvicter.
func (s *Store) EvictEntity(guid string) {
	if s.cache != nil {
		s.cache.Remove(guid)
	}
}

// CacheLen returns the number of cached entities.
func (s *Store) CacheLen() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

// Invalidate evicts cached entities as the entity bucket changes, until ctx
// ends. It returns immediately when the cache is disabled or the bucket
// cannot be watched.
func (s *Store) Invalidate(ctx context.Context) error {
	w, ok := s.entities.(Watcher)
	if s.cache == nil || !ok {
		return nil
	}
	watcher, err := w.Watch(ctx, ">", jetstream.UpdatesOnly())
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			s.logger.Debug("Stopping entity watcher", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-watcher.Updates():
			if !ok {
				return nil
			}
			if entry == nil {
				continue
			}
			s.cache.Remove(entry.Key())
		}
	}
}
