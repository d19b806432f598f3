// Package storage defines the contract between the bridge and the source
// metadata store, plus the shared pieces its adapters need.
package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/source"
)

// DeleteMode states what a delete in the source store leaves behind.
type DeleteMode string

const (
	// DeleteSoft keeps the record with status DELETED.
	DeleteSoft DeleteMode = "SOFT"
	// DeleteHard removes the record; only its guid and type name survive in
	// the notification.
	DeleteHard DeleteMode = "HARD"
)

// ParseDeleteMode parses a delete mode, case-insensitively. Empty means soft.
func ParseDeleteMode(s string) (DeleteMode, error) {
	switch DeleteMode(strings.ToUpper(strings.TrimSpace(s))) {
	case DeleteSoft, "":
		return DeleteSoft, nil
	case DeleteHard:
		return DeleteHard, nil
	default:
		return "", fmt.Errorf("%w: unknown delete mode %q", errors.ErrConfiguration, s)
	}
}

// TypeReader reads source type definitions by name.
type TypeReader interface {
	EntityDef(ctx context.Context, name string) (*source.EntityDef, error)
	ClassificationDef(ctx context.Context, name string) (*source.ClassificationDef, error)
	RelationshipDef(ctx context.Context, name string) (*source.RelationshipDef, error)
	// TypeDefByName returns the common header of any type definition, which
	// carries its category.
	TypeDefByName(ctx context.Context, name string) (*source.TypeDefHeader, error)
	TypeDefNames(ctx context.Context) ([]string, error)
}

// InstanceReader reads source instances by guid.
type InstanceReader interface {
	Entity(ctx context.Context, guid string) (*source.Entity, error)
	Relationship(ctx context.Context, guid string) (*source.Relationship, error)
	// IsPlaceholder reports whether the entity is a reference-only record.
	IsPlaceholder(ctx context.Context, guid string) (bool, error)
	// IsLocallyOwned reports whether the bridge's own store is the
	// authoritative home of the entity.
	IsLocallyOwned(ctx context.Context, guid string) (bool, error)
}

// Store is everything the bridge reads from the source. Lookups of missing
// records return an error wrapping errors.ErrKeyNotFound.
//
// IsPlaceholder and IsLocallyOwned answer (false, nil) and (true, nil) for a
// guid with no record: a hard-deleted entity is gone by the time its
// notification arrives and must still be treated as a local, full record.
//
// Implementations must be safe for concurrent use.
type Store interface {
	TypeReader
	InstanceReader
	DeleteMode() DeleteMode
}

// EntityEvicter is implemented by stores that cache entities. EvictEntity
// drops the cached copy of guid so the next read goes to the backing store.
type EntityEvicter interface {
	EvictEntity(guid string)
}

// Writer loads records into a store. Used for seeding and tests; the bridge
// itself never writes to the source.
type Writer interface {
	PutTypeDefs(ctx context.Context, defs source.TypeDefs) error
	PutEntity(ctx context.Context, entity *source.Entity) error
	PutRelationship(ctx context.Context, rel *source.Relationship) error
	DeleteEntity(ctx context.Context, guid string) error
}

// IsLocal reports whether localID owns entity. An empty home id means the
// entity was created in the local store.
func IsLocal(entity *source.Entity, localID string) bool {
	return entity.HomeID == "" || entity.HomeID == localID
}

// NotFound builds the error returned for a missing record.
func NotFound(kind, key string) error {
	return fmt.Errorf("%s %q: %w", kind, key, errors.ErrKeyNotFound)
}

// Seed is the on-disk form of a store snapshot.
type Seed struct {
	TypeDefs      source.TypeDefs       `json:"typeDefs"`
	Entities      []source.Entity       `json:"entities,omitempty"`
	Relationships []source.Relationship `json:"relationships,omitempty"`
}

//go:embed seed_schema.json
var seedSchema []byte

// LoadSeed reads a JSON seed file, checks it against the seed schema and
// writes its content into w.
func LoadSeed(ctx context.Context, w Writer, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return errors.WrapFatal(err, "storage", "LoadSeed", "read seed file")
	}
	if err := ValidateSeed(data); err != nil {
		return errors.WrapFatal(err, "storage", "LoadSeed", "validate seed file")
	}
	var seed Seed
	if err := UnmarshalRecord(data, &seed); err != nil {
		return errors.WrapFatal(err, "storage", "LoadSeed", "parse seed file")
	}
	return Apply(ctx, w, &seed)
}

// UnmarshalRecord decodes a stored record. Numbers in attribute maps are
// kept as json.Number so 64-bit integers survive.
func UnmarshalRecord(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// ValidateSeed checks a seed document against the seed schema. Every
// violation is listed in the returned error.
func ValidateSeed(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(seedSchema),
		gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidData, err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%w: %s", errors.ErrInvalidData, strings.Join(problems, "; "))
}

// Apply writes the content of seed into w.
func Apply(ctx context.Context, w Writer, seed *Seed) error {
	if err := w.PutTypeDefs(ctx, seed.TypeDefs); err != nil {
		return errors.Wrap(err, "storage", "Apply", "put type definitions")
	}
	for i := range seed.Entities {
		if err := w.PutEntity(ctx, &seed.Entities[i]); err != nil {
			return errors.Wrap(err, "storage", "Apply", "put entity")
		}
	}
	for i := range seed.Relationships {
		if err := w.PutRelationship(ctx, &seed.Relationships[i]); err != nil {
			return errors.Wrap(err, "storage", "Apply", "put relationship")
		}
	}
	return nil
}
