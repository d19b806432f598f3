// Package memstore provides an in-memory storage.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/types/source"
)

// Store keeps source records in maps, stored by value. Attribute maps inside
// a record are shared with callers, who must treat them as read-only.
type Store struct {
	localID    string
	deleteMode storage.DeleteMode

	mu              sync.RWMutex
	entityDefs      map[string]source.EntityDef
	classifications map[string]source.ClassificationDef
	relationDefs    map[string]source.RelationshipDef
	enumDefs        map[string]source.EnumDef
	entities        map[string]source.Entity
	relationships   map[string]source.Relationship

	entityReads int
}

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Writer = (*Store)(nil)
)

// New creates an empty store. localID is the metadata collection id of the
// local store; entities with that home id, or none, are locally owned.
func New(localID string, mode storage.DeleteMode) *Store {
	if mode == "" {
		mode = storage.DeleteSoft
	}
	return &Store{
		localID:         localID,
		deleteMode:      mode,
		entityDefs:      make(map[string]source.EntityDef),
		classifications: make(map[string]source.ClassificationDef),
		relationDefs:    make(map[string]source.RelationshipDef),
		enumDefs:        make(map[string]source.EnumDef),
		entities:        make(map[string]source.Entity),
		relationships:   make(map[string]source.Relationship),
	}
}

// DeleteMode implements storage.Store.
func (s *Store) DeleteMode() storage.DeleteMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deleteMode
}

// SetDeleteMode changes the delete mode.
func (s *Store) SetDeleteMode(mode storage.DeleteMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteMode = mode
}

// EntityReads returns how many times Entity has been called. Tests use it to
// assert that a record was never fetched.
func (s *Store) EntityReads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entityReads
}

// EntityDef implements storage.TypeReader.
func (s *Store) EntityDef(_ context.Context, name string) (*source.EntityDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.entityDefs[name]
	if !ok {
		return nil, storage.NotFound("entity type", name)
	}
	return &def, nil
}

// ClassificationDef implements storage.TypeReader.
func (s *Store) ClassificationDef(_ context.Context, name string) (*source.ClassificationDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.classifications[name]
	if !ok {
		return nil, storage.NotFound("classification type", name)
	}
	return &def, nil
}

// RelationshipDef implements storage.TypeReader.
func (s *Store) RelationshipDef(_ context.Context, name string) (*source.RelationshipDef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.relationDefs[name]
	if !ok {
		return nil, storage.NotFound("relationship type", name)
	}
	return &def, nil
}

// TypeDefByName implements storage.TypeReader.
func (s *Store) TypeDefByName(_ context.Context, name string) (*source.TypeDefHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var h source.TypeDefHeader
	if def, ok := s.entityDefs[name]; ok {
		h = def.TypeDefHeader
		h.Category = source.CategoryEntity
	} else if def, ok := s.classifications[name]; ok {
		h = def.TypeDefHeader
		h.Category = source.CategoryClassification
	} else if def, ok := s.relationDefs[name]; ok {
		h = def.TypeDefHeader
		h.Category = source.CategoryRelationship
	} else if def, ok := s.enumDefs[name]; ok {
		h = def.TypeDefHeader
		h.Category = source.CategoryEnum
	} else {
		return nil, storage.NotFound("type", name)
	}
	return &h, nil
}

// TypeDefNames implements storage.TypeReader.
func (s *Store) TypeDefNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entityDefs)+len(s.classifications)+len(s.relationDefs)+len(s.enumDefs))
	for name := range s.entityDefs {
		names = append(names, name)
	}
	for name := range s.classifications {
		names = append(names, name)
	}
	for name := range s.relationDefs {
		names = append(names, name)
	}
	for name := range s.enumDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Entity implements storage.InstanceReader.
func (s *Store) Entity(_ context.Context, guid string) (*source.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityReads++
	e, ok := s.entities[guid]
	if !ok {
		return nil, storage.NotFound("entity", guid)
	}
	return &e, nil
}

// Relationship implements storage.InstanceReader.
func (s *Store) Relationship(_ context.Context, guid string) (*source.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.relationships[guid]
	if !ok {
		return nil, storage.NotFound("relationship", guid)
	}
	return &r, nil
}

// IsPlaceholder implements storage.InstanceReader.
func (s *Store) IsPlaceholder(_ context.Context, guid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[guid]
	return ok && e.IsPlaceholder(), nil
}

// IsLocallyOwned implements storage.InstanceReader.
func (s *Store) IsLocallyOwned(_ context.Context, guid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[guid]
	return !ok || storage.IsLocal(&e, s.localID), nil
}

// PutTypeDefs implements storage.Writer.
func (s *Store) PutTypeDefs(_ context.Context, defs source.TypeDefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range defs.EntityDefs {
		s.entityDefs[d.Name] = d
	}
	for _, d := range defs.ClassificationDefs {
		s.classifications[d.Name] = d
	}
	for _, d := range defs.RelationshipDefs {
		s.relationDefs[d.Name] = d
	}
	for _, d := range defs.EnumDefs {
		s.enumDefs[d.Name] = d
	}
	return nil
}

// PutEntity implements storage.Writer.
func (s *Store) PutEntity(_ context.Context, entity *source.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.GUID] = *entity
	return nil
}

// PutRelationship implements storage.Writer.
func (s *Store) PutRelationship(_ context.Context, rel *source.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relationships[rel.GUID] = *rel
	return nil
}

// DeleteEntity implements storage.Writer.
func (s *Store) DeleteEntity(_ context.Context, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities, guid)
	return nil
}
