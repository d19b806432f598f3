// Package catalog keeps the translated target types the bridge has seen.
//
// The catalog is loaded from the source store at startup and extended on
// demand when a notification names a type that appeared later. Each source
// type is translated once, after the types it depends on (supertypes,
// relationship end types, enumerations used by attributes), so links to
// non-reserved types carry their GUIDs.
//
// A Catalog is a translator.TypeLookup: it answers by source name and by
// target name.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/storage"
	"github.com/planetf1/atlas-sub002/translator"
	"github.com/planetf1/atlas-sub002/types/omrs"
	"github.com/planetf1/atlas-sub002/types/source"
	"github.com/planetf1/atlas-sub002/vocabulary"
)

// Catalog is safe for concurrent use.
type Catalog struct {
	store      storage.TypeReader
	translator *translator.TypeDefTranslator
	logger     *slog.Logger

	mu     sync.RWMutex
	byName map[string]omrs.TypeDef
	guids  map[string]string // source name -> target GUID
	enums  map[string]bool
}

var _ translator.TypeLookup = (*Catalog)(nil)

// New creates an empty catalog reading from store and substituting names
// through registry.
func New(store storage.TypeReader, registry *vocabulary.Registry, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		store:  store,
		logger: logger.With("component", "catalog"),
		byName: make(map[string]omrs.TypeDef),
		guids:  make(map[string]string),
		enums:  make(map[string]bool),
	}
	c.translator = translator.NewTypeDefTranslator(registry,
		translator.WithGUIDLookup(c.guidOf),
		translator.WithEnumLookup(c.isEnum),
	)
	return c
}

// Translator returns the type translator the catalog uses.
func (c *Catalog) Translator() *translator.TypeDefTranslator {
	return c.translator
}

// TypeByName implements translator.TypeLookup.
func (c *Catalog) TypeByName(name string) (omrs.TypeDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.byName[name]
	return def, ok
}

// Len returns the number of translated types.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for name, def := range c.byName {
		if def.Header().Name == name {
			n++
		}
	}
	return n
}

// Names returns the target names of the translated types, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for name, def := range c.byName {
		if def.Header().Name == name {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) guidOf(sourceName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	guid, ok := c.guids[sourceName]
	return guid, ok && guid != ""
}

func (c *Catalog) isEnum(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enums[name]
}

// LoadReport summarises a Load.
type LoadReport struct {
	Loaded int
	// Rejected maps a source type name to the data error that kept it out of
	// the catalog.
	Rejected map[string]error
}

// Load translates every type in the store. Types whose definitions are
// rejected by the translator are reported, not fatal; a storage failure
// aborts the load and is returned.
func (c *Catalog) Load(ctx context.Context) (*LoadReport, error) {
	names, err := c.store.TypeDefNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "Catalog", "Load", "list type names")
	}

	report := &LoadReport{Rejected: make(map[string]error)}
	for _, name := range names {
		_, err := c.ensure(ctx, name, map[string]bool{})
		switch {
		case err == nil:
			report.Loaded++
		case errors.IsInvalid(err):
			report.Rejected[name] = err
			c.logger.Warn("Type rejected", "type", name, "kind", errors.Kind(err), "error", err)
		default:
			return report, errors.Wrap(err, "Catalog", "Load", fmt.Sprintf("load type %s", name))
		}
	}
	c.logger.Info("Type catalog loaded", "types", report.Loaded, "rejected", len(report.Rejected))
	return report, nil
}

// Ensure returns the target type for a source type name, translating it and
// its dependencies on first use. A name the store does not know fails with
// errors.ErrUnknownType. Enumerations are recorded but have no target type
// definition, so ensuring one returns (nil, nil).
func (c *Catalog) Ensure(ctx context.Context, name string) (omrs.TypeDef, error) {
	return c.ensure(ctx, name, map[string]bool{})
}

// EnsureEntity makes the type of entity and the types of its
// classifications available, and returns the entity type.
func (c *Catalog) EnsureEntity(ctx context.Context, entity *source.Entity) (*omrs.EntityDef, error) {
	def, err := c.Ensure(ctx, entity.TypeName)
	if err != nil {
		return nil, err
	}
	ed, ok := def.(*omrs.EntityDef)
	if !ok {
		return nil, errors.Invalidf(errors.ErrUnknownType, "Catalog", "EnsureEntity",
			"%q is not an entity type", entity.TypeName)
	}
	for _, cl := range entity.Classifications {
		if _, err := c.Ensure(ctx, cl.TypeName); err != nil {
			if errors.Is(err, errors.ErrUnknownType) {
				return nil, errors.Invalidf(errors.ErrUnknownClassification, "Catalog", "EnsureEntity",
					"entity %s: classification %q", entity.GUID, cl.TypeName)
			}
			return nil, err
		}
	}
	return ed, nil
}

// EnsureRelationship makes the type of rel available. End entity types are
// loaded along with it.
func (c *Catalog) EnsureRelationship(ctx context.Context, rel *source.Relationship) error {
	_, err := c.Ensure(ctx, rel.TypeName)
	return err
}

// EndResolver returns a resolver that reads relationship ends from r and
// makes their types available. A missing end fails with
// errors.ErrEntityNotKnown.
func (c *Catalog) EndResolver(r storage.InstanceReader) translator.EndResolver {
	return func(ctx context.Context, ref source.ObjectID) (*source.Entity, error) {
		entity, err := r.Entity(ctx, ref.GUID)
		if err != nil {
			if errors.Is(err, errors.ErrKeyNotFound) {
				return nil, errors.Invalidf(errors.ErrEntityNotKnown, "Catalog", "EndResolver",
					"entity %s of type %q", ref.GUID, ref.TypeName)
			}
			return nil, errors.Wrap(err, "Catalog", "EndResolver", "read end entity")
		}
		if _, err := c.EnsureEntity(ctx, entity); err != nil {
			return nil, err
		}
		return entity, nil
	}
}

// TypeLink returns the link of a source type without translating it. Used
// when only the identity of a type is needed.
func (c *Catalog) TypeLink(ctx context.Context, name string) (omrs.TypeDefLink, error) {
	if def, ok := c.TypeByName(name); ok {
		return def.Link(), nil
	}

	link := c.translator.Registry().Resolve(name)
	if link.GUID != "" {
		return link, nil
	}
	h, err := c.store.TypeDefByName(ctx, name)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return omrs.TypeDefLink{}, errors.Invalidf(errors.ErrUnknownType, "Catalog", "TypeLink", "type %q", name)
		}
		return omrs.TypeDefLink{}, errors.Wrap(err, "Catalog", "TypeLink", "read type header")
	}
	link.GUID = h.GUID
	return link, nil
}

// Forget drops a type so the next Ensure translates it again.
func (c *Catalog) Forget(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	def, ok := c.byName[name]
	if !ok {
		delete(c.enums, name)
		delete(c.guids, name)
		return
	}
	for alias, d := range c.byName {
		if d == def {
			delete(c.byName, alias)
			delete(c.guids, alias)
		}
	}
}

func (c *Catalog) ensure(ctx context.Context, name string, visiting map[string]bool) (omrs.TypeDef, error) {
	if def, ok := c.TypeByName(name); ok {
		return def, nil
	}
	if c.isEnum(name) {
		return nil, nil
	}
	if visiting[name] {
		// A dependency cycle; the caller's link to this type keeps only the
		// name until the cycle completes.
		return nil, nil
	}
	visiting[name] = true

	h, err := c.store.TypeDefByName(ctx, name)
	if err != nil {
		if errors.Is(err, errors.ErrKeyNotFound) {
			return nil, errors.Invalidf(errors.ErrUnknownType, "Catalog", "Ensure", "type %q", name)
		}
		return nil, errors.Wrap(err, "Catalog", "Ensure", "read type header")
	}

	var def omrs.TypeDef
	switch h.Category {
	case source.CategoryEnum:
		c.mu.Lock()
		c.enums[name] = true
		c.guids[name] = h.GUID
		c.mu.Unlock()
		return nil, nil

	case source.CategoryEntity:
		sd, err := c.store.EntityDef(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, "Catalog", "Ensure", "read entity type")
		}
		if err := c.dependencies(ctx, &sd.TypeDefHeader, nil, visiting); err != nil {
			return nil, err
		}
		if def, err = c.translator.TranslateEntityType(sd); err != nil {
			return nil, err
		}

	case source.CategoryClassification:
		sd, err := c.store.ClassificationDef(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, "Catalog", "Ensure", "read classification type")
		}
		if err := c.dependencies(ctx, &sd.TypeDefHeader, sd.EntityTypes, visiting); err != nil {
			return nil, err
		}
		if def, err = c.translator.TranslateClassificationType(sd); err != nil {
			return nil, err
		}

	case source.CategoryRelationship:
		sd, err := c.store.RelationshipDef(ctx, name)
		if err != nil {
			return nil, errors.Wrap(err, "Catalog", "Ensure", "read relationship type")
		}
		var ends []string
		for _, end := range []*source.RelationshipEndDef{sd.EndDef1, sd.EndDef2} {
			if end != nil && end.Type != "" {
				ends = append(ends, end.Type)
			}
		}
		if err := c.dependencies(ctx, &sd.TypeDefHeader, ends, visiting); err != nil {
			return nil, err
		}
		if def, err = c.translator.TranslateRelationshipType(sd); err != nil {
			return nil, err
		}

	default:
		return nil, errors.Invalidf(errors.ErrUnknownType, "Catalog", "Ensure",
			"type %q has unsupported category %q", name, h.Category)
	}

	c.add(name, def)
	c.logger.Debug("Type translated", "source", name, "target", def.Header().Name, "guid", def.Header().GUID)
	return def, nil
}

// dependencies ensures the supertypes, extra types and attribute types a
// definition refers to. Unknown names are left for the translator, which
// links them by name only.
func (c *Catalog) dependencies(ctx context.Context, h *source.TypeDefHeader, extra []string, visiting map[string]bool) error {
	names := append([]string{}, h.SuperTypes...)
	names = append(names, extra...)
	for _, attr := range h.AttributeDefs {
		names = append(names, translator.ReferencedTypes(attr.TypeName)...)
	}
	for _, n := range names {
		if n == h.Name {
			continue
		}
		if _, err := c.ensure(ctx, n, visiting); err != nil && !errors.Is(err, errors.ErrUnknownType) {
			if errors.IsInvalid(err) {
				c.logger.Debug("Dependency rejected", "type", h.Name, "dependency", n, "error", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (c *Catalog) add(sourceName string, def omrs.TypeDef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := def.Header()
	c.byName[h.Name] = def
	c.byName[sourceName] = def
	c.guids[sourceName] = h.GUID
}
