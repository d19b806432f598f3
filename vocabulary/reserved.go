package vocabulary

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/planetf1/atlas-sub002/errors"
	"github.com/planetf1/atlas-sub002/types/omrs"
)

const (
	// DefaultPrefix is prepended to reserved names.
	DefaultPrefix = "OM"
	// Separator joins the prefix and the original name.
	Separator = "_"
)

// reservedNames is the closed set of foundational names the target already
// defines.
var reservedNames = map[string]struct{}{
	"Referenceable":  {},
	"Asset":          {},
	"DataSet":        {},
	"Infrastructure": {},
	"Process":        {},
}

// ReservedNames returns the reserved names in sorted order.
func ReservedNames() []string {
	names := make([]string, 0, len(reservedNames))
	for name := range reservedNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsReservedName reports whether name is one of the reserved names.
func IsReservedName(name string) bool {
	_, ok := reservedNames[name]
	return ok
}

// Registry maps reserved source names to their substituted target identity.
type Registry struct {
	prefix string
	newID  func() string

	mu    sync.RWMutex
	ids   map[string]string // reserved name -> id
	names map[string]string // id -> reserved name
}

// Option configures a Registry.
type Option func(*Registry)

// WithPrefix overrides the substitution prefix.
func WithPrefix(prefix string) Option {
	return func(r *Registry) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithIDGenerator overrides how identifiers are generated on first use.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		prefix: DefaultPrefix,
		newID:  func() string { return uuid.New().String() },
		ids:    make(map[string]string),
		names:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prefix returns the substitution prefix.
func (r *Registry) Prefix() string {
	return r.prefix
}

// IsReserved reports whether name is a reserved source name.
func (r *Registry) IsReserved(name string) bool {
	return IsReservedName(name)
}

// SubstituteName returns the target name for name without touching the
// identifier cache.
func (r *Registry) SubstituteName(name string) string {
	if !IsReservedName(name) {
		return name
	}
	return r.prefix + Separator + name
}

// IsSubstitute reports whether resolvedName is the substituted form of a
// reserved name.
func (r *Registry) IsSubstitute(resolvedName string) bool {
	_, ok := r.OriginalName(resolvedName)
	return ok
}

// OriginalName strips the substitution from resolvedName. It reports false
// when resolvedName is not a substitute.
func (r *Registry) OriginalName(resolvedName string) (string, bool) {
	name, found := strings.CutPrefix(resolvedName, r.prefix+Separator)
	if !found || !IsReservedName(name) {
		return "", false
	}
	return name, true
}

// Resolve returns the target identity for a source type name. Reserved names
// get their substituted name and a stable identifier, created on first use.
// Other names pass through with an empty GUID; the caller owns their GUID.
func (r *Registry) Resolve(name string) omrs.TypeDefLink {
	if !IsReservedName(name) {
		return omrs.TypeDefLink{Name: name}
	}
	return omrs.TypeDefLink{GUID: r.idFor(name), Name: r.prefix + Separator + name}
}

func (r *Registry) idFor(name string) string {
	r.mu.RLock()
	id, ok := r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	id = r.newID()
	r.ids[name] = id
	r.names[id] = name
	return id
}

// ReverseLookup returns the reserved source name cached under id.
func (r *Registry) ReverseLookup(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[id]
	return name, ok
}

// Preload records an identifier that already exists in the store for a
// reserved name. Preloading the same pair twice is a no-op; preloading a
// different identifier for a name already resolved is a logic error.
func (r *Registry) Preload(name, id string) error {
	if !IsReservedName(name) {
		return errors.Fatalf(errors.ErrLogic, "Registry", "Preload", "%q is not a reserved name", name)
	}
	if id == "" {
		return errors.Fatalf(errors.ErrLogic, "Registry", "Preload", "empty id for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.ids[name]; ok {
		if existing == id {
			return nil
		}
		return errors.Fatalf(errors.ErrLogic, "Registry", "Preload",
			"%q already resolved to %s, store has %s", name, existing, id)
	}
	if owner, ok := r.names[id]; ok {
		return errors.Fatalf(errors.ErrLogic, "Registry", "Preload",
			"id %s already assigned to %q", id, owner)
	}
	r.ids[name] = id
	r.names[id] = name
	return nil
}

// Snapshot returns a copy of the cached name to id assignments.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.ids))
	for k, v := range r.ids {
		out[k] = v
	}
	return out
}

// Reset drops every cached identifier. Intended for teardown in tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = make(map[string]string)
	r.names = make(map[string]string)
}
