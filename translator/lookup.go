package translator

import (
	"sync"

	"github.com/planetf1/atlas-sub002/types/omrs"
)

// TypeLookup finds an already translated target type. Implementations accept
// both the source name and the target name of a type.
type TypeLookup interface {
	TypeByName(name string) (omrs.TypeDef, bool)
}

// StaticTypes is a TypeLookup over a fixed set of target types.
type StaticTypes struct {
	mu     sync.RWMutex
	byName map[string]omrs.TypeDef
}

// NewStaticTypes indexes defs by their target name.
func NewStaticTypes(defs ...omrs.TypeDef) *StaticTypes {
	s := &StaticTypes{byName: make(map[string]omrs.TypeDef, len(defs))}
	for _, def := range defs {
		s.Add(def)
	}
	return s
}

// Add indexes def by its target name and any extra aliases.
func (s *StaticTypes) Add(def omrs.TypeDef, aliases ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byName[def.Header().Name] = def
	for _, alias := range aliases {
		s.byName[alias] = def
	}
}

// TypeByName implements TypeLookup.
func (s *StaticTypes) TypeByName(name string) (omrs.TypeDef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	def, ok := s.byName[name]
	return def, ok
}

// AllAttributes returns the attributes of def followed by the inherited
// attributes of its supertype chain. A redeclared name keeps the most
// derived definition.
func AllAttributes(types TypeLookup, def omrs.TypeDef) []omrs.TypeDefAttribute {
	var out []omrs.TypeDefAttribute
	seen := make(map[string]bool)
	for _, d := range lineage(types, def) {
		for _, attr := range d.Header().Attributes {
			if seen[attr.Name] {
				continue
			}
			seen[attr.Name] = true
			out = append(out, attr)
		}
	}
	return out
}

// SuperTypeLinks returns the supertype chain of def, nearest first.
func SuperTypeLinks(types TypeLookup, def omrs.TypeDef) []omrs.TypeDefLink {
	chain := lineage(types, def)
	links := make([]omrs.TypeDefLink, 0, len(chain))
	for _, d := range chain[1:] {
		links = append(links, d.Link())
	}
	return links
}

// lineage walks def and its ancestors. A supertype that is not in types ends
// the walk; a cycle is cut at the first repeated name.
func lineage(types TypeLookup, def omrs.TypeDef) []omrs.TypeDef {
	chain := []omrs.TypeDef{def}
	visited := map[string]bool{def.Header().Name: true}
	for cur := def; cur.Header().SuperType != nil; {
		name := cur.Header().SuperType.Name
		if visited[name] || types == nil {
			break
		}
		next, ok := types.TypeByName(name)
		if !ok {
			break
		}
		visited[name] = true
		chain = append(chain, next)
		cur = next
	}
	return chain
}
