// Package translator converts source type definitions and instances into the
// target model.
//
// Three translators live here:
//
//   - TypeDefTranslator turns source entity, classification and relationship
//     type definitions into target type definitions. The target is
//     single-inheritance and swaps relationship end cardinality, so several
//     source shapes are rejected with typed errors (ErrAmbiguousSupertype,
//     ErrInvalidContainment, ErrMalformedType).
//   - InstanceMapper projects one source entity into the three target
//     projections: summary, detail and proxy.
//   - RelationshipTranslator converts a source relationship and projects both
//     of its ends as proxies.
//
// Translators hold no mutable state of their own. Reserved type names are
// substituted through a shared vocabulary.Registry, and already translated
// types are found through a TypeLookup (normally the catalog package). All
// of them are safe for concurrent use and return fresh values on every call.
//
// Every failure is a deterministic data error from the errors package. Callers
// check the kind with errors.Is and must not retry.
package translator
