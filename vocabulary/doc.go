// Package vocabulary holds the name substitution rules between the source
// type system and the target type system.
//
// The target type system already defines a handful of foundational types
// (Referenceable, Asset, DataSet, Infrastructure, Process). The source store
// ships its own types with the same names, so when a source type with one of
// those names crosses the bridge it is renamed with a prefix:
//
//	Referenceable  ->  OM_Referenceable
//	Asset          ->  OM_Asset
//
// The identifier of a renamed type is chosen once, on first use, and then
// stays fixed for the lifetime of the Registry. Every translator shares one
// Registry built at process start:
//
//	reg := vocabulary.NewRegistry()
//	link := reg.Resolve("Referenceable") // {Name: "OM_Referenceable", GUID: <stable id>}
//	link = reg.Resolve("Document")       // {Name: "Document"}
//
// A startup type load that finds a renamed type already present in the store
// records its identifier with Preload so that later resolutions agree with
// the store.
//
// Registry is safe for concurrent use. Concurrent first use of a reserved
// name produces exactly one identifier.
package vocabulary
