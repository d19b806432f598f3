// Package errors provides error classification for the Atlas/OMRS bridge.
//
// # Classification
//
// Every error belongs to one of three classes:
//
//   - Transient: network timeouts, lost connections, storage briefly
//     unavailable. Only startup operations retry these.
//   - Invalid: deterministic data errors raised while translating types,
//     instances or notifications. They are surfaced to the caller and never
//     retried.
//   - Fatal: configuration or startup invariant violations. A component that
//     hits one does not enter the running state.
//
// # Bridge error kinds
//
// The translators and the dispatcher raise the following sentinels, always
// wrapped with component context:
//
//	ErrMalformedType          name, guid, version, ends or category missing
//	ErrAmbiguousSupertype     more than one distinct resolved supertype
//	ErrInvalidContainment     container end on an association
//	ErrUnknownType            type name not known to the target catalog
//	ErrInvalidInstance        missing version, unmapped status, placeholder detail
//	ErrUnknownClassification  classification name cannot be resolved
//	ErrEntityNotKnown         relationship end cannot be fetched
//	ErrConfiguration          bad configuration (fatal)
//	ErrLogic                  invariant violated at startup (fatal)
//
// Use Invalidf / Fatalf to raise a kind with a detail message, and errors.Is
// to test for it:
//
//	err := errors.Invalidf(errors.ErrMalformedType, "TypeDefTranslator",
//	    "TranslateEntityType", "type %q has no version", name)
//	if errors.Is(err, errors.ErrMalformedType) {
//	    // handle
//	}
//
// Kind(err) turns a chain into a stable metric label such as
// "ambiguous_supertype".
//
// # Wrapping
//
// Wrap follows the "component.method: action failed: %w" format. The
// WrapTransient, WrapInvalid and WrapFatal variants also set the class.
package errors
