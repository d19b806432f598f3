package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsInvalid_BridgeKinds(t *testing.T) {
	kinds := []error{
		ErrMalformedType,
		ErrAmbiguousSupertype,
		ErrInvalidContainment,
		ErrUnknownType,
		ErrInvalidInstance,
		ErrUnknownClassification,
		ErrEntityNotKnown,
	}

	for _, kind := range kinds {
		t.Run(kind.Error(), func(t *testing.T) {
			assert.True(t, IsInvalid(kind))
			assert.False(t, IsFatal(kind))

			wrapped := Invalidf(kind, "Translator", "Translate", "detail %d", 1)
			assert.True(t, errors.Is(wrapped, kind))
			assert.True(t, IsInvalid(wrapped))
			assert.Equal(t, ErrorInvalid, Classify(wrapped))
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"configuration", ErrConfiguration, true},
		{"logic", ErrLogic, true},
		{"wrapped configuration", fmt.Errorf("load: %w", ErrConfiguration), true},
		{"fatalf", Fatalf(ErrLogic, "Registry", "Preload", "id mismatch"), true},
		{"malformed type", ErrMalformedType, false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsFatal(test.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"storage unavailable", ErrStorageUnavailable, true},
		{"context deadline", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"timeout in message", fmt.Errorf("read timeout"), true},
		{"data error", ErrInvalidInstance, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{nil, "none"},
		{Invalidf(ErrAmbiguousSupertype, "c", "m", "x"), "ambiguous_supertype"},
		{Invalidf(ErrInvalidContainment, "c", "m", "x"), "invalid_containment"},
		{fmt.Errorf("%w: %w", ErrMalformedType, ErrUnknownType), "malformed_type"},
		{Invalidf(ErrUnknownType, "c", "m", "x"), "unknown_type"},
		{Invalidf(ErrUnknownClassification, "c", "m", "x"), "unknown_classification"},
		{Invalidf(ErrEntityNotKnown, "c", "m", "x"), "entity_not_known"},
		{Invalidf(ErrInvalidInstance, "c", "m", "x"), "invalid_instance"},
		{ErrUnsupportedVersion, "unsupported_version"},
		{Fatalf(ErrConfiguration, "c", "m", "x"), "configuration"},
		{ErrConnectionLost, "transient"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, Kind(test.err))
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")

	assert.Nil(t, Wrap(nil, "C", "M", "a"))
	assert.Nil(t, WrapInvalid(nil, "C", "M", "a"))

	wrapped := Wrap(base, "Consumer", "Start", "subscribe")
	assert.Equal(t, "Consumer.Start: subscribe failed: boom", wrapped.Error())
	assert.True(t, errors.Is(wrapped, base))

	fatal := WrapFatal(base, "Consumer", "Start", "subscribe")
	assert.True(t, IsFatal(fatal))
	assert.True(t, errors.Is(fatal, base))

	var ce *ClassifiedError
	assert.True(t, errors.As(fatal, &ce))
	assert.Equal(t, "Consumer", ce.Component)
	assert.Equal(t, "Start", ce.Operation)

	transient := WrapTransient(base, "Client", "Connect", "dial")
	assert.True(t, IsTransient(transient))
}

func TestInvalidf_Message(t *testing.T) {
	err := Invalidf(ErrMalformedType, "TypeDefTranslator", "TranslateEntityType", "type %q has no version", "Document")
	assert.Equal(t,
		`TypeDefTranslator.TranslateEntityType: malformed type definition: type "Document" has no version`,
		err.Error())
}
