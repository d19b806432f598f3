// Package errors provides the bridge's error classification, the sentinel
// error kinds raised by the translators and the dispatcher, and helpers for
// consistent "component.method: action failed" wrapping.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents deterministic data errors; never retried
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that stop the component
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Translation and instance errors. All of them are deterministic data errors:
// they are surfaced to the immediate caller and never retried.
var (
	ErrMalformedType         = errors.New("malformed type definition")
	ErrAmbiguousSupertype    = errors.New("ambiguous supertype")
	ErrInvalidContainment    = errors.New("invalid containment")
	ErrUnknownType           = errors.New("unknown type")
	ErrInvalidInstance       = errors.New("invalid instance")
	ErrUnknownClassification = errors.New("unknown classification")
	ErrEntityNotKnown        = errors.New("entity not known")
)

// Startup errors. They prevent a component from entering the running state.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrLogic         = errors.New("logic error")
)

// Lifecycle and infrastructure errors
var (
	ErrAlreadyStarted = errors.New("component already started")
	ErrNotStarted     = errors.New("component not started")
	ErrShuttingDown   = errors.New("component is shutting down")

	ErrNoConnection       = errors.New("no connection available")
	ErrConnectionLost     = errors.New("connection lost")
	ErrConnectionTimeout  = errors.New("connection timeout")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrKeyNotFound        = errors.New("key not found")

	ErrInvalidData        = errors.New("invalid data format")
	ErrUnsupportedVersion = errors.New("unsupported message version")

	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")
)

// dataErrors are the kinds that are always classified as invalid.
var dataErrors = []error{
	ErrMalformedType,
	ErrAmbiguousSupertype,
	ErrInvalidContainment,
	ErrUnknownType,
	ErrInvalidInstance,
	ErrUnknownClassification,
	ErrEntityNotKnown,
	ErrInvalidData,
	ErrUnsupportedVersion,
}

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsTransient checks if an error is transient and may be retried
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTransient
	}

	if errors.Is(err, ErrConnectionTimeout) ||
		errors.Is(err, ErrConnectionLost) ||
		errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"timeout", "connection", "unavailable", "temporary"} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsFatal checks if an error is fatal and should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrLogic)
}

// IsInvalid checks if an error is a deterministic data error
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	for _, target := range dataErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ErrorTransient
	case IsFatal(err):
		return ErrorFatal
	case IsInvalid(err):
		return ErrorInvalid
	default:
		return ErrorTransient
	}
}

// Kind returns a stable, low-cardinality label for the most specific bridge
// error kind found in the chain. Used as a metric label and log attribute.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrAmbiguousSupertype):
		return "ambiguous_supertype"
	case errors.Is(err, ErrInvalidContainment):
		return "invalid_containment"
	case errors.Is(err, ErrUnknownClassification):
		return "unknown_classification"
	case errors.Is(err, ErrEntityNotKnown):
		return "entity_not_known"
	case errors.Is(err, ErrMalformedType):
		return "malformed_type"
	case errors.Is(err, ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, ErrInvalidInstance):
		return "invalid_instance"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrInvalidData):
		return "invalid_data"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrLogic):
		return "logic"
	default:
		return Classify(err).String()
	}
}

func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapTransient wraps an error as transient with context
func WrapTransient(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTransient, wrappedErr, component, method, wrappedErr.Error())
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// Invalidf builds an invalid-class error of the given kind with a formatted
// detail message. The kind stays reachable through errors.Is.
func Invalidf(kind error, component, method, format string, args ...any) error {
	detail := fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
	return newClassified(ErrorInvalid, detail, component, method,
		fmt.Sprintf("%s.%s: %s", component, method, detail.Error()))
}

// Fatalf builds a fatal-class error of the given kind with a formatted detail
// message.
func Fatalf(kind error, component, method, format string, args ...any) error {
	detail := fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
	return newClassified(ErrorFatal, detail, component, method,
		fmt.Sprintf("%s.%s: %s", component, method, detail.Error()))
}

// Is reports whether any error in err's chain matches target.
// It mirrors the standard library so callers need a single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
