// Package ogmerr defines the tagged error taxonomy surfaced by every
// layer of the OGM: registry, rules, serializer, builder, compiler,
// execution layer and facade all return *Error instead of bare errors.
package ogmerr

import "fmt"

// Kind classifies an error the way the facade's callers are expected to
// switch on it. Kinds are stable; messages are not.
type Kind string

const (
	// InvalidInput covers empty/missing ids, disallowed property shapes,
	// and reference cycles rejected before anything is sent to the driver.
	InvalidInput Kind = "InvalidInput"

	// NotFound covers missing entities and unresolved labels.
	NotFound Kind = "NotFound"

	// ConstraintViolation covers backend constraint rejections and
	// non-cascade deletes blocked by remaining relationships.
	ConstraintViolation Kind = "ConstraintViolation"

	// Unsupported covers operation-tree shapes the compiler cannot
	// translate to Cypher.
	Unsupported Kind = "Unsupported"

	// Serialization covers property type mismatches and polymorphism
	// that could not be resolved to a subtype of the requested type.
	Serialization Kind = "Serialization"

	// Transport covers driver I/O faults. Callers may retry; the OGM
	// does not retry automatically.
	Transport Kind = "Transport"

	// Cancelled covers a caller-provided context firing mid-operation.
	Cancelled Kind = "Cancelled"
)

// Error is the concrete error type returned across package boundaries.
// It generalizes the teacher's DomainError (Type/Code/Message/Cause) to
// the taxonomy above, dropping the HTTP status-code mapping — this
// module has no HTTP surface.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Details carries structured context (property name, requested type,
	// observed label, ...) for callers that want to log or branch on it
	// without parsing Message.
	Details map[string]any
}

// New creates an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and message context to an existing cause, preserving
// it for errors.Is/errors.As via Unwrap.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetail attaches a structured detail and returns the same error for
// chaining, mirroring the teacher's DomainError.WithDetail.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to reach the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, ogmerr.New(ogmerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind of err, or "" if err is not (or does not
// wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if asError(err, &e) {
		return e.Kind
	}
	return ""
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
