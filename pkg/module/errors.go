package module

import (
	"fmt"
	"net/http"
)

// BuildErrorKind identifies the namespace in which a pipeline construction
// failure occurred.
type BuildErrorKind int

const (
	// ConfigKeyCollision means two modules claimed the same top-level
	// configuration key.
	ConfigKeyCollision BuildErrorKind = iota

	// FlagCollision means two modules declared the same long flag name.
	FlagCollision

	// ShorthandCollision means two modules declared the same one-letter
	// flag shorthand.
	ShorthandCollision

	// DuplicateModule means two modules in the same pipeline share a name.
	DuplicateModule
)

// String returns a short description of the collision namespace.
func (k BuildErrorKind) String() string {
	switch k {
	case ConfigKeyCollision:
		return "configuration key"
	case FlagCollision:
		return "flag"
	case ShorthandCollision:
		return "flag shorthand"
	case DuplicateModule:
		return "module name"
	default:
		return "unknown"
	}
}

// BuildError reports a pipeline construction failure. Construction failures
// are fatal: the pipeline cannot be assembled and the error is surfaced
// immediately, never retried.
type BuildError struct {
	// Kind is the namespace that collided.
	Kind BuildErrorKind

	// Name is the colliding configuration key, flag name, or module name.
	Name string

	// First and Second are the modules that both claimed Name, in
	// pipeline order.
	First  string
	Second string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Kind == DuplicateModule {
		return fmt.Sprintf("duplicate module name %q in pipeline", e.Name)
	}
	return fmt.Sprintf("%s collision: %q is claimed by both module %q and module %q",
		e.Kind, e.Name, e.First, e.Second)
}

// ShapeError reports that two fragments of different shapes were handed to
// a merge. This is a programming error, not a runtime condition: fragments
// only ever merge with fragments produced by the same module.
type ShapeError struct {
	// Want and Got are the Go type names of the expected and actual
	// fragment.
	Want string
	Got  string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("configuration shape mismatch: want %s, got %s", e.Want, e.Got)
}

// SameShape asserts that override has the concrete fragment type F.
// Fragment implementations call it at the top of Merge; a mismatch is
// reported as *ShapeError.
func SameShape[F Fragment](override Fragment) (F, error) {
	f, ok := override.(F)
	if !ok {
		var want F
		return f, &ShapeError{
			Want: fmt.Sprintf("%T", want),
			Got:  fmt.Sprintf("%T", override),
		}
	}
	return f, nil
}

// RequestError is a filter failure that maps to a specific HTTP status.
// The server turns filter errors that are not RequestErrors into plain 500
// responses, so modules wrap anything the client should be able to tell
// apart.
type RequestError struct {
	// Status is the HTTP status code to answer with.
	Status int

	// Message is the client-visible error text. If empty, the standard
	// status text is used.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// NewRequestError returns a RequestError with the given status and a
// formatted client-visible message.
func NewRequestError(status int, format string, args ...any) *RequestError {
	return &RequestError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Err
}
