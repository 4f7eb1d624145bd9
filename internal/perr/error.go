package perr

import (
	"errors"
	"fmt"
	"strings"
)

// Error is the single structured error type loopoly returns from its
// public API. Kind selects which of spec.md §7's six error kinds this
// is; the remaining fields are kind-specific detail used by Render and
// by callers that want to branch on more than the kind.
type Error struct {
	Kind Kind

	// Entity names the offending IR entity (a Compute name, a tensor
	// name, an axis name) for MalformedIR/UnsupportedConstruct.
	Entity string

	// Literal carries the failing polyhedral set/map text for
	// PolyhedralFailure.
	Literal string

	// Axes carries the offending band-member axes for IllegalTiling.
	Axes []string

	Message string

	// Wrapped is the underlying error, if any (e.g. the polyhedral
	// engine's own error for PolyhedralFailure).
	Wrapped error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Entity != "" {
		fmt.Fprintf(&b, " (%s)", e.Entity)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Axes) > 0 {
		fmt.Fprintf(&b, " [axes: %s]", strings.Join(e.Axes, ", "))
	}
	if e.Literal != "" {
		fmt.Fprintf(&b, " [literal: %s]", e.Literal)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is a *Error with the same Kind, letting
// callers write errors.Is(err, perr.New(perr.IllegalTiling, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error carrying only a kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Malformed constructs a MalformedIR error naming the offending entity.
func Malformed(entity, message string) *Error {
	return &Error{Kind: MalformedIR, Entity: entity, Message: message}
}

// Unsupported constructs an UnsupportedConstruct error naming the
// offending entity.
func Unsupported(entity, message string) *Error {
	return &Error{Kind: UnsupportedConstruct, Entity: entity, Message: message}
}

// AffinityViolation constructs an Affinity-kind error. Callers in
// internal/access and internal/affine use this internally to signal a
// dropped access pair; it must never escape Compile.
func AffinityViolation(message string) *Error {
	return &Error{Kind: Affinity, Message: message}
}

// Polyhedral wraps an underlying polyhedral-engine failure together
// with the literal that failed to parse or evaluate.
func Polyhedral(literal string, cause error) *Error {
	msg := "polyhedral engine failure"
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: PolyhedralFailure, Literal: literal, Message: msg, Wrapped: cause}
}

// IllegalTilingError constructs an IllegalTiling error naming the
// offending axes and a human-readable description of each violation.
func IllegalTilingError(axes []string, message string) *Error {
	return &Error{Kind: IllegalTiling, Axes: axes, Message: message}
}

// Fusion constructs a FusionFailure error.
func Fusion(message string) *Error {
	return &Error{Kind: FusionFailure, Message: message}
}

// IsAffinity reports whether err is an Affinity-kind *Error.
func IsAffinity(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == Affinity
}
