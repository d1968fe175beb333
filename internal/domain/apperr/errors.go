// Package apperr defines the error kinds shared by the estimation pipeline,
// the account/video use cases and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInternal           Kind = "internal"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindDecode             Kind = "decode"
	KindShape              Kind = "shape"
	KindShapeMismatch      Kind = "shape_mismatch"
	KindEmptyResult        Kind = "empty_result"
	KindExternalModel      Kind = "external_model"
	KindTimeout            Kind = "timeout"
	KindDependency         Kind = "dependency"
)

// Error carries a kind, the failing operation, a client-safe message and
// the underlying cause, which is only ever logged.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind so that errors.Is(err, apperr.ErrEmptyResult) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Kind == e.Kind
}

// Sentinels usable with errors.Is.
var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrConflict           = &Error{Kind: KindConflict}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrDecode             = &Error{Kind: KindDecode}
	ErrShape              = &Error{Kind: KindShape}
	ErrShapeMismatch      = &Error{Kind: KindShapeMismatch}
	ErrEmptyResult        = &Error{Kind: KindEmptyResult}
	ErrExternalModel      = &Error{Kind: KindExternalModel}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrDependency         = &Error{Kind: KindDependency}
)

func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

func Wrap(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

func Validation(op, msg string) *Error { return New(KindValidation, op, msg) }

func NotFound(op, msg string) *Error { return New(KindNotFound, op, msg) }

func Conflict(op, msg string) *Error { return New(KindConflict, op, msg) }

func InvalidCredentials(op string) *Error {
	return New(KindInvalidCredentials, op, "invalid username or password")
}

func Decode(op string, err error) *Error {
	return Wrap(KindDecode, op, "video could not be decoded", err)
}

func Shape(op, msg string) *Error { return New(KindShape, op, msg) }

func ShapeMismatch(op string, got, want int) *Error {
	return New(KindShapeMismatch, op, fmt.Sprintf("feature width %d does not match model input width %d", got, want))
}

func EmptyResult(op string) *Error {
	return New(KindEmptyResult, op, "no frame contained a detectable pose")
}

func ExternalModel(op string, err error) *Error {
	return Wrap(KindExternalModel, op, "model invocation failed", err)
}

func Timeout(op string, err error) *Error {
	return Wrap(KindTimeout, op, "processing timed out", err)
}

func Dependency(op string, err error) *Error {
	return Wrap(KindDependency, op, "backend dependency unavailable", err)
}

func Internal(op string, err error) *Error {
	return Wrap(KindInternal, op, "internal error", err)
}

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

// Permanent reports whether retrying the same input cannot succeed.
func Permanent(err error) bool {
	switch KindOf(err) {
	case KindDependency, KindInternal, KindTimeout:
		return false
	default:
		return true
	}
}
