package store

import (
	"errors"
	"fmt"
)

// Kind is the language-neutral error taxonomy from spec §7. The HTTP layer
// (out of scope here) maps these to status codes; the core never catches and
// swallows them.
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindConflict       Kind = "CONFLICT"
	KindValidation     Kind = "VALIDATION"
	KindForbidden      Kind = "FORBIDDEN"
	KindBrokenContract Kind = "BROKEN_CONTRACT"
	KindInternal       Kind = "INTERNAL"
)

// Error is the typed error the core surfaces to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func BrokenContract(err error) *Error {
	return &Error{Kind: KindBrokenContract, Message: "schema could not be parsed", Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal store failure", Err: err}
}

// Is enables errors.Is(err, store.NotFound("")) style kind checks by
// comparing Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsNotFound reports whether err is a *Error of Kind NOT_FOUND.
func IsNotFound(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == KindNotFound
}
