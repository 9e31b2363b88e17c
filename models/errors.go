package models

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is returned by every operation that can fail for a reason the caller
// should see. Message is safe to show to clients, Err is for logs only.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return newError(KindValidation, format, args...)
}

func Authenticationf(format string, args ...any) error {
	return newError(KindAuthentication, format, args...)
}

func Authorizationf(format string, args ...any) error {
	return newError(KindAuthorization, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

// StorageError wraps a failed key-value or blob operation.
func StorageError(op string, err error) error {
	return &Error{Kind: KindStorage, Message: "Storage error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the kind of err, or KindStorage for errors not created here.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
