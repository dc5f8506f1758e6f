package models

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid input")
	ErrStorage   = errors.New("storage failure")
	ErrCache     = errors.New("cache failure")
)

// Error annotates a kind with the operation that produced it and the
// underlying cause, if any.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NewError builds an *Error. err may be nil.
func NewError(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// NotFound reports that the entity referenced by op does not exist.
func NotFound(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrNotFound, Err: fmt.Errorf(format, args...)}
}

func Forbidden(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrForbidden, Err: fmt.Errorf(format, args...)}
}

func Invalid(op, format string, args ...any) error {
	return &Error{Op: op, Kind: ErrInvalid, Err: fmt.Errorf(format, args...)}
}

// Storage wraps a transport or backend failure.
func Storage(op string, err error) error {
	return &Error{Op: op, Kind: ErrStorage, Err: err}
}
