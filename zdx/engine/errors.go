// Copyright (c) 2025 Zen Data Explorer
// This code is licensed under the MIT license (see LICENSE.txt for details)

package engine

import "errors"

// error kinds: translated to http status by the service boundary
type errKind int

const (
	errInvalid     errKind = iota + 1 // bad request shape, unknown column, coercion failure
	errNotFound                       // unknown dataset, column or import session
	errUnsupported                    // file format outside of the allow list
)

// Error is engine operation failure with a kind attached
type Error struct {
	kind errKind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// NewInvalid return invalid request error
func NewInvalid(msg string) error { return &Error{kind: errInvalid, msg: msg} }

// NewNotFound return not found error
func NewNotFound(msg string) error { return &Error{kind: errNotFound, msg: msg} }

// NewUnsupported return unsupported input error
func NewUnsupported(msg string) error { return &Error{kind: errUnsupported, msg: msg} }

// IsInvalid return true if error is invalid request error
func IsInvalid(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == errInvalid
}

// IsNotFound return true if error is not found error
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == errNotFound
}

// IsUnsupported return true if error is unsupported input error
func IsUnsupported(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == errUnsupported
}
