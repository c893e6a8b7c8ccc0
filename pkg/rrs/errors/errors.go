/*
 * MIT License
 *
 * (C) Copyright 2025 Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

// Package errors implements the RRS error taxonomy: a typed Error carrying
// a classification, a message, and an optional cause, plus a Code helper
// mapping each classification to the HTTP status the read API should return
// for it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Type classifies an RRS error by the failure mode it represents.
type Type string

// Taxonomy members.
const (
	ErrConfigMissing    Type = "config_missing"
	ErrNotFound         Type = "not_found"
	ErrTransient        Type = "transient"
	ErrCorrupt          Type = "corrupt"
	ErrBadRequest       Type = "bad_request"
	ErrConflict         Type = "conflict"
	ErrInternalFailure  Type = "internal_failure"
	ErrLockTimeout      Type = "lock_timeout"
)

// Error is RRS's typed error: a classification, a human message, and an
// optional wrapped cause.
type Error struct {
	Type    Type
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an Error of the given type.
func New(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

// NewConfigMissing builds a ConfigMissing error.
func NewConfigMissing(message string, cause error) *Error { return New(ErrConfigMissing, message, cause) }

// NewNotFound builds a NotFound error.
func NewNotFound(message string, cause error) *Error { return New(ErrNotFound, message, cause) }

// NewTransient builds a Transient error.
func NewTransient(message string, cause error) *Error { return New(ErrTransient, message, cause) }

// NewCorrupt builds a Corrupt error.
func NewCorrupt(message string, cause error) *Error { return New(ErrCorrupt, message, cause) }

// NewBadRequest builds a BadRequest error.
func NewBadRequest(message string, cause error) *Error { return New(ErrBadRequest, message, cause) }

// NewConflict builds a Conflict error.
func NewConflict(message string, cause error) *Error { return New(ErrConflict, message, cause) }

// NewInternalFailure builds an InternalFailure error.
func NewInternalFailure(message string, cause error) *Error {
	return New(ErrInternalFailure, message, cause)
}

// NewLockTimeout builds a LockTimeout error.
func NewLockTimeout(message string, cause error) *Error { return New(ErrLockTimeout, message, cause) }

// Code maps err to the HTTP status the read API should return. Errors that
// are not an *Error (or don't wrap one) are treated as 500.
func Code(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Type {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrBadRequest:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrConfigMissing, ErrCorrupt, ErrTransient, ErrInternalFailure, ErrLockTimeout:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Is reports whether err classifies as t.
func Is(err error, t Type) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == t
}
