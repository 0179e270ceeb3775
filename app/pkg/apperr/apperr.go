// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package apperr is the structured error type every coordinator operation
// returns, carrying the e.Code the HTTP layer turns into a response
// envelope (§6, §7) instead of inspecting error strings.
package apperr

import (
	"fmt"

	"github.com/leoscope/leoscope/app/pkg/e"
)

// Error pairs an e.Code with a human-readable message and optional
// structured details (e.g. e.ConflictDetails for CONFLICT).
type Error struct {
	Code    e.Code
	Message string
	Details interface{}
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", err.Message, err.Code)
}

// Retryable reports true only for e.Unavailable: every other code is the
// decision outcome of a completed request (INVALID, CONFLICT, NOT_FOUND,
// ...), not a transient transport failure, so retry.Do must not retry them.
func (err *Error) Retryable() bool {
	return err.Code == e.Unavailable
}

// New builds an apperr.Error.
func New(code e.Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an apperr.Error with a formatted message.
func Newf(code e.Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details (e.g. ConflictDetails) to an
// existing error.
func WithDetails(code e.Code, message string, details interface{}) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// CodeOf extracts the e.Code from err, defaulting to e.ERROR for any error
// that isn't an *Error — the boundary between domain decisions and
// unexpected failures (database errors, etc).
func CodeOf(err error) e.Code {
	if err == nil {
		return e.SUCCESS
	}
	if ae, ok := err.(*Error); ok {
		return ae.Code
	}
	return e.ERROR
}
