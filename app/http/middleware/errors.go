// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"errors"

	"github.com/leoscope/leoscope/app/pkg/e"
)

var (
	errMissingCredentials = errors.New("middleware: missing x-userid/x-access-token or x-jwt")
	errBadCredentials      = errors.New("middleware: invalid credentials")
	errInsufficientRole    = errors.New("middleware: caller role does not meet the required minimum")
)

func (m middleware) unauthenticatedCode() int {
	return int(e.Unauthenticated)
}

func (m middleware) forbiddenCode() int {
	return int(e.Forbidden)
}
