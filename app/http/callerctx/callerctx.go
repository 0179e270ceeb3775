// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package callerctx reads the (caller_id, caller_role) pair the Auth
// middleware sets into the Gin context (§4.7), so controllers can apply
// the record-level ownership checks the role table in §6 calls out
// ("owner or ADMIN", "NODE owning the run") beyond the coarse role-rank
// gate already enforced by middleware.RequireRole.
package callerctx

import (
	"github.com/gin-gonic/gin"

	usermodel "github.com/leoscope/leoscope/app/model/user"
)

// ID returns the authenticated caller's user id.
func ID(c *gin.Context) string {
	v, _ := c.Get("caller_id")
	id, _ := v.(string)
	return id
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) usermodel.Role {
	v, _ := c.Get("caller_role")
	role, _ := v.(usermodel.Role)
	return role
}

// OwnsOrAdmin reports whether the caller is either the named owner or an
// ADMIN — the "owner or ADMIN" shape used by delete_job_by_id.
func OwnsOrAdmin(c *gin.Context, ownerID string) bool {
	return ID(c) == ownerID || Role(c) == usermodel.RoleAdmin
}
