// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/gin-gonic/gin"

	apiJWT "github.com/leoscope/leoscope/app/pkg/jwt"
	usermodel "github.com/leoscope/leoscope/app/model/user"
)

// Auth resolves (caller_id, caller_role) from one of the two credential
// forms named in §4.7: a static (x-userid, x-access-token) pair, or a
// signed x-jwt. When x-jwt is present it alone decides: an invalid signed
// token aborts the request even if a static pair is also sent. Otherwise
// both x-userid and x-access-token are required and must match; any
// failure aborts the request with Unauthenticated.
func (m middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtToken := c.GetHeader("x-jwt"); jwtToken != "" {
			claims, err := apiJWT.ParseUserToken(jwtToken)
			if err != nil {
				m.i18n.JSON(c, m.unauthenticatedCode(), nil, err)
				c.Abort()
				return
			}
			c.Set("caller_id", claims.UserID)
			c.Set("caller_role", claims.Role)
			c.Next()
			return
		}

		userID := c.GetHeader("x-userid")
		accessToken := c.GetHeader("x-access-token")
		if userID == "" || accessToken == "" {
			m.i18n.JSON(c, m.unauthenticatedCode(), nil, errMissingCredentials)
			c.Abort()
			return
		}

		u, err := m.users.Get(m.ctx(c), userID)
		if err != nil {
			m.i18n.JSON(c, m.unauthenticatedCode(), nil, err)
			c.Abort()
			return
		}

		if !constantTimeTokenMatch(u.StaticTokenHash, accessToken) {
			m.i18n.JSON(c, m.unauthenticatedCode(), nil, errBadCredentials)
			c.Abort()
			return
		}

		c.Set("caller_id", u.ID)
		c.Set("caller_role", u.Role)
		c.Next()
	}
}

// RequireRole returns middleware that aborts with Forbidden unless the
// caller resolved by Auth satisfies role rank >= min (§6's per-operation
// authorization table). It must run after Auth.
func (m middleware) RequireRole(min usermodel.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get("caller_role")
		if !exists {
			m.i18n.JSON(c, m.unauthenticatedCode(), nil, errMissingCredentials)
			c.Abort()
			return
		}

		role, _ := roleVal.(usermodel.Role)
		if !role.AtLeast(min) {
			m.i18n.JSON(c, m.forbiddenCode(), nil, errInsufficientRole)
			c.Abort()
			return
		}

		c.Next()
	}
}

func constantTimeTokenMatch(storedHash, candidate string) bool {
	sum := sha256.Sum256([]byte(candidate))
	candidateHash := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(candidateHash)) == 1
}
