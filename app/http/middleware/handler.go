// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package middleware provides shared Gin middleware used by the
// coordinator's HTTP API.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"
	"github.com/sk-pkg/redis"
	"gorm.io/gorm"

	usermodel "github.com/leoscope/leoscope/app/model/user"
	userrepo "github.com/leoscope/leoscope/app/repository/user"
	"github.com/leoscope/leoscope/app/pkg/trace"
)

type (
	// Middleware groups all middleware factories used by routers.
	Middleware interface {
		// Auth resolves caller identity from the static-token or JWT
		// credential form (§4.7).
		Auth() gin.HandlerFunc

		// RequireRole aborts with Forbidden unless the resolved caller's
		// role rank is at least min.
		RequireRole(min usermodel.Role) gin.HandlerFunc

		// Cors adds CORS headers and handles preflight requests.
		Cors() gin.HandlerFunc

		// RequestLogger emits structured logs for incoming requests.
		RequestLogger() gin.HandlerFunc

		// SetTraceID attaches trace IDs to requests and responses.
		SetTraceID() gin.HandlerFunc
	}

	// middleware is the default Middleware implementation.
	middleware struct {
		logger  *logger.Manager
		i18n    *i18n.Manager
		db      map[string]*gorm.DB
		redis   map[string]*redis.Manager
		traceID *trace.ID
		users   userrepo.Repo
	}
)

// ctx builds a request-scoped context carrying the trace ID, the same
// pattern every HTTP controller uses.
func (m middleware) ctx(c *gin.Context) context.Context {
	traceID, exists := c.Get("trace_id")
	if !exists {
		traceID = m.traceID.New()
	}
	return context.WithValue(context.Background(), logger.TraceIDKey, traceID.(string))
}

// New creates a middleware factory with shared runtime dependencies.
func New(logger *logger.Manager, i18n *i18n.Manager, db map[string]*gorm.DB, redis map[string]*redis.Manager, traceID *trace.ID, users userrepo.Repo) Middleware {
	return &middleware{logger: logger, i18n: i18n, db: db, redis: redis, traceID: traceID, users: users}
}
