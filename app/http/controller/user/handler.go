// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package user provides HTTP handlers for user registration and management
// (register_user, modify_user, delete_user — §4.3).
package user

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/service/coordinator"
)

type (
	// Handler defines HTTP handlers for user management.
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Register() gin.HandlerFunc
		Modify() gin.HandlerFunc
		Delete() gin.HandlerFunc
	}

	handler struct {
		logger *logger.Manager
		i18n   *i18n.Manager
		svc    *coordinator.Service
	}
)

func (h handler) i() {}

func (h handler) ctx(c *gin.Context) context.Context {
	traceID, _ := c.Get("trace_id")
	id, _ := traceID.(string)
	return context.WithValue(context.Background(), logger.TraceIDKey, id)
}

// New creates a user HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}
