// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package scavenger provides HTTP handlers for set_scavenger/get_scavenger
// (§4.3, §4.6 step 4).
package scavenger

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

type (
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Set() gin.HandlerFunc
		Get() gin.HandlerFunc
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

// New creates a scavenger HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

type setParams struct {
	Active bool `json:"active"`
}

// Set handles set_scavenger.
func (h handler) Set() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var params setParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.SetScavenger(h.ctx(c), id, params.Active)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

// Get handles get_scavenger.
func (h handler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := h.svc.GetScavenger(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), gin.H{"active": active}, err)
	}
}
