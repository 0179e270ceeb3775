// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package config provides HTTP handlers for the singleton global config
// document and the kernel_access escape hatch (§4.3, §4.7).
package config

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
		Get() gin.HandlerFunc
		Update() gin.HandlerFunc
		KernelAccess() gin.HandlerFunc
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

// New creates a config HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

// Get handles get_config.
func (h handler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg, err := h.svc.GetConfig(h.ctx(c))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), cfg, err)
	}
}

type updateParams struct {
	Document string `json:"document"`
}

// Update handles update_global_config.
func (h handler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params updateParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.UpdateGlobalConfig(h.ctx(c), params.Document)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

type kernelAccessParams struct {
	Action string `json:"action" binding:"required"`
}

// KernelAccess handles kernel_access.
func (h handler) KernelAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params kernelAccessParams
		errCode := int(e.InvalidParams)
		var result string
		err := c.ShouldBindJSON(&params)
		if err == nil {
			result, err = h.svc.KernelAccess(h.ctx(c), params.Action)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, gin.H{"result": result}, err)
	}
}
