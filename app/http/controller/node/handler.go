// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package node provides HTTP handlers for node registration, listing, and
// heartbeat/scavenger reporting (§4.3, §4.6).
package node

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	nodemodel "github.com/leoscope/leoscope/app/model/node"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

type (
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Register() gin.HandlerFunc
		Update() gin.HandlerFunc
		Delete() gin.HandlerFunc
		List() gin.HandlerFunc
		Heartbeat() gin.HandlerFunc
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

// New creates a node HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

type registerParams struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Location    string  `json:"location"`
	Provider    string  `json:"provider"`
}

type registerResponse struct {
	*nodemodel.Node
	StaticToken string `json:"static_token"`
}

// Register handles register_node. Per §4.3 this creates both a nodes
// entry and a paired users entry with role NODE, and returns the freshly
// minted static token to the operator exactly once.
func (h handler) Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params registerParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)

		var data *registerResponse
		if err == nil {
			var n *nodemodel.Node
			var token string
			n, token, err = h.svc.RegisterNode(h.ctx(c), &nodemodel.Node{
				DisplayName: params.DisplayName,
				Lat:         params.Lat,
				Lon:         params.Lon,
				Location:    params.Location,
				Provider:    params.Provider,
			})
			errCode = int(apperr.CodeOf(err))
			if err == nil {
				data = &registerResponse{Node: n, StaticToken: token}
			}
		}

		h.i18n.JSON(c, errCode, data, err)
	}
}

// Update handles update_node.
func (h handler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var values map[string]interface{}
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&values)
		if err == nil {
			err = h.svc.UpdateNode(h.ctx(c), id, values)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

// Delete handles delete_node.
func (h handler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h.svc.DeleteNode(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), nil, err)
	}
}

// List handles get_nodes.
func (h handler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeSince, _ := strconv.ParseInt(c.Query("active_since_ts"), 10, 64)
		nodes, err := h.svc.GetNodes(h.ctx(c), c.Query("id"), c.Query("location"), activeSince)
		h.i18n.JSON(c, int(apperr.CodeOf(err)), nodes, err)
	}
}

type heartbeatParams struct {
	TS int64 `json:"ts" binding:"required"`
}

// Heartbeat handles report_heartbeat.
func (h handler) Heartbeat() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var params heartbeatParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.ReportHeartbeat(h.ctx(c), id, params.TS)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}
