// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package run provides HTTP handlers for run lifecycle reporting and
// lookup (update_run, get_runs, get_scheduled_runs — §4.3, §4.4).
package run

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/http/callerctx"
	runmodel "github.com/leoscope/leoscope/app/model/run"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

var errNotRunOwner = errors.New("run: caller's node does not own this run")

type (
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Create() gin.HandlerFunc
		Update() gin.HandlerFunc
		List() gin.HandlerFunc
		Scheduled() gin.HandlerFunc
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

// New creates a run HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

type createParams struct {
	ID      string `json:"id" binding:"required"`
	JobID   string `json:"job_id" binding:"required"`
	NodeID  string `json:"node_id" binding:"required"`
	OwnerID string `json:"owner_id" binding:"required"`
	StartTS int64  `json:"start_ts" binding:"required"`
}

// Create handles the executor's deploy-phase run creation (§4.4 step 1).
// Not named in §4.3's external interface list since it is an internal
// detail of how the executor materializes a run, but it is the only way
// a run row comes to exist before update_run can advance it.
func (h handler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params createParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.CreateRun(h.ctx(c), &runmodel.Run{
				ID:      params.ID,
				JobID:   params.JobID,
				NodeID:  params.NodeID,
				OwnerID: params.OwnerID,
				StartTS: params.StartTS,
			})
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

type updateParams struct {
	Status        runmodel.Status `json:"status" binding:"required"`
	StatusMessage string          `json:"status_message"`
	EndTS         *int64          `json:"end_ts"`
	ArtifactURL   string          `json:"artifact_url"`
}

// Update handles update_run: accepted only from the node that owns the
// run's node_id (§4.3).
func (h handler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		existing, err := h.svc.Runs.Get(h.ctx(c), id)
		if err != nil {
			h.i18n.JSON(c, int(e.NotFound), nil, err)
			return
		}
		if existing.NodeID != callerctx.ID(c) {
			h.i18n.JSON(c, int(e.Forbidden), nil, errNotRunOwner)
			return
		}

		var params updateParams
		errCode := int(e.InvalidParams)
		err = c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.UpdateRun(h.ctx(c), id, params.Status, params.StatusMessage, params.EndTS, params.ArtifactURL)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

// List handles get_runs.
func (h handler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := h.svc.GetRuns(h.ctx(c), c.Query("job_id"), c.Query("node_id"), c.Query("owner_id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), runs, err)
	}
}

// Scheduled handles get_scheduled_runs.
func (h handler) Scheduled() gin.HandlerFunc {
	return func(c *gin.Context) {
		runs, err := h.svc.GetScheduledRuns(h.ctx(c), c.Query("job_id"), c.Query("node_id"), c.Query("owner_id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), runs, err)
	}
}
