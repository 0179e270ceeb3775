// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package job provides HTTP handlers for job admission and lookup
// (schedule_job, reschedule_job_nearest, verify_trigger, get_job_by_id,
// get_jobs_by_nodeid, get_jobs_by_userid, delete_job_by_id — §4.1-4.3).
package job

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/http/callerctx"
	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

type (
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Schedule() gin.HandlerFunc
		RescheduleNearest() gin.HandlerFunc
		VerifyTrigger() gin.HandlerFunc
		Get() gin.HandlerFunc
		ByNode() gin.HandlerFunc
		ByOwner() gin.HandlerFunc
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

// New creates a job HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

var errNotOwner = errors.New("job: caller is neither the owner nor an admin")

type scheduleParams struct {
	JobID              string           `json:"job_id"`
	NodeID             string           `json:"node_id" binding:"required"`
	OwnerID            string           `json:"owner_id" binding:"required"`
	Kind               jobmodel.Kind    `json:"kind" binding:"required"`
	CronExpr           string           `json:"cron_expr"`
	OneShotAt          int64            `json:"one_shot_at"`
	ValidityStartTS    int64            `json:"validity_start_ts" binding:"required"`
	ValidityEndTS      int64            `json:"validity_end_ts" binding:"required"`
	LengthSecs         int64            `json:"length_secs" binding:"required"`
	Overhead           bool             `json:"overhead"`
	PairedServerNodeID string           `json:"paired_server_node_id"`
	Trigger            string           `json:"trigger"`
	Config             string           `json:"config"`
	Params             jobmodel.Params  `json:"params"`
}

// Schedule handles schedule_job.
func (h handler) Schedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params scheduleParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)

		var j *jobmodel.Job
		if err == nil {
			// §4.3: "owner recorded as caller" — the request body's owner_id,
			// if any, is ignored in favor of the authenticated caller.
			j, err = h.svc.ScheduleJob(h.ctx(c), coordinator.ScheduleJobParams{
				JobID:              params.JobID,
				NodeID:             params.NodeID,
				OwnerID:            callerctx.ID(c),
				Kind:               params.Kind,
				CronExpr:           params.CronExpr,
				OneShotAt:          params.OneShotAt,
				ValidityStartTS:    params.ValidityStartTS,
				ValidityEndTS:      params.ValidityEndTS,
				LengthSecs:         params.LengthSecs,
				Overhead:           params.Overhead,
				PairedServerNodeID: params.PairedServerNodeID,
				Trigger:            params.Trigger,
				Config:             params.Config,
				Params:             params.Params,
			})
			errCode = int(apperr.CodeOf(err))
		}

		var details interface{}
		if ae, ok := err.(*apperr.Error); ok {
			details = ae.Details
		}
		if details != nil {
			h.i18n.JSON(c, errCode, details, err)
			return
		}
		h.i18n.JSON(c, errCode, j, err)
	}
}

type rescheduleParams struct {
	After int64 `json:"after" binding:"required"`
}

// RescheduleNearest handles reschedule_job_nearest.
func (h handler) RescheduleNearest() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var params rescheduleParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)

		var j *jobmodel.Job
		if err == nil {
			j, err = h.svc.RescheduleJobNearest(h.ctx(c), id, params.After)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, j, err)
	}
}

type verifyTriggerParams struct {
	Trigger string `json:"trigger" binding:"required"`
}

// VerifyTrigger handles verify_trigger: parse-only, never evaluates.
func (h handler) VerifyTrigger() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params verifyTriggerParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = coordinator.VerifyTrigger(params.Trigger)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}

// Get handles get_job_by_id.
func (h handler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		j, err := h.svc.GetJobByID(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), j, err)
	}
}

// ByNode handles get_jobs_by_nodeid.
func (h handler) ByNode() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := h.svc.GetJobsByNodeID(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), jobs, err)
	}
}

// ByOwner handles get_jobs_by_userid.
func (h handler) ByOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobs, err := h.svc.GetJobsByUserID(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), jobs, err)
	}
}

// Delete handles delete_job_by_id: owner or ADMIN (§6).
func (h handler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		j, err := h.svc.GetJobByID(h.ctx(c), id)
		if err != nil {
			h.i18n.JSON(c, int(apperr.CodeOf(err)), nil, err)
			return
		}
		if !callerctx.OwnsOrAdmin(c, j.OwnerID) {
			h.i18n.JSON(c, int(e.Forbidden), nil, errNotOwner)
			return
		}

		err = h.svc.DeleteJobByID(h.ctx(c), id)
		h.i18n.JSON(c, int(apperr.CodeOf(err)), nil, err)
	}
}
