// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package task provides HTTP handlers for the client/server rendezvous
// operations (schedule_task, get_tasks, update_task — §4.5).
package task

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"

	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

type (
	Handler interface {
		i()
		ctx(c *gin.Context) context.Context
		Schedule() gin.HandlerFunc
		Get() gin.HandlerFunc
		ByNode() gin.HandlerFunc
		Update() gin.HandlerFunc
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

// New creates a task HTTP handler.
func New(logger *logger.Manager, i18n *i18n.Manager, svc *coordinator.Service) Handler {
	return &handler{logger: logger, i18n: i18n, svc: svc}
}

type scheduleParams struct {
	RunID   string        `json:"run_id" binding:"required"`
	JobID   string        `json:"job_id" binding:"required"`
	NodeID  string        `json:"node_id" binding:"required"`
	Kind    taskmodel.Kind `json:"kind" binding:"required"`
	TTLSecs int64         `json:"ttl_secs" binding:"required"`
}

// Schedule handles schedule_task.
func (h handler) Schedule() gin.HandlerFunc {
	return func(c *gin.Context) {
		var params scheduleParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)

		var t *taskmodel.Task
		if err == nil {
			t, err = h.svc.ScheduleTask(h.ctx(c), params.RunID, params.JobID, params.NodeID, params.Kind, params.TTLSecs, time.Now().Unix())
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, t, err)
	}
}

// Get handles get_task_by_id: the client side of rendezvous polling its
// own task, which may have been created under a different (paired
// server) node.
func (h handler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := h.svc.GetTaskByID(h.ctx(c), c.Param("id"))
		h.i18n.JSON(c, int(apperr.CodeOf(err)), t, err)
	}
}

// ByNode handles get_tasks: the server node's poll endpoint.
func (h handler) ByNode() gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := h.svc.GetTasks(h.ctx(c), c.Param("id"), time.Now().Unix())
		h.i18n.JSON(c, int(apperr.CodeOf(err)), tasks, err)
	}
}

type updateParams struct {
	Status taskmodel.Status `json:"status" binding:"required"`
}

// Update handles update_task.
func (h handler) Update() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var params updateParams
		errCode := int(e.InvalidParams)
		err := c.ShouldBindJSON(&params)
		if err == nil {
			err = h.svc.UpdateTask(h.ctx(c), id, params.Status)
			errCode = int(apperr.CodeOf(err))
		}
		h.i18n.JSON(c, errCode, nil, err)
	}
}
