// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package router wires HTTP route groups and registers controller handlers
// for the coordinator's external interface (§4.3, §6).
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sk-pkg/i18n"
	"github.com/sk-pkg/logger"
	"github.com/sk-pkg/redis"
	"gorm.io/gorm"

	"github.com/leoscope/leoscope/app/http/controller/config"
	"github.com/leoscope/leoscope/app/http/controller/job"
	"github.com/leoscope/leoscope/app/http/controller/node"
	"github.com/leoscope/leoscope/app/http/controller/run"
	"github.com/leoscope/leoscope/app/http/controller/scavenger"
	"github.com/leoscope/leoscope/app/http/controller/task"
	"github.com/leoscope/leoscope/app/http/controller/user"
	"github.com/leoscope/leoscope/app/http/middleware"
	usermodel "github.com/leoscope/leoscope/app/model/user"
	"github.com/leoscope/leoscope/app/service/coordinator"
)

// Core is the shared dependency container every controller constructor
// pulls from.
type Core struct {
	Logger     *logger.Manager
	Redis      map[string]*redis.Manager
	I18n       *i18n.Manager
	MysqlDB    map[string]*gorm.DB
	Middleware middleware.Middleware
	Coordinator *coordinator.Service
}

// New registers the coordinator's route groups under /leoscope.
//
// Parameters:
//   - mux: gin engine that receives route registrations.
//   - core: shared dependency container for handlers.
//
// Returns:
//   - *gin.Engine: the same engine after route registration.
func New(mux *gin.Engine, core *Core) *gin.Engine {
	api := mux.Group("leoscope")

	api.GET("ping", func(c *gin.Context) {
		core.I18n.JSON(c, 0, nil, nil)
	})

	auth := core.Middleware.Auth()

	userGroup(api.Group("users", auth), core)
	nodeGroup(api.Group("nodes", auth), core)
	jobGroup(api.Group("jobs", auth), core)
	runGroup(api.Group("runs", auth), core)
	taskGroup(api.Group("tasks", auth), core)
	scavengerGroup(api.Group("scavenger", auth), core)
	configGroup(api.Group("config", auth), core)

	return mux
}

// userGroup registers register_user/modify_user/delete_user (§6: ADMIN).
func userGroup(g *gin.RouterGroup, core *Core) {
	h := user.New(core.Logger, core.I18n, core.Coordinator)
	admin := core.Middleware.RequireRole(usermodel.RoleAdmin)

	g.POST("", admin, h.Register())
	g.PATCH(":id", admin, h.Modify())
	g.DELETE(":id", admin, h.Delete())
}

// nodeGroup registers register_node/update_node/delete_node (ADMIN),
// get_nodes (any), and report_heartbeat (any authenticated caller: the
// route has no role gate and the handler does not check that the caller
// is the node named in the path).
func nodeGroup(g *gin.RouterGroup, core *Core) {
	h := node.New(core.Logger, core.I18n, core.Coordinator)
	admin := core.Middleware.RequireRole(usermodel.RoleAdmin)

	g.POST("", admin, h.Register())
	g.PATCH(":id", admin, h.Update())
	g.DELETE(":id", admin, h.Delete())
	g.GET("", h.List())
	g.POST(":id/heartbeat", h.Heartbeat())
}

// jobGroup registers schedule_job (USER), reschedule_job_nearest (USER;
// the handler does not check that the caller owns the job), verify_trigger
// (any), the get_jobs_by_* lookups (any), and
// delete_job_by_id (owner or ADMIN, enforced inside the handler).
func jobGroup(g *gin.RouterGroup, core *Core) {
	h := job.New(core.Logger, core.I18n, core.Coordinator)
	user := core.Middleware.RequireRole(usermodel.RoleUser)

	g.POST("", user, h.Schedule())
	g.POST(":id/reschedule_nearest", user, h.RescheduleNearest())
	g.POST("verify_trigger", h.VerifyTrigger())
	g.GET(":id", h.Get())
	g.GET("by_node/:id", h.ByNode())
	g.GET("by_owner/:id", h.ByOwner())
	g.DELETE(":id", h.Delete())
}

// runGroup registers update_run (NODE owning the run, enforced inside the
// handler) and the get_runs/get_scheduled_runs lookups (any).
func runGroup(g *gin.RouterGroup, core *Core) {
	h := run.New(core.Logger, core.I18n, core.Coordinator)
	node := core.Middleware.RequireRole(usermodel.RoleNode)

	g.POST("", node, h.Create())
	g.PATCH(":id", node, h.Update())
	g.GET("", h.List())
	g.GET("scheduled", h.Scheduled())
}

// taskGroup registers schedule_task/get_tasks/update_task (NODE).
func taskGroup(g *gin.RouterGroup, core *Core) {
	h := task.New(core.Logger, core.I18n, core.Coordinator)
	node := core.Middleware.RequireRole(usermodel.RoleNode)

	g.POST("", node, h.Schedule())
	g.GET("by_node/:id", node, h.ByNode())
	g.GET(":id", node, h.Get())
	g.PATCH(":id", node, h.Update())
}

// scavengerGroup registers set_scavenger (ADMIN) and get_scavenger (any).
func scavengerGroup(g *gin.RouterGroup, core *Core) {
	h := scavenger.New(core.Logger, core.I18n, core.Coordinator)
	admin := core.Middleware.RequireRole(usermodel.RoleAdmin)

	g.POST(":id", admin, h.Set())
	g.GET(":id", h.Get())
}

// configGroup registers update_global_config (ADMIN), get_config (any),
// and kernel_access (NODE).
func configGroup(g *gin.RouterGroup, core *Core) {
	h := config.New(core.Logger, core.I18n, core.Coordinator)
	admin := core.Middleware.RequireRole(usermodel.RoleAdmin)
	node := core.Middleware.RequireRole(usermodel.RoleNode)

	g.GET("", h.Get())
	g.PUT("", admin, h.Update())
	g.POST("kernel_access", node, h.KernelAccess())
}
