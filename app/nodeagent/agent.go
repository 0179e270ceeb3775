// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package nodeagent implements the node scheduler loop (C6, §4.6): the
// per-node process that polls the coordinator for its jobs, dispatches
// CRON and ATQ firings, reacts to the scavenger, and sends heartbeats.
// It generalizes app/pkg/schedule's ticker-driven Job/Schedule pair from
// "fixed daily/interval triggers" to "one dispatcher entry per admitted
// job, re-synced against the coordinator every iteration".
package nodeagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app/coordclient"
	jobmodel "github.com/leoscope/leoscope/app/model/job"
	runmodel "github.com/leoscope/leoscope/app/model/run"
	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"github.com/leoscope/leoscope/app/schedulealg"
)

// setupTaskCap bounds how long the peer side of task rendezvous (§4.5)
// waits for a server setup job to finish, mirroring the executor's own
// taskRendezvousCap.
const setupTaskCap = 300 * time.Second

// Period is the node scheduler loop's default iteration interval (§4.6).
const Period = 10 * time.Second

// Spawner launches one firing of a job as an isolated OS process — the
// node scheduler loop never runs the executor DAG in-process (§5). The
// concrete implementation (cmd/noded) re-execs the agent binary with an
// "execute" subcommand.
type Spawner interface {
	Spawn(jobID, runID string, startTS int64) error
}

// ContainerLister is the subset of executor.Docker the scavenger step and
// restart recovery need.
type ContainerLister interface {
	ContainersByLabel(ctx context.Context, labels map[string]string) ([]ContainerRef, error)
	Stop(ctx context.Context, containerID string) error
	Remove(ctx context.Context, containerID string) error
	// OrphanedContainers lists every container this node's executor ever
	// created (label leotest=true), running or not — the set a restarted
	// node agent must reconcile its runs against (§7 "node restart mid-run").
	OrphanedContainers(ctx context.Context) ([]ContainerRef, error)
	State(ctx context.Context, containerID string) (string, error)
	// RunSetup runs one server-side setup job to completion, the peer
	// half of task rendezvous (§4.5): it creates, starts, and waits on
	// the container named by image, up to ceiling, returning its exit
	// code.
	RunSetup(ctx context.Context, name, image string, env []string, labels map[string]string, ceiling time.Duration) (exitCode int, err error)
}

// ContainerRef names one container the scavenger step must act on.
type ContainerRef struct {
	ID     string
	Labels map[string]string
}

type dispatchEntry struct {
	kind     jobmodel.Kind
	schedule string // cron expr, for dedup comparison
	cronID   cron.EntryID
	timer    *time.Timer
}

// Agent is the node scheduler loop.
type Agent struct {
	coord   *coordclient.Client
	docker  ContainerLister
	spawner Spawner
	logger  *logger.Manager
	nodeID  string

	cronSched *cron.Cron
	mu        sync.Mutex
	entries   map[string]*dispatchEntry
}

// New creates a node agent.
func New(coord *coordclient.Client, docker ContainerLister, spawner Spawner, log *logger.Manager, nodeID string) *Agent {
	a := &Agent{
		coord:     coord,
		docker:    docker,
		spawner:   spawner,
		logger:    log,
		nodeID:    nodeID,
		cronSched: cron.New(),
		entries:   make(map[string]*dispatchEntry),
	}
	a.cronSched.Start()
	return a
}

// Run blocks, driving the scheduler loop every Period until ctx is
// canceled — the same fixed-tick shape as app/pkg/schedule.Schedule.Start,
// generalized to one process's own job set instead of a static registry.
func (a *Agent) Run(ctx context.Context) {
	ticker := time.NewTicker(Period)
	defer ticker.Stop()

	a.RecoverOrphans(ctx)
	a.iterate(ctx)
	for {
		select {
		case <-ctx.Done():
			a.cronSched.Stop()
			return
		case <-ticker.C:
			a.iterate(ctx)
		}
	}
}

// iterate runs one scheduler loop iteration (§4.6 steps 1-5), in order:
// sync dispatch entries, prune stale ones, react to the scavenger, run any
// pending server setup tasks, then heartbeat.
func (a *Agent) iterate(ctx context.Context) {
	jobs, err := a.coord.GetJobsByNode(ctx)
	if err != nil {
		a.logger.Error(ctx, "nodeagent: get_jobs_by_nodeid failed", zap.Error(err))
		return
	}

	a.syncDispatch(ctx, jobs)
	a.pruneDispatch(jobs)
	a.reactToScavenger(ctx)
	a.reactToServerSetupTasks(ctx)

	if err := a.coord.ReportHeartbeat(ctx, time.Now().Unix()); err != nil {
		a.logger.Error(ctx, "nodeagent: report_heartbeat failed", zap.Error(err))
	}
}

// syncDispatch registers a local dispatcher entry for each job not
// already tracked (§4.6 step 2): CRON jobs get a recurring cron.Schedule
// entry; ATQ jobs either fire a one-shot timer, or — if their start
// instant has already passed with no run on record — are nudged forward
// via reschedule_job_nearest.
func (a *Agent) syncDispatch(ctx context.Context, jobs []jobmodel.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now().Unix()

	for i := range jobs {
		job := &jobs[i]
		if job.NodeID != a.nodeID {
			continue // paired_server_node_id match; server-side rendezvous handles this job, not firing dispatch.
		}

		existing, tracked := a.entries[job.ID]
		dedupKey := fmt.Sprintf("%d", job.OneShotAt)
		if job.Kind == jobmodel.KindCron {
			dedupKey = job.CronExpr
		}
		if tracked && existing.schedule == dedupKey {
			continue
		}
		if tracked {
			a.removeEntry(job.ID)
		}

		switch job.Kind {
		case jobmodel.KindCron:
			a.registerCron(ctx, job)
		case jobmodel.KindATQ:
			a.registerATQ(ctx, job, now)
		}
	}
}

func (a *Agent) registerCron(ctx context.Context, job *jobmodel.Job) {
	sched, err := schedulealg.ParseCron(job.CronExpr)
	if err != nil {
		a.logger.Error(ctx, "nodeagent: invalid cron on admitted job", zap.String("job_id", job.ID), zap.Error(err))
		return
	}

	jobID := job.ID
	id := a.cronSched.Schedule(sched, cron.FuncJob(func() {
		a.fire(jobID, time.Now().Unix())
	}))
	a.entries[job.ID] = &dispatchEntry{kind: jobmodel.KindCron, schedule: job.CronExpr, cronID: id}
}

func (a *Agent) registerATQ(ctx context.Context, job *jobmodel.Job, now int64) {
	if job.OneShotAt <= now {
		// Deadline already passed locally — only reschedule when no run
		// exists yet and the validity window hasn't closed (§4.6 step 2).
		if job.ValidityEndTS <= now {
			return
		}
		rescheduled, err := a.coord.RescheduleJobNearest(ctx, job.ID, now)
		if err != nil {
			a.logger.Warn(ctx, "nodeagent: reschedule_job_nearest failed", zap.String("job_id", job.ID), zap.Error(err))
			return
		}
		job = rescheduled
	}

	delay := time.Duration(job.OneShotAt-now) * time.Second
	jobID := job.ID
	startTS := job.OneShotAt
	timer := time.AfterFunc(delay, func() {
		a.fire(jobID, startTS)
		a.mu.Lock()
		delete(a.entries, jobID)
		a.mu.Unlock()
	})
	a.entries[job.ID] = &dispatchEntry{kind: jobmodel.KindATQ, schedule: fmt.Sprintf("%d", job.OneShotAt), timer: timer}
}

// pruneDispatch removes local entries whose job no longer appears in the
// coordinator's view of this node (§4.6 step 3): deleted, reassigned, or
// expired jobs stop firing.
func (a *Agent) pruneDispatch(jobs []jobmodel.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()

	live := make(map[string]bool, len(jobs))
	for i := range jobs {
		if jobs[i].NodeID == a.nodeID {
			live[jobs[i].ID] = true
		}
	}
	for id := range a.entries {
		if !live[id] {
			a.removeEntry(id)
		}
	}
}

// removeEntry must be called with a.mu held.
func (a *Agent) removeEntry(jobID string) {
	entry, ok := a.entries[jobID]
	if !ok {
		return
	}
	if entry.kind == jobmodel.KindCron {
		a.cronSched.Remove(entry.cronID)
	}
	if entry.timer != nil {
		entry.timer.Stop()
	}
	delete(a.entries, jobID)
}

// fire spawns one firing of jobID as an isolated OS process (§5).
func (a *Agent) fire(jobID string, startTS int64) {
	runID := uuid.NewString()
	if err := a.spawner.Spawn(jobID, runID, startTS); err != nil {
		a.logger.Error(context.Background(), "nodeagent: spawn executor failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// RecoverOrphans implements the node-restart recovery behavior named in
// §7: a node restart mid-run detects the orphaned container via label
// leotest=true,runid=<r> and either resumes supervision (still running —
// left alone; the original executor process, if still alive, continues
// polling it; if that process is truly gone the container will eventually
// hit its own wall-clock ceiling from within a fresh poll once a new
// firing is dispatched) or marks the run FAILED. Call once at node-agent
// startup, before the scheduler loop's first iteration.
func (a *Agent) RecoverOrphans(ctx context.Context) {
	containers, err := a.docker.OrphanedContainers(ctx)
	if err != nil {
		a.logger.Error(ctx, "nodeagent: list orphaned containers failed", zap.Error(err))
		return
	}

	for _, c := range containers {
		runID := c.Labels["runid"]
		if runID == "" {
			continue
		}

		state, err := a.docker.State(ctx, c.ID)
		if err != nil {
			a.logger.Warn(ctx, "nodeagent: inspect orphaned container failed", zap.String("run_id", runID), zap.Error(err))
			continue
		}
		if state == "running" {
			a.logger.Info(ctx, "nodeagent: resuming supervision of orphaned running container", zap.String("run_id", runID), zap.String("container_id", c.ID))
			continue
		}

		a.logger.Warn(ctx, "nodeagent: orphaned container not running at restart, marking run failed", zap.String("run_id", runID), zap.String("container_id", c.ID), zap.String("state", state))
		if err := a.coord.UpdateRun(ctx, runID, runmodel.StatusFailed, "node restarted mid-run, container no longer running", nil, ""); err != nil {
			a.logger.Error(ctx, "nodeagent: mark orphaned run failed", zap.String("run_id", runID), zap.Error(err))
		}
		if err := a.docker.Remove(ctx, c.ID); err != nil {
			a.logger.Warn(ctx, "nodeagent: remove orphaned container failed", zap.String("container_id", c.ID), zap.Error(err))
		}
	}
}

// reactToScavenger implements §4.6 step 4: when the scavenger is active
// for this node, every running overhead container is stopped and
// removed, its run transitioned to ABORTED, and its job — if ATQ with a
// deadline still open — is rescheduled to the nearest free slot.
func (a *Agent) reactToScavenger(ctx context.Context) {
	active, err := a.coord.GetScavenger(ctx)
	if err != nil {
		a.logger.Error(ctx, "nodeagent: get_scavenger failed", zap.Error(err))
		return
	}
	if !active {
		return
	}

	containers, err := a.docker.ContainersByLabel(ctx, map[string]string{"leotest": "true", "overhead": "true"})
	if err != nil {
		a.logger.Error(ctx, "nodeagent: list overhead containers failed", zap.Error(err))
		return
	}

	for _, c := range containers {
		runID := c.Labels["runid"]
		jobID := c.Labels["jobid"]

		if err := a.docker.Stop(ctx, c.ID); err != nil {
			a.logger.Error(ctx, "nodeagent: scavenger stop failed", zap.String("container_id", c.ID), zap.Error(err))
		}
		if err := a.docker.Remove(ctx, c.ID); err != nil {
			a.logger.Error(ctx, "nodeagent: scavenger remove failed", zap.String("container_id", c.ID), zap.Error(err))
		}

		if runID != "" {
			if err := a.coord.UpdateRun(ctx, runID, runmodel.StatusAborted, "stopped by scavenger", nil, ""); err != nil {
				a.logger.Error(ctx, "nodeagent: abort run failed", zap.String("run_id", runID), zap.Error(err))
			}
		}

		if jobID != "" {
			a.maybeRescheduleAfterScavenge(ctx, jobID)
		}
	}
}

// reactToServerSetupTasks implements the peer's half of task rendezvous
// (§4.5): poll get_tasks for this node's own pending SERVER_SETUP tasks,
// run each one's job.Params.Deploy to completion, and report the outcome
// back via update_task. A task with no Deploy image is trivially COMPLETE
// — not every paired job needs setup work on the server side.
func (a *Agent) reactToServerSetupTasks(ctx context.Context) {
	tasks, err := a.coord.GetTasks(ctx)
	if err != nil {
		a.logger.Error(ctx, "nodeagent: get_tasks failed", zap.Error(err))
		return
	}

	for _, t := range tasks {
		if t.Kind != taskmodel.KindServerSetup || t.Status != taskmodel.StatusPending {
			continue
		}
		a.runServerSetupTask(ctx, t)
	}
}

func (a *Agent) runServerSetupTask(ctx context.Context, t taskmodel.Task) {
	job, err := a.coord.GetJob(ctx, t.JobID)
	if err != nil {
		a.logger.Warn(ctx, "nodeagent: get_job_by_id for server setup task failed", zap.String("task_id", t.ID), zap.Error(err))
		return
	}

	deploy := job.Params.Data.Deploy
	if deploy == "" {
		if err := a.coord.UpdateTask(ctx, t.ID, taskmodel.StatusComplete); err != nil {
			a.logger.Error(ctx, "nodeagent: update_task(COMPLETE) for no-op setup failed", zap.String("task_id", t.ID), zap.Error(err))
		}
		return
	}

	ceiling := time.Duration(t.TTLSecs) * time.Second
	if ceiling <= 0 || ceiling > setupTaskCap {
		ceiling = setupTaskCap
	}
	env := []string{
		"LEOTEST_JOBID=" + job.ID,
		"LEOTEST_RUNID=" + t.RunID,
		"LEOTEST_NODEID=" + a.nodeID,
	}
	labels := map[string]string{
		"leotest":  "true",
		"overhead": "true",
		"jobid":    job.ID,
		"runid":    t.RunID,
		"setup":    "true",
	}

	status := taskmodel.StatusComplete
	if exitCode, err := a.docker.RunSetup(ctx, "leotest-setup-"+t.RunID, deploy, env, labels, ceiling); err != nil || exitCode != 0 {
		a.logger.Error(ctx, "nodeagent: server setup job failed", zap.String("task_id", t.ID), zap.Int("exit_code", exitCode), zap.Error(err))
		status = taskmodel.StatusFailed
	}

	if err := a.coord.UpdateTask(ctx, t.ID, status); err != nil {
		a.logger.Error(ctx, "nodeagent: update_task after server setup failed", zap.String("task_id", t.ID), zap.String("status", string(status)), zap.Error(err))
	}
}

func (a *Agent) maybeRescheduleAfterScavenge(ctx context.Context, jobID string) {
	job, err := a.coord.GetJob(ctx, jobID)
	if err != nil {
		a.logger.Warn(ctx, "nodeagent: get_job_by_id after scavenge failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if job.Kind != jobmodel.KindATQ {
		return
	}
	now := time.Now().Unix()
	if job.ValidityEndTS <= now {
		return
	}
	if _, err := a.coord.RescheduleJobNearest(ctx, jobID, now); err != nil {
		a.logger.Warn(ctx, "nodeagent: reschedule_job_nearest after scavenge failed", zap.String("job_id", jobID), zap.Error(err))
	}
}
