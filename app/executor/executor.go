// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package executor

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app/blobstore"
	"github.com/leoscope/leoscope/app/coordclient"
	jobmodel "github.com/leoscope/leoscope/app/model/job"
	runmodel "github.com/leoscope/leoscope/app/model/run"
	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"github.com/leoscope/leoscope/app/pkg/retry"
	"github.com/leoscope/leoscope/app/trigger"
)

const (
	pollInterval      = 5 * time.Second
	taskRendezvousCap = 300 * time.Second
	wallClockPad      = 30 * time.Second
)

// Executor drives one firing of a job through the lifecycle DAG (§4.4):
// DEPLOYING -> (trigger gate) -> (server dependency) -> RUNNING ->
// UPLOADING -> {COMPLETED, FAILED}, with SKIPPED and ABORTED branches.
// One Executor value is created per firing, in its own OS process per
// the node scheduler loop's isolation requirement (§5) — see
// cmd/noded's "execute" subcommand.
type Executor struct {
	coord    *coordclient.Client
	docker   *Docker
	store    blobstore.Store
	snapshot *trigger.Snapshot
	logger   *logger.Manager
	workRoot string
	nodeID   string
}

// New creates an Executor.
func New(coord *coordclient.Client, docker *Docker, store blobstore.Store, snapshot *trigger.Snapshot, log *logger.Manager, workRoot, nodeID string) *Executor {
	return &Executor{
		coord:    coord,
		docker:   docker,
		store:    store,
		snapshot: snapshot,
		logger:   log,
		workRoot: workRoot,
		nodeID:   nodeID,
	}
}

// Firing names the one job instance an Executor run materializes.
type Firing struct {
	RunID   string
	Job     *jobmodel.Job
	OwnerID string
	StartTS int64
}

// Run executes the full DAG for one firing. It never returns a non-nil
// error for a run outcome that the DAG itself models as FAILED/SKIPPED/
// ABORTED — those are reported to the coordinator via update_run, not
// surfaced as a Go error. A non-nil return means the executor could not
// even report the outcome (a coordinator RPC exhausted its retries).
func (e *Executor) Run(ctx context.Context, f Firing) error {
	wd := filepath.Join(e.workRoot, f.Job.ID, f.RunID)
	log := e.logger

	if err := e.deploy(ctx, f, wd); err != nil {
		return err
	}

	if !e.evaluateTrigger(f.Job) {
		log.Info(ctx, "trigger evaluated false, skipping run", zap.String("run_id", f.RunID))
		_ = e.coord.UpdateRun(ctx, f.RunID, runmodel.StatusSkipped, "trigger evaluated false", nil, "")
		_ = os.RemoveAll(wd)
		return nil
	}

	if serverIP, ok, err := e.awaitServerDependency(ctx, f); err != nil {
		return err
	} else if !ok {
		log.Warn(ctx, "server dependency rendezvous timed out", zap.String("run_id", f.RunID))
		endTS := nowUnix()
		_ = e.coord.UpdateRun(ctx, f.RunID, runmodel.StatusFailed, "server setup task did not complete in time", &endTS, "")
		_ = os.RemoveAll(wd)
		return nil
	} else {
		return e.runContainer(ctx, f, wd, serverIP)
	}
}

// deploy materializes the run's working directory, creates the run
// record, and advances it to DEPLOYING (§4.4 step 1). The job's config
// always comes from f.Job (fetched from the coordinator, the metadata
// store source of truth per §4.4/§9); a blob-store config fallback for
// legacy callers is an optional extension point this function does not
// implement, since no caller in this repo still needs the dual path.
func (e *Executor) deploy(ctx context.Context, f Firing, wd string) error {
	if err := os.MkdirAll(wd, 0o755); err != nil {
		return fmt.Errorf("executor: create workdir: %w", err)
	}
	if f.Job.Config != "" {
		if err := os.WriteFile(filepath.Join(wd, "config.json"), []byte(f.Job.Config), 0o644); err != nil {
			return fmt.Errorf("executor: write job config: %w", err)
		}
	}

	if err := e.coord.CreateRun(ctx, &runmodel.Run{
		ID:      f.RunID,
		JobID:   f.Job.ID,
		NodeID:  e.nodeID,
		OwnerID: f.OwnerID,
		StartTS: f.StartTS,
	}); err != nil {
		return fmt.Errorf("executor: create run: %w", err)
	}

	if err := e.coord.UpdateRun(ctx, f.RunID, runmodel.StatusDeploying, "", nil, ""); err != nil {
		return fmt.Errorf("executor: advance run to deploying: %w", err)
	}
	return nil
}

// evaluateTrigger reports whether the job's trigger gate admits a run,
// failing open to true only when no trigger expression is set (§4.2: a
// job with no trigger always fires).
func (e *Executor) evaluateTrigger(job *jobmodel.Job) bool {
	if job.Trigger == "" {
		return true
	}
	expr, err := trigger.Parse(job.Trigger)
	if err != nil {
		// Admission already validated this trigger via verify_trigger;
		// a parse failure here means corrupted stored state, not a
		// live-evaluation boundary case. Fail closed.
		return false
	}
	return trigger.Eval(expr, e.snapshot.View())
}

// awaitServerDependency implements the client-side half of task
// rendezvous (§4.5): schedule a SERVER_SETUP task and poll for its
// completion every 5s, capped at min(length_secs, 300s). Returns the
// paired server's public IP on success for LEOTEST_SERVER_IP injection.
func (e *Executor) awaitServerDependency(ctx context.Context, f Firing) (serverIP string, ok bool, err error) {
	job := f.Job
	if job.PairedServerNodeID == "" || job.NodeID != e.nodeID {
		return "", true, nil
	}

	task, err := e.coord.ScheduleTask(ctx, f.RunID, job.ID, job.PairedServerNodeID, taskmodel.KindServerSetup, job.LengthSecs)
	if err != nil {
		return "", false, fmt.Errorf("executor: schedule server setup task: %w", err)
	}

	window := time.Duration(job.LengthSecs) * time.Second
	if window > taskRendezvousCap {
		window = taskRendezvousCap
	}
	deadline := time.Now().Add(window)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		current, err := e.coord.GetTask(ctx, task.ID)
		if err != nil {
			return "", false, fmt.Errorf("executor: poll server setup task: %w", err)
		}
		switch current.Status {
		case taskmodel.StatusComplete:
			node, err := e.coord.GetNode(ctx, job.PairedServerNodeID)
			if err != nil {
				return "", false, fmt.Errorf("executor: resolve paired server: %w", err)
			}
			return node.PublicIP, true, nil
		case taskmodel.StatusFailed:
			return "", false, nil
		}

		if time.Now().After(deadline) {
			return "", false, nil
		}

		select {
		case <-ctx.Done():
			return "", false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// runContainer implements the RUNNING and UPLOADING phases (§4.4 steps
// 4-6): launch the job's execute container, poll it to completion or the
// wall-clock ceiling, capture logs, archive the workdir, upload, and
// report the terminal status.
func (e *Executor) runContainer(ctx context.Context, f Firing, wd, serverIP string) error {
	job := f.Job
	params := job.Params.Data

	env := []string{
		"LEOTEST_JOBID=" + job.ID,
		"LEOTEST_RUNID=" + f.RunID,
		"LEOTEST_NODEID=" + e.nodeID,
		fmt.Sprintf("LEOTEST_START_TIME=%d", f.StartTS),
		fmt.Sprintf("LEOTEST_LENGTH=%d", job.LengthSecs),
	}
	if serverIP != "" {
		env = append(env, "LEOTEST_SERVER_IP="+serverIP)
	}

	labels := map[string]string{
		"leotest":  "true",
		"jobid":    job.ID,
		"runid":    f.RunID,
		"nodeid":   e.nodeID,
		"overhead": boolLabel(job.Overhead),
	}

	containerName := "leotest-" + f.RunID
	containerID, err := e.docker.Create(ctx, containerName, ContainerSpec{
		Image:       params.Execute,
		Env:         env,
		Labels:      labels,
		MountSource: wd,
		MountTarget: "/leotest/work",
	})
	if err != nil {
		return e.fail(ctx, f.RunID, wd, "", fmt.Sprintf("container create failed: %v", err))
	}

	if err := e.docker.Start(ctx, containerID); err != nil {
		_ = e.docker.Remove(ctx, containerID)
		return e.fail(ctx, f.RunID, wd, containerID, fmt.Sprintf("container start failed: %v", err))
	}

	if err := e.coord.UpdateRun(ctx, f.RunID, runmodel.StatusRunning, "", nil, ""); err != nil {
		_ = e.docker.Stop(ctx, containerID)
		_ = e.docker.Remove(ctx, containerID)
		return fmt.Errorf("executor: advance run to running: %w", err)
	}

	ceiling := time.Duration(job.LengthSecs)*time.Second + wallClockPad
	statusMessage := e.pollUntilDone(ctx, containerID, f.RunID, ceiling)

	return e.uploadAndFinish(ctx, f, wd, containerID, statusMessage)
}

// pollUntilDone polls container state every 5s until it stops, the
// context is canceled, or the wall-clock ceiling is exceeded, returning
// a status message describing why polling ended.
func (e *Executor) pollUntilDone(ctx context.Context, containerID, runID string, ceiling time.Duration) string {
	deadline := time.Now().Add(ceiling)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := e.docker.State(ctx, containerID)
		if err != nil {
			if isContextCanceledError(err) {
				return "run aborted"
			}
			if isContainerNotFoundError(err) {
				return "container disappeared"
			}
			e.logger.Error(ctx, "executor: poll container state", zap.String("run_id", runID), zap.Error(err))
		} else if state != "running" {
			code, _ := e.docker.ExitCode(ctx, containerID)
			if code == 0 {
				return ""
			}
			return fmt.Sprintf("container exited with code %d", code)
		}

		if time.Now().After(deadline) {
			_ = e.docker.Stop(ctx, containerID)
			return "wall-clock ceiling exceeded"
		}

		select {
		case <-ctx.Done():
			_ = e.docker.Stop(ctx, containerID)
			return "run aborted"
		case <-ticker.C:
		}
	}
}

// uploadAndFinish captures logs, archives the workdir, uploads the
// archive, and reports the terminal status — always attempted even when
// the run phase failed, and always removing the container and workdir
// regardless of outcome (§4.4 failure policy).
func (e *Executor) uploadAndFinish(ctx context.Context, f Firing, wd, containerID, statusMessage string) error {
	defer func() {
		_ = e.docker.Remove(ctx, containerID)
		_ = os.RemoveAll(wd)
	}()

	_ = e.coord.UpdateRun(ctx, f.RunID, runmodel.StatusUploading, statusMessage, nil, "")

	logs, err := e.docker.Logs(ctx, containerID)
	if err != nil {
		e.logger.Warn(ctx, "executor: capture logs failed", zap.String("run_id", f.RunID), zap.Error(err))
	} else if logs != "" {
		if werr := os.WriteFile(filepath.Join(wd, "container.log"), []byte(logs), 0o644); werr != nil {
			e.logger.Warn(ctx, "executor: write captured logs failed", zap.Error(werr))
		}
	}

	archive, err := archiveDir(wd)
	endTS := nowUnix()
	if err != nil {
		msg := statusMessage
		if msg == "" {
			msg = fmt.Sprintf("archive workdir failed: %v", err)
		}
		return e.updateTerminal(ctx, f.RunID, msg, msg, endTS, "")
	}

	key := artifactKey(e.nodeID, f.Job.ID, f.RunID, f.StartTS)
	url, err := retry.Do(ctx, retry.UploadPolicy, func(ctx context.Context) (string, error) {
		return e.store.Put(ctx, key, bytes.NewReader(archive), int64(len(archive)))
	})
	if err != nil {
		msg := statusMessage
		if msg == "" {
			msg = fmt.Sprintf("artifact upload failed: %v", err)
		}
		return e.updateTerminal(ctx, f.RunID, msg, msg, endTS, "")
	}

	return e.updateTerminal(ctx, f.RunID, statusMessage, statusMessage, endTS, url)
}

// updateTerminal reports COMPLETED when statusMessage is empty (the run
// phase exited cleanly) or FAILED with the given message otherwise.
func (e *Executor) updateTerminal(ctx context.Context, runID, runStatusMessage, reportMessage string, endTS int64, artifactURL string) error {
	status := runmodel.StatusCompleted
	if runStatusMessage != "" {
		status = runmodel.StatusFailed
	}
	if err := e.coord.UpdateRun(ctx, runID, status, reportMessage, &endTS, artifactURL); err != nil {
		return fmt.Errorf("executor: report terminal status: %w", err)
	}
	return nil
}

// fail reports a run that never reached RUNNING, tearing down any
// container that was created along the way.
func (e *Executor) fail(ctx context.Context, runID, wd, containerID, message string) error {
	if containerID != "" {
		_ = e.docker.Remove(ctx, containerID)
	}
	endTS := nowUnix()
	_ = os.RemoveAll(wd)
	if err := e.coord.UpdateRun(ctx, runID, runmodel.StatusFailed, message, &endTS, ""); err != nil {
		return fmt.Errorf("executor: report deploy failure: %w", err)
	}
	return nil
}

// archiveDir tars and gzips a directory's contents into memory. The
// workdir archive is bounded by job output size, which the operator is
// expected to keep small relative to available memory — the same
// assumption the teacher's log collector makes about in-memory buffers.
func archiveDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = rel
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// artifactKey builds the blob path named in §6: artifacts/<node_id>/
// <job_id>/<YYYY>/<MM>/<DD>/<run_id>/archive.tar.gz.
func artifactKey(nodeID, jobID, runID string, startTS int64) string {
	t := time.Unix(startTS, 0).UTC()
	return fmt.Sprintf("artifacts/%s/%s/%04d/%02d/%02d/%s/archive.tar.gz",
		nodeID, jobID, t.Year(), t.Month(), t.Day(), runID)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func nowUnix() int64 {
	return time.Now().Unix()
}
