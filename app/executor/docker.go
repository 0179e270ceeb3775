// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package executor implements the node's container lifecycle DAG (C7,
// §4.4): deploy, trigger gate, server-dependency rendezvous, run, upload,
// and the terminal transitions. Its Docker access is adapted from
// app/monitor's DockerManager, generalized from "watch a pre-existing
// container's logs" to "create, start, poll, and tear down a container
// this process owns".
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/sk-pkg/logger"
)

// leotestLabel marks every container the executor creates, so a restarted
// node agent can find and resume (or fail) runs it was supervising.
const leotestLabel = "leotest"

// Docker wraps the Docker SDK operations the executor needs to run one
// job's execute-phase container through its whole lifecycle.
type Docker struct {
	cli    *client.Client
	logger *logger.Manager
}

// NewDocker creates and validates a Docker client, the same
// FromEnv/negotiated-version/Ping sequence app/monitor uses.
func NewDocker(ctx context.Context, log *logger.Manager) (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("executor: docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("executor: docker ping: %w", err)
	}
	return &Docker{cli: cli, logger: log}, nil
}

// ContainerSpec describes the container to launch for one run.
type ContainerSpec struct {
	Image       string
	Env         []string
	Labels      map[string]string
	WorkDir     string
	MountSource string
	MountTarget string
}

// Create builds (without starting) a container for spec, returning its ID.
func (d *Docker) Create(ctx context.Context, name string, spec ContainerSpec) (string, error) {
	cfg := &container.Config{
		Image:  spec.Image,
		Env:    spec.Env,
		Labels: spec.Labels,
	}
	hostCfg := &container.HostConfig{}
	if spec.MountSource != "" {
		hostCfg.Binds = []string{fmt.Sprintf("%s:%s", spec.MountSource, spec.MountTarget)}
	}

	resp, err := d.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("executor: container create: %w", err)
	}
	return resp.ID, nil
}

// Start starts a previously created container.
func (d *Docker) Start(ctx context.Context, containerID string) error {
	if err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("executor: container start: %w", err)
	}
	return nil
}

// State returns the container's current runtime state ("running",
// "exited", ...), the same inspect-based read app/monitor uses.
func (d *Docker) State(ctx context.Context, containerID string) (string, error) {
	inspect, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return "", err
	}
	return inspect.State.Status, nil
}

// ExitCode returns the container's exit code once it has stopped.
func (d *Docker) ExitCode(ctx context.Context, containerID string) (int, error) {
	inspect, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		return 0, err
	}
	return inspect.State.ExitCode, nil
}

// Stop stops a running container, tolerating it already being stopped.
func (d *Docker) Stop(ctx context.Context, containerID string) error {
	err := d.cli.ContainerStop(ctx, containerID, container.StopOptions{})
	if err != nil && !isContainerNotFoundError(err) {
		return fmt.Errorf("executor: container stop: %w", err)
	}
	return nil
}

// Remove force-removes a container, tolerating its absence.
func (d *Docker) Remove(ctx context.Context, containerID string) error {
	err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
	if err != nil && !isContainerNotFoundError(err) {
		return fmt.Errorf("executor: container remove: %w", err)
	}
	return nil
}

// RunToCompletion creates, starts, and polls a container to exit,
// removing it before returning. It is the synchronous, no-upload sibling
// of the executor's RUNNING-phase flow, used for the peer side of task
// rendezvous (§4.5) where the setup job has no run record or artifact
// upload of its own — only a pass/fail.
func (d *Docker) RunToCompletion(ctx context.Context, name string, spec ContainerSpec, ceiling time.Duration) (exitCode int, err error) {
	containerID, err := d.Create(ctx, name, spec)
	if err != nil {
		return 0, fmt.Errorf("executor: setup container create: %w", err)
	}
	defer func() { _ = d.Remove(context.Background(), containerID) }()

	if err := d.Start(ctx, containerID); err != nil {
		return 0, fmt.Errorf("executor: setup container start: %w", err)
	}

	deadline := time.Now().Add(ceiling)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		state, err := d.State(ctx, containerID)
		if err != nil {
			return 0, fmt.Errorf("executor: setup container inspect: %w", err)
		}
		if state != "running" {
			return d.ExitCode(ctx, containerID)
		}
		if time.Now().After(deadline) {
			_ = d.Stop(ctx, containerID)
			return 0, fmt.Errorf("executor: setup container exceeded %s ceiling", ceiling)
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Logs captures the full combined stdout/stderr of a container as a
// single string — the executor's upload phase archives this alongside
// the workdir rather than following a live stream, unlike app/monitor's
// collector which follows indefinitely.
func (d *Docker) Logs(ctx context.Context, containerID string) (string, error) {
	rc, err := d.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
	})
	if err != nil {
		return "", fmt.Errorf("executor: container logs: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("executor: read container logs: %w", err)
	}
	return sanitizeLogs(string(body)), nil
}

// sanitizeLogs drops the 8-byte stream-multiplex header Docker prepends
// to each frame when TTY is disabled and strips non-printable bytes a
// downstream log viewer could choke on, the same filtering app/monitor's
// collector applies line by line.
func sanitizeLogs(raw string) string {
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		if len(line) >= 8 {
			headerish := true
			for i := 0; i < 4; i++ {
				if line[i] > 2 {
					headerish = false
					break
				}
			}
			if headerish {
				line = line[8:]
			}
		}
		if containsUnprintableCharacters([]byte(line)) {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// RunningLeotestContainers lists containers this executor created and
// left running, for node-restart recovery: a restarted node agent calls
// this to find runs it was mid-supervision of.
func (d *Docker) RunningLeotestContainers(ctx context.Context) ([]types.Container, error) {
	f := filters.NewArgs()
	f.Add("label", leotestLabel+"=true")
	return d.cli.ContainerList(ctx, container.ListOptions{All: true, Filters: f})
}

// ContainersByLabel lists containers matching every label=value pair given,
// used by the scavenger to find overhead containers (§4.6 step 4). All
// leoscope-managed containers carry leotest=true; callers narrow further
// (e.g. overhead=true) by adding more pairs — leotest=true is the sole
// handle the scavenger has for telling a leoscope container apart from an
// unrelated one that happens to carry the same overhead label (§5).
func (d *Docker) ContainersByLabel(ctx context.Context, labels map[string]string) ([]types.Container, error) {
	f := filters.NewArgs()
	for label, value := range labels {
		f.Add("label", fmt.Sprintf("%s=%s", label, value))
	}
	return d.cli.ContainerList(ctx, container.ListOptions{All: false, Filters: f})
}

func isContextCanceledError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context canceled") || strings.Contains(msg, "context deadline exceeded")
}

func isContainerNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errdefs.IsNotFound(err) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func containsUnprintableCharacters(s []byte) bool {
	for _, b := range s {
		if b == '\t' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return true
		}
	}
	return false
}
