// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package nodeagent

import (
	"context"
	"time"

	"github.com/leoscope/leoscope/app/executor"
)

// dockerLister adapts *executor.Docker to the ContainerLister interface,
// translating the Docker SDK's types.Container into the label-only view
// the scavenger step needs.
type dockerLister struct {
	docker *executor.Docker
}

// NewDockerLister wraps an executor.Docker for use as the agent's
// ContainerLister.
func NewDockerLister(docker *executor.Docker) ContainerLister {
	return &dockerLister{docker: docker}
}

func (d *dockerLister) ContainersByLabel(ctx context.Context, labels map[string]string) ([]ContainerRef, error) {
	containers, err := d.docker.ContainersByLabel(ctx, labels)
	if err != nil {
		return nil, err
	}
	refs := make([]ContainerRef, 0, len(containers))
	for _, c := range containers {
		refs = append(refs, ContainerRef{ID: c.ID, Labels: c.Labels})
	}
	return refs, nil
}

func (d *dockerLister) Stop(ctx context.Context, containerID string) error {
	return d.docker.Stop(ctx, containerID)
}

func (d *dockerLister) Remove(ctx context.Context, containerID string) error {
	return d.docker.Remove(ctx, containerID)
}

func (d *dockerLister) OrphanedContainers(ctx context.Context) ([]ContainerRef, error) {
	containers, err := d.docker.RunningLeotestContainers(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]ContainerRef, 0, len(containers))
	for _, c := range containers {
		refs = append(refs, ContainerRef{ID: c.ID, Labels: c.Labels})
	}
	return refs, nil
}

func (d *dockerLister) State(ctx context.Context, containerID string) (string, error) {
	return d.docker.State(ctx, containerID)
}

func (d *dockerLister) RunSetup(ctx context.Context, name, image string, env []string, labels map[string]string, ceiling time.Duration) (int, error) {
	return d.docker.RunToCompletion(ctx, name, executor.ContainerSpec{
		Image:  image,
		Env:    env,
		Labels: labels,
	}, ceiling)
}
