// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"sync"

	"gorm.io/gorm"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	nodemodel "github.com/leoscope/leoscope/app/model/node"
)

// fakeJobRepo is an in-memory jobrepo.Repo, letting the admission tests
// exercise Service.ScheduleJob/RescheduleJobNearest without a database.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]jobmodel.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]jobmodel.Job)}
}

func (r *fakeJobRepo) Get(ctx context.Context, id string) (*jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &j, nil
}

func (r *fakeJobRepo) Create(ctx context.Context, j *jobmodel.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = *j
	return nil
}

func (r *fakeJobRepo) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := values["one_shot_at"]; ok {
		j.OneShotAt = v.(int64)
	}
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	return nil
}

func (r *fakeJobRepo) ByNode(ctx context.Context, nodeID string) ([]jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []jobmodel.Job
	for _, j := range r.jobs {
		if j.NodeID == nodeID || j.PairedServerNodeID == nodeID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) ByOwner(ctx context.Context, ownerID string) ([]jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []jobmodel.Job
	for _, j := range r.jobs {
		if j.OwnerID == ownerID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) OverheadOnNodes(ctx context.Context, nodeIDs []string) ([]jobmodel.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		set[id] = true
	}
	var out []jobmodel.Job
	for _, j := range r.jobs {
		if j.Overhead && (set[j.NodeID] || set[j.PairedServerNodeID]) {
			out = append(out, j)
		}
	}
	return out, nil
}

// fakeNodeRepo is an in-memory noderepo.Repo.
type fakeNodeRepo struct {
	mu    sync.Mutex
	nodes map[string]nodemodel.Node
}

func newFakeNodeRepo(ids ...string) *fakeNodeRepo {
	r := &fakeNodeRepo{nodes: make(map[string]nodemodel.Node)}
	for _, id := range ids {
		r.nodes[id] = nodemodel.Node{ID: id}
	}
	return r
}

func (r *fakeNodeRepo) Get(ctx context.Context, id string) (*nodemodel.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (r *fakeNodeRepo) Create(ctx context.Context, n *nodemodel.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[n.ID] = *n
	return nil
}

func (r *fakeNodeRepo) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.nodes[id] = n
	return nil
}

func (r *fakeNodeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	return nil
}

func (r *fakeNodeRepo) List(ctx context.Context, id, location string, activeSinceTS int64) ([]nodemodel.Node, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []nodemodel.Node
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNodeRepo) TouchHeartbeat(ctx context.Context, id string, ts int64) error {
	return nil
}

func (r *fakeNodeRepo) SetScavenger(ctx context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.ScavengerActive = active
	r.nodes[id] = n
	return nil
}

func (r *fakeNodeRepo) CompareAndSwapAdmissionVersion(ctx context.Context, id string, expected int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if n.AdmissionVersion != expected {
		return false, nil
	}
	n.AdmissionVersion++
	r.nodes[id] = n
	return true, nil
}
