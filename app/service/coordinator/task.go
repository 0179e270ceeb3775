// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

// ScheduleTask implements schedule_task (§4.5): the client's rendezvous
// request for its paired server setup. There is no background sweeper —
// expiry is computed lazily wherever a task is read (Task.Dead).
func (s *Service) ScheduleTask(ctx context.Context, runID, jobID, nodeID string, kind taskmodel.Kind, ttlSecs, nowTS int64) (*taskmodel.Task, error) {
	t := &taskmodel.Task{
		ID:        uuid.NewString(),
		RunID:     runID,
		JobID:     jobID,
		NodeID:    nodeID,
		Kind:      kind,
		Status:    taskmodel.StatusPending,
		TTLSecs:   ttlSecs,
		CreatedTS: nowTS,
	}
	if err := s.Tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("coordinator: create task: %w", err)
	}
	return t, nil
}

// GetTasks implements get_tasks (§4.5): the server node's poll endpoint.
// Dead tasks (past their TTL) are filtered out rather than deleted, since
// there is no sweeper to reap them — a dead task simply stops being handed
// out.
func (s *Service) GetTasks(ctx context.Context, nodeID string, nowTS int64) ([]taskmodel.Task, error) {
	all, err := s.Tasks.ByNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list tasks: %w", err)
	}

	live := make([]taskmodel.Task, 0, len(all))
	for _, t := range all {
		if t.Status == taskmodel.StatusPending && t.Dead(nowTS) {
			continue
		}
		live = append(live, t)
	}
	return live, nil
}

// GetTaskByID implements get_task_by_id: the client side of §4.5
// rendezvous polls a specific task by its own id, regardless of which
// node it was created under — unlike GetTasks, which is scoped to one
// node's pending queue.
func (s *Service) GetTaskByID(ctx context.Context, id string) (*taskmodel.Task, error) {
	t, err := s.Tasks.Get(ctx, id)
	if err != nil {
		return nil, apperr.New(e.NotFound, "task not found")
	}
	return t, nil
}

// UpdateTask implements update_task: the peer node reports completion or
// failure of a SERVER_SETUP task.
func (s *Service) UpdateTask(ctx context.Context, id string, status taskmodel.Status) error {
	if _, err := s.Tasks.Get(ctx, id); err != nil {
		return apperr.New(e.NotFound, "task not found")
	}
	if err := s.Tasks.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("coordinator: update task: %w", err)
	}
	return nil
}
