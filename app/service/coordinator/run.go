// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"fmt"

	runmodel "github.com/leoscope/leoscope/app/model/run"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

// UpdateRun implements update_run (§4.3, §4.4): the executor's only way to
// move a run forward along the status DAG. A backward or sideways request
// is rejected as INVALID rather than silently ignored, so a misbehaving
// executor surfaces immediately instead of corrupting run history.
func (s *Service) UpdateRun(ctx context.Context, runID string, to runmodel.Status, statusMessage string, endTS *int64, artifactURL string) error {
	err := s.Runs.AdvanceStatus(ctx, runID, to, statusMessage, endTS, artifactURL)
	if err == nil {
		return nil
	}
	if err == runmodel.ErrBackwardTransition {
		return apperr.New(e.InvalidParams, "run status transition does not advance")
	}
	return fmt.Errorf("coordinator: update run: %w", err)
}

// CreateRun creates a SCHEDULED run record, called by the executor at the
// start of the deploy phase.
func (s *Service) CreateRun(ctx context.Context, r *runmodel.Run) error {
	r.Status = runmodel.StatusScheduled
	if err := s.Runs.Create(ctx, r); err != nil {
		return fmt.Errorf("coordinator: create run: %w", err)
	}
	return nil
}

// GetRuns implements get_runs.
func (s *Service) GetRuns(ctx context.Context, jobID, nodeID, ownerID string) ([]runmodel.Run, error) {
	runs, err := s.Runs.ByFilter(ctx, jobID, nodeID, ownerID, false)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list runs: %w", err)
	}
	return runs, nil
}

// GetScheduledRuns implements get_scheduled_runs.
func (s *Service) GetScheduledRuns(ctx context.Context, jobID, nodeID, ownerID string) ([]runmodel.Run, error) {
	runs, err := s.Runs.ByFilter(ctx, jobID, nodeID, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list scheduled runs: %w", err)
	}
	return runs, nil
}
