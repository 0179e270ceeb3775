// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"fmt"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

// GetJobByID implements get_job_by_id.
func (s *Service) GetJobByID(ctx context.Context, id string) (*jobmodel.Job, error) {
	j, err := s.Jobs.Get(ctx, id)
	if err != nil {
		return nil, apperr.New(e.NotFound, "job not found")
	}
	return j, nil
}

// GetJobsByNodeID implements get_jobs_by_nodeid (§4.3): jobs whose node_id
// or paired_server_node_id names this node.
func (s *Service) GetJobsByNodeID(ctx context.Context, nodeID string) ([]jobmodel.Job, error) {
	jobs, err := s.Jobs.ByNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list jobs by node: %w", err)
	}
	return jobs, nil
}

// GetJobsByUserID implements get_jobs_by_userid.
func (s *Service) GetJobsByUserID(ctx context.Context, ownerID string) ([]jobmodel.Job, error) {
	jobs, err := s.Jobs.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list jobs by owner: %w", err)
	}
	return jobs, nil
}

// DeleteJobByID implements delete_job_by_id.
func (s *Service) DeleteJobByID(ctx context.Context, id string) error {
	if _, err := s.Jobs.Get(ctx, id); err != nil {
		return apperr.New(e.NotFound, "job not found")
	}
	if err := s.Jobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete job: %w", err)
	}
	return nil
}
