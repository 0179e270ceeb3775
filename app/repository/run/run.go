// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package run implements run-domain repository access methods.
package run

import (
	"context"

	runmodel "github.com/leoscope/leoscope/app/model/run"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for runs.
	Repo interface {
		Get(ctx context.Context, id string) (*runmodel.Run, error)
		Create(ctx context.Context, r *runmodel.Run) error
		AdvanceStatus(ctx context.Context, id string, to runmodel.Status, statusMessage string, endTS *int64, artifactURL string) error
		ByFilter(ctx context.Context, jobID, nodeID, ownerID string, scheduledOnly bool) ([]runmodel.Run, error)
		RunningByNode(ctx context.Context, nodeID string) ([]runmodel.Run, error)
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context, id string) (*runmodel.Run, error) {
	return runmodel.First(ctx, r.db, id)
}

func (r *repo) Create(ctx context.Context, run *runmodel.Run) error {
	return runmodel.Create(ctx, r.db, run)
}

func (r *repo) AdvanceStatus(ctx context.Context, id string, to runmodel.Status, statusMessage string, endTS *int64, artifactURL string) error {
	return runmodel.AdvanceStatus(ctx, r.db, id, to, statusMessage, endTS, artifactURL)
}

func (r *repo) ByFilter(ctx context.Context, jobID, nodeID, ownerID string, scheduledOnly bool) ([]runmodel.Run, error) {
	return runmodel.ByFilter(ctx, r.db, jobID, nodeID, ownerID, scheduledOnly)
}

func (r *repo) RunningByNode(ctx context.Context, nodeID string) ([]runmodel.Run, error) {
	return runmodel.RunningByNode(ctx, r.db, nodeID)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
