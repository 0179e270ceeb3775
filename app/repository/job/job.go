// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package job implements job-domain repository access methods.
package job

import (
	"context"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for jobs.
	Repo interface {
		Get(ctx context.Context, id string) (*jobmodel.Job, error)
		Create(ctx context.Context, j *jobmodel.Job) error
		Updates(ctx context.Context, id string, values map[string]interface{}) error
		Delete(ctx context.Context, id string) error
		ByNode(ctx context.Context, nodeID string) ([]jobmodel.Job, error)
		ByOwner(ctx context.Context, ownerID string) ([]jobmodel.Job, error)
		OverheadOnNodes(ctx context.Context, nodeIDs []string) ([]jobmodel.Job, error)
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context, id string) (*jobmodel.Job, error) {
	return jobmodel.First(ctx, r.db, id)
}

func (r *repo) Create(ctx context.Context, j *jobmodel.Job) error {
	return jobmodel.Create(ctx, r.db, j)
}

func (r *repo) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	return jobmodel.Updates(ctx, r.db, id, values)
}

func (r *repo) Delete(ctx context.Context, id string) error {
	return jobmodel.Delete(ctx, r.db, id)
}

func (r *repo) ByNode(ctx context.Context, nodeID string) ([]jobmodel.Job, error) {
	return jobmodel.ByNode(ctx, r.db, nodeID)
}

func (r *repo) ByOwner(ctx context.Context, ownerID string) ([]jobmodel.Job, error) {
	return jobmodel.ByOwner(ctx, r.db, ownerID)
}

func (r *repo) OverheadOnNodes(ctx context.Context, nodeIDs []string) ([]jobmodel.Job, error) {
	return jobmodel.OverheadOnNodes(ctx, r.db, nodeIDs)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
