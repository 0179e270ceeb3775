// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package task implements task-domain repository access methods.
package task

import (
	"context"

	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for tasks.
	Repo interface {
		Get(ctx context.Context, id string) (*taskmodel.Task, error)
		Create(ctx context.Context, t *taskmodel.Task) error
		ByNode(ctx context.Context, nodeID string) ([]taskmodel.Task, error)
		UpdateStatus(ctx context.Context, id string, status taskmodel.Status) error
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context, id string) (*taskmodel.Task, error) {
	return taskmodel.First(ctx, r.db, id)
}

func (r *repo) Create(ctx context.Context, t *taskmodel.Task) error {
	return taskmodel.Create(ctx, r.db, t)
}

func (r *repo) ByNode(ctx context.Context, nodeID string) ([]taskmodel.Task, error) {
	return taskmodel.ByNode(ctx, r.db, nodeID)
}

func (r *repo) UpdateStatus(ctx context.Context, id string, status taskmodel.Status) error {
	return taskmodel.UpdateStatus(ctx, r.db, id, status)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
