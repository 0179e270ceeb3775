// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package node implements node-domain repository access methods.
package node

import (
	"context"

	nodemodel "github.com/leoscope/leoscope/app/model/node"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for nodes.
	Repo interface {
		Get(ctx context.Context, id string) (*nodemodel.Node, error)
		Create(ctx context.Context, n *nodemodel.Node) error
		Updates(ctx context.Context, id string, values map[string]interface{}) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context, id, location string, activeSinceTS int64) ([]nodemodel.Node, error)
		TouchHeartbeat(ctx context.Context, id string, ts int64) error
		SetScavenger(ctx context.Context, id string, active bool) error
		CompareAndSwapAdmissionVersion(ctx context.Context, id string, expected int64) (bool, error)
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context, id string) (*nodemodel.Node, error) {
	return nodemodel.First(ctx, r.db, id)
}

func (r *repo) Create(ctx context.Context, n *nodemodel.Node) error {
	return nodemodel.Create(ctx, r.db, n)
}

func (r *repo) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	return nodemodel.Updates(ctx, r.db, id, values)
}

func (r *repo) Delete(ctx context.Context, id string) error {
	return nodemodel.Delete(ctx, r.db, id)
}

func (r *repo) List(ctx context.Context, id, location string, activeSinceTS int64) ([]nodemodel.Node, error) {
	return nodemodel.List(ctx, r.db, id, location, activeSinceTS)
}

func (r *repo) TouchHeartbeat(ctx context.Context, id string, ts int64) error {
	return nodemodel.TouchHeartbeat(ctx, r.db, id, ts)
}

func (r *repo) SetScavenger(ctx context.Context, id string, active bool) error {
	return nodemodel.SetScavenger(ctx, r.db, id, active)
}

func (r *repo) CompareAndSwapAdmissionVersion(ctx context.Context, id string, expected int64) (bool, error) {
	return nodemodel.CompareAndSwapAdmissionVersion(ctx, r.db, id, expected)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
