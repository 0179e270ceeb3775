// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package config implements config-domain repository access methods.
package config

import (
	"context"

	configmodel "github.com/leoscope/leoscope/app/model/config"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for the singleton GlobalConfig.
	Repo interface {
		Get(ctx context.Context) (*configmodel.GlobalConfig, error)
		Update(ctx context.Context, document string) error
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context) (*configmodel.GlobalConfig, error) {
	return configmodel.Get(ctx, r.db)
}

func (r *repo) Update(ctx context.Context, document string) error {
	return configmodel.Update(ctx, r.db, document)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
