// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package user implements user-domain repository access methods.
package user

import (
	"context"

	usermodel "github.com/leoscope/leoscope/app/model/user"
	"gorm.io/gorm"
)

type (
	// Repo defines persistence operations for users.
	Repo interface {
		Get(ctx context.Context, id string) (*usermodel.User, error)
		Create(ctx context.Context, u *usermodel.User) error
		Updates(ctx context.Context, id string, values map[string]interface{}) error
		Delete(ctx context.Context, id string) error
	}

	repo struct {
		db *gorm.DB
	}
)

func (r *repo) Get(ctx context.Context, id string) (*usermodel.User, error) {
	return usermodel.First(ctx, r.db, id)
}

func (r *repo) Create(ctx context.Context, u *usermodel.User) error {
	return usermodel.Create(ctx, r.db, u)
}

func (r *repo) Updates(ctx context.Context, id string, values map[string]interface{}) error {
	return usermodel.Updates(ctx, r.db, id, values)
}

func (r *repo) Delete(ctx context.Context, id string) error {
	return usermodel.Delete(ctx, r.db, id)
}

// New creates a Repo backed by GORM.
func New(db *gorm.DB) Repo {
	return &repo{db: db}
}
