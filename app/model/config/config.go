// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package config defines the singleton GlobalConfig metadata entity.
package config

import (
	"context"

	"gorm.io/gorm"
)

// singletonID is the fixed primary key of the one GlobalConfig row.
const singletonID = 1

// GlobalConfig is a single opaque document, writable by ADMIN only and
// readable by any authenticated party.
type GlobalConfig struct {
	ID       int    `gorm:"column:id;primaryKey"`
	Document string `gorm:"column:document;type:text"`
}

func (GlobalConfig) TableName() string {
	return "config"
}

// Get loads the singleton config document, returning an empty document when
// none has been written yet.
func Get(ctx context.Context, db *gorm.DB) (*GlobalConfig, error) {
	var c GlobalConfig
	err := db.WithContext(ctx).Where("id = ?", singletonID).First(&c).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &GlobalConfig{ID: singletonID}, nil
		}
		return nil, err
	}
	return &c, nil
}

// Update upserts the singleton config document.
func Update(ctx context.Context, db *gorm.DB, document string) error {
	c := GlobalConfig{ID: singletonID, Document: document}
	return db.WithContext(ctx).Save(&c).Error
}
