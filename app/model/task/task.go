// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package task defines the Task metadata entity used for client/server job
// rendezvous (§4.5).
package task

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Kind is the tagged variant for a task's purpose. SERVER_SETUP is the only
// kind named by the specification; the type leaves room for future kinds
// without widening every caller's switch to a bare string compare.
type Kind string

const (
	KindServerSetup Kind = "SERVER_SETUP"
)

// Status is the tagged variant for task lifecycle state.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusComplete Status = "COMPLETE"
	StatusFailed   Status = "FAILED"
)

// Task is the metadata-store record bridging a client run to its paired
// server-side setup job.
type Task struct {
	ID        string `gorm:"column:id;primaryKey;size:64" json:"id"`
	RunID     string `gorm:"column:run_id;size:64;not null;index" json:"run_id"`
	JobID     string `gorm:"column:job_id;size:64;not null" json:"job_id"`
	NodeID    string `gorm:"column:node_id;size:64;not null;index" json:"node_id"`
	Kind      Kind   `gorm:"column:kind;size:32;not null" json:"kind"`
	Status    Status `gorm:"column:status;size:16;not null" json:"status"`
	TTLSecs   int64  `gorm:"column:ttl_secs;not null" json:"ttl_secs"`
	CreatedTS int64  `gorm:"column:created_ts;not null" json:"created_ts"`
}

func (Task) TableName() string {
	return "tasks"
}

// Dead reports whether the task has outlived its TTL, per §4.5's
// "coordinator treats expired tasks as dead on read" rule — there is no
// background sweeper, so this check runs inline wherever a task is fetched.
func (t Task) Dead(nowTS int64) bool {
	return t.CreatedTS+t.TTLSecs < nowTS
}

// Create persists a new task record.
func Create(ctx context.Context, db *gorm.DB, t *Task) error {
	return db.WithContext(ctx).Create(t).Error
}

// First loads one task by id.
func First(ctx context.Context, db *gorm.DB, id string) (*Task, error) {
	var t Task
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ByNode returns tasks assigned to a given node, for the peer's scheduler
// loop to poll and execute (§4.5).
func ByNode(ctx context.Context, db *gorm.DB, nodeID string) ([]Task, error) {
	var tasks []Task
	if err := db.WithContext(ctx).Where("node_id = ?", nodeID).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateStatus sets a task's status.
func UpdateStatus(ctx context.Context, db *gorm.DB, id string, status Status) error {
	return db.WithContext(ctx).Model(&Task{}).Where("id = ?", id).Update("status", status).Error
}
