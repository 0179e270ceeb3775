// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package job defines the Job metadata entity: schedule, validity, and the
// container parameters an admitted job carries.
package job

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Kind is the tagged variant distinguishing recurring from one-shot jobs.
type Kind string

const (
	KindCron Kind = "CRON"
	KindATQ  Kind = "ATQ"
)

func (k Kind) Valid() bool {
	return k == KindCron || k == KindATQ
}

// Params mirrors the {mode, deploy, execute, finish} shape named in the
// data model: deploy/execute/finish name the container images or commands
// run at each executor phase, and mode is an opaque experiment-specific
// discriminator passed through unchanged.
type Params struct {
	Mode    string `json:"mode,omitempty"`
	Deploy  string `json:"deploy,omitempty"`
	Execute string `json:"execute"`
	Finish  string `json:"finish,omitempty"`
}

// Job is the metadata-store record for one scheduled experiment.
type Job struct {
	ID                string `gorm:"column:id;primaryKey;size:64" json:"id"`
	NodeID            string `gorm:"column:node_id;size:64;not null;index" json:"node_id"`
	OwnerID           string `gorm:"column:owner_id;size:64;not null;index" json:"owner_id"`
	Kind              Kind   `gorm:"column:kind;size:8;not null" json:"kind"`
	CronExpr          string `gorm:"column:cron_expr;size:128" json:"cron_expr,omitempty"`
	OneShotAt         int64  `gorm:"column:one_shot_at" json:"one_shot_at,omitempty"`
	ValidityStartTS   int64  `gorm:"column:validity_start_ts;not null" json:"validity_start_ts"`
	ValidityEndTS     int64  `gorm:"column:validity_end_ts;not null" json:"validity_end_ts"`
	LengthSecs        int64  `gorm:"column:length_secs;not null" json:"length_secs"`
	Overhead          bool   `gorm:"column:overhead;not null;index" json:"overhead"`
	PairedServerNodeID string `gorm:"column:paired_server_node_id;size:64" json:"paired_server_node_id,omitempty"`
	Trigger           string `gorm:"column:trigger_expr;size:512" json:"trigger,omitempty"`
	Config            string `gorm:"column:config;type:text" json:"config"`
	Params            datatypes.JSONType[Params] `gorm:"column:params" json:"params"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// First loads one job by id.
func First(ctx context.Context, db *gorm.DB, id string) (*Job, error) {
	var j Job
	if err := db.WithContext(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

// Create persists a new job record. Idempotent callers are expected to
// First() by id before calling Create to honor the no-op-on-identical-
// resubmit property in §8; this helper performs the bare insert.
func Create(ctx context.Context, db *gorm.DB, j *Job) error {
	return db.WithContext(ctx).Create(j).Error
}

// Updates applies a partial update to an existing job record.
func Updates(ctx context.Context, db *gorm.DB, id string, values map[string]interface{}) error {
	return db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(values).Error
}

// Delete removes a job record by id.
func Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&Job{}).Error
}

// ByNode returns admitted jobs whose node_id matches, OR whose
// paired_server_node_id matches — the node agent distinguishes its role
// (client vs. server) from which field matched (§4.3 get_jobs_by_nodeid).
func ByNode(ctx context.Context, db *gorm.DB, nodeID string) ([]Job, error) {
	var jobs []Job
	err := db.WithContext(ctx).
		Where("node_id = ? OR paired_server_node_id = ?", nodeID, nodeID).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// ByOwner returns all jobs owned by a given user id.
func ByOwner(ctx context.Context, db *gorm.DB, ownerID string) ([]Job, error) {
	var jobs []Job
	if err := db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

// OverheadOnNodes returns admitted overhead jobs whose node_id or
// paired_server_node_id is one of the given node ids — the candidate set
// the admission algorithm (§4.1 step 1)
// must check a new job against.
func OverheadOnNodes(ctx context.Context, db *gorm.DB, nodeIDs []string) ([]Job, error) {
	if len(nodeIDs) == 0 {
		return nil, nil
	}
	var jobs []Job
	err := db.WithContext(ctx).
		Where("overhead = ? AND (node_id IN ? OR paired_server_node_id IN ?)", true, nodeIDs, nodeIDs).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
