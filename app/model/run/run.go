// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package run defines the Run metadata entity: the executor's lifecycle
// record for one firing of a job.
package run

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status is the tagged variant for a run's position in the executor DAG
// (§4.4). Transitions only move forward; see Advances.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusDeploying Status = "DEPLOYING"
	StatusRunning   Status = "RUNNING"
	StatusUploading Status = "UPLOADING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusAborted   Status = "ABORTED"
	StatusSkipped   Status = "SKIPPED"
)

// rank gives each status its position for monotonicity checks. Terminal
// statuses (COMPLETED, FAILED, ABORTED, SKIPPED) all outrank every
// non-terminal status but are mutually incomparable — a run only ever
// reaches one of them.
var rank = map[Status]int{
	StatusScheduled: 0,
	StatusDeploying: 1,
	StatusRunning:   2,
	StatusUploading: 3,
	StatusCompleted: 4,
	StatusFailed:    4,
	StatusAborted:   4,
	StatusSkipped:   4,
}

func isTerminal(s Status) bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted, StatusSkipped:
		return true
	}
	return false
}

// Advances reports whether transitioning from `from` to `to` is a forward
// move along the DAG in §4.4. A terminal status never advances further.
func Advances(from, to Status) bool {
	if isTerminal(from) {
		return false
	}
	fr, ok1 := rank[from]
	tr, ok2 := rank[to]
	if !ok1 || !ok2 {
		return false
	}
	return tr > fr
}

// Run is the metadata-store record produced and advanced by the executor.
type Run struct {
	ID            string  `gorm:"column:id;primaryKey;size:64" json:"id"`
	JobID         string  `gorm:"column:job_id;size:64;not null;index" json:"job_id"`
	NodeID        string  `gorm:"column:node_id;size:64;not null;index" json:"node_id"`
	OwnerID       string  `gorm:"column:owner_id;size:64;not null" json:"owner_id"`
	Status        Status  `gorm:"column:status;size:16;not null" json:"status"`
	StartTS       int64   `gorm:"column:start_ts;not null" json:"start_ts"`
	EndTS         *int64  `gorm:"column:end_ts" json:"end_ts,omitempty"`
	StatusMessage string  `gorm:"column:status_message;size:1024" json:"status_message,omitempty"`
	ArtifactURL   string  `gorm:"column:artifact_url;size:512" json:"artifact_url,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Run) TableName() string {
	return "runs"
}

// First loads one run by id.
func First(ctx context.Context, db *gorm.DB, id string) (*Run, error) {
	var r Run
	if err := db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// Create persists a new run record, created by the executor at deploy time.
func Create(ctx context.Context, db *gorm.DB, r *Run) error {
	return db.WithContext(ctx).Create(r).Error
}

// ErrBackwardTransition is returned when a caller attempts to move a run's
// status to a position that does not advance along the DAG.
var ErrBackwardTransition = fmt.Errorf("run: status transition would not advance along the DAG")

// AdvanceStatus performs the compare-and-set enforcing forward-only status
// transitions (§5 "Run status transitions are monotonic ... enforced by
// compare-and-set"). It rejects the write in-process first so a backward
// request never reaches the database, then uses a conditional UPDATE to
// close the race against a concurrent advance of the same run.
func AdvanceStatus(ctx context.Context, db *gorm.DB, id string, to Status, statusMessage string, endTS *int64, artifactURL string) error {
	current, err := First(ctx, db, id)
	if err != nil {
		return err
	}
	if !Advances(current.Status, to) {
		return ErrBackwardTransition
	}

	values := map[string]interface{}{
		"status": to,
	}
	if statusMessage != "" {
		values["status_message"] = statusMessage
	}
	if endTS != nil {
		values["end_ts"] = *endTS
	}
	if artifactURL != "" {
		values["artifact_url"] = artifactURL
	}

	tx := db.WithContext(ctx).Model(&Run{}).
		Where("id = ? AND status = ?", id, current.Status).
		Updates(values)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrBackwardTransition
	}
	return nil
}

// ByFilter returns runs matching the optional job/node/owner filters.
func ByFilter(ctx context.Context, db *gorm.DB, jobID, nodeID, ownerID string, scheduledOnly bool) ([]Run, error) {
	q := db.WithContext(ctx).Model(&Run{})
	if jobID != "" {
		q = q.Where("job_id = ?", jobID)
	}
	if nodeID != "" {
		q = q.Where("node_id = ?", nodeID)
	}
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	if scheduledOnly {
		q = q.Where("status = ?", StatusScheduled)
	}

	var runs []Run
	if err := q.Order("start_ts desc").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// RunningByNode returns every RUNNING run on a node. It does not filter on
// overhead: that is a job attribute, not a run attribute, so a caller that
// needs only overhead runs (§4.6 step 4) joins against jobs itself.
func RunningByNode(ctx context.Context, db *gorm.DB, nodeID string) ([]Run, error) {
	var runs []Run
	err := db.WithContext(ctx).
		Where("node_id = ? AND status = ?", nodeID, StatusRunning).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}
