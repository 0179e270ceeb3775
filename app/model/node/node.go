// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package node defines the Node metadata entity used by the coordinator.
package node

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Node is a registered measurement site. AdmissionVersion is the monotonic
// counter used as an optimistic-concurrency fence for the per-node admission
// critical section (§5): a caller reads it, computes a decision, then writes
// with a conditional `WHERE admission_version = ?`; a zero RowsAffected
// means another admission raced it and the caller must retry.
type Node struct {
	ID               string  `gorm:"column:id;primaryKey;size:64" json:"id"`
	DisplayName      string  `gorm:"column:display_name;size:128" json:"display_name"`
	Lat              float64 `gorm:"column:lat" json:"lat"`
	Lon              float64 `gorm:"column:lon" json:"lon"`
	Location         string  `gorm:"column:location;size:128" json:"location"`
	Provider         string  `gorm:"column:provider;size:64" json:"provider"`
	LastActiveTS     int64   `gorm:"column:last_active_ts" json:"last_active_ts"`
	PublicIP         string  `gorm:"column:public_ip;size:64" json:"public_ip,omitempty"`
	ScavengerActive  bool    `gorm:"column:scavenger_active" json:"scavenger_active"`
	AdmissionVersion int64   `gorm:"column:admission_version;default:0" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Node) TableName() string {
	return "nodes"
}

// First loads one node by id.
func First(ctx context.Context, db *gorm.DB, id string) (*Node, error) {
	var n Node
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// Create persists a new node record.
func Create(ctx context.Context, db *gorm.DB, n *Node) error {
	return db.WithContext(ctx).Create(n).Error
}

// Updates applies a partial update to an existing node record.
func Updates(ctx context.Context, db *gorm.DB, id string, values map[string]interface{}) error {
	return db.WithContext(ctx).Model(&Node{}).Where("id = ?", id).Updates(values).Error
}

// Delete removes a node record by id.
func Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&Node{}).Error
}

// TouchHeartbeat advances last_active_ts monotonically: a heartbeat carrying
// an older timestamp than what is stored is silently ignored rather than
// rejected, since heartbeats may arrive out of order over an unreliable link.
func TouchHeartbeat(ctx context.Context, db *gorm.DB, id string, ts int64) error {
	return db.WithContext(ctx).Model(&Node{}).
		Where("id = ? AND last_active_ts < ?", id, ts).
		Update("last_active_ts", ts).Error
}

// List returns nodes matching the optional filter fields. Any zero-valued
// field is treated as "no filter on this dimension".
func List(ctx context.Context, db *gorm.DB, id, location string, activeSinceTS int64) ([]Node, error) {
	q := db.WithContext(ctx).Model(&Node{})
	if id != "" {
		q = q.Where("id = ?", id)
	}
	if location != "" {
		q = q.Where("location = ?", location)
	}
	if activeSinceTS > 0 {
		q = q.Where("last_active_ts >= ?", activeSinceTS)
	}

	var nodes []Node
	if err := q.Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// CompareAndSwapAdmissionVersion performs the conditional update backing the
// per-node admission critical section (§5 "document-store conditional
// update on a monotonic admission_version field per node"). It returns
// false, with no error, when the version has moved since the caller last
// read it — the caller must reload and retry.
func CompareAndSwapAdmissionVersion(ctx context.Context, db *gorm.DB, id string, expected int64) (bool, error) {
	tx := db.WithContext(ctx).Model(&Node{}).
		Where("id = ? AND admission_version = ?", id, expected).
		Update("admission_version", expected+1)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// SetScavenger toggles scavenger_active for a node.
func SetScavenger(ctx context.Context, db *gorm.DB, id string, active bool) error {
	return db.WithContext(ctx).Model(&Node{}).Where("id = ?", id).Update("scavenger_active", active).Error
}
