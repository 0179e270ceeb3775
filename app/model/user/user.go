// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package user defines the User metadata entity and its persistence methods.
package user

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Role is the tagged variant for a user's authorization level.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleNodePriv Role = "NODE_PRIV"
	RoleUserPriv Role = "USER_PRIV"
	RoleNode     Role = "NODE"
	RoleUser     Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNodePriv, RoleUserPriv, RoleNode, RoleUser:
		return true
	}
	return false
}

// roleRank gives the fixed total order ADMIN > NODE_PRIV > USER_PRIV >
// {NODE, USER} used by AtLeast. NODE and USER share the base tier; whether a
// handler additionally requires the caller to BE a node (rather than any
// base-tier principal) is an identity check done by the handler, not a rank
// comparison.
var roleRank = map[Role]int{
	RoleUser:     0,
	RoleNode:     0,
	RoleUserPriv: 1,
	RoleNodePriv: 2,
	RoleAdmin:    3,
}

// AtLeast reports whether this role satisfies a "caller role >= min" check
// from the external interface table in the specification.
func (r Role) AtLeast(min Role) bool {
	rr, ok1 := roleRank[r]
	mr, ok2 := roleRank[min]
	return ok1 && ok2 && rr >= mr
}

// User is the metadata-store record for an authenticated principal.
//
// static_token is never stored in clear text: StaticTokenHash carries a
// constant-time-comparable digest, and the plaintext token is returned to
// the caller exactly once, at registration.
type User struct {
	ID              string `gorm:"column:id;primaryKey;size:64" json:"id"`
	Name            string `gorm:"column:name;size:128;not null" json:"name"`
	Role            Role   `gorm:"column:role;size:16;not null;index" json:"role"`
	Team            string `gorm:"column:team;size:128" json:"team"`
	StaticTokenHash string `gorm:"column:static_token_hash;size:128" json:"-"`
	SignedTokenJTI  string `gorm:"column:signed_token_jti;size:64" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// First loads one user record by id.
func First(ctx context.Context, db *gorm.DB, id string) (*User, error) {
	var u User
	err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create persists a new user record.
func Create(ctx context.Context, db *gorm.DB, u *User) error {
	return db.WithContext(ctx).Create(u).Error
}

// Updates applies a partial update to an existing user record.
func Updates(ctx context.Context, db *gorm.DB, id string, values map[string]interface{}) error {
	return db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Updates(values).Error
}

// Delete removes a user record by id.
func Delete(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&User{}).Error
}
