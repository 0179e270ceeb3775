// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/sk-pkg/util"

	usermodel "github.com/leoscope/leoscope/app/model/user"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

// RegisterUser implements register_user (§4.3, §4.7): only ADMIN may call
// this. It mints a static token, returns it to the caller exactly once,
// and stores only its digest (User.StaticTokenHash).
func (s *Service) RegisterUser(ctx context.Context, name string, role usermodel.Role, team string) (u *usermodel.User, plaintextToken string, err error) {
	if !role.Valid() {
		return nil, "", apperr.New(e.InvalidParams, "invalid role")
	}

	plaintextToken = util.RandUpStr(32)
	u = &usermodel.User{
		ID:              uuid.NewString(),
		Name:            name,
		Role:            role,
		Team:            team,
		StaticTokenHash: hashToken(plaintextToken),
	}

	if err = s.Users.Create(ctx, u); err != nil {
		return nil, "", fmt.Errorf("coordinator: create user: %w", err)
	}
	return u, plaintextToken, nil
}

// ModifyUser implements modify_user.
func (s *Service) ModifyUser(ctx context.Context, id string, values map[string]interface{}) error {
	if _, err := s.Users.Get(ctx, id); err != nil {
		return apperr.New(e.NotFound, "user not found")
	}
	if err := s.Users.Updates(ctx, id, values); err != nil {
		return fmt.Errorf("coordinator: update user: %w", err)
	}
	return nil
}

// DeleteUser implements delete_user.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.Users.Delete(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete user: %w", err)
	}
	return nil
}

// hashToken computes the digest stored alongside a user record. The
// constant-time comparison happens at the auth gate (middleware), not
// here — this is storage-at-rest hygiene only.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Bootstrap seeds the ADMIN accounts listed in Coordinator.StaticTokens
// (user_id -> plaintext token) so a freshly provisioned coordinator has at
// least one caller able to register further users and nodes, breaking the
// otherwise-circular requirement that register_user itself needs an ADMIN
// caller. Existing users are left untouched; only ids absent from the
// metadata store are created.
func (s *Service) Bootstrap(ctx context.Context) error {
	for id, token := range s.staticTokens {
		if _, err := s.Users.Get(ctx, id); err == nil {
			continue
		}

		u := &usermodel.User{
			ID:              id,
			Name:            id,
			Role:            usermodel.RoleAdmin,
			StaticTokenHash: hashToken(token),
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("coordinator: bootstrap admin %s: %w", id, err)
		}
	}
	return nil
}
