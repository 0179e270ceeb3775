// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sk-pkg/util"

	nodemodel "github.com/leoscope/leoscope/app/model/node"
	usermodel "github.com/leoscope/leoscope/app/model/user"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

// RegisterNode implements register_node (§4.3): creates both a nodes entry
// and a users entry with role NODE, keyed by the same id, and returns a
// freshly minted static token to the operator exactly once — the same
// contract RegisterUser gives human callers. The node's own coordclient is
// constructed with x-userid=<node id>, so without the paired users row
// auth.go's credential check would never pass.
func (s *Service) RegisterNode(ctx context.Context, n *nodemodel.Node) (node *nodemodel.Node, plaintextToken string, err error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	plaintextToken = util.RandUpStr(32)
	u := &usermodel.User{
		ID:              n.ID,
		Name:            n.DisplayName,
		Role:            usermodel.RoleNode,
		StaticTokenHash: hashToken(plaintextToken),
	}
	if err = s.Users.Create(ctx, u); err != nil {
		return nil, "", fmt.Errorf("coordinator: create node user: %w", err)
	}

	if err = s.Nodes.Create(ctx, n); err != nil {
		return nil, "", fmt.Errorf("coordinator: create node: %w", err)
	}
	return n, plaintextToken, nil
}

// UpdateNode implements update_node.
func (s *Service) UpdateNode(ctx context.Context, id string, values map[string]interface{}) error {
	if _, err := s.Nodes.Get(ctx, id); err != nil {
		return apperr.New(e.NotFound, "node not found")
	}
	if err := s.Nodes.Updates(ctx, id, values); err != nil {
		return fmt.Errorf("coordinator: update node: %w", err)
	}
	return nil
}

// DeleteNode implements delete_node.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	if err := s.Nodes.Delete(ctx, id); err != nil {
		return fmt.Errorf("coordinator: delete node: %w", err)
	}
	return nil
}

// GetNodes implements get_nodes.
func (s *Service) GetNodes(ctx context.Context, id, location string, activeSinceTS int64) ([]nodemodel.Node, error) {
	nodes, err := s.Nodes.List(ctx, id, location, activeSinceTS)
	if err != nil {
		return nil, fmt.Errorf("coordinator: list nodes: %w", err)
	}
	return nodes, nil
}

// ReportHeartbeat implements report_heartbeat (§4.6 step 5). Heartbeats
// that arrive out of order against an already-newer timestamp are
// silently accepted as no-ops by the underlying monotonic update.
func (s *Service) ReportHeartbeat(ctx context.Context, nodeID string, ts int64) error {
	if err := s.Nodes.TouchHeartbeat(ctx, nodeID, ts); err != nil {
		return fmt.Errorf("coordinator: heartbeat: %w", err)
	}
	return nil
}

// SetScavenger implements set_scavenger: flips a node's scavenger flag,
// which the node agent's own loop checks on its next iteration to decide
// whether to abort running overhead jobs (§4.6 step 4).
func (s *Service) SetScavenger(ctx context.Context, nodeID string, active bool) error {
	if err := s.Nodes.SetScavenger(ctx, nodeID, active); err != nil {
		return fmt.Errorf("coordinator: set scavenger: %w", err)
	}
	if active {
		_ = s.notifier.Notify(ctx, fmt.Sprintf("scavenger activated on node %s", nodeID))
	}
	return nil
}

// GetScavenger implements get_scavenger.
func (s *Service) GetScavenger(ctx context.Context, nodeID string) (bool, error) {
	n, err := s.Nodes.Get(ctx, nodeID)
	if err != nil {
		return false, apperr.New(e.NotFound, "node not found")
	}
	return n.ScavengerActive, nil
}
