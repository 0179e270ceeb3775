// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"fmt"

	configmodel "github.com/leoscope/leoscope/app/model/config"
)

// GetConfig implements get_config: readable by any authenticated party.
func (s *Service) GetConfig(ctx context.Context) (*configmodel.GlobalConfig, error) {
	cfg, err := s.Configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("coordinator: get config: %w", err)
	}
	return cfg, nil
}

// UpdateGlobalConfig implements update_global_config: ADMIN only, the role
// check itself lives in the HTTP handler alongside the other per-operation
// role gates (§6).
func (s *Service) UpdateGlobalConfig(ctx context.Context, document string) error {
	if err := s.Configs.Update(ctx, document); err != nil {
		return fmt.Errorf("coordinator: update config: %w", err)
	}
	return nil
}

// KernelAccess implements kernel_access (§4.3, §4.7): an ADMIN-only escape
// hatch documented as out of scope for fine-grained authorization — any
// caller who clears the ADMIN role gate may invoke it. The coordinator
// only validates the caller's role; the requested action is opaque.
func (s *Service) KernelAccess(ctx context.Context, action string) (string, error) {
	s.logger.Info(ctx, fmt.Sprintf("kernel_access invoked: %s", action))
	return "ok", nil
}
