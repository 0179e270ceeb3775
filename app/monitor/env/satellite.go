// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package env implements the environmental monitors (C8, §4.8): crash-
// isolated pollers that write observations into a shared trigger.Snapshot
// on their own cadence, the same fetch/compare/write-through shape as
// app/job/monitor's ipHandler, generalized from "compare against Redis"
// to "write through to the in-process snapshot the evaluator reads".
package env

import (
	"context"
	"fmt"

	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app/pkg/schedule"
	"github.com/leoscope/leoscope/app/trigger"
)

// SatelliteSource supplies the live pass geometry a satellite monitor
// polls. Production wires this to the node's tracking stack; tests wire a
// fake.
type SatelliteSource interface {
	Elevation(ctx context.Context) (degrees float64, err error)
	Azimuth(ctx context.Context) (degrees float64, err error)
}

type satelliteHandler struct {
	done     chan struct{}
	errCh    chan error
	logger   *logger.Manager
	source   SatelliteSource
	snapshot *trigger.Snapshot
}

// NewSatelliteMonitor creates a schedule.HandlerFunc polling satellite pass
// geometry at 1-5s cadence (§4.8) and writing "satellite.elevation" /
// "satellite.azimuth" into snapshot.
func NewSatelliteMonitor(logger *logger.Manager, source SatelliteSource, snapshot *trigger.Snapshot) schedule.HandlerFunc {
	return &satelliteHandler{
		done:     make(chan struct{}),
		errCh:    make(chan error),
		logger:   logger,
		source:   source,
		snapshot: snapshot,
	}
}

func (h *satelliteHandler) Exec(ctx context.Context) {
	defer func() { h.done <- struct{}{} }()

	elevation, err := h.source.Elevation(ctx)
	if err != nil {
		h.errCh <- fmt.Errorf("satellite monitor: read elevation: %w", err)
		return
	}
	h.snapshot.SetNumber("satellite.elevation", elevation)

	azimuth, err := h.source.Azimuth(ctx)
	if err != nil {
		h.errCh <- fmt.Errorf("satellite monitor: read azimuth: %w", err)
		return
	}
	h.snapshot.SetNumber("satellite.azimuth", azimuth)

	h.logger.Info(ctx, "satellite snapshot updated", zap.Float64("elevation", elevation), zap.Float64("azimuth", azimuth))
}

func (h *satelliteHandler) Error() <-chan error      { return h.errCh }
func (h *satelliteHandler) Done() <-chan struct{}     { return h.done }
