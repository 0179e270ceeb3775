// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package env

import (
	"context"
	"fmt"

	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app/pkg/schedule"
	"github.com/leoscope/leoscope/app/trigger"
)

// TelemetrySource supplies ground-terminal health readings a telemetry
// monitor polls every second — the tightest cadence among the
// environmental monitors (§4.8), since terminal faults must gate a
// firing almost immediately.
type TelemetrySource interface {
	LinkQuality(ctx context.Context) (pct float64, err error)
	TemperatureC(ctx context.Context) (celsius float64, err error)
}

type telemetryHandler struct {
	done     chan struct{}
	errCh    chan error
	logger   *logger.Manager
	source   TelemetrySource
	snapshot *trigger.Snapshot
}

// NewTelemetryMonitor creates a schedule.HandlerFunc polling terminal
// telemetry at 1s cadence (§4.8), writing "telemetry.link_quality_pct"
// and "telemetry.temperature_c" into snapshot.
func NewTelemetryMonitor(logger *logger.Manager, source TelemetrySource, snapshot *trigger.Snapshot) schedule.HandlerFunc {
	return &telemetryHandler{
		done:     make(chan struct{}),
		errCh:    make(chan error),
		logger:   logger,
		source:   source,
		snapshot: snapshot,
	}
}

func (h *telemetryHandler) Exec(ctx context.Context) {
	defer func() { h.done <- struct{}{} }()

	quality, err := h.source.LinkQuality(ctx)
	if err != nil {
		h.errCh <- fmt.Errorf("telemetry monitor: read link quality: %w", err)
		return
	}
	h.snapshot.SetNumber("telemetry.link_quality_pct", quality)

	temp, err := h.source.TemperatureC(ctx)
	if err != nil {
		h.errCh <- fmt.Errorf("telemetry monitor: read temperature: %w", err)
		return
	}
	h.snapshot.SetNumber("telemetry.temperature_c", temp)

	if quality < 50 {
		h.logger.Warn(ctx, "terminal link quality degraded", zap.Float64("link_quality_pct", quality))
	}
}

func (h *telemetryHandler) Error() <-chan error    { return h.errCh }
func (h *telemetryHandler) Done() <-chan struct{}  { return h.done }
