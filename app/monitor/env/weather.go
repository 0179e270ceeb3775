// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package env

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app/pkg/schedule"
	"github.com/leoscope/leoscope/app/trigger"
)

// weatherResponse is the subset of a weather API's payload the trigger
// grammar (§4.2) needs exposed as snapshot keys.
type weatherResponse struct {
	CloudCoverPct float64 `json:"cloud_cover_pct"`
	WindSpeedMps  float64 `json:"wind_speed_mps"`
	Condition     string  `json:"condition"`
}

type weatherHandler struct {
	done     chan struct{}
	errCh    chan error
	logger   *logger.Manager
	client   *resty.Client
	apiURL   string
	snapshot *trigger.Snapshot
}

// NewWeatherMonitor creates a schedule.HandlerFunc polling a weather API on
// a 60s cadence (§4.8), the same go-resty fetch shape app/job/monitor's
// ipHandler uses for its public-IP check.
func NewWeatherMonitor(logger *logger.Manager, apiURL string, snapshot *trigger.Snapshot) schedule.HandlerFunc {
	return &weatherHandler{
		done:     make(chan struct{}),
		errCh:    make(chan error),
		logger:   logger,
		client:   resty.New(),
		apiURL:   apiURL,
		snapshot: snapshot,
	}
}

func (h *weatherHandler) Exec(ctx context.Context) {
	defer func() { h.done <- struct{}{} }()

	var payload weatherResponse
	res, err := h.client.R().SetContext(ctx).SetResult(&payload).Get(h.apiURL)
	if err != nil {
		h.errCh <- fmt.Errorf("weather monitor: fetch: %w", err)
		return
	}
	if res.StatusCode() != 200 {
		h.errCh <- fmt.Errorf("weather monitor: fetch status %d", res.StatusCode())
		return
	}

	h.snapshot.SetNumber("weather.cloud_cover_pct", payload.CloudCoverPct)
	h.snapshot.SetNumber("weather.wind_speed_mps", payload.WindSpeedMps)
	h.snapshot.SetString("weather.condition", payload.Condition)

	h.logger.Info(ctx, "weather snapshot updated", zap.Float64("cloud_cover_pct", payload.CloudCoverPct))
}

func (h *weatherHandler) Error() <-chan error     { return h.errCh }
func (h *weatherHandler) Done() <-chan struct{}   { return h.done }
