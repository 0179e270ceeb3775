// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/sk-pkg/logger"
	"go.uber.org/zap"

	"github.com/leoscope/leoscope/app"
	"github.com/leoscope/leoscope/app/blobstore"
	"github.com/leoscope/leoscope/app/coordclient"
	"github.com/leoscope/leoscope/app/executor"
	"github.com/leoscope/leoscope/app/monitor/env"
	"github.com/leoscope/leoscope/app/nodeagent"
	"github.com/leoscope/leoscope/app/pkg/schedule"
	"github.com/leoscope/leoscope/app/pkg/trace"
	"github.com/leoscope/leoscope/app/trigger"
)

// NodeApp stores the dependencies the node-agent process needs: the
// coordinator client, Docker access, artifact storage, the trigger
// snapshot the environmental monitors feed, and the scheduler loop
// itself. It is deliberately separate from App (the coordinator's
// container), since coordinatord and noded are different binaries
// running on different machines (§5).
type NodeApp struct {
	Config   *app.Config
	Logger   *logger.Manager
	TraceID  *trace.ID
	Coord    *coordclient.Client
	Docker   *executor.Docker
	Store    blobstore.Store
	Snapshot *trigger.Snapshot
	Executor *executor.Executor
	Agent    *nodeagent.Agent
	EnvSched *schedule.Schedule
}

// NewNodeApp creates a fully initialized node-agent container.
func NewNodeApp(ctx context.Context, config *app.Config) (*NodeApp, error) {
	na := &NodeApp{Config: config}
	na.TraceID = trace.NewTraceID()

	var err error
	na.Logger, err = logger.New(
		logger.WithLevel(config.Log.Level),
		logger.WithDriver(config.Log.Driver),
		logger.WithLogPath(config.Log.LogPath),
	)
	if err != nil {
		return nil, fmt.Errorf("node app: logger: %w", err)
	}

	na.Coord = coordclient.New(config.NodeAgent.CoordinatorURL, config.NodeAgent.NodeID, config.NodeAgent.AccessToken)

	na.Docker, err = executor.NewDocker(ctx, na.Logger)
	if err != nil {
		return nil, fmt.Errorf("node app: docker: %w", err)
	}

	na.Store, err = blobstore.New(ctx, config.BlobStore)
	if err != nil {
		return nil, fmt.Errorf("node app: blobstore: %w", err)
	}

	na.Snapshot = trigger.NewSnapshot()

	na.Executor = executor.New(na.Coord, na.Docker, na.Store, na.Snapshot, na.Logger, config.NodeAgent.WorkDir, config.NodeAgent.NodeID)

	spawner := &osProcessSpawner{logger: na.Logger}
	na.Agent = nodeagent.New(na.Coord, nodeagent.NewDockerLister(na.Docker), spawner, na.Logger, config.NodeAgent.NodeID)

	na.EnvSched = schedule.New(na.Logger, nil, na.TraceID)
	na.loadEnvMonitors()

	na.Logger.Info(ctx, "Node agent loaded successfully", zap.String("node_id", config.NodeAgent.NodeID))
	return na, nil
}

// loadEnvMonitors registers the environmental monitors (C8) on their own
// dispatcher instance, the same PerSeconds(...).WithoutOverlapping()
// shape app/pkg/schedule offers, each feeding the shared Snapshot the
// executor's trigger gate reads.
func (na *NodeApp) loadEnvMonitors() {
	cfg := na.Config.EnvMonitor

	satellitePoll := cfg.SatellitePollEvery
	if satellitePoll <= 0 {
		satellitePoll = 5
	}
	telemetryPoll := cfg.TelemetryPollEvery
	if telemetryPoll <= 0 {
		telemetryPoll = 1
	}
	weatherPoll := cfg.WeatherPollEvery
	if weatherPoll <= 0 {
		weatherPoll = 60
	}

	na.EnvSched.AddJob("satellite-monitor", env.NewSatelliteMonitor(na.Logger, &unsupportedSatelliteSource{}, na.Snapshot)).
		PerSeconds(int(satellitePoll)).WithoutOverlapping()
	na.EnvSched.AddJob("telemetry-monitor", env.NewTelemetryMonitor(na.Logger, &unsupportedTelemetrySource{}, na.Snapshot)).
		PerSeconds(int(telemetryPoll)).WithoutOverlapping()
	if cfg.WeatherAPIURL != "" {
		na.EnvSched.AddJob("weather-monitor", env.NewWeatherMonitor(na.Logger, cfg.WeatherAPIURL, na.Snapshot)).
			PerSeconds(int(weatherPoll)).WithoutOverlapping()
	}
}

// Start launches the node agent's background loops: the scheduler loop
// and the environmental monitor dispatcher.
func (na *NodeApp) Start(ctx context.Context) {
	na.EnvSched.Start()
	go na.Agent.Run(ctx)
}

// osProcessSpawner implements nodeagent.Spawner by re-executing this same
// binary with an "execute" subcommand — the node scheduler loop spawns
// the executor as an isolated OS process per firing (§5), rather than
// running the lifecycle DAG as an in-process goroutine.
type osProcessSpawner struct {
	logger *logger.Manager
}

func (s *osProcessSpawner) Spawn(jobID, runID string, startTS int64) error {
	cmd := exec.Command(os.Args[0], "execute",
		"-job", jobID,
		"-run", runID,
		"-start", fmt.Sprintf("%d", startTS),
	)
	cmd.Env = os.Environ()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn executor process: %w", err)
	}
	// The scheduler loop does not block on the firing's lifetime; it
	// only needs the process started. Reap it asynchronously so it
	// doesn't accumulate as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warn(context.Background(), "executor process exited with error",
				zap.String("job_id", jobID), zap.String("run_id", runID), zap.Error(err))
		}
	}()
	return nil
}

// unsupportedSatelliteSource is the default SatelliteSource until a
// tracking stack is wired in; it reports an error rather than fabricated
// readings so the trigger evaluator sees no observation (fail-closed,
// §4.2) instead of a silently wrong one.
type unsupportedSatelliteSource struct{}

func (unsupportedSatelliteSource) Elevation(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("satellite source not configured")
}

func (unsupportedSatelliteSource) Azimuth(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("satellite source not configured")
}

// unsupportedTelemetrySource is the default TelemetrySource until the
// terminal health stack is wired in.
type unsupportedTelemetrySource struct{}

func (unsupportedTelemetrySource) LinkQuality(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("telemetry source not configured")
}

func (unsupportedTelemetrySource) TemperatureC(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("telemetry source not configured")
}
