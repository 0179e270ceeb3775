// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package coordclient is the node agent's and executor's HTTP client for
// the coordinator's external interface (§4.3). It mirrors the shape of the
// teacher's app/job/monitor.ipHandler: a go-resty client doing a
// fetch-and-decide cycle on a cadence, generalized into an explicit RPC
// surface instead of one inline Get call.
package coordclient

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	nodemodel "github.com/leoscope/leoscope/app/model/node"
	runmodel "github.com/leoscope/leoscope/app/model/run"
	taskmodel "github.com/leoscope/leoscope/app/model/task"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/pkg/retry"
)

// envelope mirrors the {code, msg, data} shape the coordinator's i18n.JSON
// responses are expected to carry.
type envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// Client calls the coordinator's HTTP API as the node identified by NodeID,
// authenticating with the static (x-userid, x-access-token) credential form
// (§4.7) — the node's own user row, created alongside it by register_node.
type Client struct {
	http        *resty.Client
	nodeID      string
	accessToken string
}

// New creates a coordinator client.
func New(baseURL, nodeID, accessToken string) *Client {
	return &Client{
		http:        resty.New().SetBaseURL(baseURL),
		nodeID:      nodeID,
		accessToken: accessToken,
	}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader("x-userid", c.nodeID).
		SetHeader("x-access-token", c.accessToken).
		SetHeader("Content-Type", "application/json")
}

// codeOf maps a response envelope's code into an apperr, nil on SUCCESS.
func codeOf(env envelope, httpErr error) error {
	if httpErr != nil {
		return apperr.New(e.Unavailable, httpErr.Error())
	}
	if env.Code == int(e.SUCCESS) {
		return nil
	}
	return apperr.New(e.Code(env.Code), env.Msg)
}

// GetJobsByNode implements get_jobs_by_nodeid, retried under
// DefaultRPCPolicy since a transport hiccup must not stall the scheduler
// loop's whole iteration.
func (c *Client) GetJobsByNode(ctx context.Context) ([]jobmodel.Job, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) ([]jobmodel.Job, error) {
		var jobs []jobmodel.Job
		var env struct {
			Code int             `json:"code"`
			Msg  string          `json:"msg"`
			Data []jobmodel.Job  `json:"data"`
		}
		resp, err := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/jobs/by_node/%s", c.nodeID))
		if err != nil {
			return nil, apperr.New(e.Unavailable, err.Error())
		}
		if env.Code != int(e.SUCCESS) {
			return nil, apperr.New(e.Code(env.Code), env.Msg)
		}
		jobs = env.Data
		_ = resp
		return jobs, nil
	})
}

// GetJob implements get_job_by_id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*jobmodel.Job, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (*jobmodel.Job, error) {
		var env struct {
			Code int          `json:"code"`
			Msg  string       `json:"msg"`
			Data jobmodel.Job `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/jobs/%s", jobID))
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return nil, err
		}
		return &env.Data, nil
	})
}

// RescheduleJobNearest implements reschedule_job_nearest.
func (c *Client) RescheduleJobNearest(ctx context.Context, jobID string, after int64) (*jobmodel.Job, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (*jobmodel.Job, error) {
		var env struct {
			Code int         `json:"code"`
			Msg  string      `json:"msg"`
			Data jobmodel.Job `json:"data"`
		}
		_, err := c.request(ctx).
			SetBody(map[string]any{"after": after}).
			SetResult(&env).
			Post(fmt.Sprintf("/leoscope/jobs/%s/reschedule_nearest", jobID))
		if e2 := codeOf(envelope{Code: env.Code, Msg: env.Msg}, err); e2 != nil {
			return nil, e2
		}
		return &env.Data, nil
	})
}

// CreateRun implements the executor's deploy-phase run creation (§4.4 step 1).
func (c *Client) CreateRun(ctx context.Context, r *runmodel.Run) error {
	_, err := retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (struct{}, error) {
		var env envelope
		_, httpErr := c.request(ctx).
			SetBody(map[string]any{
				"id":       r.ID,
				"job_id":   r.JobID,
				"node_id":  r.NodeID,
				"owner_id": r.OwnerID,
				"start_ts": r.StartTS,
			}).
			SetResult(&env).
			Post("/leoscope/runs")
		return struct{}{}, codeOf(env, httpErr)
	})
	return err
}

// UpdateRun implements update_run.
func (c *Client) UpdateRun(ctx context.Context, runID string, status runmodel.Status, statusMessage string, endTS *int64, artifactURL string) error {
	_, err := retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (struct{}, error) {
		var env envelope
		body := map[string]any{"status": status}
		if statusMessage != "" {
			body["status_message"] = statusMessage
		}
		if endTS != nil {
			body["end_ts"] = *endTS
		}
		if artifactURL != "" {
			body["artifact_url"] = artifactURL
		}
		_, httpErr := c.request(ctx).SetBody(body).SetResult(&env).Patch(fmt.Sprintf("/leoscope/runs/%s", runID))
		return struct{}{}, codeOf(env, httpErr)
	})
	return err
}

// ScheduleTask implements schedule_task (§4.5).
func (c *Client) ScheduleTask(ctx context.Context, runID, jobID, nodeID string, kind taskmodel.Kind, ttlSecs int64) (*taskmodel.Task, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (*taskmodel.Task, error) {
		var env struct {
			Code int           `json:"code"`
			Msg  string        `json:"msg"`
			Data taskmodel.Task `json:"data"`
		}
		_, httpErr := c.request(ctx).
			SetBody(map[string]any{
				"run_id": runID, "job_id": jobID, "node_id": nodeID,
				"kind": kind, "ttl_secs": ttlSecs,
			}).
			SetResult(&env).
			Post("/leoscope/tasks")
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return nil, err
		}
		return &env.Data, nil
	})
}

// GetTasks implements get_tasks: the server node's poll endpoint (§4.5).
func (c *Client) GetTasks(ctx context.Context) ([]taskmodel.Task, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) ([]taskmodel.Task, error) {
		var env struct {
			Code int             `json:"code"`
			Msg  string          `json:"msg"`
			Data []taskmodel.Task `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/tasks/by_node/%s", c.nodeID))
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return nil, err
		}
		return env.Data, nil
	})
}

// GetTask polls for a single task's current status by its own id, used by
// the client side of task rendezvous (§4.5). A task lives under the
// paired server node's queue, not the caller's own, so this hits
// get_task_by_id directly rather than filtering GetTasks (which is
// scoped to c.nodeID's own pending queue and would never see it).
func (c *Client) GetTask(ctx context.Context, taskID string) (*taskmodel.Task, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (*taskmodel.Task, error) {
		var env struct {
			Code int            `json:"code"`
			Msg  string         `json:"msg"`
			Data taskmodel.Task `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/tasks/%s", taskID))
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return nil, err
		}
		return &env.Data, nil
	})
}

// UpdateTask implements update_task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, status taskmodel.Status) error {
	_, err := retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (struct{}, error) {
		var env envelope
		_, httpErr := c.request(ctx).
			SetBody(map[string]any{"status": status}).
			SetResult(&env).
			Patch(fmt.Sprintf("/leoscope/tasks/%s", taskID))
		return struct{}{}, codeOf(env, httpErr)
	})
	return err
}

// ReportHeartbeat implements report_heartbeat (§4.6 step 5).
func (c *Client) ReportHeartbeat(ctx context.Context, ts int64) error {
	_, err := retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (struct{}, error) {
		var env envelope
		_, httpErr := c.request(ctx).
			SetBody(map[string]any{"ts": ts}).
			SetResult(&env).
			Post(fmt.Sprintf("/leoscope/nodes/%s/heartbeat", c.nodeID))
		return struct{}{}, codeOf(env, httpErr)
	})
	return err
}

// GetScavenger implements get_scavenger (§4.6 step 4).
func (c *Client) GetScavenger(ctx context.Context) (bool, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (bool, error) {
		var env struct {
			Code int  `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Active bool `json:"active"`
			} `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/scavenger/%s", c.nodeID))
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return false, err
		}
		return env.Data.Active, nil
	})
}

// GetNode fetches a node record, used to resolve a paired server's
// public_ip for LEOTEST_SERVER_IP injection (§4.4 step 3).
func (c *Client) GetNode(ctx context.Context, nodeID string) (*nodemodel.Node, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (*nodemodel.Node, error) {
		var env struct {
			Code int          `json:"code"`
			Msg  string       `json:"msg"`
			Data []nodemodel.Node `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get(fmt.Sprintf("/leoscope/nodes?id=%s", nodeID))
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return nil, err
		}
		if len(env.Data) == 0 {
			return nil, apperr.New(e.NotFound, "node not found")
		}
		return &env.Data[0], nil
	})
}

// GetConfig implements get_config.
func (c *Client) GetConfig(ctx context.Context) (string, error) {
	return retry.Do(ctx, retry.DefaultRPCPolicy, func(ctx context.Context) (string, error) {
		var env struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Document string `json:"document"`
			} `json:"data"`
		}
		_, httpErr := c.request(ctx).SetResult(&env).Get("/leoscope/config")
		if err := codeOf(envelope{Code: env.Code, Msg: env.Msg}, httpErr); err != nil {
			return "", err
		}
		return env.Data.Document, nil
	})
}
