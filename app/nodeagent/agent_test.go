// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package nodeagent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sk-pkg/logger"

	"github.com/leoscope/leoscope/app/coordclient"
	jobmodel "github.com/leoscope/leoscope/app/model/job"
)

type noopSpawner struct{}

func (noopSpawner) Spawn(jobID, runID string, startTS int64) error { return nil }

func newTestAgent(t *testing.T, coordURL string) *Agent {
	t.Helper()
	l, err := logger.New()
	if err != nil {
		t.Fatal(err)
	}
	if coordURL == "" {
		coordURL = "http://127.0.0.1:0"
	}
	coord := coordclient.New(coordURL, "node-1", "token")
	a := New(coord, &fakeContainerLister{}, noopSpawner{}, l, "node-1")
	t.Cleanup(func() { a.cronSched.Stop() })
	return a
}

func TestSyncDispatchSkipsOtherNodesJobs(t *testing.T) {
	a := newTestAgent(t, "")
	jobs := []jobmodel.Job{
		{ID: "job-remote", NodeID: "node-2", Kind: jobmodel.KindCron, CronExpr: "* * * * *"},
	}
	a.syncDispatch(context.Background(), jobs)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, tracked := a.entries["job-remote"]; tracked {
		t.Fatal("a job assigned to another node must not get a local dispatch entry")
	}
}

func TestSyncDispatchRegistersCronEntry(t *testing.T) {
	a := newTestAgent(t, "")
	jobs := []jobmodel.Job{
		{ID: "job-cron", NodeID: "node-1", Kind: jobmodel.KindCron, CronExpr: "*/5 * * * *"},
	}
	a.syncDispatch(context.Background(), jobs)

	a.mu.Lock()
	entry, tracked := a.entries["job-cron"]
	a.mu.Unlock()
	if !tracked {
		t.Fatal("expected a dispatch entry for the CRON job")
	}
	if entry.kind != jobmodel.KindCron || entry.schedule != "*/5 * * * *" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestSyncDispatchIsIdempotentForUnchangedCron(t *testing.T) {
	a := newTestAgent(t, "")
	jobs := []jobmodel.Job{
		{ID: "job-cron", NodeID: "node-1", Kind: jobmodel.KindCron, CronExpr: "*/5 * * * *"},
	}
	a.syncDispatch(context.Background(), jobs)

	a.mu.Lock()
	firstID := a.entries["job-cron"].cronID
	a.mu.Unlock()

	a.syncDispatch(context.Background(), jobs)

	a.mu.Lock()
	secondID := a.entries["job-cron"].cronID
	a.mu.Unlock()

	if firstID != secondID {
		t.Fatal("resyncing an unchanged cron expression must not re-register the entry")
	}
}

func TestSyncDispatchRegistersFutureATQTimer(t *testing.T) {
	a := newTestAgent(t, "")
	future := time.Now().Add(time.Hour).Unix()
	jobs := []jobmodel.Job{
		{ID: "job-atq", NodeID: "node-1", Kind: jobmodel.KindATQ, OneShotAt: future, ValidityEndTS: future + 3600},
	}
	a.syncDispatch(context.Background(), jobs)

	a.mu.Lock()
	entry, tracked := a.entries["job-atq"]
	a.mu.Unlock()
	if !tracked {
		t.Fatal("expected a dispatch entry for the ATQ job")
	}
	if entry.kind != jobmodel.KindATQ || entry.timer == nil {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	a.removeEntryLocked(t, "job-atq")
}

func TestPruneDispatchRemovesMissingJobs(t *testing.T) {
	a := newTestAgent(t, "")
	jobs := []jobmodel.Job{
		{ID: "job-cron", NodeID: "node-1", Kind: jobmodel.KindCron, CronExpr: "*/5 * * * *"},
	}
	a.syncDispatch(context.Background(), jobs)

	a.pruneDispatch(nil)

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, tracked := a.entries["job-cron"]; tracked {
		t.Fatal("pruneDispatch must remove entries for jobs no longer assigned to this node")
	}
}

// removeEntryLocked is a test-only convenience wrapper so tests clean up
// timers they registered without waiting for them to fire.
func (a *Agent) removeEntryLocked(t *testing.T, jobID string) {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeEntry(jobID)
}

type fakeContainerLister struct {
	labeled  []ContainerRef
	orphaned []ContainerRef
	states   map[string]string
	stopped  []string
	removed  []string
}

func (f *fakeContainerLister) ContainersByLabel(ctx context.Context, labels map[string]string) ([]ContainerRef, error) {
	return f.labeled, nil
}

func (f *fakeContainerLister) Stop(ctx context.Context, containerID string) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeContainerLister) Remove(ctx context.Context, containerID string) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func (f *fakeContainerLister) OrphanedContainers(ctx context.Context) ([]ContainerRef, error) {
	return f.orphaned, nil
}

func (f *fakeContainerLister) State(ctx context.Context, containerID string) (string, error) {
	return f.states[containerID], nil
}

func (f *fakeContainerLister) RunSetup(ctx context.Context, name, image string, env []string, labels map[string]string, ceiling time.Duration) (int, error) {
	return 0, nil
}

func TestReactToScavenger(t *testing.T) {
	var abortedRunID string
	mux := http.NewServeMux()
	mux.HandleFunc("/leoscope/scavenger/node-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"active":true}}`))
	})
	mux.HandleFunc("/leoscope/runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		abortedRunID = "run-1"
		if body["status"] != "ABORTED" {
			t.Errorf("expected ABORTED status, got %v", body["status"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":null}`))
	})
	mux.HandleFunc("/leoscope/jobs/job-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"id":"job-1","kind":"CRON"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, _ := logger.New()
	coord := coordclient.New(srv.URL, "node-1", "token")
	lister := &fakeContainerLister{labeled: []ContainerRef{
		{ID: "container-1", Labels: map[string]string{"runid": "run-1", "jobid": "job-1"}},
	}}
	a := New(coord, lister, noopSpawner{}, l, "node-1")
	defer a.cronSched.Stop()

	a.reactToScavenger(context.Background())

	if len(lister.stopped) != 1 || lister.stopped[0] != "container-1" {
		t.Fatalf("expected container-1 to be stopped, got %v", lister.stopped)
	}
	if len(lister.removed) != 1 || lister.removed[0] != "container-1" {
		t.Fatalf("expected container-1 to be removed, got %v", lister.removed)
	}
	if abortedRunID != "run-1" {
		t.Fatal("expected run-1 to be aborted")
	}
}

func TestRecoverOrphansMarksExitedContainerFailed(t *testing.T) {
	var failedRunID, failedStatus string
	mux := http.NewServeMux()
	mux.HandleFunc("/leoscope/runs/run-2", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		failedRunID = "run-2"
		failedStatus, _ = body["status"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":null}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, _ := logger.New()
	coord := coordclient.New(srv.URL, "node-1", "token")
	lister := &fakeContainerLister{
		orphaned: []ContainerRef{
			{ID: "container-2", Labels: map[string]string{"runid": "run-2", "jobid": "job-2"}},
		},
		states: map[string]string{"container-2": "exited"},
	}
	a := New(coord, lister, noopSpawner{}, l, "node-1")
	defer a.cronSched.Stop()

	a.RecoverOrphans(context.Background())

	if failedRunID != "run-2" || failedStatus != "FAILED" {
		t.Fatalf("expected run-2 to be marked FAILED, got run=%q status=%q", failedRunID, failedStatus)
	}
	if len(lister.removed) != 1 || lister.removed[0] != "container-2" {
		t.Fatalf("expected container-2 to be removed, got %v", lister.removed)
	}
}

func TestRecoverOrphansLeavesRunningContainerAlone(t *testing.T) {
	var called bool
	mux := http.NewServeMux()
	mux.HandleFunc("/leoscope/runs/run-3", func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":null}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l, _ := logger.New()
	coord := coordclient.New(srv.URL, "node-1", "token")
	lister := &fakeContainerLister{
		orphaned: []ContainerRef{
			{ID: "container-3", Labels: map[string]string{"runid": "run-3", "jobid": "job-3"}},
		},
		states: map[string]string{"container-3": "running"},
	}
	a := New(coord, lister, noopSpawner{}, l, "node-1")
	defer a.cronSched.Stop()

	a.RecoverOrphans(context.Background())

	if called {
		t.Fatal("a still-running orphan must not be marked FAILED or have its run updated")
	}
	if len(lister.removed) != 0 {
		t.Fatal("a still-running orphan must not be removed")
	}
}
