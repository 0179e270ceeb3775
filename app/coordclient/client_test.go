// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leoscope/leoscope/app/model/run"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
)

func TestGetJobSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/leoscope/jobs/job-1" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"id":"job-1","node_id":"node-1","owner_id":"node-1","kind":"CRON"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "node-1", "secret")
	job, err := c.GetJob(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID != "job-1" || job.Kind != "CRON" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestGetJobErrorCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":404,"msg":"not found","data":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "node-1", "secret")
	_, err := c.GetJob(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected an error")
	}
	ae, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if ae.Code != e.NotFound {
		t.Fatalf("expected NotFound, got %v", ae.Code)
	}
	// NOT_FOUND is a decision outcome, not a transport failure: it must not
	// be retried.
	if ae.Retryable() {
		t.Fatal("NotFound must not be retryable")
	}
}

func TestGetJobUnreachableCoordinatorIsUnavailableAndRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := srv.URL
	srv.Close() // nothing is listening on deadURL anymore

	c := New(deadURL, "node-1", "secret")
	_, err := c.GetJob(context.Background(), "job-1")
	if err == nil {
		t.Fatal("expected an error calling an unreachable coordinator")
	}
	ae, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	if ae.Code != e.Unavailable {
		t.Fatalf("expected Unavailable, got %v", ae.Code)
	}
	if !ae.Retryable() {
		t.Fatal("Unavailable must be retryable so retry.Do keeps trying transport failures")
	}
}

func TestUpdateRunSendsOptionalFields(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("expected PATCH, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":null}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "node-1", "secret")
	endTS := int64(1700000000)
	err := c.UpdateRun(context.Background(), "run-1", run.StatusCompleted, "done", &endTS, "s3://bucket/key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["status"] != string(run.StatusCompleted) {
		t.Fatalf("unexpected status in body: %v", gotBody["status"])
	}
	if gotBody["artifact_url"] != "s3://bucket/key" {
		t.Fatalf("unexpected artifact_url in body: %v", gotBody["artifact_url"])
	}
}

func TestGetScavenger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"active":true}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "node-1", "secret")
	active, err := c.GetScavenger(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatal("expected scavenger active=true")
	}
}

func TestGetNodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "node-1", "secret")
	_, err := c.GetNode(context.Background(), "ghost-node")
	if err == nil {
		t.Fatal("expected NotFound error for empty node list")
	}
}
