// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"testing"
	"time"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"github.com/leoscope/leoscope/app/notify"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/pkg/lock"
)

func newTestService(nodeIDs ...string) (*Service, *fakeJobRepo, *fakeNodeRepo) {
	jobs := newFakeJobRepo()
	nodes := newFakeNodeRepo(nodeIDs...)
	svc := New(nil, nodes, jobs, nil, nil, nil, lock.New(nil), notify.NewFeishu(""), nil, nil, 0)
	return svc, jobs, nodes
}

// TestScheduleJob_AdmitsRecurring mirrors §8 scenario 1: admitting a CRON
// job against an empty job set must succeed and be visible via ByNode.
func TestScheduleJob_AdmitsRecurring(t *testing.T) {
	svc, _, _ := newTestService("n1")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	j, err := svc.ScheduleJob(context.Background(), ScheduleJobParams{
		JobID:           "A",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindCron,
		CronExpr:        "*/10 * * * *",
		ValidityStartTS: start,
		ValidityEndTS:   start + 3600,
		LengthSecs:      300,
		Overhead:        true,
	})
	if err != nil {
		t.Fatalf("ScheduleJob() error = %v, want nil", err)
	}
	if j.ID != "A" {
		t.Fatalf("ScheduleJob() id = %q, want %q", j.ID, "A")
	}

	jobs, err := svc.Jobs.ByNode(context.Background(), "n1")
	if err != nil || len(jobs) != 1 || jobs[0].ID != "A" {
		t.Fatalf("ByNode() = %+v, %v, want one job A", jobs, err)
	}
}

// TestScheduleJob_RejectsOverlap mirrors §8 scenario 2: an ATQ candidate
// whose occupancy overlaps an already-admitted overhead job is rejected
// CONFLICT, carrying the offending job id and overlap instant.
func TestScheduleJob_RejectsOverlap(t *testing.T) {
	svc, _, _ := newTestService("n1")
	// A future hour boundary, so B's one_shot_at passes the past-ATQ check
	// and the */10 firings of A land on start, start+600, ...
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour).Unix()

	if _, err := svc.ScheduleJob(context.Background(), ScheduleJobParams{
		JobID:           "A",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindCron,
		CronExpr:        "*/10 * * * *",
		ValidityStartTS: start,
		ValidityEndTS:   start + 3600,
		LengthSecs:      300,
		Overhead:        true,
	}); err != nil {
		t.Fatalf("admit A: %v", err)
	}

	future := time.Now().Add(48 * time.Hour).Unix()
	_, err := svc.ScheduleJob(context.Background(), ScheduleJobParams{
		JobID:           "B",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindATQ,
		OneShotAt:       start + 12*60,
		ValidityStartTS: start,
		ValidityEndTS:   future,
		LengthSecs:      300,
		Overhead:        true,
	})
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Code != e.Conflict {
		t.Fatalf("ScheduleJob() error = %v, want CONFLICT", err)
	}
	details, ok := ae.Details.(e.ConflictDetails)
	if !ok || details.OffendingJobID != "A" {
		t.Fatalf("ScheduleJob() details = %+v, want offending job A", ae.Details)
	}
}

// TestScheduleJob_IdempotentResubmit exercises §8's idempotence property:
// resubmitting schedule_job with the same job_id and identical payload is
// a no-op, not a second record or a CONFLICT against itself.
func TestScheduleJob_IdempotentResubmit(t *testing.T) {
	svc, jobs, _ := newTestService("n1")
	params := ScheduleJobParams{
		JobID:           "A",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindCron,
		CronExpr:        "*/10 * * * *",
		ValidityStartTS: 1000,
		ValidityEndTS:   5000,
		LengthSecs:      300,
		Overhead:        true,
	}

	first, err := svc.ScheduleJob(context.Background(), params)
	if err != nil {
		t.Fatalf("first ScheduleJob(): %v", err)
	}

	second, err := svc.ScheduleJob(context.Background(), params)
	if err != nil {
		t.Fatalf("resubmit ScheduleJob(): %v, want no-op success", err)
	}
	if second.ID != first.ID {
		t.Fatalf("resubmit returned a different job id: %q vs %q", second.ID, first.ID)
	}
	if len(jobs.jobs) != 1 {
		t.Fatalf("resubmit must not create a second record, got %d", len(jobs.jobs))
	}
}

// TestScheduleJob_ConflictingPayloadSameJobID: resubmitting job_id=A with a
// changed payload is rejected INVALID rather than silently overwriting the
// admitted record.
func TestScheduleJob_ConflictingPayloadSameJobID(t *testing.T) {
	svc, _, _ := newTestService("n1")
	base := ScheduleJobParams{
		JobID:           "A",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindCron,
		CronExpr:        "*/10 * * * *",
		ValidityStartTS: 1000,
		ValidityEndTS:   5000,
		LengthSecs:      300,
		Overhead:        true,
	}
	if _, err := svc.ScheduleJob(context.Background(), base); err != nil {
		t.Fatalf("admit A: %v", err)
	}

	changed := base
	changed.LengthSecs = 600
	_, err := svc.ScheduleJob(context.Background(), changed)
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Code != e.InvalidParams {
		t.Fatalf("ScheduleJob() with conflicting payload = %v, want INVALID", err)
	}
}

// TestScheduleJob_RejectsPastATQ covers boundary case (iv): an ATQ whose
// one_shot_at is already in the past at admission is rejected INVALID.
func TestScheduleJob_RejectsPastATQ(t *testing.T) {
	svc, _, _ := newTestService("n1")
	past := time.Now().Add(-time.Hour).Unix()

	_, err := svc.ScheduleJob(context.Background(), ScheduleJobParams{
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindATQ,
		OneShotAt:       past,
		ValidityStartTS: past - 3600,
		ValidityEndTS:   past + 3600,
		LengthSecs:      60,
	})
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Code != e.InvalidParams {
		t.Fatalf("ScheduleJob() with past one_shot_at = %v, want INVALID", err)
	}
}

// TestRescheduleJobNearest mirrors §8 scenario 4: after a conflict, moving
// the rejected ATQ job to the nearest free slot succeeds.
func TestRescheduleJobNearest(t *testing.T) {
	svc, _, _ := newTestService("n1")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	if _, err := svc.ScheduleJob(context.Background(), ScheduleJobParams{
		JobID:           "A",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindCron,
		CronExpr:        "*/10 * * * *",
		ValidityStartTS: start,
		ValidityEndTS:   start + 3600,
		LengthSecs:      300,
		Overhead:        true,
	}); err != nil {
		t.Fatalf("admit A: %v", err)
	}

	future := time.Now().Add(24 * time.Hour).Unix()
	if err := svc.Jobs.Create(context.Background(), &jobmodel.Job{
		ID:              "B",
		NodeID:          "n1",
		OwnerID:         "u1",
		Kind:            jobmodel.KindATQ,
		OneShotAt:       start + 12*60,
		ValidityStartTS: start,
		ValidityEndTS:   future,
		LengthSecs:      300,
		Overhead:        true,
	}); err != nil {
		t.Fatalf("seed B: %v", err)
	}

	j, err := svc.RescheduleJobNearest(context.Background(), "B", start+12*60)
	if err != nil {
		t.Fatalf("RescheduleJobNearest(): %v", err)
	}
	if j.OneShotAt < start+15*60 {
		t.Fatalf("rescheduled start %d still overlaps A's [00:10,00:15) occupancy", j.OneShotAt)
	}
}

// TestRescheduleJobNearest_RejectsCron: reschedule_job_nearest is
// UNSUPPORTED for CRON jobs, which have no single start instant to move.
func TestRescheduleJobNearest_RejectsCron(t *testing.T) {
	svc, jobs, _ := newTestService("n1")
	_ = jobs.Create(context.Background(), &jobmodel.Job{
		ID: "A", NodeID: "n1", Kind: jobmodel.KindCron, CronExpr: "*/10 * * * *",
	})

	_, err := svc.RescheduleJobNearest(context.Background(), "A", 0)
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Code != e.Unsupported {
		t.Fatalf("RescheduleJobNearest() on CRON = %v, want UNSUPPORTED", err)
	}
}

// TestSetScavenger_TogglesNodeFlag exercises set_scavenger/get_scavenger
// end to end against the fake node repo.
func TestSetScavenger_TogglesNodeFlag(t *testing.T) {
	svc, _, _ := newTestService("n1")

	if err := svc.SetScavenger(context.Background(), "n1", true); err != nil {
		t.Fatalf("SetScavenger(): %v", err)
	}
	active, err := svc.GetScavenger(context.Background(), "n1")
	if err != nil || !active {
		t.Fatalf("GetScavenger() = %v, %v, want true, nil", active, err)
	}

	if err := svc.SetScavenger(context.Background(), "n1", false); err != nil {
		t.Fatalf("SetScavenger(false): %v", err)
	}
	active, err = svc.GetScavenger(context.Background(), "n1")
	if err != nil || active {
		t.Fatalf("GetScavenger() after toggle off = %v, %v, want false, nil", active, err)
	}
}
