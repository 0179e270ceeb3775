// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"github.com/leoscope/leoscope/app/pkg/apperr"
	"github.com/leoscope/leoscope/app/pkg/e"
	"github.com/leoscope/leoscope/app/schedulealg"
	"github.com/leoscope/leoscope/app/trigger"
)

// ScheduleJobParams is the input to ScheduleJob, mirroring schedule_job's
// parameters in §4.3. JobID is caller-assigned (§3, §7): resubmitting the
// same job_id with an identical payload is a no-op, and resubmitting it
// with a different payload is rejected INVALID rather than silently
// overwriting the admitted record. An empty JobID mints a fresh one, for
// callers that don't need idempotent retries.
type ScheduleJobParams struct {
	JobID              string
	NodeID             string
	OwnerID            string
	Kind               jobmodel.Kind
	CronExpr           string
	OneShotAt          int64
	ValidityStartTS    int64
	ValidityEndTS      int64
	LengthSecs         int64
	Overhead           bool
	PairedServerNodeID string
	Trigger            string
	Config             string
	Params             jobmodel.Params
}

// sameJobPayload reports whether an existing job record and a fresh
// ScheduleJobParams describe the identical admission request — the
// condition §8 requires for a repeated schedule_job call to be a no-op
// rather than a CONFLICT or a silent overwrite.
func sameJobPayload(existing *jobmodel.Job, p ScheduleJobParams) bool {
	return existing.NodeID == p.NodeID &&
		existing.OwnerID == p.OwnerID &&
		existing.Kind == p.Kind &&
		existing.CronExpr == p.CronExpr &&
		existing.OneShotAt == p.OneShotAt &&
		existing.ValidityStartTS == p.ValidityStartTS &&
		existing.ValidityEndTS == p.ValidityEndTS &&
		existing.LengthSecs == p.LengthSecs &&
		existing.Overhead == p.Overhead &&
		existing.PairedServerNodeID == p.PairedServerNodeID &&
		existing.Trigger == p.Trigger &&
		existing.Config == p.Config &&
		existing.Params.Data == p.Params
}

// ScheduleJob validates and admits a new job, running the conflict check in
// §4.1 against every overhead job already admitted on the same node (and
// its paired server node, for client/server pairs). Admission for a single
// node is serialized by a per-node lock (§5): two concurrent schedule_job
// calls for the same node never both observe the same "no conflict" state.
func (s *Service) ScheduleJob(ctx context.Context, p ScheduleJobParams) (*jobmodel.Job, error) {
	if err := validateJobParams(p); err != nil {
		return nil, err
	}

	if p.JobID != "" {
		existing, err := s.Jobs.Get(ctx, p.JobID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coordinator: load job by id: %w", err)
		}
		if err == nil {
			if sameJobPayload(existing, p) {
				return existing, nil
			}
			return nil, apperr.New(e.InvalidParams, "job_id already admitted with a different payload")
		}
	}

	candidate := schedulealg.Schedule{
		Kind:            toAlgKind(p.Kind),
		CronExpr:        p.CronExpr,
		OneShotAtTS:     p.OneShotAt,
		ValidityStartTS: p.ValidityStartTS,
		ValidityEndTS:   p.ValidityEndTS,
		LengthSecs:      p.LengthSecs,
	}
	if _, err := schedulealg.Occupancies(candidate, s.maxLockstepFirings); err != nil {
		return nil, apperr.Newf(e.InvalidParams, "invalid schedule: %v", err)
	}

	lockName := admissionLockName(p.NodeID)
	if !s.locks.Acquire(lockName, 10) {
		return nil, apperr.New(e.Unavailable, "admission lock busy, retry")
	}
	defer s.locks.Release(lockName)

	nodeIDs := []string{p.NodeID}
	if p.PairedServerNodeID != "" {
		nodeIDs = append(nodeIDs, p.PairedServerNodeID)
	}

	candidates, err := s.Jobs.OverheadOnNodes(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("coordinator: load overhead candidates: %w", err)
	}

	if p.Overhead {
		for _, existing := range candidates {
			existingSchedule := toAlgSchedule(&existing)
			conflict, instant, err := schedulealg.Overlap(candidate, existingSchedule)
			if err != nil {
				return nil, apperr.Newf(e.InvalidParams, "invalid schedule: %v", err)
			}
			if conflict {
				s.consecutiveConflicts[p.NodeID]++
				if s.consecutiveConflicts[p.NodeID] >= 3 {
					_ = s.notifier.Notify(ctx, fmt.Sprintf(
						"node %s: %d consecutive scheduling conflicts, latest against job %s",
						p.NodeID, s.consecutiveConflicts[p.NodeID], existing.ID))
				}
				return nil, apperr.WithDetails(e.Conflict, "candidate overlaps an existing admitted overhead job",
					e.ConflictDetails{OffendingJobID: existing.ID, InstantTS: instant})
			}
		}
	}
	s.consecutiveConflicts[p.NodeID] = 0

	node, err := s.Nodes.Get(ctx, p.NodeID)
	if err != nil {
		return nil, apperr.New(e.NotFound, "node not found")
	}
	if ok, err := s.Nodes.CompareAndSwapAdmissionVersion(ctx, p.NodeID, node.AdmissionVersion); err != nil {
		return nil, fmt.Errorf("coordinator: bump admission version: %w", err)
	} else if !ok {
		return nil, apperr.New(e.Unavailable, "admission contended, retry")
	}

	jobID := p.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	j := &jobmodel.Job{
		ID:                 jobID,
		NodeID:             p.NodeID,
		OwnerID:            p.OwnerID,
		Kind:               p.Kind,
		CronExpr:           p.CronExpr,
		OneShotAt:          p.OneShotAt,
		ValidityStartTS:    p.ValidityStartTS,
		ValidityEndTS:      p.ValidityEndTS,
		LengthSecs:         p.LengthSecs,
		Overhead:           p.Overhead,
		PairedServerNodeID: p.PairedServerNodeID,
		Trigger:            p.Trigger,
		Config:             p.Config,
	}
	j.Params = datatypes.NewJSONType(p.Params)

	if err := s.Jobs.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("coordinator: create job: %w", err)
	}

	return j, nil
}

// RescheduleJobNearest implements reschedule_job_nearest (§4.3): given a
// job that failed admission, find the earliest instant at or after `after`
// such that the job's window no longer overlaps any admitted overhead job,
// and move the job's ATQ start there. It is UNSUPPORTED for CRON jobs,
// which have no single "start instant" to move.
func (s *Service) RescheduleJobNearest(ctx context.Context, jobID string, after int64) (*jobmodel.Job, error) {
	j, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return nil, apperr.New(e.NotFound, "job not found")
	}
	if j.Kind != jobmodel.KindATQ {
		return nil, apperr.New(e.Unsupported, "reschedule_job_nearest only applies to ATQ jobs")
	}

	lockName := admissionLockName(j.NodeID)
	if !s.locks.Acquire(lockName, 10) {
		return nil, apperr.New(e.Unavailable, "admission lock busy, retry")
	}
	defer s.locks.Release(lockName)

	nodeIDs := []string{j.NodeID}
	if j.PairedServerNodeID != "" {
		nodeIDs = append(nodeIDs, j.PairedServerNodeID)
	}
	candidates, err := s.Jobs.OverheadOnNodes(ctx, nodeIDs)
	if err != nil {
		return nil, fmt.Errorf("coordinator: load overhead candidates: %w", err)
	}

	var occupied []schedulealg.Interval
	for _, existing := range candidates {
		if existing.ID == j.ID {
			continue
		}
		occs, err := schedulealg.Occupancies(toAlgSchedule(&existing), s.maxLockstepFirings)
		if err != nil {
			continue
		}
		occupied = append(occupied, occs...)
	}

	slot, ok := schedulealg.NearestFreeSlot(after, j.ValidityStartTS, j.ValidityEndTS, j.LengthSecs, occupied)
	if !ok {
		return nil, apperr.New(e.NoSlot, "no free slot in validity window")
	}

	if err := s.Jobs.Updates(ctx, j.ID, map[string]interface{}{"one_shot_at": slot}); err != nil {
		return nil, fmt.Errorf("coordinator: update job: %w", err)
	}
	j.OneShotAt = slot
	return j, nil
}

// VerifyTrigger implements verify_trigger (§4.2, §4.3): a syntax-only
// check, never evaluated against a live snapshot.
func VerifyTrigger(expr string) error {
	if expr == "" {
		return nil
	}
	if err := trigger.Verify(expr); err != nil {
		return apperr.Newf(e.InvalidParams, "invalid trigger expression: %v", err)
	}
	return nil
}

func validateJobParams(p ScheduleJobParams) error {
	if !p.Kind.Valid() {
		return apperr.New(e.InvalidParams, "invalid job kind")
	}
	if p.NodeID == "" || p.OwnerID == "" {
		return apperr.New(e.InvalidParams, "node_id and owner_id are required")
	}
	if p.ValidityEndTS <= p.ValidityStartTS {
		return apperr.New(e.InvalidParams, "validity_end_ts must be after validity_start_ts")
	}
	if p.LengthSecs <= 0 {
		return apperr.New(e.InvalidParams, "length_secs must be positive")
	}
	if p.Kind == jobmodel.KindCron {
		if _, err := schedulealg.ParseCron(p.CronExpr); err != nil {
			return apperr.Newf(e.InvalidParams, "invalid cron expression: %v", err)
		}
	}
	if p.Kind == jobmodel.KindATQ {
		if p.OneShotAt == 0 {
			return apperr.New(e.InvalidParams, "one_shot_at is required for ATQ jobs")
		}
		if p.OneShotAt < time.Now().Unix() {
			return apperr.New(e.InvalidParams, "one_shot_at is in the past")
		}
	}
	return VerifyTrigger(p.Trigger)
}

func toAlgKind(k jobmodel.Kind) schedulealg.Kind {
	if k == jobmodel.KindCron {
		return schedulealg.KindCron
	}
	return schedulealg.KindATQ
}

func toAlgSchedule(j *jobmodel.Job) schedulealg.Schedule {
	return schedulealg.Schedule{
		Kind:            toAlgKind(j.Kind),
		CronExpr:        j.CronExpr,
		OneShotAtTS:     j.OneShotAt,
		ValidityStartTS: j.ValidityStartTS,
		ValidityEndTS:   j.ValidityEndTS,
		LengthSecs:      j.LengthSecs,
	}
}

func admissionLockName(nodeID string) string {
	return "admission:" + nodeID
}
