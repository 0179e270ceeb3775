// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package schedulealg

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Kind mirrors the job.Kind tagged variant without importing the model
// package, keeping this algebra dependency-free.
type Kind string

const (
	KindCron Kind = "CRON"
	KindATQ  Kind = "ATQ"
)

// Schedule describes the firing pattern of one job, enough information to
// compute occ(J) per §4.1.
type Schedule struct {
	Kind            Kind
	CronExpr        string // Used when Kind == KindCron.
	OneShotAtTS     int64  // Used when Kind == KindATQ.
	ValidityStartTS int64
	ValidityEndTS   int64
	LengthSecs      int64
}

// ParseCron validates a cron expression, used by schedule_job admission and
// by verify_trigger's sibling for cron syntax (§4.1 Job invariant "kind=CRON
// ⇒ schedule is a valid cron expression").
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Firings enumerates the firing instants of s inside its validity window. A
// firing t counts only when t >= ValidityStartTS and t+LengthSecs <=
// ValidityEndTS (§4.1, boundary cases ii/iii in §8). maxFirings bounds
// pathological cron expressions with extremely short periods; callers doing
// a bounded lockstep comparison (Overlap below) pass a budget sized to the
// common window, never the full schedule.
func Firings(s Schedule, maxFirings int) ([]int64, error) {
	switch s.Kind {
	case KindATQ:
		if s.OneShotAtTS < s.ValidityStartTS {
			return nil, nil
		}
		if s.OneShotAtTS+s.LengthSecs > s.ValidityEndTS {
			return nil, nil
		}
		return []int64{s.OneShotAtTS}, nil
	case KindCron:
		sched, err := ParseCron(s.CronExpr)
		if err != nil {
			return nil, err
		}

		var firings []int64
		// Next returns instants strictly after its argument; start one
		// second early so a firing exactly at ValidityStartTS is included.
		t := unixTime(s.ValidityStartTS - 1)
		for i := 0; i < maxFirings; i++ {
			next := sched.Next(t)
			if next.IsZero() {
				break
			}
			nextTS := next.Unix()
			if nextTS+s.LengthSecs > s.ValidityEndTS {
				break
			}
			if nextTS >= s.ValidityStartTS {
				firings = append(firings, nextTS)
			}
			t = next
		}
		return firings, nil
	default:
		return nil, fmt.Errorf("unknown job kind %q", s.Kind)
	}
}

// Occupancies converts firing instants into half-open intervals of s.LengthSecs.
func Occupancies(s Schedule, maxFirings int) ([]Interval, error) {
	firings, err := Firings(s, maxFirings)
	if err != nil {
		return nil, err
	}

	intervals := make([]Interval, 0, len(firings))
	for _, t := range firings {
		intervals = append(intervals, Interval{Start: t, End: t + s.LengthSecs})
	}
	return intervals, nil
}

// maxLockstepFirings bounds the enumeration in Overlap so a pathological
// cron expression inside a very long validity window cannot spin forever;
// the intersected window in the admission algorithm is expected to be
// modest (§9: "adequate for realistic admitted-set sizes").
const maxLockstepFirings = 100000

// Overlap reports whether two job schedules have any overlapping occupancy
// inside the intersection of their validity windows (§4.1 step 2-3). On a
// conflict it also returns the offending instant of b.
func Overlap(a, b Schedule) (conflict bool, instant int64, err error) {
	start := a.ValidityStartTS
	if b.ValidityStartTS > start {
		start = b.ValidityStartTS
	}
	end := a.ValidityEndTS
	if b.ValidityEndTS < end {
		end = b.ValidityEndTS
	}
	if start >= end {
		return false, 0, nil
	}

	aClamped := a
	aClamped.ValidityStartTS, aClamped.ValidityEndTS = start, end
	bClamped := b
	bClamped.ValidityStartTS, bClamped.ValidityEndTS = start, end

	aOcc, err := Occupancies(aClamped, maxLockstepFirings)
	if err != nil {
		return false, 0, err
	}
	bOcc, err := Occupancies(bClamped, maxLockstepFirings)
	if err != nil {
		return false, 0, err
	}

	for _, ai := range aOcc {
		for _, bi := range bOcc {
			if ai.Overlaps(bi) {
				return true, bi.Start, nil
			}
		}
	}
	return false, 0, nil
}
