// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package schedulealg implements the schedule algebra (C1): firing
// enumeration for cron and atq jobs inside a validity window, and pairwise
// half-open interval overlap used by the admission algorithm (§4.1).
package schedulealg

// Interval is a half-open occupancy window [Start, End) in unix seconds.
type Interval struct {
	Start int64
	End   int64
}

// Overlaps reports whether two half-open intervals intersect. Touching
// intervals (a.End == b.Start or b.End == a.Start) do not overlap — the
// candidate is admitted per §4.1's tie-break rule.
func (a Interval) Overlaps(b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}
