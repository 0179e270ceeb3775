// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package schedulealg

import "sort"

// NearestFreeSlot implements reschedule_job_nearest's search (§4.3): the
// earliest instant t >= after, inside [validityStart, validityEnd], such
// that [t, t+lengthSecs) does not overlap any interval in occupied. It
// walks candidate starts forward from max(after, validityStart), trying
// each occupied interval's End as the next candidate whenever the current
// one conflicts — occupied intervals are assumed sorted by Start by the
// caller-independent sort below.
//
// Returns ok=false when no free instant exists before validityEnd.
func NearestFreeSlot(after, validityStart, validityEnd, lengthSecs int64, occupied []Interval) (slot int64, ok bool) {
	sorted := make([]Interval, len(occupied))
	copy(sorted, occupied)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	candidate := after
	if validityStart > candidate {
		candidate = validityStart
	}

	for {
		if candidate+lengthSecs > validityEnd {
			return 0, false
		}

		window := Interval{Start: candidate, End: candidate + lengthSecs}
		conflict := false
		for _, occ := range sorted {
			if window.Overlaps(occ) {
				conflict = true
				candidate = occ.End
				break
			}
		}
		if !conflict {
			return candidate, true
		}
	}
}
