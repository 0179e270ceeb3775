// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package schedulealg

import "testing"

func TestInterval_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{
			name: "disjoint",
			a:    Interval{Start: 0, End: 10},
			b:    Interval{Start: 20, End: 30},
			want: false,
		},
		{
			name: "touching boundary is not overlap",
			a:    Interval{Start: 0, End: 10},
			b:    Interval{Start: 10, End: 20},
			want: false,
		},
		{
			name: "overlapping",
			a:    Interval{Start: 0, End: 10},
			b:    Interval{Start: 5, End: 15},
			want: true,
		},
		{
			name: "contained",
			a:    Interval{Start: 0, End: 100},
			b:    Interval{Start: 10, End: 20},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("Overlaps() symmetric = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFirings_ATQBoundaries(t *testing.T) {
	// Boundary case (iv): ATQ whose start_ts is before validity.start is
	// dropped from occ entirely (admission rejects this earlier as INVALID;
	// the algebra itself simply reports no firing).
	s := Schedule{
		Kind:            KindATQ,
		OneShotAtTS:     100,
		LengthSecs:      60,
		ValidityStartTS: 200,
		ValidityEndTS:   1000,
	}
	firings, err := Firings(s, 10)
	if err != nil {
		t.Fatalf("Firings() error = %v", err)
	}
	if len(firings) != 0 {
		t.Fatalf("expected no firings before validity start, got %v", firings)
	}

	// length extends past validity end: also dropped.
	s2 := Schedule{Kind: KindATQ, OneShotAtTS: 950, LengthSecs: 60, ValidityStartTS: 0, ValidityEndTS: 1000}
	firings, err = Firings(s2, 10)
	if err != nil {
		t.Fatalf("Firings() error = %v", err)
	}
	if len(firings) != 0 {
		t.Fatalf("expected no firings extending past validity end, got %v", firings)
	}
}

func TestFirings_CronWithinWindow(t *testing.T) {
	// */10 * * * * every ten minutes; one hour window should produce six
	// firings minus any truncated by length_secs pushing past validity end.
	s := Schedule{
		Kind:            KindCron,
		CronExpr:        "*/10 * * * *",
		LengthSecs:      300,
		ValidityStartTS: 1704067200, // 2024-01-01T00:00:00Z
		ValidityEndTS:   1704070800, // 2024-01-01T01:00:00Z
	}
	firings, err := Firings(s, 100)
	if err != nil {
		t.Fatalf("Firings() error = %v", err)
	}
	if len(firings) == 0 {
		t.Fatalf("expected at least one firing")
	}
	for _, f := range firings {
		if f < s.ValidityStartTS {
			t.Fatalf("firing %d before validity start %d", f, s.ValidityStartTS)
		}
		if f+s.LengthSecs > s.ValidityEndTS {
			t.Fatalf("firing %d + length exceeds validity end %d", f, s.ValidityEndTS)
		}
	}
}

func TestOverlap_AdmitRecurringThenRejectOverlap(t *testing.T) {
	// Scenario 1 + 2 from §8: A admitted CRON */10, B ATQ at 00:12 length
	// 300 conflicts with A's 00:10 firing.
	a := Schedule{
		Kind:            KindCron,
		CronExpr:        "*/10 * * * *",
		LengthSecs:      300,
		ValidityStartTS: 1704067200,
		ValidityEndTS:   1704070800,
	}
	b := Schedule{
		Kind:            KindATQ,
		OneShotAtTS:     1704067200 + 12*60,
		LengthSecs:      300,
		ValidityStartTS: 1704067200,
		ValidityEndTS:   1704067200 + 20*60,
	}

	conflict, instant, err := Overlap(a, b)
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}
	if !conflict {
		t.Fatalf("expected conflict")
	}
	wantInstant := int64(1704067200 + 12*60)
	if instant != wantInstant {
		t.Fatalf("instant = %d, want %d", instant, wantInstant)
	}
}

func TestOverlap_AdmitTouching(t *testing.T) {
	// Scenario 3 from §8: B2 ATQ at 00:15 length 60 touches A's [00:10,00:15)
	// exactly at the boundary and must be admitted.
	a := Schedule{
		Kind:            KindCron,
		CronExpr:        "*/10 * * * *",
		LengthSecs:      300,
		ValidityStartTS: 1704067200,
		ValidityEndTS:   1704070800,
	}
	b2 := Schedule{
		Kind:            KindATQ,
		OneShotAtTS:     1704067200 + 15*60,
		LengthSecs:      60,
		ValidityStartTS: 1704067200,
		ValidityEndTS:   1704067200 + 16*60,
	}

	conflict, _, err := Overlap(a, b2)
	if err != nil {
		t.Fatalf("Overlap() error = %v", err)
	}
	if conflict {
		t.Fatalf("touching intervals must not conflict")
	}
}

func TestNearestFreeSlot(t *testing.T) {
	// Scenario 4 from §8: after conflict at 00:12, the nearest free slot
	// starting from 00:15 is 00:15 itself (touching A's occupancy is fine).
	occupied := []Interval{
		{Start: 1704067200, End: 1704067200 + 300},             // A's 00:00 firing
		{Start: 1704067200 + 600, End: 1704067200 + 600 + 300},  // A's 00:10 firing
	}

	slot, ok := NearestFreeSlot(1704067200+15*60, 1704067200, 1704067200+3600, 300, occupied)
	if !ok {
		t.Fatalf("expected a free slot")
	}
	if slot != 1704067200+15*60 {
		t.Fatalf("slot = %d, want %d", slot, 1704067200+15*60)
	}
}

func TestNearestFreeSlot_NoSlot(t *testing.T) {
	occupied := []Interval{{Start: 0, End: 1000}}
	_, ok := NearestFreeSlot(0, 0, 1000, 100, occupied)
	if ok {
		t.Fatalf("expected no free slot inside a fully occupied window")
	}
}
