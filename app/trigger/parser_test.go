// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

import "testing"

func TestParse_Valid(t *testing.T) {
	exprs := []string{
		"elevation > 10",
		"elevation > 10 and wind.speed < 5",
		"elevation > 10 or (wind.speed < 5 and wind.gust <= 20)",
		"site == 'north-pad'",
		"status != \"ready\"",
		"(a > 1 and b > 2) or (c > 3 and d > 4)",
	}
	for _, e := range exprs {
		if _, err := Parse(e); err != nil {
			t.Errorf("Parse(%q) error = %v", e, err)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	exprs := []string{
		"",
		"elevation >",
		"elevation > 10 and",
		"(elevation > 10",
		"elevation > 10)",
		"10 > elevation",
		"elevation ~= 10",
	}
	for _, e := range exprs {
		if _, err := Parse(e); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", e)
		}
	}
}

func TestParse_DoesNotEvaluate(t *testing.T) {
	// verify_trigger is parse-only: a reference to a key no monitor has
	// ever written must still parse successfully.
	if _, err := Parse("never_seen_key > 10"); err != nil {
		t.Fatalf("Parse() error = %v, want nil for unresolved-at-parse-time ident", err)
	}
}
