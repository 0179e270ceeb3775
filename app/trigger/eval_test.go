// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

import "testing"

func mustParse(t *testing.T, expr string) *Expr {
	t.Helper()
	node, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", expr, err)
	}
	return node
}

func TestEval_NumberComparisons(t *testing.T) {
	s := NewSnapshot()
	s.SetNumber("elevation", 42)

	cases := []struct {
		expr string
		want bool
	}{
		{"elevation > 10", true},
		{"elevation < 10", false},
		{"elevation >= 42", true},
		{"elevation <= 41", false},
		{"elevation == 42", true},
		{"elevation != 42", false},
	}
	for _, c := range cases {
		got := Eval(mustParse(t, c.expr), s.View())
		if got != c.want {
			t.Errorf("Eval(%q) = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestEval_StringComparisons(t *testing.T) {
	s := NewSnapshot()
	s.SetString("site", "north-pad")

	if !Eval(mustParse(t, "site == 'north-pad'"), s.View()) {
		t.Errorf("expected site == 'north-pad' to be true")
	}
	if Eval(mustParse(t, "site != 'north-pad'"), s.View()) {
		t.Errorf("expected site != 'north-pad' to be false")
	}
}

func TestEval_AndOr(t *testing.T) {
	s := NewSnapshot()
	s.SetNumber("elevation", 42)
	s.SetNumber("wind_speed", 3)

	if !Eval(mustParse(t, "elevation > 10 and wind_speed < 5"), s.View()) {
		t.Errorf("expected and-clause to be true")
	}
	if Eval(mustParse(t, "elevation > 100 and wind_speed < 5"), s.View()) {
		t.Errorf("expected and-clause to be false")
	}
	if !Eval(mustParse(t, "elevation > 100 or wind_speed < 5"), s.View()) {
		t.Errorf("expected or-clause to be true")
	}
}

func TestEval_FailClosed_UnresolvedIdent(t *testing.T) {
	// Boundary case (v) from §8: a trigger referring to an unknown key
	// evaluates false, never errors or panics.
	s := NewSnapshot()
	if Eval(mustParse(t, "never_seen_key > 10"), s.View()) {
		t.Errorf("expected unresolved ident to evaluate false")
	}
}

func TestEval_FailClosed_TypeMismatch(t *testing.T) {
	s := NewSnapshot()
	s.SetString("elevation", "high")

	if Eval(mustParse(t, "elevation > 10"), s.View()) {
		t.Errorf("expected string-vs-number mismatch to evaluate false")
	}

	s2 := NewSnapshot()
	s2.SetNumber("site", 1)
	if Eval(mustParse(t, "site == 'north-pad'"), s2.View()) {
		t.Errorf("expected number-vs-string mismatch to evaluate false")
	}
}

func TestEval_Parentheses(t *testing.T) {
	s := NewSnapshot()
	s.SetNumber("a", 1)
	s.SetNumber("b", 1)
	s.SetNumber("c", 0)
	s.SetNumber("d", 0)

	if !Eval(mustParse(t, "(a > 0 and b > 0) or (c > 0 and d > 0)"), s.View()) {
		t.Errorf("expected parenthesized or-clause to be true")
	}
}
