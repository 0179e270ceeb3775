// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

// Eval walks a parsed expression against a point-in-time view of the
// snapshot. Evaluation fails closed (§4.2, §8 boundary v): an ident with
// no current observation, or a comparison whose operand types don't
// match, evaluates to false rather than erroring — a run gated on a
// trigger the monitors haven't populated yet simply does not run
// (SKIPPED), it never blocks or panics the executor.
func Eval(e *Expr, view map[string]Value) bool {
	switch {
	case e.Or != nil:
		for _, sub := range e.Or {
			if Eval(sub, view) {
				return true
			}
		}
		return false
	case e.And != nil:
		for _, sub := range e.And {
			if !Eval(sub, view) {
				return false
			}
		}
		return true
	case e.Cmp != nil:
		return evalComparison(e.Cmp, view)
	default:
		return false
	}
}

func evalComparison(c *Comparison, view map[string]Value) bool {
	observed, ok := view[c.Ident]
	if !ok {
		return false
	}
	if observed.IsString != c.Lit.IsString {
		return false
	}
	if observed.IsString {
		return compareStrings(observed.String, c.Op, c.Lit.String)
	}
	return compareNumbers(observed.Number, c.Op, c.Lit.Number)
}

func compareNumbers(a float64, op string, b float64) bool {
	switch op {
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	case "==":
		return a == b
	case "!=":
		return a != b
	default:
		return false
	}
}

func compareStrings(a string, op string, b string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case "<":
		return a < b
	case ">=":
		return a >= b
	case "<=":
		return a <= b
	default:
		return false
	}
}
