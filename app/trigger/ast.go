// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

// Expr is a node in a parsed trigger expression tree. The grammar (§4.2)
// has exactly three shapes: a boolean Or/And of sub-expressions, and a
// leaf Comparison against an ident. verify_trigger only builds this tree;
// Eval is what walks it.
type Expr struct {
	Or  []*Expr // non-nil for an "or" node; len >= 2
	And []*Expr // non-nil for an "and" node; len >= 2
	Cmp *Comparison
}

// Comparison is a single atom: ident cmp literal.
type Comparison struct {
	Ident string
	Op    string
	Lit   Literal
}

// Literal is the right-hand side of a comparison, a number or a quoted
// string — the grammar admits no other literal shapes.
type Literal struct {
	IsString bool
	Number   float64
	String   string
}
