// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package trigger

// Verify reports whether expr is syntactically valid, for the
// verify_trigger operation (§4.2, §6). It never evaluates the expression
// and never consults a Snapshot — a trigger is valid the moment it
// parses, regardless of whether any monitor has ever observed the keys
// it names.
func Verify(expr string) error {
	_, err := Parse(expr)
	return err
}
