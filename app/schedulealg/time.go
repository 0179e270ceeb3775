// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package schedulealg

import "time"

// unixTime converts a unix-seconds timestamp to a UTC time.Time.
func unixTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
