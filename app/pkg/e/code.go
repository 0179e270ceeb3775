// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package e defines the error codes returned by every coordinator operation.
package e

// Code is the tagged variant carried in every API response envelope. The
// names follow the ErrorCode set in the external-interface and error-
// handling sections verbatim; Code is an int so it serializes the same way
// the i18n response envelope expects.
type Code int

const (
	SUCCESS Code = 0

	// InvalidParams covers malformed input, including a bad cron or trigger
	// expression caught at admission time.
	InvalidParams Code = 400

	// Unauthenticated is returned when credentials are missing or invalid.
	Unauthenticated Code = 401

	// Forbidden is returned for valid credentials with insufficient role.
	Forbidden Code = 403

	// NotFound is returned when a referenced record does not exist.
	NotFound Code = 404

	// Conflict is returned by schedule_job when the candidate's occupancy
	// overlaps an existing admitted overhead job.
	Conflict Code = 409

	// NoSlot is returned by reschedule_job_nearest when no free instant
	// exists in the job's validity window.
	NoSlot Code = 422

	// Unsupported is returned when an operation does not apply to a job's
	// kind, e.g. reschedule_job_nearest on a CRON job.
	Unsupported Code = 405

	// Unavailable is a transport-layer failure; clients retry these with
	// jittered backoff.
	Unavailable Code = 503

	// ERROR is the generic internal-failure fallback, kept from the
	// teacher's error taxonomy for errors that don't map onto the
	// specification's named ErrorCode set.
	ERROR Code = 500
)

// ConflictDetails carries the offending job id and instant named by the
// CONFLICT error in §4.1/§7.
type ConflictDetails struct {
	OffendingJobID string `json:"offending_job_id"`
	InstantTS      int64  `json:"instant_ts"`
}
