// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package blobstore stores run artifacts (captured container logs and
// output archives) behind a Store interface, with a local-filesystem
// implementation for single-node deployments and an S3 implementation
// backed by aws-sdk-go-v2 for production (§6 "Artifact Storage").
package blobstore

import (
	"context"
	"io"
)

// Store is the artifact storage contract the executor (C7) writes
// completed run output through; the URL Put returns is recorded as the
// run's artifact_url. The coordinator does not construct a Store: get_runs
// hands back the stored artifact_url as is.
type Store interface {
	// Put uploads body under key and returns a URL the caller can hand back
	// to clients as artifact_url.
	Put(ctx context.Context, key string, body io.Reader, size int64) (url string, err error)
	// Get opens the object at key for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
	// List returns the keys under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
