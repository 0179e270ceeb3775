// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package blobstore

import (
	"context"
	"fmt"

	"github.com/leoscope/leoscope/app"
)

// New builds the configured Store from app.BlobStore settings.
func New(ctx context.Context, cfg app.BlobStore) (Store, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
	case "local", "":
		root := cfg.Local.RootDir
		if root == "" {
			root = "./artifacts"
		}
		return NewLocal(root)
	default:
		return nil, fmt.Errorf("blobstore: unknown driver %q", cfg.Driver)
	}
}
