// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local stores artifacts on the local filesystem, rooted at rootDir. It
// backs single-node development deployments where wiring S3 credentials
// isn't worth the operational overhead.
type Local struct {
	rootDir string
}

// NewLocal creates a Local store rooted at rootDir, creating it if absent.
func NewLocal(rootDir string) (*Local, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("blobstore: create root dir: %w", err)
	}
	return &Local{rootDir: rootDir}, nil
}

func (l *Local) path(key string) string {
	return filepath.Join(l.rootDir, filepath.Clean("/"+key))
}

func (l *Local) Put(_ context.Context, key string, body io.Reader, _ int64) (string, error) {
	dest := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("blobstore: create parent dir: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("blobstore: create object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("blobstore: write object: %w", err)
	}

	return "file://" + dest, nil
}

func (l *Local) Get(_ context.Context, key string) (io.ReadCloser, error) {
	return os.Open(l.path(key))
}

func (l *Local) Delete(_ context.Context, key string) error {
	return os.Remove(l.path(key))
}

func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	root := l.path(prefix)
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(l.rootDir, p)
		if relErr != nil {
			return relErr
		}
		keys = append(keys, strings.ReplaceAll(rel, string(filepath.Separator), "/"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: list: %w", err)
	}
	return keys, nil
}
