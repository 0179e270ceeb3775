// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package executor

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	jobmodel "github.com/leoscope/leoscope/app/model/job"
	"github.com/leoscope/leoscope/app/trigger"
)

func TestArtifactKeyShape(t *testing.T) {
	got := artifactKey("node-1", "job-1", "run-1", 1700000000)
	want := "artifacts/node-1/job-1/2023/11/14/run-1/archive.tar.gz"
	if got != want {
		t.Fatalf("artifactKey() = %q, want %q", got, want)
	}
}

func TestBoolLabel(t *testing.T) {
	if boolLabel(true) != "true" || boolLabel(false) != "false" {
		t.Fatal("boolLabel must render \"true\"/\"false\"")
	}
}

func TestArchiveDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}

	archive, err := archiveDir(dir)
	if err != nil {
		t.Fatalf("archiveDir() error = %v", err)
	}

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	tr := tar.NewReader(gz)

	contents := map[string]string{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar.Next() error = %v", err)
		}
		if header.Typeflag == tar.TypeDir {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read tar entry %q: %v", header.Name, err)
		}
		contents[header.Name] = string(body)
	}

	if contents["a.txt"] != "hello" {
		t.Fatalf("a.txt = %q, want %q", contents["a.txt"], "hello")
	}
	if contents[filepath.Join("sub", "b.txt")] != "world" {
		t.Fatalf("sub/b.txt = %q, want %q", contents[filepath.Join("sub", "b.txt")], "world")
	}
}

func TestEvaluateTriggerNoExpressionAlwaysFires(t *testing.T) {
	e := &Executor{snapshot: trigger.NewSnapshot()}
	job := &jobmodel.Job{}
	if !e.evaluateTrigger(job) {
		t.Fatal("a job with no trigger expression must always fire")
	}
}

func TestEvaluateTriggerReadsSnapshot(t *testing.T) {
	snap := trigger.NewSnapshot()
	snap.SetNumber("satellite.elevation", 25)
	e := &Executor{snapshot: snap}

	admitted := &jobmodel.Job{Trigger: "satellite.elevation > 10"}
	if !e.evaluateTrigger(admitted) {
		t.Fatal("expected trigger to admit when elevation exceeds threshold")
	}

	blocked := &jobmodel.Job{Trigger: "satellite.elevation > 100"}
	if e.evaluateTrigger(blocked) {
		t.Fatal("expected trigger to block when elevation is below threshold")
	}
}

func TestEvaluateTriggerFailsClosedOnCorruptExpression(t *testing.T) {
	e := &Executor{snapshot: trigger.NewSnapshot()}
	job := &jobmodel.Job{Trigger: "elevation >"}
	if e.evaluateTrigger(job) {
		t.Fatal("a trigger expression that fails to parse must fail closed (not fire)")
	}
}
