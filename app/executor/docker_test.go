// Copyright 2024 Seakee.  All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSanitizeLogsStripsMuxHeader(t *testing.T) {
	header := string([]byte{1, 0, 0, 0, 0, 0, 0, 5})
	raw := header + "hello\nplain line\n"
	got := sanitizeLogs(raw)
	if !strings.Contains(got, "hello") {
		t.Fatalf("sanitizeLogs() = %q, want it to contain the unwrapped line", got)
	}
	if strings.Contains(got, "\x01") {
		t.Fatalf("sanitizeLogs() = %q, mux header byte leaked through", got)
	}
	if !strings.Contains(got, "plain line") {
		t.Fatalf("sanitizeLogs() = %q, want it to preserve lines without a header", got)
	}
}

func TestSanitizeLogsDropsUnprintableLines(t *testing.T) {
	raw := "clean line\n" + string([]byte{0x01, 0x02, 0x03}) + "\n"
	got := sanitizeLogs(raw)
	if strings.Contains(got, "\x01") {
		t.Fatalf("sanitizeLogs() = %q, unprintable line should be dropped", got)
	}
	if !strings.Contains(got, "clean line") {
		t.Fatalf("sanitizeLogs() = %q, want it to keep the clean line", got)
	}
}

func TestContainsUnprintableCharacters(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"hello world", false},
		{"tab\tseparated", false},
		{"null\x00byte", true},
		{"del\x7fchar", true},
	}
	for _, c := range cases {
		if got := containsUnprintableCharacters([]byte(c.in)); got != c.want {
			t.Errorf("containsUnprintableCharacters(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestIsContextCanceledError(t *testing.T) {
	if !isContextCanceledError(context.Canceled) {
		t.Fatal("context.Canceled must be recognized")
	}
	if !isContextCanceledError(context.DeadlineExceeded) {
		t.Fatal("context.DeadlineExceeded must be recognized")
	}
	if isContextCanceledError(errors.New("some other failure")) {
		t.Fatal("unrelated errors must not be recognized as context cancellation")
	}
	if isContextCanceledError(nil) {
		t.Fatal("nil must not be recognized as context cancellation")
	}
}

func TestIsContainerNotFoundError(t *testing.T) {
	if !isContainerNotFoundError(errors.New("container abc123 not found")) {
		t.Fatal("a \"not found\" message must be recognized")
	}
	if isContainerNotFoundError(errors.New("connection refused")) {
		t.Fatal("unrelated errors must not be recognized as not-found")
	}
	if isContainerNotFoundError(nil) {
		t.Fatal("nil must not be recognized as not-found")
	}
}
