// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestClassifyOutput(t *testing.T) {
	t.Parallel()

	output := "zic: warning: file 'backward' is obsolescent\n" +
		"warning: multiple rules for 1970\n" +
		"\n" +
		"zic: can't create directory /zones: Permission denied\n"

	warnings, rest := classifyOutput(output)
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	if len(rest) != 1 {
		t.Fatalf("got %d error lines, want 1: %v", len(rest), rest)
	}
	if rest[0] != "zic: can't create directory /zones: Permission denied" {
		t.Errorf("unexpected error line: %q", rest[0])
	}
}

func TestClassifyOutput_Empty(t *testing.T) {
	t.Parallel()

	warnings, rest := classifyOutput("")
	if len(warnings) != 0 || len(rest) != 0 {
		t.Errorf("got (%v, %v), want empty", warnings, rest)
	}
}

func TestPrependPath_RestoresPriorValue(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")

	restore := prependPath("/opt/zic/bin")

	want := "/opt/zic/bin" + string(os.PathListSeparator) + "/usr/bin"
	if got := os.Getenv("PATH"); got != want {
		t.Errorf("during: PATH = %q, want %q", got, want)
	}

	restore()
	if got := os.Getenv("PATH"); got != "/usr/bin" {
		t.Errorf("after restore: PATH = %q, want %q", got, "/usr/bin")
	}
}

func TestPrependPath_EmptyDirIsNoop(t *testing.T) {
	t.Setenv("PATH", "/usr/bin")

	restore := prependPath("")
	if got := os.Getenv("PATH"); got != "/usr/bin" {
		t.Errorf("PATH = %q, want untouched", got)
	}
	restore()
}

func TestLocate_OverrideDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bin := filepath.Join(dir, DefaultCompiler)
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}

	got, err := Locate(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != bin {
		t.Errorf("got %q, want %q", got, bin)
	}
}

func TestLocate_OverrideDirMissingTool(t *testing.T) {
	t.Parallel()

	_, err := Locate(t.TempDir())
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("got %v, want ErrToolMissing", err)
	}
}
