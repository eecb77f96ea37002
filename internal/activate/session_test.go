// SPDX-License-Identifier: MPL-2.0

package activate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCurrentVersion_PlaceholderBeforeActivation(t *testing.T) {
	s := NewSession()
	if got := s.CurrentVersion(); got != VersionPlaceholder {
		t.Errorf("got %q, want %q", got, VersionPlaceholder)
	}
}

func TestNewSessionFromEnv_SeedsActivePath(t *testing.T) {
	dir := t.TempDir()
	if err := WriteMarker(dir, "2024b"); err != nil {
		t.Fatalf("writing marker: %v", err)
	}
	t.Setenv(ActiveDatasetEnv, dir)

	s := NewSessionFromEnv()
	if got := s.ActivePath(); got != dir {
		t.Errorf("ActivePath() = %q, want %q", got, dir)
	}
	if got := s.CurrentVersion(); got != "2024b" {
		t.Errorf("CurrentVersion() = %q, want %q", got, "2024b")
	}
}

func TestActivate_PublishesPathAndVersion(t *testing.T) {
	dir := t.TempDir()
	if err := WriteMarker(dir, "2025a"); err != nil {
		t.Fatalf("writing marker: %v", err)
	}

	t.Setenv(ActiveDatasetEnv, "/previous")

	s := NewSession()
	if err := s.Activate(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := os.Getenv(ActiveDatasetEnv); got != dir {
		t.Errorf("env %s = %q, want %q", ActiveDatasetEnv, got, dir)
	}
	if got := s.ActivePath(); got != dir {
		t.Errorf("ActivePath() = %q, want %q", got, dir)
	}
	if got := s.CurrentVersion(); got != "2025a" {
		t.Errorf("CurrentVersion() = %q, want %q", got, "2025a")
	}
}

func TestCurrentVersion_UnreadableMarker(t *testing.T) {
	dir := t.TempDir()

	s := NewSession()
	if err := s.Activate(dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No marker file in the activated directory.
	if got := s.CurrentVersion(); got != VersionPlaceholder {
		t.Errorf("got %q, want %q", got, VersionPlaceholder)
	}
}

func TestMarkerRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := WriteMarker(dir, "2024b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The marker holds exactly the identifier, no trailing formatting.
	raw, err := os.ReadFile(filepath.Join(dir, MarkerFileName))
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if string(raw) != "2024b" {
		t.Errorf("marker content %q, want %q", raw, "2024b")
	}

	got, err := ReadMarker(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2024b" {
		t.Errorf("got %q, want %q", got, "2024b")
	}
}

func TestLatestCache(t *testing.T) {
	t.Parallel()

	s := NewSession()

	if _, resolved := s.CachedLatest(); resolved {
		t.Fatal("fresh session reports latest as resolved")
	}

	// The unknown outcome is memoized too.
	s.StoreLatest("")
	if v, resolved := s.CachedLatest(); !resolved || v != "" {
		t.Errorf("got (%q, %v), want (\"\", true)", v, resolved)
	}

	s.StoreLatest("2025a")
	if v, resolved := s.CachedLatest(); !resolved || v != "2025a" {
		t.Errorf("got (%q, %v), want (\"2025a\", true)", v, resolved)
	}

	s.ResetLatest()
	if _, resolved := s.CachedLatest(); resolved {
		t.Error("ResetLatest did not clear the cache")
	}
}
