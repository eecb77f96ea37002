// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

// writeTarGz builds a tar.gz archive from name->content pairs.
func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range files {
		hdr := &tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing tar header: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing tar body: %v", err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("writing archive: %v", err)
	}
}

func TestExtract_UnpacksFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "tzdata2025a.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"europe":  "Zone Europe/Paris ...",
		"africa":  "Zone Africa/Cairo ...",
		"version": "2025a\n",
	})

	dest := filepath.Join(dir, "2025a")
	if err := Extract(archivePath, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, want := range map[string]string{"europe": "Zone Europe/Paris ...", "africa": "Zone Africa/Cairo ..."} {
		data, err := os.ReadFile(filepath.Join(dest, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		if string(data) != want {
			t.Errorf("%s: got %q, want %q", name, data, want)
		}
	}
}

func TestExtract_RejectsEscapingEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archivePath, map[string]string{
		"../outside": "nope",
	})

	dest := filepath.Join(dir, "out")
	if err := Extract(archivePath, dest); err == nil {
		t.Fatal("expected error for escaping entry, got nil")
	}

	if _, err := os.Stat(filepath.Join(dir, "outside")); !os.IsNotExist(err) {
		t.Error("escaping entry was written outside the extraction directory")
	}
	// The partial extraction directory must be cleaned up.
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial extraction directory left behind")
	}
}

func TestExtract_MissingArchive(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := Extract(filepath.Join(dir, "absent.tar.gz"), filepath.Join(dir, "dest")); err == nil {
		t.Fatal("expected error for missing archive, got nil")
	}
}
