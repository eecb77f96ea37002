// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type staticEnsurer struct {
	path  string
	calls int
}

func (e *staticEnsurer) Ensure(context.Context, string, string) (string, error) {
	e.calls++
	return e.path, nil
}

type staticDigestSource struct {
	body string
	err  error
}

func (s *staticDigestSource) DownloadDigests(context.Context, string) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func writeArchiveFile(t *testing.T, version, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), Name(version))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func digestOf(content string) string {
	sum := sha512.Sum512([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestVerifiedFetcher_AcceptsMatchingDigest(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, "2025a", "archive bytes")
	source := &staticDigestSource{
		body: fmt.Sprintf("%s  %s\n", digestOf("archive bytes"), Name("2025a")),
	}
	f := NewVerifiedFetcher(&staticEnsurer{path: path}, source, "https://example.com/sums", testLogger())

	got, err := f.Ensure(context.Background(), "2025a", filepath.Dir(path))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if got != path {
		t.Errorf("Ensure() = %q, want %q", got, path)
	}
}

func TestVerifiedFetcher_RemovesMismatchingArchive(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, "2025a", "archive bytes")
	source := &staticDigestSource{
		body: fmt.Sprintf("%s  %s\n", digestOf("different bytes"), Name("2025a")),
	}
	f := NewVerifiedFetcher(&staticEnsurer{path: path}, source, "https://example.com/sums", testLogger())

	_, err := f.Ensure(context.Background(), "2025a", filepath.Dir(path))
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("Ensure() error = %v, want digest mismatch", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("corrupt archive was not removed")
	}
}

func TestVerifiedFetcher_UnlistedReleaseAccepted(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, "2025a", "archive bytes")
	source := &staticDigestSource{
		body: fmt.Sprintf("%s  %s\n", digestOf("other"), Name("2024b")),
	}
	f := NewVerifiedFetcher(&staticEnsurer{path: path}, source, "https://example.com/sums", testLogger())

	got, err := f.Ensure(context.Background(), "2025a", filepath.Dir(path))
	if err != nil {
		t.Fatalf("Ensure() error: %v", err)
	}
	if got != path {
		t.Errorf("Ensure() = %q, want %q", got, path)
	}
}

func TestVerifiedFetcher_DigestFetchFailure(t *testing.T) {
	t.Parallel()

	path := writeArchiveFile(t, "2025a", "archive bytes")
	source := &staticDigestSource{err: errors.New("boom")}
	f := NewVerifiedFetcher(&staticEnsurer{path: path}, source, "https://example.com/sums", testLogger())

	if _, err := f.Ensure(context.Background(), "2025a", filepath.Dir(path)); err == nil {
		t.Fatal("Ensure() should fail when the digest file cannot be fetched")
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Error("archive should be kept when verification could not run")
	}
}
