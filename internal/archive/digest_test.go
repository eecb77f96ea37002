// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDigests(t *testing.T) {
	t.Parallel()

	hash := strings.Repeat("ab", 64)
	input := hash + "  tzdata2025a.tar.gz\n" +
		"\n" +
		"not a digest line\n" +
		strings.Repeat("cd", 64) + "  tzdata2024b.tar.gz\n"

	entries, err := ParseDigests(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	got, err := FindDigest(entries, "tzdata2025a.tar.gz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != hash {
		t.Errorf("got digest %q, want %q", got, hash)
	}

	if _, err := FindDigest(entries, "tzdata1999z.tar.gz"); !errors.Is(err, ErrDigestNotFound) {
		t.Errorf("got %v, want ErrDigestNotFound", err)
	}
}

func TestParseDigests_Empty(t *testing.T) {
	t.Parallel()

	if _, err := ParseDigests(strings.NewReader("garbage\n")); err == nil {
		t.Fatal("expected error for file without valid entries, got nil")
	}
}

func TestVerifyFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tzdata2025a.tar.gz")
	content := []byte("archive-bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	sum := sha512.Sum512(content)
	good := hex.EncodeToString(sum[:])

	if err := VerifyFile(path, good); err != nil {
		t.Errorf("matching digest: unexpected error: %v", err)
	}
	if err := VerifyFile(path, strings.ToUpper(good)); err != nil {
		t.Errorf("case-insensitive match: unexpected error: %v", err)
	}

	err := VerifyFile(path, strings.Repeat("00", 64))
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("got %v, want ErrDigestMismatch", err)
	}

	var digestErr *DigestError
	if !errors.As(err, &digestErr) {
		t.Fatalf("got %T, want *DigestError", err)
	}
	if digestErr.Got != good {
		t.Errorf("DigestError.Got = %q, want %q", digestErr.Got, good)
	}
}
