// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"bufio"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// sha512HexLen is the length of a hex-encoded SHA-512 digest.
const sha512HexLen = 128

var (
	// ErrDigestMismatch indicates the computed SHA-512 digest does not match
	// the published one.
	ErrDigestMismatch = errors.New("digest mismatch")

	// ErrDigestNotFound indicates the digest file has no entry for the
	// requested filename.
	ErrDigestNotFound = errors.New("file not found in digests")

	// errNoValidEntries indicates the digest file contained no parseable entries.
	errNoValidEntries = errors.New("no valid digest entries found")
)

type (
	// DigestEntry is one published SHA-512 digest for a release file.
	DigestEntry struct {
		Hash     string // Hex-encoded SHA-512 digest (128 characters)
		Filename string
	}

	// DigestError reports a verification failure with both digest values.
	// It wraps ErrDigestMismatch so callers can use errors.Is.
	DigestError struct {
		Filename string
		Expected string
		Got      string
	}
)

// Error shows both expected and actual digests for debugging.
func (e *DigestError) Error() string {
	return fmt.Sprintf("digest verification failed for %s\nExpected: %s\nGot:      %s", e.Filename, e.Expected, e.Got)
}

// Unwrap returns ErrDigestMismatch so callers can use errors.Is.
func (e *DigestError) Unwrap() error { return ErrDigestMismatch }

// ParseDigests parses a digest file in sha512sum output format: each line is
// "{sha512_hex}  {filename}". Blank lines and lines that do not match are
// silently skipped. Returns an error if no valid entries are found.
func ParseDigests(r io.Reader) ([]DigestEntry, error) {
	var entries []DigestEntry

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "  ", 2)
		if len(parts) != 2 {
			continue
		}

		hash := parts[0]
		filename := strings.TrimSpace(parts[1])
		if filename == "" || !isValidHexDigest(hash) {
			continue
		}

		entries = append(entries, DigestEntry{
			Hash:     strings.ToLower(hash),
			Filename: filename,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading digests: %w", err)
	}

	if len(entries) == 0 {
		return nil, errNoValidEntries
	}

	return entries, nil
}

// FindDigest returns the digest for filename, or ErrDigestNotFound.
func FindDigest(entries []DigestEntry, filename string) (string, error) {
	for _, e := range entries {
		if e.Filename == filename {
			return e.Hash, nil
		}
	}
	return "", fmt.Errorf("%q: %w", filename, ErrDigestNotFound)
}

// VerifyFile compares the SHA-512 digest of the file at path against
// expectedHash (case-insensitive). A mismatch is reported as a *DigestError.
func VerifyFile(path, expectedHash string) error {
	got, err := computeFileDigest(path)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, expectedHash) {
		return &DigestError{
			Filename: path,
			Expected: strings.ToLower(expectedHash),
			Got:      got,
		}
	}

	return nil
}

// computeFileDigest streams the file through SHA-512 and returns the
// lowercase hex digest.
func computeFileDigest(path string) (_ string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// isValidHexDigest checks that s is a 128-character hex string.
func isValidHexDigest(s string) bool {
	if len(s) != sha512HexLen {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
