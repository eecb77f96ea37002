// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

type (
	// Ensurer is the archive-providing half of Fetcher, extracted so the
	// verifying decorator can wrap any implementation.
	Ensurer interface {
		Ensure(ctx context.Context, version, dir string) (string, error)
	}

	// DigestSource provides the published digest file. Implemented by
	// iana.Client.
	DigestSource interface {
		DownloadDigests(ctx context.Context, digestURL string) (io.ReadCloser, error)
	}

	// VerifiedFetcher decorates an Ensurer with SHA-512 verification against a
	// published digest file. A mismatching archive is removed so the next
	// attempt re-downloads it.
	VerifiedFetcher struct {
		inner     Ensurer
		source    DigestSource
		digestURL string
		logger    *log.Logger
	}
)

// NewVerifiedFetcher wraps inner with digest verification against digestURL.
func NewVerifiedFetcher(inner Ensurer, source DigestSource, digestURL string, logger *log.Logger) *VerifiedFetcher {
	return &VerifiedFetcher{inner: inner, source: source, digestURL: digestURL, logger: logger}
}

// Ensure fetches the archive through the wrapped Ensurer and verifies it
// against the published digest. Releases absent from the digest file are
// accepted with a warning; a digest mismatch removes the local file and
// fails.
func (f *VerifiedFetcher) Ensure(ctx context.Context, version, dir string) (string, error) {
	path, err := f.inner.Ensure(ctx, version, dir)
	if err != nil {
		return "", err
	}

	body, err := f.source.DownloadDigests(ctx, f.digestURL)
	if err != nil {
		return "", fmt.Errorf("fetching digest file: %w", err)
	}
	defer body.Close()

	entries, err := ParseDigests(body)
	if err != nil {
		return "", fmt.Errorf("parsing digest file: %w", err)
	}

	want, err := FindDigest(entries, Name(version))
	if errors.Is(err, ErrDigestNotFound) {
		f.logger.Warn("release not listed in digest file, skipping verification", "release", version)
		return path, nil
	}
	if err != nil {
		return "", err
	}

	if err := VerifyFile(path, want); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			f.logger.Warn("could not remove corrupt archive", "path", path, "err", rmErr)
		}
		return "", err
	}

	f.logger.Debug("archive digest verified", "release", version)
	return path, nil
}
