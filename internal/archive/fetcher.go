// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

type (
	// Downloader provides the archive byte stream for a release. Implemented
	// by iana.Client; faked in tests.
	Downloader interface {
		DownloadArchive(ctx context.Context, version string) (io.ReadCloser, error)
	}

	// Fetcher ensures a local archive copy exists for a release, downloading
	// it at most once per (release, directory) pair.
	Fetcher struct {
		client Downloader
		logger *log.Logger
	}
)

// NewFetcher creates a Fetcher that downloads through client and logs through
// logger.
func NewFetcher(client Downloader, logger *log.Logger) *Fetcher {
	return &Fetcher{client: client, logger: logger}
}

// Name returns the conventional archive filename for a release identifier,
// e.g. "tzdata2025a.tar.gz".
func Name(version string) string {
	return "tzdata" + version + ".tar.gz"
}

// Ensure returns the path of the local archive for version inside dir,
// downloading it first if absent. An existing file short-circuits without any
// network call and without re-validating its content.
//
// The download is written to a temp file and renamed into place only when
// complete, so a failed attempt never leaves a partial archive at the final
// path. Temp file removal failures are logged, not escalated.
func (f *Fetcher) Ensure(ctx context.Context, version, dir string) (string, error) {
	path := filepath.Join(dir, Name(version))

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		f.logger.Debug("archive already present", "release", version, "path", path)
		return path, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	body, err := f.client.DownloadArchive(ctx, version)
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }() // read-only response body

	tmpPath, err := f.writeTemp(body, dir)
	if err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		f.removeArtifact(tmpPath)
		return "", fmt.Errorf("moving archive into place: %w", err)
	}

	f.logger.Debug("archive downloaded", "release", version, "path", path)
	return path, nil
}

// writeTemp streams body into a temp file in dir and returns its path. On any
// failure the partial temp file is removed before returning.
func (f *Fetcher) writeTemp(body io.Reader, dir string) (_ string, err error) {
	tmp, err := os.CreateTemp(dir, "tzdata-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			f.removeArtifact(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, body); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}

	return tmp.Name(), nil
}

// removeArtifact best-effort removes an incomplete on-disk artifact so a
// retried call never short-circuits on corrupt state.
func (f *Fetcher) removeArtifact(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("could not remove incomplete artifact", "path", path, "err", err)
	}
}
