// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxEntryBytes is the upper bound on a single extracted entry (100 MB).
// Prevents decompression bombs; tzdata component files are well under 1 MB.
const maxEntryBytes = 100 << 20

// Extract unpacks the tar.gz archive at archivePath into destDir, creating it
// if needed. Entries escaping destDir are rejected. On any failure the
// partially extracted directory is removed so a retry starts clean.
func Extract(archivePath, destDir string) error {
	if err := extract(archivePath, destDir); err != nil {
		_ = os.RemoveAll(destDir)
		return err
	}
	return nil
}

func extract(archivePath, destDir string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer func() { _ = f.Close() }() // read-only file handle

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating extraction directory: %w", err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}
		if nextErr != nil {
			return fmt.Errorf("reading tar entry: %w", nextErr)
		}

		target, pathErr := entryPath(destDir, hdr.Name)
		if pathErr != nil {
			return pathErr
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, hdr.Name); err != nil {
				return err
			}
		default:
			// Symlinks and special files do not occur in tzdata archives.
			continue
		}
	}
}

// entryPath resolves an archive entry name inside destDir, rejecting names
// that would escape it.
func entryPath(destDir, name string) (string, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes extraction directory", name)
	}
	return filepath.Join(destDir, clean), nil
}

// writeEntry copies one regular file entry to target, creating parent
// directories as needed.
func writeEntry(target string, tr io.Reader, name string) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", name, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", name, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, io.LimitReader(tr, maxEntryBytes)); err != nil {
		return fmt.Errorf("extracting %s: %w", name, err)
	}

	return nil
}
