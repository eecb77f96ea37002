// SPDX-License-Identifier: MPL-2.0

package activate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	// VersionPlaceholder is returned when no dataset has been activated in
	// this session, or the active dataset carries no readable marker.
	VersionPlaceholder = "-----"

	// MarkerFileName is the version marker file written into a compiled
	// dataset directory, holding exactly the release identifier.
	MarkerFileName = "+VERSION"

	// ActiveDatasetEnv is the environment variable through which the active
	// dataset path is published to the hosting runtime's time facilities.
	ActiveDatasetEnv = "TZDIR"
)

// Session holds the process-wide mutable state: the active dataset pointer
// and the single-slot cache of the resolved latest release. Both are guarded
// by a mutex so the package can be used from multi-threaded callers.
type Session struct {
	mu sync.Mutex

	activePath string

	latest         string // cached latest release; empty means unknown
	latestResolved bool   // whether resolution was attempted this session
}

// NewSession creates an empty Session: no active dataset, no cached latest.
func NewSession() *Session {
	return &Session{}
}

// NewSessionFromEnv creates a Session seeded with the dataset path a previous
// process published through ActiveDatasetEnv, if any.
func NewSessionFromEnv() *Session {
	return &Session{activePath: os.Getenv(ActiveDatasetEnv)}
}

// Activate repoints the active dataset at path and publishes it through
// ActiveDatasetEnv. The path is not validated; callers hand over directories
// produced by the compilation step.
func (s *Session) Activate(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Setenv(ActiveDatasetEnv, path); err != nil {
		return fmt.Errorf("publishing active dataset path: %w", err)
	}

	s.activePath = path
	return nil
}

// ActivePath returns the filesystem path of the active dataset, or the empty
// string if nothing was activated yet.
func (s *Session) ActivePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePath
}

// CurrentVersion returns the release identifier recorded in the active
// dataset's marker file, or VersionPlaceholder when no dataset was activated
// or the marker cannot be read.
func (s *Session) CurrentVersion() string {
	s.mu.Lock()
	path := s.activePath
	s.mu.Unlock()

	if path == "" {
		return VersionPlaceholder
	}

	v, err := ReadMarker(path)
	if err != nil {
		return VersionPlaceholder
	}
	return v
}

// CachedLatest returns the memoized latest release and whether resolution was
// already attempted this session. An empty version with resolved=true means
// resolution failed and will not be retried.
func (s *Session) CachedLatest() (version string, resolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.latestResolved
}

// StoreLatest records the outcome of latest-version resolution. An empty
// version records the unknown sentinel, which is memoized as well.
func (s *Session) StoreLatest(version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = version
	s.latestResolved = true
}

// ResetLatest clears the resolution cache so the next lookup re-fetches.
func (s *Session) ResetLatest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = ""
	s.latestResolved = false
}

// WriteMarker records the release identifier in dir's marker file. The file
// holds exactly the identifier with no trailing formatting.
func WriteMarker(dir, version string) error {
	if err := os.WriteFile(filepath.Join(dir, MarkerFileName), []byte(version), 0o644); err != nil {
		return fmt.Errorf("writing version marker: %w", err)
	}
	return nil
}

// ReadMarker returns the release identifier recorded in dir's marker file.
func ReadMarker(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, MarkerFileName))
	if err != nil {
		return "", fmt.Errorf("reading version marker: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
