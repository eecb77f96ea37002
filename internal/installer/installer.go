// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/tzup/tzup/internal/activate"
	"github.com/tzup/tzup/internal/compile"
)

// ErrVersionUnresolvable indicates the latest published release could not be
// determined; installing an explicit release remains possible.
var ErrVersionUnresolvable = errors.New("latest release version could not be resolved")

type (
	// Resolver determines the latest published release identifier.
	Resolver interface {
		LatestVersion(ctx context.Context) (string, error)
	}

	// Fetcher ensures a local archive copy exists for a release.
	Fetcher interface {
		Ensure(ctx context.Context, version, dir string) (string, error)
	}

	// Compiler extracts a release archive and compiles its components.
	Compiler interface {
		ExtractSource(archivePath, rootDir, release string) (string, error)
		Compile(ctx context.Context, srcDir, release string, opts compile.Options) (string, error)
	}

	// Options control one install operation.
	Options struct {
		Compile compile.Options

		// Force bypasses the already-compiled short-circuit and recompiles
		// the release even when a finished dataset exists.
		Force bool
	}

	// Installer drives the pipeline against one Session.
	Installer struct {
		session  *activate.Session
		resolver Resolver
		fetcher  Fetcher
		compiler Compiler
		rootDir  string
		logger   *log.Logger
		stage    Stage
	}
)

// New creates an Installer staging all artifacts under rootDir.
func New(session *activate.Session, resolver Resolver, fetcher Fetcher, compiler Compiler, rootDir string, logger *log.Logger) *Installer {
	return &Installer{
		session:  session,
		resolver: resolver,
		fetcher:  fetcher,
		compiler: compiler,
		rootDir:  rootDir,
		logger:   logger,
		stage:    StageIdle,
	}
}

// Stage returns the stage the last operation reached.
func (i *Installer) Stage() Stage {
	return i.stage
}

// ActiveVersion returns the release identifier of the active dataset, or the
// placeholder when nothing is active.
func (i *Installer) ActiveVersion() string {
	return i.session.CurrentVersion()
}

// LatestPublishedVersion returns the latest published release identifier, or
// the placeholder when it cannot be determined. The result, including the
// unknown outcome, is memoized for the session lifetime.
func (i *Installer) LatestPublishedVersion(ctx context.Context) string {
	if v, resolved := i.session.CachedLatest(); resolved {
		return orPlaceholder(v)
	}

	v, err := i.resolver.LatestVersion(ctx)
	if err != nil {
		i.logger.Warn("could not resolve latest release", "err", err)
		v = ""
	}
	i.session.StoreLatest(v)

	return orPlaceholder(v)
}

// InstallVersion fetches, compiles and activates the given release. When a
// finished compiled dataset for the release already exists it is activated
// directly, with no network call and no compiler invocation, unless Force is
// set.
func (i *Installer) InstallVersion(ctx context.Context, release string, opts Options) error {
	i.stage = StageIdle
	return i.install(ctx, release, opts)
}

// InstallLatest resolves the latest published release and installs it unless
// the active dataset already matches, in which case the whole pipeline is
// skipped. Returns ErrVersionUnresolvable when resolution failed.
func (i *Installer) InstallLatest(ctx context.Context, opts Options) error {
	i.stage = StageIdle
	i.advance(StageResolvingVersion)

	latest := i.LatestPublishedVersion(ctx)
	if latest == activate.VersionPlaceholder {
		return ErrVersionUnresolvable
	}

	if !opts.Force && latest == i.session.CurrentVersion() {
		i.advance(StageUpToDate)
		i.logger.Info("already up to date", "release", latest)
		return nil
	}

	return i.install(ctx, latest, opts)
}

// install runs the pipeline stages from the installer's current stage.
func (i *Installer) install(ctx context.Context, release string, opts Options) error {
	compiledDir := i.compiledDir(release)

	if !opts.Force {
		if v, err := activate.ReadMarker(compiledDir); err == nil && v == release {
			i.logger.Debug("compiled dataset already present", "release", release)
			return i.activateDataset(compiledDir, release)
		}
	}

	i.advance(StageFetching)
	archivePath, err := i.fetcher.Ensure(ctx, release, i.rootDir)
	if err != nil {
		return fmt.Errorf("fetching release %s: %w", release, err)
	}

	i.advance(StageExtracting)
	srcDir, err := i.compiler.ExtractSource(archivePath, i.rootDir, release)
	if err != nil {
		return err
	}

	i.advance(StageCompiling)
	outDir, err := i.compiler.Compile(ctx, srcDir, release, opts.Compile)
	if err != nil {
		return err
	}

	return i.activateDataset(outDir, release)
}

// activateDataset publishes the compiled dataset and finishes the pipeline.
func (i *Installer) activateDataset(dir, release string) error {
	i.advance(StageActivating)
	if err := i.session.Activate(dir); err != nil {
		return fmt.Errorf("activating release %s: %w", release, err)
	}

	i.advance(StageDone)
	i.logger.Info("release active", "release", release, "path", dir)
	return nil
}

// advance moves the pipeline to the next stage, flagging transitions the
// state machine does not define.
func (i *Installer) advance(next Stage) {
	if !i.stage.CanTransition(next) {
		i.logger.Warn("unexpected stage transition", "from", i.stage, "to", next)
	}
	i.logger.Debug("stage", "from", i.stage, "to", next)
	i.stage = next
}

// compiledDir returns the compiled dataset directory for a release.
func (i *Installer) compiledDir(release string) string {
	return filepath.Join(i.rootDir, release, compile.CompiledDirName)
}

// orPlaceholder maps the empty unknown sentinel to the public placeholder.
func orPlaceholder(v string) string {
	if v == "" {
		return activate.VersionPlaceholder
	}
	return v
}
