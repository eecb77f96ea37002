// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tzup/tzup/internal/activate"
	"github.com/tzup/tzup/internal/archive"
)

// CompiledDirName is the subdirectory of an extracted release that receives
// the compiled output.
const CompiledDirName = "zoneinfo"

type (
	// Options control how a compilation run behaves.
	Options struct {
		// ShowCompilerLog emits the full per-component compiler output
		// through the log sink.
		ShowCompilerLog bool

		// StrictErrors aborts on the first component whose error set is
		// non-empty instead of continuing best-effort.
		StrictErrors bool

		// Verbose emits per-component progress messages.
		Verbose bool
	}

	// ComponentFailure records the error lines one component produced.
	ComponentFailure struct {
		Component string
		Details   []string
	}

	// Error is the aggregate compilation verdict when a release could not be
	// compiled: either strict mode hit a component failure, or nothing
	// compiled at all.
	Error struct {
		Release  string
		Failures []ComponentFailure
	}

	// Orchestrator extracts a release archive and drives the compiler over
	// its components.
	Orchestrator struct {
		runner      Runner
		logger      *log.Logger
		compilerDir string // optional directory prepended to PATH while compiling
	}

	// OrchestratorOption configures an Orchestrator during construction.
	OrchestratorOption func(*Orchestrator)
)

// Error summarizes the failed components.
func (e *Error) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("release %s: no components compiled", e.Release)
	}

	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Component)
	}
	return fmt.Sprintf("release %s: compilation failed for %s", e.Release, strings.Join(names, ", "))
}

// WithCompilerDir sets a directory that is prepended to PATH for the duration
// of each compilation run and restored afterwards.
func WithCompilerDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.compilerDir = dir
	}
}

// NewOrchestrator creates an Orchestrator invoking the compiler through
// runner and logging through logger.
func NewOrchestrator(runner Runner, logger *log.Logger, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runner: runner,
		logger: logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ExtractSource unpacks the release archive into its per-release source
// directory under rootDir and returns that directory.
func (o *Orchestrator) ExtractSource(archivePath, rootDir, release string) (string, error) {
	srcDir := filepath.Join(rootDir, release)
	if err := archive.Extract(archivePath, srcDir); err != nil {
		return "", fmt.Errorf("extracting release %s: %w", release, err)
	}
	return srcDir, nil
}

// Compile runs the compiler over every present component of the extracted
// source in srcDir, staging output in the compiled subdirectory. A component
// counts as compiled only when its run produced a clean exit and no
// non-warning output. The dataset succeeds when at least one component
// compiled and, in strict mode, no component failed; on success the version
// marker is written and the compiled directory returned.
func (o *Orchestrator) Compile(ctx context.Context, srcDir, release string, opts Options) (string, error) {
	outDir := filepath.Join(srcDir, CompiledDirName)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	restore := prependPath(o.compilerDir)
	defer restore()

	var (
		compiled int
		failures []ComponentFailure
	)

	for _, comp := range Components {
		srcPath := filepath.Join(srcDir, comp)
		if _, err := os.Stat(srcPath); err != nil {
			if Optional(comp) {
				o.logger.Debug("optional component absent", "component", comp)
			} else {
				o.logger.Warn("component missing from release", "component", comp, "release", release)
			}
			continue
		}

		if opts.Verbose {
			o.logger.Info("compiling component", "component", comp)
		}

		output, exitCode, err := o.runner.Run(ctx, outDir, srcPath)
		if err != nil {
			o.cleanup(outDir)
			return "", fmt.Errorf("running compiler for %s: %w", comp, err)
		}

		if opts.ShowCompilerLog && output != "" {
			for _, line := range strings.Split(strings.TrimRight(output, "\n"), "\n") {
				o.logger.Info("zic", "component", comp, "line", line)
			}
		}

		warnings, errLines := classifyOutput(output)
		for _, w := range warnings {
			o.logger.Warn("compiler warning", "component", comp, "msg", w)
		}

		if exitCode == 0 && len(errLines) == 0 {
			compiled++
			continue
		}

		if len(errLines) == 0 {
			errLines = []string{fmt.Sprintf("exit status %d", exitCode)}
		}
		failures = append(failures, ComponentFailure{Component: comp, Details: errLines})
		o.logger.Error("component failed", "component", comp, "exit", exitCode)

		if opts.StrictErrors {
			o.cleanup(outDir)
			return "", &Error{Release: release, Failures: failures}
		}
	}

	if compiled == 0 {
		o.cleanup(outDir)
		return "", &Error{Release: release, Failures: failures}
	}

	if err := activate.WriteMarker(outDir, release); err != nil {
		o.cleanup(outDir)
		return "", err
	}

	return outDir, nil
}

// cleanup removes an incomplete compiled directory so a later attempt does
// not mistake it for a finished dataset.
func (o *Orchestrator) cleanup(outDir string) {
	if err := os.RemoveAll(outDir); err != nil {
		o.logger.Warn("could not remove incomplete compiled output", "path", outDir, "err", err)
	}
}
