// SPDX-License-Identifier: MPL-2.0

package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultCompiler is the zone information compiler binary name.
const DefaultCompiler = "zic"

// ErrToolMissing indicates the external compiler was not found on the search
// path.
var ErrToolMissing = errors.New("zone compiler not found")

// Runner invokes the external compiler once for a single component, returning
// its combined output and exit status. A non-nil error means the process
// could not be started at all, not that compilation failed.
type Runner interface {
	Run(ctx context.Context, outDir, srcPath string) (output string, exitCode int, err error)
}

// zicRunner runs a concrete compiler binary via os/exec.
type zicRunner struct {
	binary string
}

// NewRunner creates a Runner for the compiler binary at the given path or
// name (resolved against PATH at invocation time).
func NewRunner(binary string) Runner {
	return &zicRunner{binary: binary}
}

// Run invokes the compiler as `zic -d {outDir} {srcPath}` and captures its
// combined stdout/stderr.
func (r *zicRunner) Run(ctx context.Context, outDir, srcPath string) (string, int, error) {
	cmd := exec.CommandContext(ctx, r.binary, "-d", outDir, srcPath)

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return buf.String(), exitErr.ExitCode(), nil
		}
		return buf.String(), -1, fmt.Errorf("invoking %s: %w", r.binary, err)
	}

	return buf.String(), 0, nil
}

// Locate resolves the compiler binary. When overrideDir is non-empty the
// binary is expected inside it; otherwise PATH is searched. Returns
// ErrToolMissing when no usable binary is found.
func Locate(overrideDir string) (string, error) {
	if overrideDir != "" {
		candidate := filepath.Join(overrideDir, DefaultCompiler)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		return "", fmt.Errorf("%w in %s", ErrToolMissing, overrideDir)
	}

	path, err := exec.LookPath(DefaultCompiler)
	if err != nil {
		return "", fmt.Errorf("%w on PATH", ErrToolMissing)
	}
	return path, nil
}

// warningLine matches compiler output lines that are informational rather
// than errors, e.g. "zic: warning: ..." or "warning: ...".
var warningLine = regexp.MustCompile(`(?i)(^|[:\s])warning\b`)

// classifyOutput splits the compiler's combined output into warning lines and
// everything else. Blank lines are dropped.
func classifyOutput(output string) (warnings, rest []string) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if warningLine.MatchString(line) {
			warnings = append(warnings, line)
		} else {
			rest = append(rest, line)
		}
	}
	return warnings, rest
}

// prependPath prepends dir to the PATH environment variable for the duration
// of an operation. The returned restore function reinstates the prior value
// and must be called on every exit path.
func prependPath(dir string) (restore func()) {
	if dir == "" {
		return func() {}
	}

	prev, had := os.LookupEnv("PATH")
	_ = os.Setenv("PATH", dir+string(os.PathListSeparator)+prev)

	return func() {
		if had {
			_ = os.Setenv("PATH", prev)
		} else {
			_ = os.Unsetenv("PATH")
		}
	}
}
