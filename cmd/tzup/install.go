// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tzup/tzup/internal/activate"
	"github.com/tzup/tzup/internal/archive"
	"github.com/tzup/tzup/internal/compile"
	"github.com/tzup/tzup/internal/config"
	"github.com/tzup/tzup/internal/iana"
	"github.com/tzup/tzup/internal/installer"
	"github.com/tzup/tzup/internal/issue"
)

type (
	// datasetInstaller is the slice of installer.Installer the install
	// commands need, extracted so runInstall can be tested with a fake.
	datasetInstaller interface {
		InstallVersion(ctx context.Context, release string, opts installer.Options) error
		InstallLatest(ctx context.Context, opts installer.Options) error
		ActiveVersion() string
		Stage() installer.Stage
	}

	// installParams bundles the dependencies and flags for the install and
	// update commands, enabling the core logic in runInstall to be tested
	// without a real Cobra command or network access.
	installParams struct {
		stdout      io.Writer
		inst        datasetInstaller
		release     string // target release (empty = latest)
		force       bool
		compileOpts compile.Options
	}
)

// newInstallCommand creates the `tzup install` command, which fetches,
// compiles and activates a specific release.
func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <release>",
		Short: "Install and activate a specific release",
		Long: `Install and activate a specific time zone database release.

The install command downloads the release source archive, compiles its
components with the external 'zic' compiler and activates the compiled
dataset by pointing TZDIR at it. A release that was already compiled is
activated directly, with no download and no compilation.`,
		Example: `  # Install release 2025a
  tzup install 2025a

  # Recompile even if a compiled dataset exists
  tzup install 2025a --force

  # Show the full compiler output
  tzup install 2025a --show-compiler-log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallCommand(cmd, args[0])
		},
	}

	addInstallFlags(cmd)
	return cmd
}

// newUpdateCommand creates the `tzup update` command, which resolves the
// latest published release and installs it when the active dataset is behind.
func newUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Install and activate the latest published release",
		Long: `Install and activate the latest published time zone database release.

The update command scrapes the release page for the latest version,
then runs the same pipeline as 'tzup install'. When the active dataset
already matches the latest release, nothing is downloaded or compiled.`,
		Example: `  # Update to the latest release
  tzup update

  # Recompile the latest release even when already active
  tzup update --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstallCommand(cmd, "")
		},
	}

	addInstallFlags(cmd)
	return cmd
}

func addInstallFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("force", false, "recompile and reactivate even when the release is already installed")
	cmd.Flags().Bool("strict", false, "abort on the first component that fails to compile")
	cmd.Flags().Bool("show-compiler-log", false, "print the compiler output for every component")
}

// runInstallCommand wires the pipeline from configuration and delegates to
// runInstall. Shared by install (explicit release) and update (latest).
func runInstallCommand(cmd *cobra.Command, release string) error {
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	cfg := effectiveConfig()
	logger := newLogger()

	inst, err := buildInstaller(cfg, logger)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatInstallError(err))
		return &ExitError{Code: classifyInstallExitCode(err), Err: err}
	}

	p := installParams{
		stdout:  cmd.OutOrStdout(),
		inst:    inst,
		release: release,
		force:   boolFlag(cmd, "force", false),
		compileOpts: compile.Options{
			StrictErrors:    boolFlag(cmd, "strict", cfg.Install.StrictErrors),
			ShowCompilerLog: boolFlag(cmd, "show-compiler-log", cfg.Install.ShowCompilerLog),
			Verbose:         verbose,
		},
	}

	if err := runInstall(cmd.Context(), p); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), formatInstallError(err))
		return &ExitError{Code: classifyInstallExitCode(err), Err: err}
	}

	return nil
}

// runInstall is the core install logic, separated from Cobra for testability.
// All user-facing output goes through p.stdout.
func runInstall(ctx context.Context, p installParams) error {
	opts := installer.Options{Compile: p.compileOpts, Force: p.force}

	var err error
	if p.release == "" {
		err = p.inst.InstallLatest(ctx, opts)
	} else {
		err = p.inst.InstallVersion(ctx, p.release, opts)
	}
	if err != nil {
		return err
	}

	if p.inst.Stage() == installer.StageUpToDate {
		fmt.Fprintf(p.stdout, "Already up to date: %s\n", p.inst.ActiveVersion())
		return nil
	}

	fmt.Fprintln(p.stdout, SuccessStyle.Render(fmt.Sprintf("Active release: %s", p.inst.ActiveVersion())))
	return nil
}

// buildInstaller assembles the pipeline from the effective configuration:
// release client, archive fetcher (optionally digest-verifying), compile
// orchestrator and the session the result is activated into.
func buildInstaller(cfg *config.Config, logger *log.Logger) (*installer.Installer, error) {
	client := iana.NewClient(
		iana.WithPageURL(cfg.Source.PageURL),
		iana.WithArchiveURL(cfg.Source.ArchiveURL),
		iana.WithUserAgent("tzup/"+Version),
	)

	var fetcher installer.Fetcher = archive.NewFetcher(client, logger)
	if cfg.Source.DigestURL != "" {
		fetcher = archive.NewVerifiedFetcher(fetcher, client, cfg.Source.DigestURL, logger)
	}

	binary, err := compile.Locate(cfg.Compiler.Dir)
	if err != nil {
		return nil, err
	}
	orch := compile.NewOrchestrator(
		compile.NewRunner(binary),
		logger,
		compile.WithCompilerDir(cfg.Compiler.Dir),
	)

	return installer.New(activate.NewSessionFromEnv(), client, fetcher, orch, cfg.RootDir, logger), nil
}

// newLogger creates the CLI logger, honoring the verbose flag.
func newLogger() *log.Logger {
	opts := log.Options{Prefix: "tzup"}
	if verbose {
		opts.Level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, opts)
}

// boolFlag returns the flag value when it was set explicitly, the config
// fallback otherwise.
func boolFlag(cmd *cobra.Command, name string, fallback bool) bool {
	if cmd.Flags().Changed(name) {
		v, _ := cmd.Flags().GetBool(name)
		return v
	}
	return fallback
}

// classifyInstallExitCode maps an install error to the appropriate process
// exit code. User-correctable failures (unknown release, missing compiler)
// use exit code 1; transient or unexpected failures use exit code 2.
func classifyInstallExitCode(err error) int {
	switch {
	case errors.Is(err, iana.ErrReleaseNotFound):
		return 1
	case errors.Is(err, compile.ErrToolMissing):
		return 1
	case errors.Is(err, installer.ErrVersionUnresolvable):
		return 1
	default:
		return 2
	}
}

// formatInstallError produces a user-friendly error message: the underlying
// error followed by the remediation card for its failure class.
func formatInstallError(err error) string {
	header := ErrorStyle.Render("Error: ") + err.Error()

	card := issue.Get(classifyIssue(err))
	if card == nil {
		return header
	}
	rendered, rerr := card.Render("dark")
	if rerr != nil {
		return header
	}
	return header + "\n" + rendered
}

// classifyIssue maps an install error to its remediation card.
func classifyIssue(err error) issue.Id {
	var (
		compileErr *compile.Error
		fetchErr   *iana.FetchError
	)

	switch {
	case errors.Is(err, compile.ErrToolMissing):
		return issue.ToolMissingId
	case errors.Is(err, iana.ErrReleaseNotFound):
		return issue.ReleaseNotFoundId
	case errors.Is(err, iana.ErrSourceUnreachable):
		return issue.SourceUnreachableId
	case errors.Is(err, installer.ErrVersionUnresolvable):
		return issue.VersionUnresolvableId
	case errors.Is(err, archive.ErrDigestMismatch):
		return issue.FetchFailedId
	case errors.As(err, &compileErr):
		return issue.CompileFailedId
	case errors.As(err, &fetchErr):
		return issue.FetchFailedId
	default:
		return issue.InternalErrorId
	}
}
