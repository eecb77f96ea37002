// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tzup/tzup/internal/activate"
	"github.com/tzup/tzup/internal/iana"
)

// newCurrentCommand creates the `tzup current` command, which reports the
// release identifier of the active dataset.
func newCurrentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active release",
		Long: `Show the release identifier of the active time zone dataset.

The active dataset is the directory TZDIR points at. When nothing is
active, or the dataset carries no readable version marker, the
placeholder '` + activate.VersionPlaceholder + `' is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := activate.NewSessionFromEnv()
			printCurrent(cmd.OutOrStdout(), session.CurrentVersion(), session.ActivePath(), verbose)
			return nil
		},
	}
}

// printCurrent writes the active release, with the dataset path in verbose
// mode.
func printCurrent(w io.Writer, version, path string, verboseMode bool) {
	fmt.Fprintln(w, version)
	if verboseMode && path != "" {
		fmt.Fprintln(w, SubtitleStyle.Render("path: "+path))
	}
}

// newLatestCommand creates the `tzup latest` command, which resolves the
// latest published release without installing anything.
func newLatestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest published release",
		Long: `Show the latest published time zone database release.

The version is resolved by scraping the release page. When resolution
fails, the placeholder '` + activate.VersionPlaceholder + `' is printed and the
reason goes to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg := effectiveConfig()
			client := iana.NewClient(
				iana.WithPageURL(cfg.Source.PageURL),
				iana.WithArchiveURL(cfg.Source.ArchiveURL),
				iana.WithUserAgent("tzup/"+Version),
			)

			v, err := client.LatestVersion(cmd.Context())
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
				fmt.Fprintln(cmd.OutOrStdout(), activate.VersionPlaceholder)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
