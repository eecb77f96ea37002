// SPDX-License-Identifier: MPL-2.0

package config

type (
	// Config is the complete tzup configuration.
	Config struct {
		// RootDir is the staging root for archives, extracted sources and
		// compiled datasets. Empty means the platform data directory.
		RootDir string `mapstructure:"root_dir"`

		Compiler CompilerConfig `mapstructure:"compiler"`
		Source   SourceConfig   `mapstructure:"source"`
		Install  InstallConfig  `mapstructure:"install"`
		UI       UIConfig       `mapstructure:"ui"`
	}

	// CompilerConfig locates the external zone compiler.
	CompilerConfig struct {
		// Dir holds a directory containing the zic binary. It is prepended
		// to PATH for the duration of a compile run. Empty searches PATH.
		Dir string `mapstructure:"dir"`
	}

	// SourceConfig points at the release distribution endpoints.
	SourceConfig struct {
		// PageURL is the page scraped for the latest release token.
		PageURL string `mapstructure:"page_url"`

		// ArchiveURL is the per-release archive URL template (one %s verb).
		ArchiveURL string `mapstructure:"archive_url"`

		// DigestURL optionally points at a sha512sum-format digest file used
		// to verify downloaded archives. Empty disables verification.
		DigestURL string `mapstructure:"digest_url"`
	}

	// InstallConfig holds default pipeline behavior, overridable per run via
	// flags.
	InstallConfig struct {
		StrictErrors    bool `mapstructure:"strict_errors"`
		ShowCompilerLog bool `mapstructure:"show_compiler_log"`
	}

	// UIConfig holds output preferences.
	UIConfig struct {
		Verbose bool `mapstructure:"verbose"`
	}
)

// DefaultConfig returns the built-in defaults. RootDir is left empty and
// resolved against the platform data directory at load time.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			PageURL:    "https://www.iana.org/time-zones",
			ArchiveURL: "https://data.iana.org/time-zones/releases/tzdata%s.tar.gz",
		},
		Install: InstallConfig{
			StrictErrors: false,
		},
	}
}
