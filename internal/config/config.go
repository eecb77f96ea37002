// SPDX-License-Identifier: MPL-2.0

package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tzup/tzup/internal/issue"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "tzup"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"

	// maxConfigFileSize bounds how much of a config file we are willing to
	// parse. Anything larger is almost certainly not a config file.
	maxConfigFileSize = 1 << 20
)

//go:embed config_schema.cue
var configSchema string

// LoadOptions controls config resolution. The zero value loads from the
// platform config directory.
type LoadOptions struct {
	// ConfigFilePath, when set, is used exclusively (--config flag).
	ConfigFilePath string
}

// ConfigDir returns the tzup configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application
// Support, and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DataDir returns the default staging root for downloaded archives, extracted
// sources and compiled datasets: %LOCALAPPDATA% on Windows, ~/Library/
// Application Support on macOS, $XDG_DATA_HOME (defaulting to
// ~/.local/share) elsewhere.
func DataDir() (string, error) {
	if dataDirOverride != "" {
		return dataDirOverride, nil
	}

	var dataDir string

	switch runtime.GOOS {
	case "windows":
		dataDir = os.Getenv("LOCALAPPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Local")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, AppName), nil
}

// Load resolves and parses the configuration. It returns the effective
// config, the path of the file it was loaded from ("" when running on pure
// defaults), and an error.
func Load(opts LoadOptions) (*Config, string, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("root_dir", defaults.RootDir)
	v.SetDefault("compiler.dir", defaults.Compiler.Dir)
	v.SetDefault("source.page_url", defaults.Source.PageURL)
	v.SetDefault("source.archive_url", defaults.Source.ArchiveURL)
	v.SetDefault("source.digest_url", defaults.Source.DigestURL)
	v.SetDefault("install.strict_errors", defaults.Install.StrictErrors)
	v.SetDefault("install.show_compiler_log", defaults.Install.ShowCompilerLog)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	resolvedPath := ""

	// If a custom config file path is set via the --config flag, use it
	// exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'tzup config show' to see the effective configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadCUEIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'tzup config init' to generate a valid starting point").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, "", err
		}

		cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if fileExists(cuePath) {
			if err := loadCUEIntoViper(v, cuePath); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(cuePath).
					WithSuggestion("Check that the file contains valid CUE syntax").
					WithSuggestion("Verify the configuration values match the expected schema").
					WithSuggestion("Run 'tzup config init' to generate a valid starting point").
					Wrap(err).
					BuildError()
			}
			resolvedPath = cuePath
		}
		// If no config file found, use defaults (no error)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.RootDir == "" {
		dataDir, err := DataDir()
		if err != nil {
			return nil, "", err
		}
		cfg.RootDir = dataDir
	}

	if err := validateSource(&cfg.Source); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithSuggestion("source.archive_url must contain exactly one %s placeholder for the release id").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// validateSource checks source constraints that CUE cannot express: the
// archive URL is a template with exactly one %s verb.
func validateSource(src *SourceConfig) error {
	if src.ArchiveURL == "" {
		return fmt.Errorf("source.archive_url must not be empty")
	}
	if strings.Count(src.ArchiveURL, "%s") != 1 {
		return fmt.Errorf("source.archive_url %q must contain exactly one %%s placeholder", src.ArchiveURL)
	}
	return nil
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if len(data) > maxConfigFileSize {
		return fmt.Errorf("config file %s is too large (%d bytes, max %d)", path, len(data), maxConfigFileSize)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return formatCUEError(userValue.Err(), path)
	}

	// Unify with schema to validate against the #Config definition. Concrete
	// is false because every field is optional.
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return formatCUEError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return formatCUEError(err, path)
	}

	// Merge into Viper (preserves defaults, allows flag overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// formatCUEError turns CUE's multi-error values into a single readable
// message with file positions.
func formatCUEError(err error, path string) error {
	details := cueerrors.Details(err, nil)
	if details == "" {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return fmt.Errorf("invalid config file %s:\n%s", path, strings.TrimRight(details, "\n"))
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil // File exists
	}

	cueContent := GenerateCUE(DefaultConfig())

	if err := os.WriteFile(cfgPath, []byte(cueContent), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// tzup configuration file\n")
	sb.WriteString("// See https://github.com/tzup/tzup for documentation.\n\n")

	if cfg.RootDir != "" {
		sb.WriteString(fmt.Sprintf("root_dir: %q\n\n", cfg.RootDir))
	}

	if cfg.Compiler.Dir != "" {
		sb.WriteString("compiler: {\n")
		sb.WriteString(fmt.Sprintf("\tdir: %q\n", cfg.Compiler.Dir))
		sb.WriteString("}\n\n")
	}

	sb.WriteString("source: {\n")
	sb.WriteString(fmt.Sprintf("\tpage_url:    %q\n", cfg.Source.PageURL))
	sb.WriteString(fmt.Sprintf("\tarchive_url: %q\n", cfg.Source.ArchiveURL))
	if cfg.Source.DigestURL != "" {
		sb.WriteString(fmt.Sprintf("\tdigest_url:  %q\n", cfg.Source.DigestURL))
	}
	sb.WriteString("}\n\n")

	sb.WriteString("install: {\n")
	sb.WriteString(fmt.Sprintf("\tstrict_errors:     %v\n", cfg.Install.StrictErrors))
	sb.WriteString(fmt.Sprintf("\tshow_compiler_log: %v\n", cfg.Install.ShowCompilerLog))
	sb.WriteString("}\n\n")

	sb.WriteString("ui: {\n")
	sb.WriteString(fmt.Sprintf("\tverbose: %v\n", cfg.UI.Verbose))
	sb.WriteString("}\n")

	return sb.String()
}
