// SPDX-License-Identifier: MPL-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Tests mutate package-level directory overrides, so they do not run in
// parallel.

func setupDirs(t *testing.T) (cfgDir, dataDir string) {
	t.Helper()
	cfgDir = t.TempDir()
	dataDir = t.TempDir()
	SetConfigDirOverride(cfgDir)
	SetDataDirOverride(dataDir)
	t.Cleanup(Reset)
	return cfgDir, dataDir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	_, dataDir := setupDirs(t)

	cfg, path, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty (defaults)", path)
	}
	if cfg.RootDir != dataDir {
		t.Errorf("RootDir = %q, want data dir %q", cfg.RootDir, dataDir)
	}
	if cfg.Source.PageURL != "https://www.iana.org/time-zones" {
		t.Errorf("unexpected default page URL %q", cfg.Source.PageURL)
	}
	if cfg.Install.StrictErrors {
		t.Error("StrictErrors should default to false")
	}
}

func TestLoad_ReadsConfigFile(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	path := writeConfig(t, cfgDir, `
root_dir: "/var/lib/tzup"
compiler: dir: "/opt/tz/bin"
install: strict_errors: true
`)

	cfg, resolved, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.RootDir != "/var/lib/tzup" {
		t.Errorf("RootDir = %q", cfg.RootDir)
	}
	if cfg.Compiler.Dir != "/opt/tz/bin" {
		t.Errorf("Compiler.Dir = %q", cfg.Compiler.Dir)
	}
	if !cfg.Install.StrictErrors {
		t.Error("StrictErrors not picked up from file")
	}
	// Fields absent from the file keep their defaults.
	if cfg.Source.ArchiveURL == "" {
		t.Error("ArchiveURL default lost after merge")
	}
}

func TestLoad_ExplicitConfigFilePath(t *testing.T) {
	setupDirs(t)

	other := filepath.Join(t.TempDir(), "custom.cue")
	if err := os.WriteFile(other, []byte(`ui: verbose: true`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := Load(LoadOptions{ConfigFilePath: other})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if resolved != other {
		t.Errorf("resolved path = %q, want %q", resolved, other)
	}
	if !cfg.UI.Verbose {
		t.Error("verbose not loaded from explicit file")
	}
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	setupDirs(t)

	_, _, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue")})
	if err == nil {
		t.Fatal("Load() with missing explicit file should fail")
	}
}

func TestLoad_RejectsSchemaViolation(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	writeConfig(t, cfgDir, `install: strict_errors: "yes"`)

	_, _, err := Load(LoadOptions{})
	if err == nil {
		t.Fatal("Load() should reject non-bool strict_errors")
	}
}

func TestLoad_RejectsInvalidSyntax(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	writeConfig(t, cfgDir, `root_dir: {{`)

	if _, _, err := Load(LoadOptions{}); err == nil {
		t.Fatal("Load() should reject malformed CUE")
	}
}

func TestLoad_RejectsBadArchiveTemplate(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	writeConfig(t, cfgDir, `source: archive_url: "https://example.com/tzdata.tar.gz"`)

	_, _, err := Load(LoadOptions{})
	if err == nil {
		t.Fatalf("Load() should reject archive_url without a %%s placeholder")
	}
	if !strings.Contains(err.Error(), "%s") {
		t.Errorf("error should mention the placeholder: %v", err)
	}
}

func TestGenerateCUE_RoundTrips(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	want := DefaultConfig()
	want.RootDir = "/srv/tz"
	want.Compiler.Dir = "/opt/tz/bin"
	want.Source.DigestURL = "https://example.com/sha512sums"
	want.Install.ShowCompilerLog = true

	writeConfig(t, cfgDir, GenerateCUE(want))

	got, _, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() of generated config: %v", err)
	}
	if got.RootDir != want.RootDir ||
		got.Compiler.Dir != want.Compiler.Dir ||
		got.Source.DigestURL != want.Source.DigestURL ||
		got.Install.ShowCompilerLog != want.Install.ShowCompilerLog {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	cfgDir, _ := setupDirs(t)

	path, err := CreateDefaultConfig()
	if err != nil {
		t.Fatalf("CreateDefaultConfig() error: %v", err)
	}
	if filepath.Dir(path) != cfgDir {
		t.Errorf("config created at %q, want inside %q", path, cfgDir)
	}

	// Idempotent: a second call keeps the existing file.
	if err := os.WriteFile(path, []byte(`ui: verbose: true`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateDefaultConfig(); err != nil {
		t.Fatalf("second CreateDefaultConfig() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "verbose: true") {
		t.Error("CreateDefaultConfig overwrote an existing file")
	}
}
