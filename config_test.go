package benchpack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeDefaults(t *testing.T) {
	ws := t.TempDir()
	cfg := Config{WorkspaceDir: ws}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.LogsDir != filepath.Join(ws, "logs") {
		t.Fatalf("LogsDir %q", cfg.LogsDir)
	}
	if cfg.ResultsDir != filepath.Join(ws, "results") {
		t.Fatalf("ResultsDir %q", cfg.ResultsDir)
	}
	if cfg.WorkingDir != filepath.Join(ws, "working") {
		t.Fatalf("WorkingDir %q", cfg.WorkingDir)
	}
	if cfg.ArchiveDir != filepath.Join(ws, "archive") {
		t.Fatalf("ArchiveDir %q", cfg.ArchiveDir)
	}
	if cfg.ExperimentConfig != filepath.Join(ws, "experiments.yaml") {
		t.Fatalf("ExperimentConfig %q", cfg.ExperimentConfig)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel %q", cfg.LogLevel)
	}
	if cfg.ScratchDir != "" {
		t.Fatalf("ScratchDir should stay empty, got %q", cfg.ScratchDir)
	}
}

func TestNormalizeRelativePathsJoinWorkspace(t *testing.T) {
	ws := t.TempDir()
	cfg := Config{
		WorkspaceDir: ws,
		LogsDir:      "custom-logs",
		ResultsDir:   filepath.Join(ws, "elsewhere"),
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.LogsDir != filepath.Join(ws, "custom-logs") {
		t.Fatalf("relative LogsDir not joined to workspace: %q", cfg.LogsDir)
	}
	if cfg.ResultsDir != filepath.Join(ws, "elsewhere") {
		t.Fatalf("absolute ResultsDir modified: %q", cfg.ResultsDir)
	}
}

func TestNormalizeEmptyWorkspaceIsCwd(t *testing.T) {
	var cfg Config
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if cfg.WorkspaceDir != cwd {
		t.Fatalf("WorkspaceDir %q, want %q", cfg.WorkspaceDir, cwd)
	}
}

func TestValidate(t *testing.T) {
	ws := t.TempDir()
	cfg := Config{WorkspaceDir: ws}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg = Config{WorkspaceDir: filepath.Join(ws, "missing")}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing workspace")
	}
}

func TestDefaultConfigDirOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv("BENCHPACK_CONFIG_DIR", override)
	dir, err := DefaultConfigDir()
	if err != nil {
		t.Fatalf("DefaultConfigDir: %v", err)
	}
	if dir != override {
		t.Fatalf("override not honored: got %q want %q", dir, override)
	}

	t.Setenv("BENCHPACK_CONFIG_DIR", "")
	dir, err = DefaultConfigDir()
	if err != nil {
		t.Fatalf("DefaultConfigDir: %v", err)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("UserHomeDir: %v", err)
	}
	if dir != filepath.Join(home, ".benchpack") {
		t.Fatalf("default dir %q", dir)
	}
}
