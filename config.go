package benchpack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/overheadlab/benchpack/internal/pathutil"
)

const (
	// DefaultConfigFileName is the tool config file searched for when
	// --config is omitted.
	DefaultConfigFileName = "config.yaml"
	// DefaultExperimentConfig is the experiment definition file looked
	// up relative to the workspace.
	DefaultExperimentConfig = "experiments.yaml"
	// DefaultPadWidth is the zero-pad width applied by migrations when
	// no width is given: the minimum replica-ID width.
	DefaultPadWidth = 2
)

// Workspace subdirectory names, matching the layout the experiment
// automation writes into.
const (
	LogsDirName    = "logs"
	ResultsDirName = "results"
	WorkingDirName = "working"
	ArchiveDirName = "archive"
)

// Config carries the resolved settings for one benchpack invocation.
// Directory fields default relative to WorkspaceDir; absolute values
// stand alone.
type Config struct {
	// WorkspaceDir is the experiment workspace root. Defaults to the
	// current directory.
	WorkspaceDir string
	// ExperimentConfig is the experiment definition YAML. Defaults to
	// experiments.yaml under the workspace.
	ExperimentConfig string
	LogsDir          string
	ResultsDir       string
	WorkingDir       string
	ArchiveDir       string
	// ScratchDir hosts migration extraction dirs. Empty selects the
	// system temp dir.
	ScratchDir string
	// LogLevel is the minimum pslog level name (trace, debug, info,
	// warn, error).
	LogLevel string
}

// Normalize expands and absolutizes all paths and fills defaults.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.WorkspaceDir) == "" {
		c.WorkspaceDir = "."
	}
	ws, err := pathutil.Resolve(c.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("resolve workspace dir: %w", err)
	}
	c.WorkspaceDir = ws

	resolve := func(field *string, fallback string) error {
		if strings.TrimSpace(*field) == "" {
			*field = fallback
			return nil
		}
		expanded, err := pathutil.ExpandUserAndEnv(*field)
		if err != nil {
			return err
		}
		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(ws, expanded)
		}
		*field = expanded
		return nil
	}
	fields := []struct {
		field    *string
		fallback string
	}{
		{&c.ExperimentConfig, filepath.Join(ws, DefaultExperimentConfig)},
		{&c.LogsDir, filepath.Join(ws, LogsDirName)},
		{&c.ResultsDir, filepath.Join(ws, ResultsDirName)},
		{&c.WorkingDir, filepath.Join(ws, WorkingDirName)},
		{&c.ArchiveDir, filepath.Join(ws, ArchiveDirName)},
	}
	for _, f := range fields {
		if err := resolve(f.field, f.fallback); err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}
	if strings.TrimSpace(c.ScratchDir) != "" {
		scratch, err := pathutil.Resolve(c.ScratchDir)
		if err != nil {
			return fmt.Errorf("resolve scratch dir: %w", err)
		}
		c.ScratchDir = scratch
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	return nil
}

// Validate reports configuration errors that Normalize cannot repair.
func (c *Config) Validate() error {
	info, err := os.Stat(c.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("workspace dir %q: %w", c.WorkspaceDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace dir %q is not a directory", c.WorkspaceDir)
	}
	return nil
}

// DefaultConfigDir returns the directory searched for the tool config
// file, honoring the BENCHPACK_CONFIG_DIR override.
func DefaultConfigDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("BENCHPACK_CONFIG_DIR")); override != "" {
		return filepath.Abs(override)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".benchpack"), nil
}
