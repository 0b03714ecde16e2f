package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"

	"github.com/overheadlab/benchpack"
	"github.com/overheadlab/benchpack/internal/logfields"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("BENCHPACK_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "benchpack")
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if _, err := cmd.ExecuteContextC(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

// appState carries the resolved configuration and logger into the
// subcommands. Populated by the root PersistentPreRunE.
type appState struct {
	cfg    benchpack.Config
	logger pslog.Logger
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	state := &appState{logger: baseLogger}

	cmd := &cobra.Command{
		Use:           "benchpack",
		Short:         "benchpack bundles benchmark experiment artifacts into archives and normalizes test-ID padding",
		SilenceErrors: true,
		Example: `
  # Bundle one test's config, logs, results, and working files
  benchpack build d-c-50

  # Bundle every test set defined in the experiment config
  benchpack build --all

  # Re-pad run IDs in all archives to three digits
  benchpack migrate ./archive ./archive-padded --width 3

  # Same, rewriting the archives in place after a preview
  benchpack migrate ./archive --in-place --width 3 --dry-run
  benchpack migrate ./archive --in-place --width 3

  # Show the replica runs the experiment config expands to
  benchpack plan
`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			configFile, err := loadConfigFile()
			if err != nil {
				return err
			}
			if err := resolveConfig(&state.cfg); err != nil {
				return err
			}
			if level, ok := pslog.ParseLevel(state.cfg.LogLevel); ok {
				state.logger = baseLogger.LogLevel(level)
			}
			if configFile != "" {
				logfields.WithSubsystem(state.logger, "cli.root").Debug("loaded config file", "path", configFile)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	persistentFlags := cmd.PersistentFlags()
	persistentFlags.StringP("config", "c", "", "path to YAML tool config (defaults to $HOME/.benchpack/"+benchpack.DefaultConfigFileName+")")
	persistentFlags.StringP("workspace", "w", "", "experiment workspace root (defaults to the current directory)")
	persistentFlags.StringP("experiment-config", "e", "", "experiment definition YAML (defaults to "+benchpack.DefaultExperimentConfig+" under the workspace)")
	persistentFlags.String("logs-dir", "", "log directory override (defaults to "+benchpack.LogsDirName+"/ under the workspace)")
	persistentFlags.String("results-dir", "", "results directory override (defaults to "+benchpack.ResultsDirName+"/ under the workspace)")
	persistentFlags.String("working-dir", "", "working directory override (defaults to "+benchpack.WorkingDirName+"/ under the workspace)")
	persistentFlags.String("archive-dir", "", "archive output directory override (defaults to "+benchpack.ArchiveDirName+"/ under the workspace)")
	persistentFlags.String("scratch-dir", "", "scratch root for migration extraction (defaults to the system temp dir)")
	persistentFlags.String("log-level", "", "minimum log level (trace, debug, info, warn, error)")

	bindFlag := func(name string) {
		var flag *pflag.Flag
		if flag = persistentFlags.Lookup(name); flag == nil {
			panic(fmt.Sprintf("flag %q not found", name))
		}
		if err := viper.BindPFlag(name, flag); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("BENCHPACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	for _, name := range []string{
		"config", "workspace", "experiment-config",
		"logs-dir", "results-dir", "working-dir", "archive-dir", "scratch-dir",
		"log-level",
	} {
		bindFlag(name)
	}

	cmd.AddCommand(newBuildCommand(state))
	cmd.AddCommand(newMigrateCommand(state))
	cmd.AddCommand(newPlanCommand(state))
	cmd.AddCommand(newWatchCommand(state))
	cmd.AddCommand(newConfigCommand())
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func resolveConfig(cfg *benchpack.Config) error {
	cfg.WorkspaceDir = viper.GetString("workspace")
	cfg.ExperimentConfig = viper.GetString("experiment-config")
	cfg.LogsDir = viper.GetString("logs-dir")
	cfg.ResultsDir = viper.GetString("results-dir")
	cfg.WorkingDir = viper.GetString("working-dir")
	cfg.ArchiveDir = viper.GetString("archive-dir")
	cfg.ScratchDir = viper.GetString("scratch-dir")
	cfg.LogLevel = viper.GetString("log-level")
	return cfg.Normalize()
}

func loadConfigFile() (string, error) {
	cfgPath := strings.TrimSpace(viper.GetString("config"))
	explicit := cfgPath != ""

	if cfgPath == "" {
		if dir, err := benchpack.DefaultConfigDir(); err == nil {
			candidate := filepath.Join(dir, benchpack.DefaultConfigFileName)
			if _, err := os.Stat(candidate); err == nil {
				cfgPath = candidate
			}
		}
	}
	if cfgPath == "" {
		return "", nil
	}

	expanded, err := filepath.Abs(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}

	viper.SetConfigFile(expanded)
	if err := viper.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read config file %q: %w", expanded, err)
	}
	return expanded, nil
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
