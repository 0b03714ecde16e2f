package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overheadlab/benchpack/internal/archive"
	"github.com/overheadlab/benchpack/internal/expconf"
	"github.com/overheadlab/benchpack/internal/logfields"
)

func newBuildCommand(state *appState) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "build [test-name...]",
		Short: "Bundle a test's config, logs, results, and working files into archive/<name>.tar.gz",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logfields.WithSubsystem(state.logger, "cli.build")
			if all == (len(args) > 0) {
				return fmt.Errorf("provide test names or --all, not both")
			}
			if err := state.cfg.Validate(); err != nil {
				return err
			}

			names := args
			if all {
				cfg, err := expconf.Load(state.cfg.ExperimentConfig)
				if err != nil {
					return err
				}
				for _, set := range cfg.FlattenSets() {
					names = append(names, set.ID)
				}
			}

			builder := newBuilder(state)
			built := 0
			for _, name := range names {
				if _, err := builder.Build(cmd.Context(), name); err != nil {
					if errors.Is(err, archive.ErrNoArtifacts) {
						logger.Warn("no artifacts for test, skipping", "test", name)
						continue
					}
					return err
				}
				built++
			}
			logger.Info("build finished", "requested", len(names), "built", built)
			if built == 0 {
				return fmt.Errorf("no archives built: nothing matched %d test name(s)", len(names))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "build archives for every test set in the experiment config")
	return cmd
}

func newBuilder(state *appState) *archive.Builder {
	return &archive.Builder{
		ConfigPath: state.cfg.ExperimentConfig,
		LogsDir:    state.cfg.LogsDir,
		ResultsDir: state.cfg.ResultsDir,
		WorkingDir: state.cfg.WorkingDir,
		ArchiveDir: state.cfg.ArchiveDir,
		Logger:     state.logger,
	}
}
