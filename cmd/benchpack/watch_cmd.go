package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/overheadlab/benchpack/internal/archive"
	"github.com/overheadlab/benchpack/internal/logfields"
	"github.com/overheadlab/benchpack/internal/watch"
)

func newWatchCommand(state *appState) *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the results directory and archive each test set as its results arrive",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logfields.WithSubsystem(state.logger, "cli.watch")
			if err := state.cfg.Validate(); err != nil {
				return err
			}
			builder := newBuilder(state)
			w := &watch.Watcher{
				ResultsDir: state.cfg.ResultsDir,
				Settle:     settle,
				Logger:     state.logger,
				Build: func(ctx context.Context, setID string) error {
					_, err := builder.Build(ctx, setID)
					if errors.Is(err, archive.ErrNoArtifacts) {
						logger.Warn("no artifacts for test set yet", "set", setID)
						return nil
					}
					return err
				},
			}
			err := w.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				logger.Info("watch stopped")
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", watch.DefaultSettle, "how long a result tarball must stop growing before it is archived")
	return cmd
}
