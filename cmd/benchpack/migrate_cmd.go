package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overheadlab/benchpack"
	"github.com/overheadlab/benchpack/internal/logfields"
	"github.com/overheadlab/benchpack/internal/migrate"
	"github.com/overheadlab/benchpack/internal/pathutil"
)

func newMigrateCommand(state *appState) *cobra.Command {
	var width int
	var inPlace bool
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate SRC [DST]",
		Short: "Zero-pad numeric run-ID suffixes inside every archive of a directory",
		Long: `Migrate extracts each .tar.gz archive in SRC, left-pads every
run-ID suffix narrower than the target width with zeros (in member
names and member contents), re-archives, and writes the result to DST.
With --in-place DST is omitted and each source archive is replaced
atomically once its rewrite completes.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logfields.WithSubsystem(state.logger, "cli.migrate")
			if inPlace && len(args) != 1 {
				return fmt.Errorf("--in-place takes only SRC")
			}
			if !inPlace && len(args) != 2 {
				return fmt.Errorf("provide SRC and DST, or --in-place")
			}
			src, err := pathutil.Resolve(args[0])
			if err != nil {
				return fmt.Errorf("resolve source dir: %w", err)
			}
			dst := src
			if !inPlace {
				if dst, err = pathutil.Resolve(args[1]); err != nil {
					return fmt.Errorf("resolve destination dir: %w", err)
				}
			}

			m := &migrate.Migrator{
				SrcDir:      src,
				DstDir:      dst,
				ScratchRoot: state.cfg.ScratchDir,
				Width:       width,
				DryRun:      dryRun,
				Logger:      state.logger,
			}
			stats, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("migration finished",
				"archives", stats.Archives,
				"renames", stats.Renames,
				"rewrites", stats.Rewrites,
				"width", width,
				"dry_run", dryRun,
			)
			return nil
		},
	}
	cmd.Flags().IntVarP(&width, "width", "n", benchpack.DefaultPadWidth, "target digit count for run-ID suffixes")
	cmd.Flags().BoolVar(&inPlace, "in-place", false, "rewrite the source archives instead of writing to DST")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report every rename and substitution without writing anything")
	return cmd
}
