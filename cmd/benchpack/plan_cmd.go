package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/overheadlab/benchpack/internal/expconf"
)

func newPlanCommand(state *appState) *cobra.Command {
	var pendingOnly bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the replica runs the experiment config expands to, with completion status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := expconf.Load(state.cfg.ExperimentConfig)
			if err != nil {
				return err
			}
			completed := expconf.ScanCompleted(state.cfg.ResultsDir)
			runs := cfg.Plan(completed)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tEXPERIMENT\tPROFILE\tSTATUS")
			done := 0
			for _, run := range runs {
				if run.Done {
					done++
					if pendingOnly {
						continue
					}
				}
				status := "pending"
				if run.Done {
					status = "done"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", run.ID, run.Experiment, run.Profile, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d run(s), %d done, %d pending\n", len(runs), done, len(runs)-done)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "list only runs without a result tarball")
	return cmd
}
