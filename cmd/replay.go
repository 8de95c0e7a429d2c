package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptd/internal/engine"
)

var replayCmd = &cobra.Command{
	Use:   "replay [learner-id]",
	Short: "Rebuild mastery from the attempt log",
	Long: `Rebuild learner state from the latest snapshot plus every attempt logged
after it. Recorded error types are reused; the classifier is not called.
Without a learner ID every learner in the log is replayed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, _ := cmd.Flags().GetBool("snapshot")

		return withOfflineEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			var reports []engine.ReplayReport
			if len(args) == 1 {
				r, err := eng.Replay(ctx, args[0])
				if err != nil {
					return err
				}
				reports = append(reports, r)
			} else {
				var err error
				if reports, err = eng.ReplayAll(ctx); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if len(reports) == 0 {
				fmt.Fprintln(out, "No attempts logged.")
				return nil
			}
			for _, r := range reports {
				fmt.Fprintf(out, "%-20s from seq %-6d to %-6d applied %d", r.LearnerID, r.FromSequence, r.LastSequence, r.Applied)
				if len(r.Skipped) > 0 {
					fmt.Fprintf(out, ", skipped %d (unknown nodes %v)", len(r.Skipped), r.Skipped)
				}
				fmt.Fprintln(out)

				if snapshot {
					snap, err := eng.SaveSnapshot(ctx, r.LearnerID)
					if err != nil {
						return fmt.Errorf("snapshot %s: %w", r.LearnerID, err)
					}
					fmt.Fprintf(out, "%-20s snapshot saved at seq %d\n", "", snap.Sequence)
				}
			}
			return nil
		})
	},
}

func init() {
	replayCmd.Flags().Bool("snapshot", false, "Save a snapshot of each learner after replaying")
}
