package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptd/internal/engine"
	"github.com/abhisek/adaptd/internal/knowledge"
)

var weakCmd = &cobra.Command{
	Use:   "weak <learner-id>",
	Short: "List a learner's weakest practised elements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, _ := cmd.Flags().GetInt("limit")
		all, _ := cmd.Flags().GetBool("all")
		scope, _ := cmd.Flags().GetString("scope")

		return withOfflineEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			var weak []knowledge.Node
			var err error
			if all {
				weak, err = eng.WeakNodes(ctx, args[0], scope, 0)
				if len(weak) > n {
					weak = weak[:n]
				}
			} else {
				weak, err = eng.WeakAreas(ctx, args[0], n)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(weak) == 0 {
				fmt.Fprintln(out, "No weak areas: nothing practised is below the target mastery.")
				return nil
			}

			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Weak areas of %s (target %d%%)",
				args[0], eng.Config().Policy.TargetMasteryPercent)))
			fmt.Fprintln(out)
			for i, w := range weak {
				fmt.Fprintf(out, "%2d. %-28s %s  %s\n", i+1, w.Name, masteryBar(w.Mastery, w.Status), attemptsLabel(w))
			}
			return nil
		})
	},
}

func init() {
	weakCmd.Flags().IntP("limit", "n", engine.DefaultWeakAreas, "Number of nodes to show")
	weakCmd.Flags().Bool("all", false, "Include topics, sections and unpractised elements")
	weakCmd.Flags().String("scope", "", "Restrict --all to the subtree of this node")
}

func attemptsLabel(n knowledge.Node) string {
	return dimStyle.Render(fmt.Sprintf("%d attempts, %d errors", n.AttemptCount, n.ErrorCount))
}
