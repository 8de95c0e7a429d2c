package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptd/internal/config"
	"github.com/abhisek/adaptd/internal/diagnosis"
	"github.com/abhisek/adaptd/internal/engine"
	"github.com/abhisek/adaptd/internal/logger"
	"github.com/abhisek/adaptd/internal/sink"
)

var graphCmd = &cobra.Command{
	Use:   "graph <learner-id>",
	Short: "Show a learner's mastery tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")

		return withOfflineEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
			tree, err := eng.GraphSnapshot(ctx, args[0], scope)
			if err != nil {
				return err
			}
			var b strings.Builder
			renderTree(&b, tree, "", true, true)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Mastery of "+args[0]))
			fmt.Fprintln(out)
			fmt.Fprint(out, b.String())

			task, err := eng.NextTask(ctx, args[0], scope)
			if err == nil {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%s %s at difficulty %d (%s), %s\n",
					dimStyle.Render("Next:"), task.TopicID, task.Difficulty, task.DifficultyLabel, task.Phase)
			}
			return nil
		})
	},
}

func init() {
	graphCmd.Flags().StringP("scope", "s", "", "Node ID to show the subtree of")
}

// withOfflineEngine opens the store and runs fn against an engine with the
// rule classifier and no publishers. Learner state is loaded from the
// latest snapshot plus the attempt log.
func withOfflineEngine(cmd *cobra.Command, fn func(context.Context, *engine.Engine) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := buildEngine(offline(cfg), st, diagnosis.NewRuleClassifier(), sink.Nop(), logger.Nop())
	if err != nil {
		return err
	}
	return fn(cmdContext(cmd), eng)
}

// offline disables automatic snapshots for read-mostly commands.
func offline(cfg config.Config) config.Config {
	cfg.Engine.SnapshotEvery = 0
	return cfg
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
