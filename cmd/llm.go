package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect LLM classifier usage",
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of LLM requests and their estimated cost",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		calls, cost, err := s.EventRepo().LLMUsage(cmdContext(cmd))
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		out := cmd.OutOrStdout()
		if calls == 0 {
			fmt.Fprintln(out, "No LLM usage recorded yet.")
			return nil
		}
		fmt.Fprintf(out, "%s %d\n", titleStyle.Render("Requests:"), calls)
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Est. cost:"), formatCost(cost))
		return nil
	},
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmCmd.AddCommand(llmStatsCmd)
}
