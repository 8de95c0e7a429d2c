package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptd/internal/answer"
	"github.com/abhisek/adaptd/internal/diagnosis"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a wrong answer without recording it",
	Long: `Run the configured error classifier on one wrong answer and print the
error type and remediation hint. Nothing is written to the attempt log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		expected, _ := cmd.Flags().GetString("expected")
		given, _ := cmd.Flags().GetString("given")
		typ, _ := cmd.Flags().GetString("type")
		topic, _ := cmd.Flags().GetString("topic")

		at := answer.Type(typ)
		if !at.Valid() {
			return fmt.Errorf("unknown answer type %q", typ)
		}
		if answer.Check(answer.Payload{Expected: expected, Given: given, Type: at}) {
			fmt.Fprintln(cmd.OutOrStdout(), "The answer is correct; nothing to classify.")
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		// LLM request events are only logged when a database is open.
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmdContext(cmd)
		c := diagnosis.WithTimeout(buildClassifier(ctx, cfg, st.EventRepo(), nil, log), cfg.Engine.ClassifierTimeout)

		start := time.Now()
		res, err := c.Classify(ctx, &diagnosis.Input{Expected: expected, Actual: given, Topic: topic, AnswerType: at})
		if err != nil {
			log.Warn("classification fell back", "error", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Error type:"), res.Type)
		fmt.Fprintf(out, "%s %s (%.2f confidence, %s)\n", dimStyle.Render("Classifier:"),
			res.Classifier, res.Confidence, time.Since(start).Round(time.Millisecond))
		fmt.Fprintln(out, diagnosis.Remediation(res.Type, topic))
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("expected", "", "Expected answer (required)")
	classifyCmd.Flags().String("given", "", "Learner's answer (required)")
	classifyCmd.Flags().String("type", string(answer.TypeInteger), "Answer type: integer, decimal, fraction, choice or text")
	classifyCmd.Flags().String("topic", "", "Topic name used in the prompt and hint")
	_ = classifyCmd.MarkFlagRequired("expected")
	_ = classifyCmd.MarkFlagRequired("given")
}
