package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/cli"
	"scopehq/meridian/pkg/feedback"
	"scopehq/meridian/pkg/scoping"
)

var feedbackFlags struct {
	decision   string
	rating     string
	reason     string
	correction string
	commitment string
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Submit and inspect human feedback on decisions",
	Long: `Submit human review of persisted decisions, and inspect how the
engine has been scoring.

Feedback never reopens a decision. It is indexed by the decision's query
embedding so future runs on similar assets retrieve it as evidence.

Examples:
  # Confirm a decision
  meridian feedback submit --decision <id> --rating up --reason "matches our data map"

  # Correct a decision (down ratings require a correction)
  meridian feedback submit --decision <id> --rating down \
    --reason "staging mirrors hold production data" --correction in-scope

  # Accuracy summary
  meridian feedback stats --commitment <commitment-id>`,
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit feedback on a decision",
	RunE:  runFeedbackSubmit,
}

var feedbackStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show feedback accuracy statistics",
	RunE:  runFeedbackStats,
}

func init() {
	feedbackSubmitCmd.Flags().StringVar(&feedbackFlags.decision, "decision", "", "decision ID (required)")
	feedbackSubmitCmd.Flags().StringVar(&feedbackFlags.rating, "rating", "", "up or down (required)")
	feedbackSubmitCmd.Flags().StringVar(&feedbackFlags.reason, "reason", "", "why the decision was right or wrong (required)")
	feedbackSubmitCmd.Flags().StringVar(&feedbackFlags.correction, "correction", "", "corrected outcome, required for down ratings")
	feedbackSubmitCmd.MarkFlagRequired("decision")
	feedbackSubmitCmd.MarkFlagRequired("rating")
	feedbackSubmitCmd.MarkFlagRequired("reason")

	feedbackStatsCmd.Flags().StringVar(&feedbackFlags.commitment, "commitment", "", "restrict to one commitment ID")

	feedbackCmd.AddCommand(feedbackSubmitCmd)
	feedbackCmd.AddCommand(feedbackStatsCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedbackSubmit(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("feedback submit", err)
	}
	defer a.Close()

	fb, err := a.collector().Submit(ctx, feedback.Submission{
		DecisionID: feedbackFlags.decision,
		Rating:     scoping.Rating(feedbackFlags.rating),
		Reason:     feedbackFlags.reason,
		Correction: feedbackFlags.correction,
	})
	if err != nil {
		return cli.NewCommandError("feedback submit", err)
	}
	a.metrics.RecordFeedback(fb.Rating)

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, fb)
	}
	fmt.Printf("Feedback:   %s\n", fb.ID)
	fmt.Printf("Decision:   %s\n", fb.DecisionID)
	fmt.Printf("Rating:     %s\n", fb.Rating)
	if fb.Correction != "" {
		fmt.Printf("Correction: %s\n", fb.Correction)
	}
	return nil
}

func runFeedbackStats(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("feedback stats", err)
	}
	defer a.Close()

	stats, err := feedback.ComputeStats(ctx, a.store, feedbackFlags.commitment)
	if err != nil {
		return cli.NewCommandError("feedback stats", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, stats)
	}
	if stats.CommitmentID != "" {
		fmt.Printf("Commitment: %s\n", stats.CommitmentID)
	}
	fmt.Printf("Total:      %d\n", stats.Total)
	fmt.Printf("Up:         %d\n", stats.Up)
	fmt.Printf("Down:       %d\n", stats.Down)
	if stats.Total > 0 {
		fmt.Printf("Accuracy:   %.1f%%\n", stats.Accuracy*100)
	}
	return nil
}
