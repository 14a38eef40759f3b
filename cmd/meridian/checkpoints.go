package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/cli"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Audit workflow checkpoint history",
	Long: `Audit the stage-by-stage trace of past workflow runs.

Every run writes one checkpoint per completed stage. The history shows
exactly what the engine knew at each point; replay recomputes the
confidence score from the checkpointed evidence and verifies it against
the persisted decision.`,
}

var checkpointsHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show a session's checkpoint trace",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsHistory,
}

var checkpointsReplayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Replay a session and verify its decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpointsReplay,
}

var checkpointsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete checkpoints older than the retention period",
	Long: `Delete checkpoints older than the configured retention period.

Only the stage-by-stage traces age out; decisions are permanent. With
retention_days set to zero this command does nothing.`,
	RunE: runCheckpointsPrune,
}

func init() {
	checkpointsCmd.AddCommand(checkpointsHistoryCmd)
	checkpointsCmd.AddCommand(checkpointsReplayCmd)
	checkpointsCmd.AddCommand(checkpointsPruneCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

func runCheckpointsHistory(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("checkpoints history", err)
	}
	defer a.Close()

	records, err := checkpoint.NewStoreLog(a.store).ListBySession(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("checkpoints history", err)
	}
	if len(records) == 0 {
		return cli.NewCommandError("checkpoints history", fmt.Errorf("no checkpoints for session %q", args[0]))
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, records)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tSTAGE\tAT\tSTATE BYTES")
	for _, rec := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n",
			rec.Seq, rec.Stage, rec.CreatedAt.Format("2006-01-02 15:04:05.000"), len(rec.State))
	}
	return w.Flush()
}

func runCheckpointsReplay(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("checkpoints replay", err)
	}
	defer a.Close()

	engine, err := a.engine()
	if err != nil {
		return cli.NewCommandError("checkpoints replay", err)
	}
	report, err := engine.Replay(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("checkpoints replay", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, report)
	}

	fmt.Printf("Session:     %s\n", report.SessionID)
	fmt.Printf("Checkpoints: %d\n", report.Checkpoints)
	fmt.Printf("Stages:      %v\n", report.Stages)
	fmt.Printf("Decision:    %s\n", report.DecisionID)
	fmt.Printf("Outcome:     %s\n", report.Outcome)
	fmt.Printf("Confidence:  %.3f (%s)\n", report.Score, report.Band)
	fmt.Println("replay verified: recomputed confidence matches the persisted decision")
	return nil
}

func runCheckpointsPrune(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("checkpoints prune", err)
	}
	defer a.Close()

	retention := a.cfg.Retention
	pruner := checkpoint.NewPruner(a.store, &retention)
	pruned, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("checkpoints prune", err)
	}
	a.metrics.RecordPruned(pruned)

	fmt.Printf("pruned %d checkpoints older than %d days\n", pruned, retention.RetentionDays)
	return nil
}
