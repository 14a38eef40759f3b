package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/cli"
	"scopehq/meridian/pkg/store"
)

var decisionsFlags struct {
	commitment string
	limit      int
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Inspect persisted decisions",
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted decisions, most recent first",
	RunE:  runDecisionsList,
}

var decisionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one decision with its evidence",
	Long: `Show one decision with its full evidence package.

The argument is a decision ID; a session ID also works, so a decision can
be located from checkpoint history.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecisionsShow,
}

func init() {
	decisionsListCmd.Flags().StringVar(&decisionsFlags.commitment, "commitment", "", "restrict to one commitment ID")
	decisionsListCmd.Flags().IntVar(&decisionsFlags.limit, "limit", 20, "maximum decisions to list (0 for all)")

	decisionsCmd.AddCommand(decisionsListCmd)
	decisionsCmd.AddCommand(decisionsShowCmd)
	rootCmd.AddCommand(decisionsCmd)
}

func runDecisionsList(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("decisions list", err)
	}
	defer a.Close()

	decisions, err := a.store.ListDecisions(ctx, decisionsFlags.commitment, decisionsFlags.limit)
	if err != nil {
		return cli.NewCommandError("decisions list", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, decisions)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASSET\tCOMMITMENT\tOUTCOME\tCONFIDENCE\tWHEN")
	for _, d := range decisions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f (%s)\t%s\n",
			d.ID, d.AssetURI, d.CommitmentName, d.Outcome,
			d.ConfidenceScore, d.ConfidenceBand,
			d.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runDecisionsShow(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("decisions show", err)
	}
	defer a.Close()

	d, err := a.store.GetDecision(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		d, err = a.store.GetDecisionBySession(ctx, args[0])
	}
	if err != nil {
		return cli.NewCommandError("decisions show", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, d)
	}
	printDecision(d)
	return nil
}
