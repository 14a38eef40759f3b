package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/cli"
)

var commitmentsCmd = &cobra.Command{
	Use:   "commitments",
	Short: "Inspect ingested commitments",
}

var commitmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested commitments",
	RunE:  runCommitmentsList,
}

var commitmentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one commitment and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommitmentsShow,
}

var commitmentsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find commitments by free-text description",
	Long: `Search ingested commitments by similarity to a free-text description,
for when the exact name is not known.

Example:
  meridian commitments search "retention of customer personal data"`,
	Args: cobra.ExactArgs(1),
	RunE: runCommitmentsSearch,
}

func init() {
	commitmentsCmd.AddCommand(commitmentsListCmd)
	commitmentsCmd.AddCommand(commitmentsShowCmd)
	commitmentsCmd.AddCommand(commitmentsSearchCmd)
	rootCmd.AddCommand(commitmentsCmd)
}

func runCommitmentsList(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("commitments list", err)
	}
	defer a.Close()

	commitments, err := a.store.ListCommitments(ctx)
	if err != nil {
		return cli.NewCommandError("commitments list", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, commitments)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tDOMAIN\tINGESTED\tDESCRIPTION")
	for _, c := range commitments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			c.Name, c.ID, c.Domain, c.CreatedAt.Format("2006-01-02"), firstLine(c.Description))
	}
	return w.Flush()
}

func runCommitmentsSearch(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("commitments search", err)
	}
	defer a.Close()

	vec, err := a.embedder.Embed(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("commitments search", err)
	}
	results, err := a.commitmentSearch().Search(ctx, vec)
	if err != nil {
		return cli.NewCommandError("commitments search", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, results)
	}

	if len(results) == 0 {
		fmt.Println("No commitments match the query.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tNAME\tDOMAIN\tDESCRIPTION")
	for _, r := range results {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
			r.Score, r.Commitment.Name, r.Commitment.Domain, firstLine(r.Commitment.Description))
	}
	return w.Flush()
}

func runCommitmentsShow(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("commitments show", err)
	}
	defer a.Close()

	c, err := a.store.GetCommitmentByName(ctx, args[0])
	if err != nil {
		return cli.NewCommandError("commitments show", err)
	}
	chunks, err := a.store.GetChunks(ctx, c.ID)
	if err != nil {
		return cli.NewCommandError("commitments show", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, map[string]any{
			"commitment": c,
			"chunks":     chunks,
		})
	}

	fmt.Printf("Name:        %s\n", c.Name)
	fmt.Printf("ID:          %s\n", c.ID)
	fmt.Printf("Domain:      %s\n", c.Domain)
	fmt.Printf("Description: %s\n", c.Description)
	fmt.Printf("Ingested:    %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Chunks:      %d\n", len(chunks))
	for _, chunk := range chunks {
		fmt.Printf("  [%d] %s\n", chunk.ChunkIndex, firstLine(chunk.Text))
	}
	return nil
}
