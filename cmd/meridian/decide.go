package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/cli"
	"scopehq/meridian/pkg/scoping"
	"scopehq/meridian/pkg/store"
)

var decideFlags struct {
	asset      string
	commitment string
	query      string
	session    string
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Decide whether an asset is in scope for a commitment",
	Long: `Run the scoping workflow for one asset against one commitment.

The asset is identified by URI in the form asset://kind.descriptor.domain
(the scheme is optional). The commitment is identified by the name it was
ingested under, or resolved from a free-text description with --query.

When the combined evidence is too weak the decision gates to
insufficient-data and lists what information is missing, instead of
guessing.

A session that failed partway can be continued with --session: the
workflow reloads its last checkpoint and picks up from the next stage.

Examples:
  # Decide with the default confidence cutoffs
  meridian decide --asset asset://database.customer_data.production --commitment gdpr-retention

  # Resolve the commitment from a description instead of its exact name
  meridian decide --asset s3_bucket.logs.staging --query "retention of customer personal data"

  # Resume a session that failed after its last durable checkpoint
  meridian decide --session 4f1c9c1e-8a27-4c5a-9a65-b6d9c9f6f3a2

  # JSON output for scripting
  meridian decide --asset s3_bucket.logs.staging --commitment soc2-access-control --format json`,
	RunE: runDecide,
}

func init() {
	decideCmd.Flags().StringVar(&decideFlags.asset, "asset", "", "asset URI")
	decideCmd.Flags().StringVar(&decideFlags.commitment, "commitment", "", "commitment name")
	decideCmd.Flags().StringVar(&decideFlags.query, "query", "", "free-text commitment description, resolved via similarity search")
	decideCmd.Flags().StringVar(&decideFlags.session, "session", "", "existing session id to resume")
	decideCmd.MarkFlagsMutuallyExclusive("commitment", "query")
	rootCmd.AddCommand(decideCmd)
}

// validateDecideFlags enforces the flag contract: a fresh run names the
// asset and the commitment (by name or by query); a resumed session
// carries them in its checkpoints.
func validateDecideFlags(asset, commitment, query, session string) error {
	if session != "" {
		return nil
	}
	if asset == "" {
		return fmt.Errorf("--asset is required unless resuming with --session")
	}
	if commitment == "" && query == "" {
		return fmt.Errorf("one of --commitment or --query is required unless resuming with --session")
	}
	return nil
}

func runDecide(cmd *cobra.Command, args []string) error {
	if err := validateDecideFlags(decideFlags.asset, decideFlags.commitment, decideFlags.query, decideFlags.session); err != nil {
		return cli.NewCommandError("decide", err)
	}

	ctx := cli.SetupSignalHandler()

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}
	defer a.Close()

	commitmentName := decideFlags.commitment
	if decideFlags.session == "" && decideFlags.query != "" {
		vec, err := a.embedder.Embed(ctx, decideFlags.query)
		if err != nil {
			return cli.NewCommandError("decide", err)
		}
		c, err := a.commitmentSearch().Resolve(ctx, vec)
		if errors.Is(err, store.ErrNotFound) {
			return cli.NewCommandError("decide",
				fmt.Errorf("no commitment matches %q; see 'meridian commitments list'", decideFlags.query))
		}
		if err != nil {
			return cli.NewCommandError("decide", err)
		}
		commitmentName = c.Name
		fmt.Printf("Resolved %q to commitment %s\n\n", decideFlags.query, c.Name)
	}

	engine, err := a.engine()
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	decision, err := engine.RunSession(ctx, decideFlags.session, decideFlags.asset, commitmentName)
	if err != nil {
		return cli.NewCommandError("decide", err)
	}

	if cli.OutputFormat(outputFormat) == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, decision)
	}
	printDecision(decision)
	return nil
}

func printDecision(d *scoping.Decision) {
	fmt.Printf("Decision:    %s\n", d.ID)
	fmt.Printf("Session:     %s\n", d.SessionID)
	fmt.Printf("Asset:       %s\n", d.AssetURI)
	fmt.Printf("Commitment:  %s (%s)\n", d.CommitmentName, d.CommitmentID)
	fmt.Printf("Outcome:     %s\n", d.Outcome)
	fmt.Printf("Confidence:  %.3f (%s)\n", d.ConfidenceScore, d.ConfidenceBand)
	fmt.Printf("Reasoning:   %s\n", d.Reasoning)

	if len(d.Evidence.PolicyChunks) > 0 {
		fmt.Printf("\nPolicy citations:\n")
		for _, c := range d.Evidence.PolicyChunks {
			fmt.Printf("  [%d] score=%.3f %s\n", c.ChunkIndex, c.Score, firstLine(c.Text))
		}
	}
	if len(d.Evidence.SimilarFeedback) > 0 {
		fmt.Printf("\nFeedback citations:\n")
		for _, c := range d.Evidence.SimilarFeedback {
			fmt.Printf("  %s %s weight=%.3f: %s\n", c.Rating, c.AssetURI, c.Weight, firstLine(c.Reason))
		}
	}
	if d.Outcome == scoping.OutcomeInsufficientData {
		if len(d.MissingInformation) > 0 {
			fmt.Printf("\nMissing information:\n")
			for _, m := range d.MissingInformation {
				fmt.Printf("  - %s\n", m)
			}
		}
		if len(d.ClarifyingQuestions) > 0 {
			fmt.Printf("\nClarifying questions:\n")
			for _, q := range d.ClarifyingQuestions {
				fmt.Printf("  - %s\n", q)
			}
		}
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
		if i > 120 {
			return s[:i] + "..."
		}
	}
	return s
}
