package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"scopehq/meridian/pkg/checkpoint"
	"scopehq/meridian/pkg/cli"
	"scopehq/meridian/pkg/ingestion"
)

var ingestFlags struct {
	watch bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest commitment policy documents",
	Long: `Ingest one policy document, or every document in a directory.

Documents are chunked, embedded, and indexed for retrieval. The commitment
name is the file name without extension; re-ingesting a file replaces the
commitment's chunks while keeping its identity, so prior decisions and
feedback stay attached.

With --watch the command blocks, watching the directory and re-ingesting
files as they change. Writes are debounced so editors that save in bursts
trigger one ingestion.

Examples:
  meridian ingest policies/gdpr-retention.md
  meridian ingest policies/
  meridian ingest policies/ --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestFlags.watch, "watch", false, "watch the directory and re-ingest on change")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cli.SetupSignalHandler()
	path := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}
	defer a.Close()

	info, err := os.Stat(path)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	ingester := a.ingester()

	if !info.IsDir() {
		if ingestFlags.watch {
			return cli.NewCommandError("ingest", fmt.Errorf("--watch requires a directory, got file %q", path))
		}
		c, err := ingester.IngestFile(ctx, path)
		if err != nil {
			return cli.NewCommandError("ingest", err)
		}
		a.metrics.RecordIngestion(chunkCount(ctx, a, c.ID))
		fmt.Printf("ingested %s as commitment %q (%s)\n", path, c.Name, c.ID)
		return nil
	}

	files, err := policyFiles(path, a.cfg.Ingestion.Watch.Extensions)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	progress := cli.NewProgress(os.Stdout, len(files))
	for _, file := range files {
		c, err := ingester.IngestFile(ctx, file)
		if err != nil {
			progress.Fail(filepath.Base(file), err)
			continue
		}
		a.metrics.RecordIngestion(chunkCount(ctx, a, c.ID))
		progress.Step(fmt.Sprintf("%s -> %s", filepath.Base(file), c.Name))
	}
	if failed := progress.Finish(); failed > 0 && !ingestFlags.watch {
		return cli.NewCommandError("ingest", fmt.Errorf("%d of %d documents failed", failed, len(files)))
	}

	if !ingestFlags.watch {
		return nil
	}

	a.serveMetrics(ctx)

	retention := a.cfg.Retention
	pruner := checkpoint.NewPruner(a.store, &retention)
	if err := pruner.Start(ctx); err != nil {
		return cli.NewCommandError("ingest", err)
	}

	watchCfg := a.cfg.Ingestion.Watch
	watchCfg.Dir = path
	watcher, err := ingestion.NewWatcher(ingester, &watchCfg)
	if err != nil {
		return cli.NewCommandError("ingest", err)
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", path)
	if err := watcher.Watch(ctx); err != nil {
		return cli.NewCommandError("ingest", err)
	}
	return nil
}

// policyFiles lists the ingestable documents directly inside dir, sorted
// by name. Hidden files and unknown extensions are skipped, matching the
// watcher's filter.
func policyFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range extensions {
			if ext == allowed {
				files = append(files, filepath.Join(dir, entry.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func chunkCount(ctx context.Context, a *app, commitmentID string) int {
	chunks, err := a.store.GetChunks(ctx, commitmentID)
	if err != nil {
		return 0
	}
	return len(chunks)
}
