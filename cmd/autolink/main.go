// Command autolink runs one auto-link batch against the configured database
// and prints its summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/linking"
	"github.com/okian/rally/pkg/logger"
)

func main() {
	var (
		dryRun  = flag.Bool("dry-run", false, "Compute the summary without writing")
		asJSON  = flag.Bool("json", false, "Print the summary as JSON")
		verbose = flag.Bool("verbose", false, "Log every skipped row")
	)
	flag.Parse()

	if err := run(*dryRun, *asJSON, *verbose, os.Stdout); err != nil {
		os.Stderr.WriteString("autolink: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(dryRun, asJSON, verbose bool, out io.Writer) error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWith(logger.Options{Format: cfg.LogFormat, Output: os.Stderr}); err != nil {
		return err
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	if err := logger.SetLevelString(level); err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	linker := linking.NewAutoLinker(store,
		linking.WithThreshold(cfg.AutoLinkThreshold),
		linking.WithDryRun(dryRun),
		linking.WithLogger(logger.Named("autolink")),
	)

	// A started batch is not cancelled; signals only stop the wait.
	sum, err := linker.Run(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}
	printSummary(out, sum)
	return nil
}

// printSummary writes a human readable report of sum.
func printSummary(w io.Writer, sum linking.Summary) {
	title := "Auto-link batch"
	if sum.DryRun {
		title += " (dry run, nothing written)"
	}
	fmt.Fprintln(w, title)
	fmt.Fprintf(w, "  linked:        %s (%s by exact alias)\n", humanize.Comma(int64(sum.Linked)), humanize.Comma(int64(sum.AliasMatches)))
	fmt.Fprintf(w, "  created:       %s\n", humanize.Comma(int64(sum.Created)))
	fmt.Fprintf(w, "  skipped:       %s\n", humanize.Comma(int64(sum.Skipped)))
	fmt.Fprintf(w, "  failed:        %s\n", humanize.Comma(int64(sum.Failed)))
	fmt.Fprintf(w, "  took:          %s\n", sum.Duration.Round(time.Millisecond))
	for _, f := range sum.Failures {
		fmt.Fprintf(w, "  ! %s %q: %s\n", f.ResultID, f.Name, f.Error)
	}
}
