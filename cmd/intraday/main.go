// Command intraday performs one index run: fetch, build, write artifacts and publish.
//
// Exit status is non-zero when no instrument contributes or the artifacts cannot be
// written; publisher failures are logged only.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"hinosemi/internal/app"
	"hinosemi/internal/infrastructure"
	"hinosemi/internal/operations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("Intraday run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("intraday", flag.ContinueOnError)
	configPath := flags.String("config", "", "config file (defaults to $HINOSEMI_CONFIG, config.yaml or configs/config.yaml)")
	baseDir := flags.String("base", "", "directory relative paths resolve against (defaults to the working directory)")
	provider := flags.String("provider", "", "override provider.kind: yahoo | csv")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, paths, logger, err := app.Bootstrap(*configPath, *baseDir)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	if *provider != "" {
		cfg.Provider.Kind = *provider
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid -provider: %w", err)
		}
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer otelProviders.Shutdown(context.Background())

	metrics, err := infrastructure.CreateIndexMetrics(otelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create index metrics: %w", err)
	}

	pipeline, err := app.NewPipeline(ctx, cfg, paths, logger, metrics)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	summary, err := pipeline.Runner.Run(ctx)
	if err != nil {
		return err
	}
	printSummary(stdout, summary, paths.OutputDir)
	return nil
}

func printSummary(w io.Writer, s *operations.RunSummary, outDir string) {
	fmt.Fprintf(w, "%s %+.2f%% at %s\n", s.Snapshot.Key, s.Snapshot.PctIntraday, s.Snapshot.UpdatedAt)
	fmt.Fprintf(w, "points=%d contributors=%d excluded=%d threshold=%d\n",
		s.Points, len(s.Contributors), len(s.Excluded), s.Threshold)
	for _, ex := range s.Excluded {
		fmt.Fprintf(w, "  excluded %s: %s\n", ex.Symbol, ex.Reason)
	}
	for _, pe := range s.PublishErrors {
		fmt.Fprintf(w, "  publish error: %s\n", pe)
	}
	fmt.Fprintf(w, "artifacts written to %s\n", outDir)
}
