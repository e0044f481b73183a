// Command post renders the announcement text for the latest snapshot and writes it to
// <key>_post_intraday.txt next to the other artifacts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"hinosemi/internal/announce"
	"hinosemi/internal/app"
	"hinosemi/internal/exporter"
	"hinosemi/internal/infrastructure"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		slog.Error("Post rendering failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("post", flag.ContinueOnError)
	configPath := flags.String("config", "", "config file (defaults to $HINOSEMI_CONFIG, config.yaml or configs/config.yaml)")
	baseDir := flags.String("base", "", "directory relative paths resolve against (defaults to the working directory)")
	input := flags.String("in", "", "stats JSON to announce (defaults to <output.dir>/<key>_stats.json)")
	quiet := flags.Bool("quiet", false, "don't echo the post to stdout")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, paths, logger, err := app.Bootstrap(*configPath, *baseDir)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	src := paths.StatsJSON
	if *input != "" {
		src = *input
	}
	snap, err := exporter.LoadSnapshot(src)
	if err != nil {
		return err
	}

	text, err := announce.Render(announce.FromSnapshot(snap, cfg.Index.Title, cfg.Index.Hashtags))
	if err != nil {
		return err
	}

	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	writer := exporter.NewWriter(exporter.Options{Dir: paths.OutputDir, Key: cfg.Index.Key}, logger)
	if err := writer.WriteFile(ctx, filepath.Base(paths.PostText), []byte(text)); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Post written",
		slog.String("path", paths.PostText),
		slog.Float64("pct_intraday", snap.PctIntraday))
	if !*quiet {
		fmt.Fprint(stdout, text)
	}
	return nil
}
