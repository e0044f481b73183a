// Command chart renders the latest intraday CSV as <key>_intraday.svg and, with -png or
// output.chart_png, rasterizes it to <key>_intraday.png through headless Chrome.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"hinosemi/internal/app"
	"hinosemi/internal/chart"
	"hinosemi/internal/exporter"
	"hinosemi/internal/infrastructure"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("Chart rendering failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// rasterize is swapped in tests so they don't need a browser.
var rasterize = chart.Rasterize

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("chart", flag.ContinueOnError)
	configPath := flags.String("config", "", "config file (defaults to $HINOSEMI_CONFIG, config.yaml or configs/config.yaml)")
	baseDir := flags.String("base", "", "directory relative paths resolve against (defaults to the working directory)")
	input := flags.String("in", "", "intraday CSV to plot (defaults to <output.dir>/<key>_intraday.csv)")
	png := flags.Bool("png", false, "also write a PNG (implied by output.chart_png)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, paths, logger, err := app.Bootstrap(*configPath, *baseDir)
	if err != nil {
		return err
	}
	defer infrastructure.CloseLogFile()

	loc, err := cfg.Index.Location()
	if err != nil {
		return err
	}

	src := paths.IntradayCSV
	if *input != "" {
		src = *input
	}
	series, err := exporter.LoadSeriesCSV(src)
	if err != nil {
		return err
	}

	svg, err := app.RenderChart(cfg, loc, series)
	if err != nil {
		return fmt.Errorf("render %s: %w", src, err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	writer := exporter.NewWriter(exporter.Options{Dir: paths.OutputDir, Key: cfg.Index.Key, Location: loc}, logger)
	if err := writer.WriteFile(ctx, filepath.Base(paths.ChartSVG), svg); err != nil {
		return err
	}
	fmt.Fprintln(stdout, paths.ChartSVG)

	if *png || cfg.Output.ChartPNG {
		raster, err := rasterize(ctx, svg, cfg.Output.ChartWidth, cfg.Output.ChartHeight)
		if err != nil {
			return err
		}
		if err := writer.WriteFile(ctx, filepath.Base(paths.ChartPNG), raster); err != nil {
			return err
		}
		fmt.Fprintln(stdout, paths.ChartPNG)
	}

	logger.InfoContext(ctx, "Chart written",
		slog.String("source", src),
		slog.Int("points", len(series)))
	return nil
}
