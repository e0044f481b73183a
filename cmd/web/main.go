// Command web serves the dashboard API, pushes snapshots over websocket and, when
// schedule.enabled is set, runs the index on its cron schedule.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"hinosemi/internal/app"
	"hinosemi/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "config file (defaults to $HINOSEMI_CONFIG, config.yaml or configs/config.yaml)")
	baseDir := flag.String("base", "", "directory relative paths resolve against (defaults to the working directory)")
	flag.Parse()

	cfg, paths, logger, err := app.Bootstrap(*configPath, *baseDir)
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	application, err := app.NewApplication(context.Background(), cfg, paths, logger)
	if err != nil {
		logger.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
