package app

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"hinosemi/internal/config"
	"hinosemi/internal/infrastructure"
)

// Bootstrap loads configuration, resolves paths against baseDir and initializes the
// global logger. An empty configPath searches the default locations.
func Bootstrap(configPath, baseDir string) (*config.Config, *config.Paths, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, nil, err
	}

	paths, err := cfg.Paths(baseDir)
	if err != nil {
		return nil, nil, nil, err
	}

	logCfg := cfg.Logging
	if logCfg.FilePath != "" && !filepath.IsAbs(logCfg.FilePath) {
		logCfg.FilePath = filepath.Join(paths.BaseDir, logCfg.FilePath)
	}
	logger, err := infrastructure.InitializeLogger(logCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, paths, logger, nil
}
