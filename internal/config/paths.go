package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hinosemi/internal/exporter"
)

// Paths contains every file location a run reads or writes.
type Paths struct {
	BaseDir    string
	OutputDir  string
	LogsDir    string
	FixtureDir string

	// Artifacts, all inside OutputDir.
	IntradayCSV string
	StatsJSON   string
	LastRun     string
	Workbook    string
	PostText    string
	ChartSVG    string
	ChartPNG    string
}

// Paths resolves the configured directories against baseDir. An empty baseDir means the
// current working directory.
func (c *Config) Paths(baseDir string) (*Paths, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	out := resolve(baseDir, c.Output.Dir)
	key := c.Index.Key
	return &Paths{
		BaseDir:     baseDir,
		OutputDir:   out,
		LogsDir:     filepath.Dir(resolve(baseDir, c.Logging.FilePath)),
		FixtureDir:  resolve(baseDir, c.Provider.FixtureDir),
		IntradayCSV: filepath.Join(out, exporter.ArtifactName(key, "intraday.csv")),
		StatsJSON:   filepath.Join(out, exporter.ArtifactName(key, "stats.json")),
		LastRun:     filepath.Join(out, exporter.LastRunFileName),
		Workbook:    filepath.Join(out, exporter.ArtifactName(key, "intraday.xlsx")),
		PostText:    filepath.Join(out, exporter.ArtifactName(key, "post_intraday.txt")),
		ChartSVG:    filepath.Join(out, exporter.ArtifactName(key, "intraday.svg")),
		ChartPNG:    filepath.Join(out, exporter.ArtifactName(key, "intraday.png")),
	}, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates the output directory if it doesn't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Default().Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved locations for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
			slog.String("fixtures", p.FixtureDir),
		),
		slog.Group("artifacts",
			slog.String("intraday_csv", p.IntradayCSV),
			slog.String("stats_json", p.StatsJSON),
			slog.String("last_run", p.LastRun),
		))
}
