package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"

	"hinosemi/internal/chart"
	"hinosemi/internal/config"
	"hinosemi/internal/exporter"
	"hinosemi/internal/index"
	"hinosemi/internal/infrastructure"
	"hinosemi/internal/marketdata"
	"hinosemi/internal/operations"
	"hinosemi/internal/publish"
)

// Pipeline is the run machinery shared by the commands and the dashboard server.
type Pipeline struct {
	Config   *config.Config
	Paths    *config.Paths
	Location *time.Location
	Settings index.Settings
	Fetcher  *marketdata.Fetcher
	Writer   *exporter.Writer
	Runner   *operations.Runner

	closers []func() error
	logger  *slog.Logger
}

// NewPipeline wires provider, fetcher, writer, publishers and runner from cfg.
// metrics may be nil.
func NewPipeline(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, metrics *infrastructure.IndexMetrics) (*Pipeline, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	settings, err := cfg.Index.Settings()
	if err != nil {
		return nil, fmt.Errorf("invalid index settings: %w", err)
	}
	loc := settings.Session.Location

	provider, err := NewProvider(cfg, paths, loc, logger)
	if err != nil {
		return nil, err
	}
	fetcher := marketdata.NewFetcher(provider, cfg.Provider.FetcherConfig(), logger)

	writer := exporter.NewWriter(exporter.Options{
		Dir:      paths.OutputDir,
		Key:      cfg.Index.Key,
		Location: loc,
		Workbook: cfg.Output.Workbook,
	}, logger)

	p := &Pipeline{
		Config:   cfg,
		Paths:    paths,
		Location: loc,
		Settings: settings,
		Fetcher:  fetcher,
		Writer:   writer,
		logger:   infrastructure.WithComponent(logger, "pipeline"),
	}

	opts := []operations.RunnerOption{operations.WithMetrics(metrics)}

	publishers, err := p.newPublishers(ctx)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	if len(publishers) > 0 {
		opts = append(opts, operations.WithPublisher(publish.NewFanout(logger, publishers...)))
	}
	if cfg.Publish.Telegram.Enabled && cfg.Publish.Telegram.WithChart {
		opts = append(opts, operations.WithChart(p.PNGChart))
	}

	runner, err := operations.NewRunner(operations.RunnerConfig{
		Key:        cfg.Index.Key,
		Title:      cfg.Index.Title,
		Hashtags:   cfg.Index.Hashtags,
		Basket:     cfg.Index.Basket.Instruments(),
		Settings:   settings,
		RunTimeout: cfg.Schedule.RunTimeout,
	}, fetcher, writer, logger, opts...)
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}
	p.Runner = runner

	return p, nil
}

// NewProvider selects the market-data provider named by provider.kind.
func NewProvider(cfg *config.Config, paths *config.Paths, loc *time.Location, logger *slog.Logger) (marketdata.Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderCSV:
		provider, err := marketdata.NewCSVProvider(paths.FixtureDir, cfg.Provider.Schema, loc, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create csv provider: %w", err)
		}
		return provider, nil
	case config.ProviderYahoo, "":
		return marketdata.NewYahooProvider(marketdata.YahooConfig{
			RequestsPerSecond: cfg.Provider.RequestsPerSecond,
			Burst:             cfg.Provider.Burst,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Provider.Kind)
	}
}

func (p *Pipeline) newPublishers(ctx context.Context) ([]publish.Publisher, error) {
	pc := p.Config.Publish
	var publishers []publish.Publisher

	if pc.Redis.Enabled {
		redisPub, err := publish.NewRedisPublisher(ctx, publish.RedisOptions{
			Addr:      pc.Redis.Addr,
			Password:  pc.Redis.Password,
			DB:        pc.Redis.DB,
			KeyPrefix: pc.Redis.KeyPrefix,
			TTL:       pc.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		publishers = append(publishers, redisPub)
		p.closers = append(p.closers, redisPub.Close)
	}

	if pc.Telegram.Enabled {
		tg, err := publish.NewTelegramPublisher(pc.Telegram.Token, pc.Telegram.ChatID, pc.Telegram.WithChart)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram publisher: %w", err)
		}
		publishers = append(publishers, tg)
	}

	if pc.Sheets.Enabled {
		sh, err := publish.NewSheetsPublisher(ctx, pc.Sheets.SpreadsheetID, pc.Sheets.Range, p.Location,
			option.WithCredentialsFile(pc.Sheets.CredentialsFile))
		if err != nil {
			return nil, fmt.Errorf("failed to create sheets publisher: %w", err)
		}
		publishers = append(publishers, sh)
	}

	for _, pub := range publishers {
		p.logger.InfoContext(ctx, "Publisher enabled", slog.String("publisher", pub.Name()))
	}
	return publishers, nil
}

// ChartOptions returns the drawing options for a series ending at last.
func ChartOptions(cfg *config.Config, loc *time.Location, last time.Time) chart.Options {
	opts := chart.DefaultOptions()
	opts.Width = cfg.Output.ChartWidth
	opts.Height = cfg.Output.ChartHeight
	opts.Location = loc
	opts.Title = chart.Title(cfg.Index.Key, last, loc)
	return opts
}

// RenderChart renders series as SVG with the configured canvas.
func RenderChart(cfg *config.Config, loc *time.Location, series index.IndexSeries) ([]byte, error) {
	last, ok := series.Last()
	if !ok {
		return nil, chart.ErrEmptySeries
	}
	return chart.RenderSVG(series, ChartOptions(cfg, loc, last.Time))
}

// SVGChart renders series as SVG.
func (p *Pipeline) SVGChart(series index.IndexSeries) ([]byte, error) {
	return RenderChart(p.Config, p.Location, series)
}

// PNGChart renders series as SVG and rasterizes it. It satisfies operations.ChartFunc.
func (p *Pipeline) PNGChart(ctx context.Context, series index.IndexSeries, _ time.Time) ([]byte, error) {
	svg, err := p.SVGChart(series)
	if err != nil {
		return nil, err
	}
	return chart.Rasterize(ctx, svg, p.Config.Output.ChartWidth, p.Config.Output.ChartHeight)
}

// Close releases publisher connections.
func (p *Pipeline) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}
