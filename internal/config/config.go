package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"hinosemi/internal/index"
	"hinosemi/internal/marketdata"
)

// Config represents the complete application configuration
type Config struct {
	Index     IndexConfig     `yaml:"index" envconfig:"INDEX"`
	Provider  ProviderConfig  `yaml:"provider" envconfig:"PROVIDER"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Schedule  ScheduleConfig  `yaml:"schedule" envconfig:"SCHEDULE"`
	Publish   PublishConfig   `yaml:"publish" envconfig:"PUBLISH"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// IndexConfig describes the index: its basket, session and aggregation rules.
type IndexConfig struct {
	Key             string        `yaml:"key" envconfig:"KEY" validate:"required,alphanum"`
	Title           string        `yaml:"title" envconfig:"TITLE"`
	Basket          Basket        `yaml:"basket" envconfig:"BASKET"`
	Timezone        string        `yaml:"timezone" envconfig:"TIMEZONE" validate:"required"`
	SessionOpen     string        `yaml:"session_open" envconfig:"SESSION_OPEN" validate:"required"`
	SessionClose    string        `yaml:"session_close" envconfig:"SESSION_CLOSE" validate:"required"`
	OpeningWindow   time.Duration `yaml:"opening_window" envconfig:"OPENING_WINDOW" validate:"gt=0"`
	BaselinePolicy  string        `yaml:"baseline_policy" envconfig:"BASELINE_POLICY" validate:"oneof=open prior_close"`
	CoverageRatio   float64       `yaml:"coverage_ratio" envconfig:"COVERAGE_RATIO" validate:"gt=0,lte=1"`
	SmoothingWindow int           `yaml:"smoothing_window" envconfig:"SMOOTHING_WINDOW" validate:"gte=1"`
	Hashtags        []string      `yaml:"hashtags" envconfig:"HASHTAGS"`
}

// ProviderConfig selects and tunes the market-data source.
type ProviderConfig struct {
	Kind              string            `yaml:"kind" envconfig:"KIND" validate:"oneof=yahoo csv"`
	Intervals         []string          `yaml:"intervals" envconfig:"INTERVALS" validate:"min=1,dive,oneof=1m 2m 5m 15m 30m 60m"`
	Concurrency       int               `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=1,lte=32"`
	HistoryLookback   time.Duration     `yaml:"history_lookback" envconfig:"HISTORY_LOOKBACK" validate:"gt=0"`
	RequestsPerSecond float64           `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int               `yaml:"burst" envconfig:"BURST" validate:"gte=1"`
	Timeout           time.Duration     `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	FixtureDir        string            `yaml:"fixture_dir" envconfig:"FIXTURE_DIR"`
	Schema            marketdata.Schema `yaml:"schema" envconfig:"SCHEMA"`
}

// OutputConfig controls the artifacts written by each run.
type OutputConfig struct {
	Dir         string `yaml:"dir" envconfig:"DIR" validate:"required"`
	Workbook    bool   `yaml:"workbook" envconfig:"WORKBOOK"`
	ChartPNG    bool   `yaml:"chart_png" envconfig:"CHART_PNG"`
	ChartWidth  int    `yaml:"chart_width" envconfig:"CHART_WIDTH" validate:"gte=200"`
	ChartHeight int    `yaml:"chart_height" envconfig:"CHART_HEIGHT" validate:"gte=100"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output     string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath   string `yaml:"file_path" envconfig:"FILE_PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"MAX_SIZE_MB" validate:"gte=1"`
	MaxBackups int    `yaml:"max_backups" envconfig:"MAX_BACKUPS" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"MAX_AGE_DAYS" validate:"gte=0"`
	Compress   bool   `yaml:"compress" envconfig:"COMPRESS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port              int           `yaml:"port" envconfig:"PORT" validate:"gte=1,lte=65535"`
	ReadTimeout       time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout      time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AllowedOrigins    []string      `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	WebSocketPongWait time.Duration `yaml:"websocket_pong_wait" envconfig:"WEBSOCKET_PONG_WAIT"`
	AllowRefresh      bool          `yaml:"allow_refresh" envconfig:"ALLOW_REFRESH"`
	APIKey            string        `yaml:"api_key" envconfig:"API_KEY"`
	RefreshPerMinute  int           `yaml:"refresh_per_minute" envconfig:"REFRESH_PER_MINUTE" validate:"gte=1"`
}

// ScheduleConfig controls periodic runs in serve mode.
type ScheduleConfig struct {
	Enabled    bool          `yaml:"enabled" envconfig:"ENABLED"`
	Spec       string        `yaml:"spec" envconfig:"SPEC" validate:"required_if=Enabled true"`
	RunTimeout time.Duration `yaml:"run_timeout" envconfig:"RUN_TIMEOUT" validate:"gt=0"`
}

// PublishConfig holds the optional downstream publishers.
type PublishConfig struct {
	Redis    RedisConfig    `yaml:"redis" envconfig:"REDIS"`
	Telegram TelegramConfig `yaml:"telegram" envconfig:"TELEGRAM"`
	Sheets   SheetsConfig   `yaml:"sheets" envconfig:"SHEETS"`
}

// RedisConfig publishes snapshots to a Redis key and channel.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled" envconfig:"ENABLED"`
	Addr      string        `yaml:"addr" envconfig:"ADDR" validate:"required_if=Enabled true"`
	Password  string        `yaml:"password" envconfig:"PASSWORD"`
	DB        int           `yaml:"db" envconfig:"DB"`
	KeyPrefix string        `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" envconfig:"TTL"`
}

// TelegramConfig posts the announcement to a chat.
type TelegramConfig struct {
	Enabled   bool   `yaml:"enabled" envconfig:"ENABLED"`
	Token     string `yaml:"token" envconfig:"TOKEN" validate:"required_if=Enabled true"`
	ChatID    string `yaml:"chat_id" envconfig:"CHAT_ID" validate:"required_if=Enabled true"`
	WithChart bool   `yaml:"with_chart" envconfig:"WITH_CHART"`
}

// SheetsConfig mirrors the series into a Google Sheets range.
type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE" validate:"required_if=Enabled true"`
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SPREADSHEET_ID" validate:"required_if=Enabled true"`
	Range           string `yaml:"range" envconfig:"RANGE"`
}

// TelemetryConfig configures OpenTelemetry.
type TelemetryConfig struct {
	ServiceName  string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TracesStdout bool   `yaml:"traces_stdout" envconfig:"TRACES_STDOUT"`
	Metrics      bool   `yaml:"metrics" envconfig:"METRICS"`
}

// Load reads configuration from the default file locations, .env and the environment.
func Load() (*Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom applies, in order: built-in defaults, the YAML file at path (if any), a .env file
// in the working directory and HINOSEMI_* environment variables. The result is validated.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if _, err := os.Stat(EnvFileName); err == nil {
		// godotenv never overrides variables already present in the environment.
		if err := godotenv.Load(EnvFileName); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", EnvFileName, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// configFilePath returns the explicit config file or the first one found in the usual places.
func configFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}
	for _, location := range []string{"config.yaml", "configs/config.yaml"} {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the semantic rules that tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	var errs []error
	if c.Index.Basket.Len() == 0 {
		errs = append(errs, errors.New("index basket is empty"))
	}
	if _, err := c.Index.Session(); err != nil {
		errs = append(errs, err)
	}
	if c.Index.SmoothingWindow%2 == 0 {
		errs = append(errs, fmt.Errorf("smoothing window must be odd, got %d", c.Index.SmoothingWindow))
	}
	if c.Provider.Kind == ProviderCSV && c.Provider.FixtureDir == "" {
		errs = append(errs, errors.New("csv provider requires provider.fixture_dir"))
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		errs = append(errs, errors.New("file logging requires logging.file_path"))
	}
	return errors.Join(errs...)
}

// Location loads the reference timezone.
func (c IndexConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Session builds the trading session in the reference timezone.
func (c IndexConfig) Session() (index.Session, error) {
	loc, err := c.Location()
	if err != nil {
		return index.Session{}, err
	}
	return index.NewSession(loc, c.SessionOpen, c.SessionClose, c.OpeningWindow)
}

// Policy returns the baseline policy.
func (c IndexConfig) Policy() index.BaselinePolicy {
	return index.BaselinePolicy(strings.TrimSpace(c.BaselinePolicy))
}

// Settings assembles the pipeline settings.
func (c IndexConfig) Settings() (index.Settings, error) {
	session, err := c.Session()
	if err != nil {
		return index.Settings{}, err
	}
	s := index.Settings{
		Session:         session,
		Policy:          c.Policy(),
		CoverageRatio:   c.CoverageRatio,
		SmoothingWindow: c.SmoothingWindow,
	}
	return s, s.Validate()
}

// FetcherConfig converts provider settings for the fetcher.
func (c ProviderConfig) FetcherConfig() marketdata.FetcherConfig {
	return marketdata.FetcherConfig{
		Intervals:   append([]string(nil), c.Intervals...),
		Lookback:    c.HistoryLookback,
		Concurrency: c.Concurrency,
		Timeout:     c.Timeout,
	}
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Key:             DefaultIndexKey,
			Title:           DefaultIndexTitle,
			Basket:          DefaultBasket(),
			Timezone:        DefaultTimezone,
			SessionOpen:     DefaultSessionOpen,
			SessionClose:    DefaultSessionClose,
			OpeningWindow:   DefaultOpeningWindow,
			BaselinePolicy:  DefaultBaselinePolicy,
			CoverageRatio:   DefaultCoverageRatio,
			SmoothingWindow: DefaultSmoothingWindow,
			Hashtags:        append([]string(nil), DefaultHashtags...),
		},
		Provider: ProviderConfig{
			Kind:              ProviderYahoo,
			Intervals:         append([]string(nil), marketdata.DefaultIntervals...),
			Concurrency:       DefaultFetchConcurrency,
			HistoryLookback:   DefaultHistoryLookback,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultRequestBurst,
			Timeout:           DefaultFetchTimeout,
			FixtureDir:        DefaultFixtureDir,
			Schema:            marketdata.DefaultSchema(),
		},
		Output: OutputConfig{
			Dir:         DefaultOutputDir,
			ChartWidth:  DefaultChartWidth,
			ChartHeight: DefaultChartHeight,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     "console",
			FilePath:   DefaultLogFile,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Server: ServerConfig{
			Port:              DefaultServerPort,
			ReadTimeout:       DefaultReadTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
			ShutdownTimeout:   DefaultShutdownTimeout,
			AllowedOrigins:    []string{"http://localhost:8080"},
			WebSocketPongWait: DefaultWebSocketPongWait,
			RefreshPerMinute:  DefaultRefreshPerMinute,
		},
		Schedule: ScheduleConfig{
			Spec:       DefaultScheduleSpec,
			RunTimeout: DefaultRunTimeout,
		},
		Publish: PublishConfig{
			Redis: RedisConfig{
				KeyPrefix: DefaultRedisKeyPrefix,
				TTL:       DefaultSnapshotTTL,
			},
			Sheets: SheetsConfig{
				Range: DefaultSheetsRange,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: DefaultServiceName,
			Metrics:     true,
		},
	}
}
