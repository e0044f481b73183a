package config

import "time"

// Application constants
const (
	AppName    = "hinosemi"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment variable, e.g. HINOSEMI_INDEX_KEY.
	EnvPrefix = "HINOSEMI"

	// ConfigFileEnv points at an explicit YAML config file.
	ConfigFileEnv = "HINOSEMI_CONFIG"
	EnvFileName   = ".env"

	// Index defaults
	DefaultIndexKey        = "HINOSEMI"
	DefaultIndexTitle      = "日の丸半導体指数"
	DefaultTimezone        = "Asia/Tokyo"
	DefaultSessionOpen     = "09:00"
	DefaultSessionClose    = "15:30"
	DefaultOpeningWindow   = 10 * time.Minute
	DefaultBaselinePolicy  = "open"
	DefaultCoverageRatio   = 0.6
	DefaultSmoothingWindow = 3

	// Provider defaults
	ProviderYahoo             = "yahoo"
	ProviderCSV               = "csv"
	DefaultHistoryLookback    = 10 * 24 * time.Hour
	DefaultFetchConcurrency   = 4
	DefaultRequestsPerSecond  = 2.0
	DefaultRequestBurst       = 1
	DefaultFetchTimeout       = 45 * time.Second
	DefaultFixtureDir         = "testdata/fixtures"
	DefaultScheduleSpec       = "*/5 9-15 * * 1-5"
	DefaultRunTimeout         = 3 * time.Minute
	DefaultSnapshotTTL        = 24 * time.Hour
	DefaultRedisKeyPrefix     = "hinosemi"
	DefaultSheetsRange        = "intraday!A1"
	DefaultServiceName        = "hinosemi"
	DefaultOutputDir          = "docs/outputs"
	DefaultLogFile            = "logs/hinosemi.log"
	DefaultServerPort         = 8080
	DefaultReadTimeout        = 15 * time.Second
	DefaultWriteTimeout       = 15 * time.Second
	DefaultIdleTimeout        = 60 * time.Second
	DefaultShutdownTimeout    = 30 * time.Second
	DefaultRefreshPerMinute   = 2
	DefaultWebSocketPongWait  = 60 * time.Second
	DefaultLogMaxSizeMB       = 20
	DefaultLogMaxBackups      = 5
	DefaultLogMaxAgeDays      = 14
	DefaultChartWidth         = 1200
	DefaultChartHeight        = 630
)

// DefaultHashtags are appended to announcement posts.
var DefaultHashtags = []string{"#桜Index", "#HINOSEMI"}
