// Package config provides configuration management for the intraday index.
//
// # Configuration Sources
//
// Configuration is assembled in the following order, later sources overriding earlier ones:
//
//	1. Built-in defaults (Default)
//	2. YAML file: $HINOSEMI_CONFIG, ./config.yaml or ./configs/config.yaml
//	3. .env in the working directory (never overrides the real environment)
//	4. HINOSEMI_* environment variables
//
// # Environment Variables
//
// Nested sections map onto underscore-joined names:
//
//	HINOSEMI_INDEX_KEY=HINOSEMI
//	HINOSEMI_INDEX_BASKET=8035.T=東京エレクトロン,6857.T=アドバンテスト
//	HINOSEMI_INDEX_BASELINE_POLICY=prior_close
//	HINOSEMI_PROVIDER_KIND=csv
//	HINOSEMI_PROVIDER_FIXTURE_DIR=testdata/fixtures
//	HINOSEMI_OUTPUT_DIR=docs/outputs
//	HINOSEMI_LOGGING_LEVEL=debug
//	HINOSEMI_PUBLISH_TELEGRAM_ENABLED=true
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	settings, err := cfg.Index.Settings()
//	paths, err := cfg.Paths("")
//
// Validation combines go-playground/validator struct tags with semantic checks: the
// timezone must load, session times must parse and be ordered, and the smoothing window
// must be odd.
package config
