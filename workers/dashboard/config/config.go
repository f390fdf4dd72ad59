package config

import (
	"strings"
	"time"

	common "pipeline-workers/config"
	"pipeline-workers/domain"
)

const (
	ModeTUI  = "tui"
	ModeHTTP = "http"
)

type Config struct {
	common.Common

	Mode      string
	HTTPAddr  string
	CacheSize int
	Refresh   time.Duration
	// Watch refreshes the terminal view on artifact directory changes.
	Watch bool
}

func Load() (*Config, error) {
	c, err := common.LoadCommon()
	if err != nil {
		return nil, err
	}
	cacheSize, err := common.Int("DASHBOARD_CACHE_SIZE", 32)
	if err != nil {
		return nil, err
	}
	refresh, err := common.Int("DASHBOARD_REFRESH_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	watch, err := common.Bool("DASHBOARD_WATCH", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Common:    c,
		Mode:      strings.ToLower(common.String("DASHBOARD_MODE", ModeTUI)),
		HTTPAddr:  common.String("DASHBOARD_HTTP_ADDR", ":8501"),
		CacheSize: cacheSize,
		Refresh:   time.Duration(refresh) * time.Second,
		Watch:     watch,
	}
	switch {
	case cfg.Mode != ModeTUI && cfg.Mode != ModeHTTP:
		return nil, domain.ConfigError("DASHBOARD_MODE must be %q or %q, got %q", ModeTUI, ModeHTTP, cfg.Mode)
	case cacheSize <= 0:
		return nil, domain.ConfigError("DASHBOARD_CACHE_SIZE must be positive")
	case refresh <= 0:
		return nil, domain.ConfigError("DASHBOARD_REFRESH_SECONDS must be positive")
	}
	if cfg.Mode == ModeTUI {
		cfg.Log.File = common.String("DASHBOARD_LOG_FILE", "")
	}
	return cfg, nil
}
