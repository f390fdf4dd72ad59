package config

import (
	"strconv"
	"time"

	common "pipeline-workers/config"
	"pipeline-workers/domain"
)

type Config struct {
	common.Common

	Interval time.Duration
	// MissingDropThreshold is the percentage of nulls above which a column
	// is dropped.
	MissingDropThreshold float64
}

func Load() (*Config, error) {
	c, err := common.LoadCommon()
	if err != nil {
		return nil, err
	}
	interval, err := common.Minutes("PIPELINE_SCHEDULE_CLEANING", 10)
	if err != nil {
		return nil, err
	}
	raw := common.String("MISSING_DROP_THRESHOLD", "90")
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil || threshold < 0 || threshold > 100 {
		return nil, domain.ConfigError("MISSING_DROP_THRESHOLD must be a percentage, got %q", raw)
	}
	return &Config{Common: c, Interval: interval, MissingDropThreshold: threshold}, nil
}
