package config

import (
	"strings"
	"time"

	common "pipeline-workers/config"
	"pipeline-workers/domain"
)

var DefaultExtensions = []string{".csv", ".json", ".xlsx", ".txt"}

type Config struct {
	common.Common

	Interval time.Duration

	ObjectStoreBackend string
	Bucket             string
	Prefix             string
	Endpoint           string
	Region             string
	AccessKey          string
	SecretKey          string
	UseSSL             bool

	MaxFileSize int64
	Extensions  []string
}

func Load() (*Config, error) {
	c, err := common.LoadCommon()
	if err != nil {
		return nil, err
	}
	interval, err := common.Minutes("PIPELINE_SCHEDULE_INGESTION", 15)
	if err != nil {
		return nil, err
	}
	useSSL, err := common.Bool("S3_USE_SSL", true)
	if err != nil {
		return nil, err
	}
	maxMB, err := common.Int("MAX_FILE_SIZE_MB", 100)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Common:             c,
		Interval:           interval,
		ObjectStoreBackend: strings.ToLower(common.String("OBJECT_STORE_BACKEND", "s3")),
		Bucket:             common.String("DATA_BUCKET", ""),
		Prefix:             common.String("OBJECT_PREFIX", ""),
		Endpoint:           common.String("S3_ENDPOINT", ""),
		Region:             common.String("S3_REGION", c.Registry.AWSRegion),
		AccessKey:          common.String("S3_ACCESS_KEY", ""),
		SecretKey:          common.String("S3_SECRET_KEY", ""),
		UseSSL:             useSSL,
		MaxFileSize:        int64(maxMB) * 1024 * 1024,
		Extensions:         normalizeExtensions(common.List("SUPPORTED_EXTENSIONS", DefaultExtensions)),
	}

	if cfg.Bucket == "" {
		return nil, domain.ConfigError("DATA_BUCKET is required")
	}
	if maxMB <= 0 {
		return nil, domain.ConfigError("MAX_FILE_SIZE_MB must be positive")
	}
	return cfg, nil
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
