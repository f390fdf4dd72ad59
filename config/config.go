// Package config holds the settings shared by every worker. Each worker has
// its own config package embedding these sections.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pipeline-workers/domain"
	"pipeline-workers/logging"
)

const (
	RegistryRedis    = "redis"
	RegistryDynamoDB = "dynamodb"
	RegistryMemory   = "memory"
)

type RegistryConfig struct {
	Backend       string
	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string
	DynamoDBTable string
	AWSRegion     string
}

type ArtifactConfig struct {
	SharedDataPath string
}

type LedgerConfig struct {
	// DatabaseURL enables the Postgres processing ledger when set.
	DatabaseURL string
}

type Common struct {
	Registry RegistryConfig
	Artifact ArtifactConfig
	Ledger   LedgerConfig
	Log      logging.Config
	Jitter   time.Duration
}

// LoadEnvFile seeds the environment from a .env file when one exists.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func LoadCommon() (Common, error) {
	redisDB, err := Int("REDIS_DB", 0)
	if err != nil {
		return Common{}, err
	}
	jitter, err := Int("SCHEDULE_JITTER_SECONDS", 0)
	if err != nil {
		return Common{}, err
	}

	c := Common{
		Registry: RegistryConfig{
			Backend:       strings.ToLower(String("REGISTRY_BACKEND", RegistryRedis)),
			RedisHost:     String("REDIS_HOST", "localhost"),
			RedisPort:     String("REDIS_PORT", "6379"),
			RedisDB:       redisDB,
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			DynamoDBTable: strings.TrimSpace(os.Getenv("DYNAMODB_TABLE")),
			AWSRegion:     String("AWS_REGION", "us-east-1"),
		},
		Artifact: ArtifactConfig{
			SharedDataPath: String("SHARED_DATA_PATH", "/shared/data"),
		},
		Ledger: LedgerConfig{
			DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		},
		Log: logging.Config{
			Level: String("LOG_LEVEL", "info"),
			JSON:  strings.EqualFold(String("LOG_FORMAT", "console"), "json"),
		},
		Jitter: time.Duration(jitter) * time.Second,
	}

	switch c.Registry.Backend {
	case RegistryRedis, RegistryMemory:
	case RegistryDynamoDB:
		if c.Registry.DynamoDBTable == "" {
			return Common{}, domain.ConfigError("DYNAMODB_TABLE is required when REGISTRY_BACKEND=dynamodb")
		}
	default:
		return Common{}, domain.ConfigError("unsupported REGISTRY_BACKEND %q", c.Registry.Backend)
	}
	if jitter < 0 {
		return Common{}, domain.ConfigError("SCHEDULE_JITTER_SECONDS must not be negative")
	}
	return c, nil
}

// String returns the trimmed value of key, or def when it is unset or blank.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func Int(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ConfigError("%s must be an integer, got %q", key, raw)
	}
	return v, nil
}

func Bool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, domain.ConfigError("%s must be a boolean, got %q", key, raw)
	}
	return v, nil
}

// Minutes reads a positive duration expressed in minutes.
func Minutes(key string, def int) (time.Duration, error) {
	v, err := Int(key, def)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, domain.ConfigError("%s must be a positive number of minutes", key)
	}
	return time.Duration(v) * time.Minute, nil
}

// List splits a comma separated value.
func List(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
