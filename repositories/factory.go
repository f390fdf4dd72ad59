package repositories

import (
	"context"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"pipeline-workers/config"
	"pipeline-workers/domain"
)

const (
	ObjectStoreS3    = "s3"
	ObjectStoreMinio = "minio"
)

// NewKV connects the configured registry backend.
func NewKV(ctx context.Context, cfg config.RegistryConfig) (KV, error) {
	switch cfg.Backend {
	case config.RegistryRedis:
		return NewRedisKV(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword, cfg.RedisDB), nil
	case config.RegistryDynamoDB:
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, errors.Wrap(err, "unable to load SDK config")
		}
		return NewDynamoKV(dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), nil
	case config.RegistryMemory:
		return NewMemoryKV(), nil
	}
	return nil, domain.ConfigError("unsupported REGISTRY_BACKEND %q", cfg.Backend)
}

// NewObjectStore builds the object store named by backend.
func NewObjectStore(ctx context.Context, backend string, cfg S3Config) (ObjectStore, error) {
	switch strings.ToLower(backend) {
	case ObjectStoreS3:
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, errors.Wrap(err, "unable to load SDK config")
		}
		return NewS3Repository(awsCfg, cfg), nil
	case ObjectStoreMinio:
		return NewMinioRepository(cfg)
	}
	return nil, domain.ConfigError("unsupported OBJECT_STORE_BACKEND %q", backend)
}

// OpenLedger connects the Postgres ledger when a database URL is set and
// returns a NopLedger otherwise.
func OpenLedger(cfg config.LedgerConfig, logger *zap.SugaredLogger) (Ledger, error) {
	if cfg.DatabaseURL == "" {
		logger.Infow("DATABASE_URL not set, processing ledger disabled")
		return NopLedger{}, nil
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to db")
	}
	ledger := NewPostgresLedger(db)
	if err := ledger.Migrate(); err != nil {
		return nil, err
	}
	return ledger, nil
}
