package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CatalogDriverMemory   = "memory"
	CatalogDriverPostgres = "postgres"

	ReviewDriverMemory   = "memory"
	ReviewDriverRedis    = "redis"
	ReviewDriverDynamoDB = "dynamodb"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	CatalogDriver string
	ReviewDriver  string

	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr включает кэш категорий даже при ReviewDriver != redis.
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CategoryCacheTTL time.Duration

	DynamoRegion   string
	DynamoEndpoint string
	DynamoTable    string

	KafkaBrokers       []string
	KafkaConsumerGroup string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyTTL              time.Duration
	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	RateLimitRPS   float64
	RateLimitBurst int

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		CatalogDriver: CatalogDriverMemory,
		ReviewDriver:  ReviewDriverMemory,

		PostgresAutoMigrate: true,

		CategoryCacheTTL: 5 * time.Minute,

		DynamoRegion: "us-east-1",
		DynamoTable:  "urbanfood_reviews",

		KafkaConsumerGroup: "urbanfood-catalog-cache",

		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  5,
		OutboxRetryDelay:   200 * time.Millisecond,

		IdempotencyTTL:              24 * time.Hour,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		RateLimitRPS:   20,
		RateLimitBurst: 40,

		RequestTimeout:  15 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate проверяет согласованность драйверов и их параметров.
func (c Config) Validate() error {
	var errs []error

	switch c.CatalogDriver {
	case CatalogDriverMemory:
	case CatalogDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres catalog driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported catalog driver %q", c.CatalogDriver))
	}

	switch c.ReviewDriver {
	case ReviewDriverMemory:
	case ReviewDriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			errs = append(errs, errors.New("redis addr is required for redis review driver"))
		}
	case ReviewDriverDynamoDB:
		if strings.TrimSpace(c.DynamoTable) == "" {
			errs = append(errs, errors.New("dynamodb table is required for dynamodb review driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported review driver %q", c.ReviewDriver))
	}

	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http addr is required"))
	}

	return errors.Join(errs...)
}
