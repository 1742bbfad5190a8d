package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	envHTTPAddr                    = "URBANFOOD_HTTP_ADDR"
	envGRPCAddr                    = "URBANFOOD_GRPC_ADDR"
	envMetricsAddr                 = "URBANFOOD_METRICS_ADDR"
	envCatalogDriver               = "URBANFOOD_CATALOG_DRIVER"
	envReviewDriver                = "URBANFOOD_REVIEW_DRIVER"
	envPostgresDSN                 = "URBANFOOD_POSTGRES_DSN"
	envPostgresAutoMigrate         = "URBANFOOD_POSTGRES_AUTO_MIGRATE"
	envRedisAddr                   = "URBANFOOD_REDIS_ADDR"
	envRedisPassword               = "URBANFOOD_REDIS_PASSWORD"
	envRedisDB                     = "URBANFOOD_REDIS_DB"
	envCategoryCacheTTL            = "URBANFOOD_CATEGORY_CACHE_TTL"
	envDynamoRegion                = "URBANFOOD_DYNAMODB_REGION"
	envDynamoEndpoint              = "URBANFOOD_DYNAMODB_ENDPOINT"
	envDynamoTable                 = "URBANFOOD_DYNAMODB_TABLE"
	envKafkaBrokers                = "URBANFOOD_KAFKA_BROKERS"
	envKafkaConsumerGroup          = "URBANFOOD_KAFKA_CONSUMER_GROUP"
	envOutboxPollInterval          = "URBANFOOD_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "URBANFOOD_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "URBANFOOD_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "URBANFOOD_OUTBOX_RETRY_DELAY"
	envIdempotencyTTL              = "URBANFOOD_IDEMPOTENCY_TTL"
	envIdempotencyCleanupInterval  = "URBANFOOD_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "URBANFOOD_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envRateLimitRPS                = "URBANFOOD_RATE_LIMIT_RPS"
	envRateLimitBurst              = "URBANFOOD_RATE_LIMIT_BURST"
	envRequestTimeout              = "URBANFOOD_REQUEST_TIMEOUT"
	envShutdownTimeout             = "URBANFOOD_SHUTDOWN_TIMEOUT"
	envLogLevel                    = "URBANFOOD_LOG_LEVEL"
	envLogFormat                   = "URBANFOOD_LOG_FORMAT"
)

// EnvLookup совпадает по сигнатуре с os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// ConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректное значение не прерывает запуск: остаётся значение по умолчанию,
// а описание проблемы попадает в warnings.
func ConfigFromEnv(lookup EnvLookup) (Config, []string) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := DefaultConfig()
	var warnings []string

	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
	}
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	lower := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.ToLower(strings.TrimSpace(v))
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, err)
				return
			}
			*dst = parsed
		}
	}
	integer := func(key string, dst *int, valid func(int) bool, rule string) {
		if v, ok := lookup(key); ok {
			parsed, err := parseInt(v, valid, rule)
			if err != nil {
				warn(key, err)
				return
			}
			*dst = parsed
		}
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		if v, ok := lookup(key); ok {
			parsed, err := parseDuration(v, valid, rule)
			if err != nil {
				warn(key, err)
				return
			}
			*dst = parsed
		}
	}
	positive := func(v int) bool { return v > 0 }
	nonNegative := func(v int) bool { return v >= 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)
	lower(envCatalogDriver, &cfg.CatalogDriver)
	lower(envReviewDriver, &cfg.ReviewDriver)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	str(envRedisAddr, &cfg.RedisAddr)
	str(envRedisPassword, &cfg.RedisPassword)
	integer(envRedisDB, &cfg.RedisDB, nonNegative, "must be >= 0")
	duration(envCategoryCacheTTL, &cfg.CategoryCacheTTL, positiveDuration, "must be > 0")

	str(envDynamoRegion, &cfg.DynamoRegion)
	str(envDynamoEndpoint, &cfg.DynamoEndpoint)
	str(envDynamoTable, &cfg.DynamoTable)

	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = parseList(v)
	}
	str(envKafkaConsumerGroup, &cfg.KafkaConsumerGroup)

	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")

	duration(envIdempotencyTTL, &cfg.IdempotencyTTL, positiveDuration, "must be > 0")
	duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	integer(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize, positive, "must be > 0")

	if v, ok := lookup(envRateLimitRPS); ok {
		rps, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		switch {
		case err != nil:
			warn(envRateLimitRPS, err)
		case rps < 0:
			warn(envRateLimitRPS, fmt.Errorf("must be >= 0"))
		default:
			cfg.RateLimitRPS = rps
		}
	}
	integer(envRateLimitBurst, &cfg.RateLimitBurst, positive, "must be > 0")

	duration(envRequestTimeout, &cfg.RequestTimeout, positiveDuration, "must be > 0")
	duration(envShutdownTimeout, &cfg.ShutdownTimeout, positiveDuration, "must be > 0")

	return cfg, warnings
}

// SetupLogger настраивает глобальный logrus по URBANFOOD_LOG_LEVEL и URBANFOOD_LOG_FORMAT.
func SetupLogger(lookup EnvLookup) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	if v, _ := lookup(envLogFormat); strings.EqualFold(strings.TrimSpace(v), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if v, ok := lookup(envLogLevel); ok {
		if parsed, err := log.ParseLevel(strings.TrimSpace(v)); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q", raw)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("value %d %s", v, rule)
	}
	return v, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", raw)
	}
	if valid != nil && !valid(v) {
		return 0, fmt.Errorf("value %s %s", v, rule)
	}
	return v, nil
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
