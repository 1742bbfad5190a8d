package app

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/urbanfood/internal/health"
	"github.com/vladislavdragonenkov/urbanfood/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/urbanfood/internal/metrics"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/idempotency"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/order"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/review"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/dynamo"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/memory"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/urbanfood/internal/storage/redis"
	"github.com/vladislavdragonenkov/urbanfood/internal/version"
)

// Dependencies содержит собранные сервисы и инфраструктуру приложения.
type Dependencies struct {
	Catalog     *catalog.Service
	Orders      *order.Engine
	Reviews     *review.Aggregator
	Idempotency *idempotency.Guard

	OutboxRepo      domain.OutboxRepository
	IdempotencyRepo domain.IdempotencyRepository
	Producer        *kafka.Producer

	Health  *healthcheck.Handler
	Metrics *metrics.MarketplaceMetrics
	Logger  *log.Entry

	closers []func() error
}

type storageSet struct {
	catalog     domain.CatalogStore
	orders      domain.OrderStore
	tx          domain.Transactor
	outbox      domain.OutboxRepository
	idempotency domain.IdempotencyRepository
}

// NewDependencies подключает хранилища согласно cfg и собирает сервисы.
// Kafka опциональна: без брокеров события в outbox не пишутся.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (deps *Dependencies, err error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	deps = &Dependencies{
		Health:  healthcheck.NewHandler(version.GetVersion()),
		Metrics: metrics.NewMarketplaceMetrics(),
		Logger:  logger,
	}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	stores, err := deps.initStorage(ctx, cfg)
	if err != nil {
		return deps, err
	}
	deps.OutboxRepo = stores.outbox
	deps.IdempotencyRepo = stores.idempotency

	var cache domain.CategoryCache
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		redisClient = deps.initRedis(cfg)
		cache = redisstore.NewCategoryCache(redisClient, cfg.CategoryCacheTTL, logger.WithField("component", "category-cache"))
	}

	reviewStore, err := deps.initReviewStore(ctx, cfg, redisClient)
	if err != nil {
		return deps, err
	}

	if producer, kafkaErr := initKafkaProducer(cfg.KafkaBrokers, logger); kafkaErr == nil && producer != nil {
		deps.Producer = producer
		deps.closers = append(deps.closers, producer.Close)
	}

	catalogOpts := []catalog.Option{
		catalog.WithMetrics(deps.Metrics),
		catalog.WithLogger(logger.WithField("component", "catalog")),
	}
	if cache != nil {
		catalogOpts = append(catalogOpts, catalog.WithCategoryCache(cache))
	}
	deps.Catalog = catalog.NewService(stores.catalog, catalogOpts...)

	orderOpts := []order.Option{
		order.WithTransactor(stores.tx),
		order.WithMetrics(deps.Metrics),
		order.WithLogger(logger.WithField("component", "order-engine")),
	}
	reviewOpts := []review.Option{
		review.WithProductCatalog(stores.catalog),
		review.WithMetrics(deps.Metrics),
		review.WithLogger(logger.WithField("component", "review-aggregator")),
	}
	if deps.Producer != nil {
		orderOpts = append(orderOpts, order.WithOutbox(stores.outbox))
		reviewOpts = append(reviewOpts, review.WithOutbox(stores.outbox))
	}
	deps.Orders = order.NewEngine(stores.catalog, stores.orders, orderOpts...)
	deps.Reviews = review.NewAggregator(reviewStore, reviewOpts...)

	deps.Idempotency = idempotency.NewGuard(stores.idempotency, cfg.IdempotencyTTL, logger.WithField("component", "idempotency"))

	return deps, nil
}

func (d *Dependencies) initStorage(ctx context.Context, cfg Config) (storageSet, error) {
	if cfg.CatalogDriver != CatalogDriverPostgres {
		store := memory.NewCatalogStore()
		return storageSet{
			catalog:     store,
			orders:      store,
			tx:          memory.NewTransactor(),
			outbox:      memory.NewOutboxRepository(),
			idempotency: memory.NewIdempotencyRepository(),
		}, nil
	}

	pg, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return storageSet{}, fmt.Errorf("open postgres: %w", err)
	}
	d.closers = append(d.closers, pg.Close)

	if cfg.PostgresAutoMigrate {
		if err := pg.MigrateUp(ctx, 0); err != nil {
			return storageSet{}, fmt.Errorf("migrate postgres: %w", err)
		}
	}
	d.Health.RegisterChecker("postgres", healthcheck.NewPingChecker("postgres", pg.Ping))
	d.Logger.Info("postgres catalog store initialized")

	tx := postgres.NewTransactor(pg)
	return storageSet{
		catalog:     postgres.NewCatalogRepository(pg),
		orders:      postgres.NewOrderRepository(pg, tx),
		tx:          tx,
		outbox:      postgres.NewOutboxRepository(pg),
		idempotency: postgres.NewIdempotencyRepository(pg),
	}, nil
}

func (d *Dependencies) initReviewStore(ctx context.Context, cfg Config, redisClient *goredis.Client) (domain.ReviewStore, error) {
	switch cfg.ReviewDriver {
	case ReviewDriverRedis:
		if redisClient == nil {
			return nil, errors.New("redis review driver requires redis addr")
		}
		d.Logger.Info("redis review store initialized")
		return redisstore.NewReviewStore(redisClient), nil
	case ReviewDriverDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.Options{
			Region:   cfg.DynamoRegion,
			Endpoint: cfg.DynamoEndpoint,
			Table:    cfg.DynamoTable,
		})
		if err != nil {
			return nil, fmt.Errorf("create dynamodb client: %w", err)
		}
		store := dynamo.NewReviewStore(client, cfg.DynamoTable)
		d.Health.RegisterChecker("dynamodb", healthcheck.NewPingChecker("dynamodb", store.Ping))
		d.Logger.WithField("table", cfg.DynamoTable).Info("dynamodb review store initialized")
		return store, nil
	default:
		return memory.NewReviewStore(), nil
	}
}

// Close освобождает ресурсы в обратном порядке открытия.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
