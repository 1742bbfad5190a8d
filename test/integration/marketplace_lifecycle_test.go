package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/order"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/outbox"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/review"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/memory"
)

type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.Product
	invalidated []string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]domain.Product)}
}

func (c *mapCache) GetCategory(_ context.Context, category string) ([]domain.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	products, ok := c.entries[domain.NormalizeCategory(category)]
	return products, ok, nil
}

func (c *mapCache) SetCategory(_ context.Context, category string, products []domain.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain.NormalizeCategory(category)] = products
	return nil
}

func (c *mapCache) InvalidateCategory(_ context.Context, category string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, domain.NormalizeCategory(category))
	c.invalidated = append(c.invalidated, domain.NormalizeCategory(category))
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.OutboxMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

// MarketplaceLifecycleTestSuite проходит путь от регистрации фермера до
// публикации событий и инвалидации кэша каталога.
type MarketplaceLifecycleTestSuite struct {
	suite.Suite
	store     *memory.CatalogStore
	outbox    *memory.OutboxRepository
	cache     *mapCache
	catalog   *catalog.Service
	orders    *order.Engine
	reviews   *review.Aggregator
	publisher *recordingPublisher
	worker    *outbox.Worker
}

func (suite *MarketplaceLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	suite.store = memory.NewCatalogStore()
	suite.outbox = memory.NewOutboxRepository()
	suite.cache = newMapCache()
	suite.publisher = &recordingPublisher{}

	suite.catalog = catalog.NewService(suite.store, catalog.WithCategoryCache(suite.cache), catalog.WithLogger(logger))
	suite.orders = order.NewEngine(suite.store, suite.store,
		order.WithTransactor(memory.NewTransactor()),
		order.WithOutbox(suite.outbox),
		order.WithLogger(logger),
	)
	suite.reviews = review.NewAggregator(memory.NewReviewStore(),
		review.WithProductCatalog(suite.store),
		review.WithOutbox(suite.outbox),
		review.WithLogger(logger),
	)
	suite.worker = outbox.NewWorker(suite.outbox, suite.publisher, outbox.WithLogger(logger), outbox.WithRetryBaseDelay(0))
}

func (suite *MarketplaceLifecycleTestSuite) seedCatalog(ctx context.Context) (customerID int64, tomatoes, honey domain.Product) {
	farmer, err := suite.catalog.AddFarmer(ctx, domain.Farmer{FarmName: "Sunny Farm", ContactPerson: "Olga"})
	suite.Require().NoError(err)

	customer, err := suite.catalog.AddCustomer(ctx, domain.Customer{FirstName: "Ivan", LastName: "Petrov"})
	suite.Require().NoError(err)

	tomatoes, err = suite.catalog.AddProduct(ctx, domain.Product{
		FarmerID: farmer.ID, Name: "Tomatoes", Category: "Vegetables",
		Price: decimal.RequireFromString("3.50"), StockQuantity: 10,
	})
	suite.Require().NoError(err)

	honey, err = suite.catalog.AddProduct(ctx, domain.Product{
		FarmerID: farmer.ID, Name: "Honey", Category: "Pantry",
		Price: decimal.RequireFromString("10.00"), StockQuantity: 1,
	})
	suite.Require().NoError(err)

	return customer.ID, tomatoes, honey
}

func (suite *MarketplaceLifecycleTestSuite) TestOrderPublishesEventAndRefreshesCategory() {
	ctx := context.Background()
	customerID, tomatoes, honey := suite.seedCatalog(ctx)

	// 1. Выборка по категории попадает в кэш
	listed, err := suite.catalog.ProductsByCategory(ctx, "vegetables")
	suite.Require().NoError(err)
	suite.Require().Len(listed, 1)
	suite.Equal(10, listed[0].StockQuantity)
	suite.Equal("Sunny Farm", listed[0].FarmName)

	// 2. Заказ
	placed, err := suite.orders.PlaceOrder(ctx, customerID, map[int64]int{tomatoes.ID: 2, honey.ID: 1})
	suite.Require().NoError(err)
	suite.Equal("17.00", placed.TotalAmount.StringFixed(2))
	suite.Equal(domain.OrderStatusPending, placed.Status)

	// 3. Outbox доставляет order.placed
	sent, err := suite.worker.ProcessOnce(ctx)
	suite.Require().NoError(err)
	suite.Equal(1, sent)
	suite.Empty(suite.outbox.AllPending())
	suite.Require().Len(suite.publisher.messages, 1)

	msg := suite.publisher.messages[0]
	suite.Equal(domain.EventOrderPlaced, msg.EventType)

	var event domain.OrderPlacedEvent
	suite.Require().NoError(json.Unmarshal(msg.Payload, &event))
	suite.Equal(placed.ID, event.OrderID)
	suite.True(event.TotalAmount.Equal(placed.TotalAmount))

	// 4. Потребитель события сбрасывает кэш категорий
	suite.cache.invalidated = nil
	suite.Require().NoError(suite.catalog.InvalidateForOrder(ctx, &event))
	suite.ElementsMatch([]string{"vegetables", "pantry"}, suite.cache.invalidated)

	listed, err = suite.catalog.ProductsByCategory(ctx, "Vegetables")
	suite.Require().NoError(err)
	suite.Require().Len(listed, 1)
	suite.Equal(8, listed[0].StockQuantity)

	// 5. Заказ виден покупателю
	history, err := suite.orders.ListCustomerOrders(ctx, customerID, 10)
	suite.Require().NoError(err)
	suite.Require().Len(history, 1)
	suite.Equal(placed.ID, history[0].ID)
}

func (suite *MarketplaceLifecycleTestSuite) TestRejectedOrderLeavesNoTrace() {
	ctx := context.Background()
	customerID, tomatoes, honey := suite.seedCatalog(ctx)

	_, err := suite.orders.PlaceOrder(ctx, customerID, map[int64]int{tomatoes.ID: 1, honey.ID: 2})
	var stockErr *domain.InsufficientStockError
	suite.Require().ErrorAs(err, &stockErr)
	suite.Equal(honey.ID, stockErr.ProductID)

	product, err := suite.catalog.GetProduct(ctx, tomatoes.ID)
	suite.Require().NoError(err)
	suite.Equal(10, product.StockQuantity)

	suite.Empty(suite.outbox.AllPending())
	history, err := suite.orders.ListCustomerOrders(ctx, customerID, 0)
	suite.Require().NoError(err)
	suite.Empty(history)
}

func (suite *MarketplaceLifecycleTestSuite) TestLastUnitGoesToExactlyOneCustomer() {
	ctx := context.Background()
	customerID, _, honey := suite.seedCatalog(ctx)
	second, err := suite.catalog.AddCustomer(ctx, domain.Customer{FirstName: "Anna", LastName: "Smirnova"})
	suite.Require().NoError(err)

	var (
		wg        sync.WaitGroup
		successes int
		conflicts int
		mu        sync.Mutex
	)
	for _, id := range []int64{customerID, second.ID} {
		wg.Add(1)
		go func(customer int64) {
			defer wg.Done()
			_, err := suite.orders.PlaceOrder(ctx, customer, map[int64]int{honey.ID: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrInsufficientStock):
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	suite.Equal(1, successes)
	suite.Equal(1, conflicts)

	product, err := suite.catalog.GetProduct(ctx, honey.ID)
	suite.Require().NoError(err)
	suite.Equal(0, product.StockQuantity)
}

func (suite *MarketplaceLifecycleTestSuite) TestReviewsAggregateAndPublish() {
	ctx := context.Background()
	customerID, tomatoes, _ := suite.seedCatalog(ctx)

	for _, rating := range []int{5, 4, 3} {
		_, err := suite.reviews.AddReview(ctx, domain.Review{ProductID: tomatoes.ID, CustomerID: customerID, Rating: rating})
		suite.Require().NoError(err)
	}

	summary, err := suite.reviews.GetAverageRating(ctx, tomatoes.ID)
	suite.Require().NoError(err)
	suite.Equal(3, summary.Count)
	suite.True(summary.Average.Equal(decimal.NewFromInt(4)), "average %s", summary.Average)

	_, err = suite.reviews.AddReview(ctx, domain.Review{ProductID: tomatoes.ID, CustomerID: customerID, Rating: 6})
	suite.Require().ErrorIs(err, domain.ErrInvalidRating)

	sent, err := suite.worker.ProcessOnce(ctx)
	suite.Require().NoError(err)
	suite.Equal(3, sent)
	for _, msg := range suite.publisher.messages {
		suite.Equal(domain.EventReviewAdded, msg.EventType)
	}
}

func TestMarketplaceLifecycle(t *testing.T) {
	require.NotPanics(t, func() {
		suite.Run(t, new(MarketplaceLifecycleTestSuite))
	})
}
