package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

const defaultCategoryTTL = 30 * time.Second

type productDocument struct {
	ID            int64           `json:"id"`
	FarmerID      int64           `json:"farmer_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	FarmName      string          `json:"farm_name"`
	ContactPerson string          `json:"contact_person"`
}

// CategoryCache кэширует выборку продуктов категории под ключом
// `catalog:category:<нормализованная категория>` с коротким TTL.
type CategoryCache struct {
	client goredis.Cmdable
	ttl    time.Duration
	logger *log.Entry
}

// NewCategoryCache создаёт кэш категорий. ttl <= 0 заменяется значением по умолчанию.
func NewCategoryCache(client goredis.Cmdable, ttl time.Duration, logger *log.Entry) *CategoryCache {
	if ttl <= 0 {
		ttl = defaultCategoryTTL
	}
	if logger == nil {
		logger = log.WithField("component", "category-cache")
	}
	return &CategoryCache{client: client, ttl: ttl, logger: logger}
}

func (c *CategoryCache) GetCategory(ctx context.Context, category string) ([]domain.Product, bool, error) {
	key := categoryKey(category)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, domain.NewStorageError("get cached category", err)
	}

	var docs []productDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		// Битая запись считается промахом и удаляется.
		c.logger.WithError(err).WithField("key", key).Warn("failed to decode cached category")
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			c.logger.WithError(delErr).WithField("key", key).Warn("failed to drop corrupted cache entry")
		}
		return nil, false, nil
	}

	products := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		products = append(products, d.toDomain())
	}
	return products, true, nil
}

func (c *CategoryCache) SetCategory(ctx context.Context, category string, products []domain.Product) error {
	docs := make([]productDocument, 0, len(products))
	for _, p := range products {
		docs = append(docs, toProductDocument(p))
	}

	data, err := json.Marshal(docs)
	if err != nil {
		return domain.NewStorageError("marshal cached category", err)
	}
	if err := c.client.Set(ctx, categoryKey(category), data, c.ttl).Err(); err != nil {
		return domain.NewStorageError("set cached category", err)
	}
	return nil
}

func (c *CategoryCache) InvalidateCategory(ctx context.Context, category string) error {
	if err := c.client.Del(ctx, categoryKey(category)).Err(); err != nil {
		return domain.NewStorageError("invalidate cached category", err)
	}
	return nil
}

func categoryKey(category string) string {
	return "catalog:category:" + domain.NormalizeCategory(category)
}

func toProductDocument(p domain.Product) productDocument {
	return productDocument{
		ID:            p.ID,
		FarmerID:      p.FarmerID,
		Name:          p.Name,
		Category:      p.Category,
		Price:         p.Price,
		Description:   p.Description,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt.UTC(),
		FarmName:      p.FarmName,
		ContactPerson: p.ContactPerson,
	}
}

func (d productDocument) toDomain() domain.Product {
	return domain.Product{
		ID:            d.ID,
		FarmerID:      d.FarmerID,
		Name:          d.Name,
		Category:      d.Category,
		Price:         d.Price,
		Description:   d.Description,
		StockQuantity: d.StockQuantity,
		CreatedAt:     d.CreatedAt,
		FarmName:      d.FarmName,
		ContactPerson: d.ContactPerson,
	}
}

var _ domain.CategoryCache = (*CategoryCache)(nil)
