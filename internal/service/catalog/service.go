// Package catalog управляет фермерами, клиентами и продуктами.
package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/metrics"
)

// Service: фасад над CatalogStore с кэшем выборок по категории.
type Service struct {
	store   domain.CatalogStore
	cache   domain.CategoryCache
	metrics *metrics.MarketplaceMetrics
	logger  *log.Entry
}

type Option func(*Service)

// WithCategoryCache включает кэширование GetProductsByCategory.
func WithCategoryCache(cache domain.CategoryCache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithMetrics(m *metrics.MarketplaceMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store domain.CatalogStore, opts ...Option) *Service {
	s := &Service{store: store, logger: log.WithField("component", "catalog")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) AddFarmer(ctx context.Context, farmer domain.Farmer) (domain.Farmer, error) {
	farmer = trimFarmer(farmer)
	if err := farmer.Validate(); err != nil {
		return domain.Farmer{}, err
	}
	id, err := s.store.AddFarmer(ctx, farmer)
	if err != nil {
		return domain.Farmer{}, domain.WrapStorage("add farmer", err)
	}
	return s.GetFarmer(ctx, id)
}

func (s *Service) GetFarmer(ctx context.Context, id int64) (domain.Farmer, error) {
	farmer, err := s.store.GetFarmer(ctx, id)
	if err != nil {
		return domain.Farmer{}, domain.WrapStorage("get farmer", err)
	}
	return farmer, nil
}

func (s *Service) AddCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer = trimCustomer(customer)
	if err := customer.Validate(); err != nil {
		return domain.Customer{}, err
	}
	id, err := s.store.AddCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, domain.WrapStorage("add customer", err)
	}
	return s.GetCustomer(ctx, id)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, domain.WrapStorage("get customer", err)
	}
	return customer, nil
}

// AddProduct сохраняет продукт и сбрасывает кэш его категории.
func (s *Service) AddProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	product.Category = strings.TrimSpace(product.Category)
	product.Description = strings.TrimSpace(product.Description)
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}

	id, err := s.store.AddProduct(ctx, product)
	if err != nil {
		return domain.Product{}, domain.WrapStorage("add product", err)
	}
	s.invalidate(ctx, product.Category)

	s.logger.WithFields(log.Fields{
		"product_id": id,
		"farmer_id":  product.FarmerID,
		"category":   product.Category,
	}).Info("product added")
	return s.GetProduct(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, domain.WrapStorage("get product", err)
	}
	return product, nil
}

// ProductsByCategory возвращает продукты категории с данными фермы.
// Ошибки кэша не прерывают запрос: выборка идёт напрямую в хранилище.
func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if domain.NormalizeCategory(category) == "" {
		return nil, domain.ErrCategoryRequired
	}

	if s.cache != nil {
		products, ok, err := s.cache.GetCategory(ctx, category)
		switch {
		case err != nil:
			s.metrics.RecordCategoryCache("error")
			s.logger.WithError(err).WithField("category", category).Warn("category cache read failed")
		case ok:
			s.metrics.RecordCategoryCache("hit")
			return products, nil
		default:
			s.metrics.RecordCategoryCache("miss")
		}
	}

	products, err := s.store.GetProductsByCategory(ctx, category)
	if err != nil {
		return nil, domain.WrapStorage("get products by category", err)
	}

	if s.cache != nil {
		if err := s.cache.SetCategory(ctx, category, products); err != nil {
			s.logger.WithError(err).WithField("category", category).Warn("category cache write failed")
		}
	}
	return products, nil
}

// InvalidateForOrder сбрасывает кэш категорий, остатки которых изменил заказ.
func (s *Service) InvalidateForOrder(ctx context.Context, event *domain.OrderPlacedEvent) error {
	if s.cache == nil || event == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(event.Items))
	for _, item := range event.Items {
		product, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			return domain.WrapStorage("get product", err)
		}
		category := domain.NormalizeCategory(product.Category)
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		if err := s.cache.InvalidateCategory(ctx, category); err != nil {
			return err
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id":   event.OrderID,
		"categories": len(seen),
	}).Debug("category cache invalidated")
	return nil
}

func (s *Service) invalidate(ctx context.Context, category string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCategory(ctx, category); err != nil {
		s.logger.WithError(err).WithField("category", category).Warn("category cache invalidation failed")
	}
}

func trimFarmer(f domain.Farmer) domain.Farmer {
	f.FarmName = strings.TrimSpace(f.FarmName)
	f.ContactPerson = strings.TrimSpace(f.ContactPerson)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	return f
}

func trimCustomer(c domain.Customer) domain.Customer {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
	return c
}
