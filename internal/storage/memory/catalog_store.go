package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// CatalogStore: in-memory реализация CatalogStore и OrderStore.
// Один мьютекс защищает и остатки, и заказы, поэтому CreateOrder атомарен.
type CatalogStore struct {
	mu        sync.RWMutex
	farmers   map[int64]domain.Farmer
	customers map[int64]domain.Customer
	products  map[int64]domain.Product
	orders    map[int64]domain.Order

	lastFarmerID   int64
	lastCustomerID int64
	lastProductID  int64
	lastOrderID    int64
	lastItemID     int64
}

// NewCatalogStore возвращает in-memory хранилище каталога для локальной разработки и тестов.
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{
		farmers:   make(map[int64]domain.Farmer),
		customers: make(map[int64]domain.Customer),
		products:  make(map[int64]domain.Product),
		orders:    make(map[int64]domain.Order),
	}
}

func (s *CatalogStore) AddFarmer(ctx context.Context, farmer domain.Farmer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("add farmer", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFarmerID++
	farmer.ID = s.lastFarmerID
	if farmer.CreatedAt.IsZero() {
		farmer.CreatedAt = time.Now().UTC()
	}
	s.farmers[farmer.ID] = farmer
	return farmer.ID, nil
}

func (s *CatalogStore) GetFarmer(ctx context.Context, id int64) (domain.Farmer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Farmer{}, domain.NewStorageError("get farmer", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	farmer, ok := s.farmers[id]
	if !ok {
		return domain.Farmer{}, domain.ErrFarmerNotFound
	}
	return farmer, nil
}

func (s *CatalogStore) AddCustomer(ctx context.Context, customer domain.Customer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("add customer", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCustomerID++
	customer.ID = s.lastCustomerID
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	return customer.ID, nil
}

func (s *CatalogStore) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, domain.NewStorageError("get customer", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (s *CatalogStore) AddProduct(ctx context.Context, product domain.Product) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStorageError("add product", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.farmers[product.FarmerID]; !ok {
		return 0, domain.ErrFarmerNotFound
	}

	s.lastProductID++
	product.ID = s.lastProductID
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	// Данные фермы в хранилище не дублируются, их подставляет выборка.
	product.FarmName = ""
	product.ContactPerson = ""
	s.products[product.ID] = product
	return product.ID, nil
}

func (s *CatalogStore) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, domain.NewStorageError("get product", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrUnknownProduct
	}
	return product, nil
}

func (s *CatalogStore) GetProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("get products by category", err)
	}

	want := domain.NormalizeCategory(category)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0)
	for _, product := range s.products {
		if domain.NormalizeCategory(product.Category) != want {
			continue
		}
		if farmer, ok := s.farmers[product.FarmerID]; ok {
			product.FarmName = farmer.FarmName
			product.ContactPerson = farmer.ContactPerson
		}
		result = append(result, product)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (s *CatalogStore) DecrementStock(ctx context.Context, productID int64, amount int) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("decrement stock", err)
	}
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return domain.ErrUnknownProduct
	}
	if product.StockQuantity < amount {
		return &domain.InsufficientStockError{ProductID: productID, Requested: amount, Available: product.StockQuantity}
	}
	product.StockQuantity -= amount
	s.products[productID] = product
	return nil
}

// CreateOrder проверяет и списывает остатки всех позиций под одной блокировкой,
// затем сохраняет заказ. При ошибке состояние не меняется.
func (s *CatalogStore) CreateOrder(ctx context.Context, header domain.Order, items []domain.OrderItem) (domain.OrderReceipt, error) {
	if err := ctx.Err(); err != nil {
		return domain.OrderReceipt{}, domain.NewStorageError("create order", err)
	}
	if len(items) == 0 {
		return domain.OrderReceipt{}, domain.ErrEmptyBasket
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[header.CustomerID]; !ok {
		return domain.OrderReceipt{}, domain.ErrCustomerNotFound
	}

	// Одна и та же позиция может встретиться несколько раз, поэтому суммируем.
	requested := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.OrderReceipt{}, domain.ErrInvalidQuantity
		}
		product, ok := s.products[item.ProductID]
		if !ok {
			return domain.OrderReceipt{}, domain.ErrUnknownProduct
		}
		requested[item.ProductID] += item.Quantity
		if requested[item.ProductID] > product.StockQuantity {
			return domain.OrderReceipt{}, &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: requested[item.ProductID],
				Available: product.StockQuantity,
			}
		}
	}

	for productID, qty := range requested {
		product := s.products[productID]
		product.StockQuantity -= qty
		s.products[productID] = product
	}

	s.lastOrderID++
	order := header
	order.ID = s.lastOrderID
	order.TotalAmount = domain.SumItems(items)
	order.Items = make([]domain.OrderItem, len(items))

	receipt := domain.OrderReceipt{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount,
		ItemIDs:     make([]int64, len(items)),
	}
	for i, item := range items {
		s.lastItemID++
		item.ID = s.lastItemID
		item.OrderID = order.ID
		order.Items[i] = item
		receipt.ItemIDs[i] = item.ID
	}

	s.orders[order.ID] = order
	return receipt, nil
}

func (s *CatalogStore) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, domain.NewStorageError("get order", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListOrdersByCustomer возвращает заказы клиента, ограничивая выборку limit (если >0).
func (s *CatalogStore) ListOrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("list orders", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID != customerID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].OrderDate.After(result[j].OrderDate)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

var (
	_ domain.CatalogStore = (*CatalogStore)(nil)
	_ domain.OrderStore   = (*CatalogStore)(nil)
)
