// Package order реализует оформление заказов поверх каталога.
package order

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/metrics"
)

// Engine проверяет корзину, фиксирует цены и атомарно сохраняет заказ.
// Между вызовами состояния не хранит.
type Engine struct {
	catalog domain.CatalogStore
	orders  domain.OrderStore
	tx      domain.Transactor
	outbox  domain.OutboxRepository
	metrics *metrics.MarketplaceMetrics
	logger  *log.Entry
	now     func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithTransactor задаёт транзакцию, в которой сохраняются заказ и outbox-событие.
func WithTransactor(tx domain.Transactor) Option {
	return func(e *Engine) {
		if tx != nil {
			e.tx = tx
		}
	}
}

// WithOutbox включает публикацию order.placed через transactional outbox.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(e *Engine) { e.outbox = outbox }
}

// WithMetrics подключает метрики заказов.
func WithMetrics(m *metrics.MarketplaceMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger задаёт логгер; nil оставляет логгер по умолчанию.
func WithLogger(logger *log.Entry) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine создаёт Engine. По умолчанию транзакция: просто вызов функции,
// outbox и метрики отключены.
func NewEngine(catalog domain.CatalogStore, orders domain.OrderStore, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		orders:  orders,
		tx:      directTx{},
		logger:  log.WithField("component", "order-engine"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PlaceOrder оформляет заказ клиента на корзину productID → quantity.
// При любой ошибке ничего не сохраняется и заказ не возвращается.
func (e *Engine) PlaceOrder(ctx context.Context, customerID int64, basket map[int64]int) (domain.Order, error) {
	start := time.Now()
	order, err := e.placeOrder(ctx, customerID, basket)
	if err != nil {
		e.metrics.RecordOrderFailed(metrics.Reason(err), time.Since(start))
		e.logger.WithError(err).WithFields(log.Fields{
			"customer_id": customerID,
			"products":    len(basket),
		}).Warn("order rejected")
		return domain.Order{}, err
	}

	e.metrics.RecordOrderPlaced(len(order.Items), time.Since(start))
	e.logger.WithFields(log.Fields{
		"order_id":     order.ID,
		"customer_id":  customerID,
		"total_amount": order.TotalAmount.StringFixed(domain.PriceScale),
	}).Info("order placed")
	return order, nil
}

func (e *Engine) placeOrder(ctx context.Context, customerID int64, basket map[int64]int) (domain.Order, error) {
	if len(basket) == 0 {
		return domain.Order{}, domain.ErrEmptyBasket
	}
	if customerID <= 0 {
		return domain.Order{}, domain.ErrCustomerRequired
	}

	productIDs := make([]int64, 0, len(basket))
	for productID, qty := range basket {
		if qty <= 0 {
			return domain.Order{}, domain.ErrInvalidQuantity
		}
		productIDs = append(productIDs, productID)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	items, err := e.snapshotItems(ctx, productIDs, basket)
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		CustomerID:  customerID,
		OrderDate:   e.now().UTC(),
		TotalAmount: domain.SumItems(items),
		Status:      domain.OrderStatusPending,
	}

	atomic := isAtomic(e.tx)
	err = e.tx.WithinTx(ctx, func(ctx context.Context) error {
		receipt, err := e.orders.CreateOrder(ctx, order, items)
		if err != nil {
			return err
		}

		order.ID = receipt.OrderID
		order.TotalAmount = receipt.TotalAmount
		order.Items = items
		for i := range order.Items {
			order.Items[i].OrderID = receipt.OrderID
			if i < len(receipt.ItemIDs) {
				order.Items[i].ID = receipt.ItemIDs[i]
			}
		}

		if e.outbox == nil || !atomic {
			return nil
		}
		return e.enqueueOrderPlaced(ctx, order)
	})
	if err != nil {
		return domain.Order{}, domain.WrapStorage("place order", err)
	}

	// Без общей транзакции заказ уже сохранён: ошибка outbox только логируется.
	if e.outbox != nil && !atomic {
		if err := e.enqueueOrderPlaced(context.WithoutCancel(ctx), order); err != nil {
			e.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue order.placed event")
		}
	}
	return order, nil
}

func (e *Engine) enqueueOrderPlaced(ctx context.Context, order domain.Order) error {
	msg, err := domain.NewOrderPlacedMessage(order)
	if err != nil {
		return err
	}
	_, err = e.outbox.Enqueue(ctx, msg)
	return err
}

// snapshotItems читает продукты, фиксирует цену и отсекает заведомо
// невыполнимые позиции. Окончательную проверку остатка делает CreateOrder.
func (e *Engine) snapshotItems(ctx context.Context, productIDs []int64, basket map[int64]int) ([]domain.OrderItem, error) {
	items := make([]domain.OrderItem, 0, len(productIDs))
	for _, productID := range productIDs {
		product, err := e.catalog.GetProduct(ctx, productID)
		if err != nil {
			return nil, domain.WrapStorage("get product", err)
		}
		qty := basket[productID]
		if qty > product.StockQuantity {
			return nil, &domain.InsufficientStockError{
				ProductID: productID,
				Requested: qty,
				Available: product.StockQuantity,
			}
		}
		items = append(items, domain.OrderItem{
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    qty,
			UnitPrice:   product.Price,
		})
	}
	return items, nil
}

// GetOrder возвращает заказ с позициями или ErrOrderNotFound.
func (e *Engine) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	order, err := e.orders.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, domain.WrapStorage("get order", err)
	}
	return order, nil
}

// ListCustomerOrders возвращает заказы клиента, новые первыми.
func (e *Engine) ListCustomerOrders(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	if _, err := e.catalog.GetCustomer(ctx, customerID); err != nil {
		return nil, domain.WrapStorage("get customer", err)
	}
	orders, err := e.orders.ListOrdersByCustomer(ctx, customerID, limit)
	if err != nil {
		return nil, domain.WrapStorage("list orders", err)
	}
	return orders, nil
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (directTx) Atomic() bool { return false }

// isAtomic сообщает, откатывает ли tx изменения хранилищ при ошибке fn.
// Transactor без метода Atomic считается настоящей транзакцией.
func isAtomic(tx domain.Transactor) bool {
	if a, ok := tx.(interface{ Atomic() bool }); ok {
		return a.Atomic()
	}
	return true
}
