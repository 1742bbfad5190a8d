package domain

import (
	"context"
	"time"
)

// CatalogStore: реляционное хранилище каталога: фермеры, клиенты, продукты и остатки.
type CatalogStore interface {
	AddFarmer(ctx context.Context, farmer Farmer) (int64, error)
	GetFarmer(ctx context.Context, id int64) (Farmer, error)
	AddCustomer(ctx context.Context, customer Customer) (int64, error)
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	AddProduct(ctx context.Context, product Product) (int64, error)
	// GetProduct возвращает продукт или ErrUnknownProduct.
	GetProduct(ctx context.Context, id int64) (Product, error)
	// GetProductsByCategory возвращает продукты категории вместе с данными фермы.
	GetProductsByCategory(ctx context.Context, category string) ([]Product, error)
	// DecrementStock списывает amount единиц или возвращает *InsufficientStockError,
	// не меняя остаток.
	DecrementStock(ctx context.Context, productID int64, amount int) error
}

// OrderStore сохраняет заказы.
type OrderStore interface {
	// CreateOrder атомарно сохраняет заголовок, позиции и списывает остатки.
	// При любой ошибке в хранилище не остаётся ни заказа, ни списаний.
	CreateOrder(ctx context.Context, header Order, items []OrderItem) (OrderReceipt, error)
	// GetOrder возвращает заказ с позициями или ErrOrderNotFound.
	GetOrder(ctx context.Context, id int64) (Order, error)
	// ListOrdersByCustomer возвращает заказы клиента, новые первыми; limit <= 0 без ограничения.
	ListOrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]Order, error)
}

// ReviewStore: документное хранилище отзывов.
type ReviewStore interface {
	// InsertReview сохраняет отзыв и возвращает его с присвоенным ID.
	InsertReview(ctx context.Context, review Review) (Review, error)
	// FindReviewsByProduct возвращает все отзывы продукта.
	FindReviewsByProduct(ctx context.Context, productID int64) ([]Review, error)
}

// CategoryCache кэширует выборки каталога по категории.
type CategoryCache interface {
	// GetCategory возвращает (nil, false, nil) при промахе.
	GetCategory(ctx context.Context, category string) ([]Product, bool, error)
	SetCategory(ctx context.Context, category string, products []Product) error
	InvalidateCategory(ctx context.Context, category string) error
}

// Transactor выполняет fn в одной транзакции хранилища. Репозитории,
// вызванные с переданным ctx, участвуют в этой транзакции.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(ctx context.Context, key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(ctx context.Context, key string) (IdempotencyRecord, error)
	MarkDone(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	MarkFailed(ctx context.Context, key string, responseBody []byte, httpStatus int) error
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}
