// Package review сохраняет отзывы и считает среднюю оценку продукта.
package review

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/metrics"
)

// ratingScale: знаков после запятой в средней оценке.
const ratingScale = 2

// ProductCatalog нужен для проверки существования продукта.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

// Aggregator работает поверх документного хранилища отзывов.
type Aggregator struct {
	store   domain.ReviewStore
	catalog ProductCatalog
	outbox  domain.OutboxRepository
	metrics *metrics.MarketplaceMetrics
	logger  *log.Entry
	now     func() time.Time
}

// Option настраивает Aggregator.
type Option func(*Aggregator)

// WithProductCatalog включает проверку продукта перед сохранением отзыва.
func WithProductCatalog(catalog ProductCatalog) Option {
	return func(a *Aggregator) { a.catalog = catalog }
}

// WithOutbox публикует review.added. Ошибка outbox не отменяет сохранённый отзыв.
func WithOutbox(outbox domain.OutboxRepository) Option {
	return func(a *Aggregator) { a.outbox = outbox }
}

// WithMetrics подключает метрики отзывов.
func WithMetrics(m *metrics.MarketplaceMetrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger задаёт логгер; nil оставляет логгер по умолчанию.
func WithLogger(logger *log.Entry) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock подменяет источник времени для ReviewDate.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator создаёт Aggregator над хранилищем отзывов.
func NewAggregator(store domain.ReviewStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:  store,
		logger: log.WithField("component", "review-aggregator"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddReview проверяет оценку, проставляет дату и сохраняет отзыв.
// Несколько отзывов одного клиента на продукт допустимы.
func (a *Aggregator) AddReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	review.ID = ""
	review.ReviewDate = a.now().UTC()

	if err := review.Validate(); err != nil {
		a.metrics.RecordReviewRejected(metrics.Reason(err))
		return domain.Review{}, err
	}

	if a.catalog != nil {
		if _, err := a.catalog.GetProduct(ctx, review.ProductID); err != nil {
			err = domain.WrapStorage("get product", err)
			a.metrics.RecordReviewRejected(metrics.Reason(err))
			return domain.Review{}, err
		}
	}

	stored, err := a.store.InsertReview(ctx, review)
	if err != nil {
		err = domain.WrapStorage("insert review", err)
		a.metrics.RecordReviewRejected(metrics.Reason(err))
		return domain.Review{}, err
	}

	a.metrics.RecordReviewAdded()
	a.logger.WithFields(log.Fields{
		"review_id":  stored.ID,
		"product_id": stored.ProductID,
		"rating":     stored.Rating,
	}).Info("review added")

	a.enqueueReviewAdded(ctx, stored)
	return stored, nil
}

func (a *Aggregator) enqueueReviewAdded(ctx context.Context, review domain.Review) {
	if a.outbox == nil {
		return
	}
	msg, err := domain.NewReviewAddedMessage(review)
	if err == nil {
		_, err = a.outbox.Enqueue(ctx, msg)
	}
	if err != nil {
		a.logger.WithError(err).WithField("review_id", review.ID).Warn("failed to enqueue review.added event")
	}
}

// GetAverageRating считает среднюю оценку с округлением до двух знаков.
// Без отзывов Average и Count равны нулю.
func (a *Aggregator) GetAverageRating(ctx context.Context, productID int64) (domain.RatingSummary, error) {
	a.metrics.RecordRatingQuery()

	reviews, err := a.store.FindReviewsByProduct(ctx, productID)
	if err != nil {
		return domain.RatingSummary{}, domain.WrapStorage("find reviews", err)
	}

	summary := domain.RatingSummary{ProductID: productID, Average: decimal.Zero, Count: len(reviews)}
	if len(reviews) == 0 {
		return summary, nil
	}

	var sum int64
	for _, r := range reviews {
		sum += int64(r.Rating)
	}
	summary.Average = decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(int64(len(reviews))), ratingScale)
	return summary, nil
}

// GetReviewsForProduct возвращает отзывы продукта, новые первыми.
func (a *Aggregator) GetReviewsForProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	reviews, err := a.store.FindReviewsByProduct(ctx, productID)
	if err != nil {
		return nil, domain.WrapStorage("find reviews", err)
	}
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].ReviewDate.After(reviews[j].ReviewDate)
	})
	return reviews, nil
}
