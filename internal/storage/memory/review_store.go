package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// ReviewStore: in-memory документное хранилище отзывов.
type ReviewStore struct {
	mu        sync.RWMutex
	byProduct map[int64][]domain.Review
}

// NewReviewStore создаёт пустое хранилище отзывов.
func NewReviewStore() *ReviewStore {
	return &ReviewStore{byProduct: make(map[int64][]domain.Review)}
}

// InsertReview сохраняет отзыв, присваивая ему ID, если он не задан.
func (s *ReviewStore) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return domain.Review{}, domain.NewStorageError("insert review", err)
	}
	if review.ID == "" {
		review.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.byProduct[review.ProductID] = append(s.byProduct[review.ProductID], review)
	return review, nil
}

// FindReviewsByProduct возвращает отзывы продукта в порядке добавления.
func (s *ReviewStore) FindReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("find reviews", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.Review(nil), s.byProduct[productID]...), nil
}

var _ domain.ReviewStore = (*ReviewStore)(nil)
