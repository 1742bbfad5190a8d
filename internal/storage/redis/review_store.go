package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// reviewDocument: JSON-представление отзыва в списке продукта.
type reviewDocument struct {
	ID         string    `json:"id"`
	ProductID  int64     `json:"product_id"`
	CustomerID int64     `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	ReviewDate time.Time `json:"review_date"`
}

// ReviewStore хранит отзывы как JSON-документы в списке `reviews:product:<id>`.
type ReviewStore struct {
	client goredis.Cmdable
}

// NewReviewStore создаёт документное хранилище отзывов поверх Redis.
func NewReviewStore(client goredis.Cmdable) *ReviewStore {
	return &ReviewStore{client: client}
}

func (s *ReviewStore) InsertReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}

	data, err := json.Marshal(toReviewDocument(review))
	if err != nil {
		return domain.Review{}, domain.NewStorageError("marshal review", err)
	}

	if err := s.client.RPush(ctx, reviewsKey(review.ProductID), data).Err(); err != nil {
		return domain.Review{}, domain.NewStorageError("insert review", err)
	}
	return review, nil
}

func (s *ReviewStore) FindReviewsByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	values, err := s.client.LRange(ctx, reviewsKey(productID), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStorageError("find reviews", err)
	}

	reviews := make([]domain.Review, 0, len(values))
	for _, raw := range values {
		var doc reviewDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, domain.NewStorageError("decode review", err)
		}
		reviews = append(reviews, doc.toDomain())
	}
	return reviews, nil
}

func reviewsKey(productID int64) string {
	return fmt.Sprintf("reviews:product:%d", productID)
}

func toReviewDocument(r domain.Review) reviewDocument {
	return reviewDocument{
		ID:         r.ID,
		ProductID:  r.ProductID,
		CustomerID: r.CustomerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		ReviewDate: r.ReviewDate.UTC(),
	}
}

func (d reviewDocument) toDomain() domain.Review {
	return domain.Review{
		ID:         d.ID,
		ProductID:  d.ProductID,
		CustomerID: d.CustomerID,
		Rating:     d.Rating,
		Comment:    d.Comment,
		ReviewDate: d.ReviewDate,
	}
}

var _ domain.ReviewStore = (*ReviewStore)(nil)
