package domain

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	MinRating = 1
	MaxRating = 5

	// MaxCommentLength ограничивает размер отзыва в символах.
	MaxCommentLength = 2000
)

// Review: отзыв клиента о продукте. После создания не изменяется.
type Review struct {
	ID         string
	ProductID  int64
	CustomerID int64
	Rating     int
	Comment    string
	ReviewDate time.Time
}

// Validate проверяет отзыв перед сохранением.
func (r Review) Validate() error {
	if r.Rating < MinRating || r.Rating > MaxRating {
		return ErrInvalidRating
	}
	if r.ProductID <= 0 {
		return ErrProductRequired
	}
	if r.CustomerID <= 0 {
		return ErrCustomerRequired
	}
	if utf8.RuneCountInString(r.Comment) > MaxCommentLength {
		return ErrCommentTooLong
	}
	return nil
}

// RatingSummary: средняя оценка продукта. Count == 0 означает
// отсутствие отзывов (Average тогда равен нулю).
type RatingSummary struct {
	ProductID int64
	Average   decimal.Decimal
	Count     int
}
