package metrics

import (
	"errors"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// Значения label reason.
const (
	ReasonValidation        = "validation"
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonStorage           = "storage"
	ReasonUnknown           = "unknown"
)

// Reason сводит ошибку домена к значению label reason.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return ReasonValidation
	case errors.Is(err, domain.ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return ReasonInsufficientStock
	case errors.Is(err, domain.ErrStorageFailure):
		return ReasonStorage
	default:
		return ReasonUnknown
	}
}
