package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/idempotency"
)

// ErrorResponse: тело ответа с ошибкой.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Stock   *StockConflict    `json:"stock,omitempty"`
}

// StockConflict уточняет 409 при нехватке товара.
type StockConflict struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

var errMalformedBody = errors.New("malformed request body")

// toHTTPError сопоставляет категорию ошибки домена со статусом ответа.
func toHTTPError(err error) ErrorResponse {
	var (
		stockErr      *domain.InsufficientStockError
		validationErr validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErr):
		fields := make(map[string]string, len(validationErr))
		for _, fe := range validationErr {
			fields[fe.Field()] = fe.Tag()
		}
		return ErrorResponse{Code: http.StatusBadRequest, Message: "validation failed", Fields: fields}
	case errors.Is(err, errMalformedBody):
		return ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, domain.ErrValidation):
		return ErrorResponse{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return ErrorResponse{Code: http.StatusNotFound, Message: err.Error()}
	case errors.As(err, &stockErr):
		return ErrorResponse{Code: http.StatusConflict, Message: domain.ErrInsufficientStock.Error(), Stock: &StockConflict{
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
		}}
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return ErrorResponse{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.Is(err, idempotency.ErrRequestInProgress):
		return ErrorResponse{Code: http.StatusConflict, Message: err.Error()}
	case errors.Is(err, domain.ErrStorageFailure):
		return ErrorResponse{Code: http.StatusServiceUnavailable, Message: "storage is temporarily unavailable"}
	default:
		return ErrorResponse{Code: http.StatusInternalServerError, Message: "internal server error"}
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *log.Entry, err error) {
	resp := toHTTPError(err)
	if resp.Code >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, resp.Code, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
