// Package idempotency защищает оформление заказа от повторной отправки
// запроса с тем же Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// DefaultTTL: сколько хранится ответ по ключу.
const DefaultTTL = 24 * time.Hour

// ErrRequestInProgress: запрос с тем же ключом ещё обрабатывается.
var ErrRequestInProgress = errors.New("request with the same idempotency key is already processing")

// Response: сохранённый ответ, который нужно вернуть повторно.
type Response struct {
	HTTPStatus int
	Body       []byte
}

// Guard хранит состояние обработки запросов в IdempotencyRepository.
type Guard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

// NewGuard создаёт Guard; ttl <= 0 означает DefaultTTL.
func NewGuard(repo domain.IdempotencyRepository, ttl time.Duration, logger *log.Entry) *Guard {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "idempotency")
	}
	return &Guard{repo: repo, ttl: ttl, now: time.Now, logger: logger}
}

// HashRequest строит отпечаток запроса: метод, путь и тело.
func HashRequest(method, path string, body []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n", method, path)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Begin занимает ключ. Если по ключу уже есть завершённый ответ, он
// возвращается для повтора, и обработчик вызывать не нужно.
func (g *Guard) Begin(ctx context.Context, key, requestHash string) (*Response, error) {
	record, err := g.repo.CreateProcessing(ctx, key, requestHash, g.now().UTC().Add(g.ttl))
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, err
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		return replay(record)
	default:
		return nil, err
	}
}

func replay(record domain.IdempotencyRecord) (*Response, error) {
	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		return nil, ErrRequestInProgress
	case domain.IdempotencyStatusDone, domain.IdempotencyStatusFailed:
		status := record.HTTPStatus
		if status == 0 {
			status = http.StatusOK
		}
		return &Response{HTTPStatus: status, Body: record.ResponseBody}, nil
	default:
		return nil, fmt.Errorf("unknown idempotency status %q", record.Status)
	}
}

// Finish сохраняет ответ: 2xx как done, остальное как failed.
// Ошибка сохранения только логируется: ответ клиенту уже сформирован.
func (g *Guard) Finish(ctx context.Context, key string, httpStatus int, body []byte) {
	var err error
	if httpStatus >= 200 && httpStatus < 300 {
		err = g.repo.MarkDone(ctx, key, body, httpStatus)
	} else {
		err = g.repo.MarkFailed(ctx, key, body, httpStatus)
	}
	if err != nil {
		g.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to store idempotent response")
	}
}
