package memory

import (
	"context"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// Transactor для in-memory хранилищ просто вызывает fn: каждый метод
// CatalogStore атомарен сам по себе, а общей транзакции между хранилищами нет.
type Transactor struct{}

// NewTransactor создаёт in-memory Transactor.
func NewTransactor() Transactor {
	return Transactor{}
}

func (Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Atomic возвращает false: изменения, сделанные fn до ошибки, не откатываются.
func (Transactor) Atomic() bool { return false }

var _ domain.Transactor = Transactor{}
