package postgres

import (
	"context"
	"errors"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// Transactor открывает транзакцию PostgreSQL через trm и кладёт её в ctx.
// Репозитории Store достают её через trmpgx.DefaultCtxGetter.
type Transactor struct {
	manager *manager.Manager
}

// NewTransactor создаёт Transactor поверх пула Store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{manager: manager.Must(trmpgx.NewDefaultFactory(store.pool))}
}

// WithinTx выполняет fn в транзакции. Если ctx уже содержит транзакцию,
// fn выполняется в ней без вложенного BEGIN.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := t.manager.Do(ctx, fn)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, trm.ErrBegin):
		return domain.NewStorageError("begin transaction", err)
	case errors.Is(err, trm.ErrCommit):
		return domain.NewStorageError("commit transaction", err)
	default:
		return err
	}
}

var _ domain.Transactor = (*Transactor)(nil)
