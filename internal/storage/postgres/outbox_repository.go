package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// OutboxRepository: PostgreSQL-реализация transactional outbox.
// Enqueue, вызванный внутри Transactor.WithinTx, пишет в ту же транзакцию,
// что и заказ.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository создаёт PostgreSQL-реализацию OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

func (r *OutboxRepository) Enqueue(ctx context.Context, msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := r.store.querier(ctx).Exec(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now,
	)
	if err != nil {
		return domain.OutboxMessage{}, domain.NewStorageError("enqueue outbox message", err)
	}

	return msg, nil
}

func (r *OutboxRepository) PullPending(ctx context.Context, limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := r.store.querier(ctx).Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, domain.NewStorageError("pull pending outbox messages", err)
	}
	defer rows.Close()

	result := make([]domain.OutboxMessage, 0, limit)
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, domain.NewStorageError("scan outbox message", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate outbox rows", err)
	}

	return result, nil
}

func (r *OutboxRepository) Stats(ctx context.Context) (domain.OutboxStats, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest *time.Time
	)
	if err := r.store.querier(ctx).QueryRow(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM outbox_messages
		WHERE status = 'pending'
	`).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.OutboxStats{}, domain.NewStorageError("outbox stats", err)
	}

	if oldest != nil {
		stats.OldestPendingAt = oldest.UTC()
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "sent")
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id string) error {
	return r.markStatus(ctx, id, "failed")
}

func (r *OutboxRepository) markStatus(ctx context.Context, id, status string) error {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	tag, err := r.store.querier(ctx).Exec(ctx, `
		UPDATE outbox_messages
		SET status = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = $3
		WHERE id = $1
	`, id, status, time.Now().UTC())
	if err != nil {
		return domain.NewStorageError("mark outbox message as "+status, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutboxPublish
	}
	return nil
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)
