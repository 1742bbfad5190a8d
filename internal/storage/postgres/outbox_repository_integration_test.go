package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)
	ctx := context.Background()

	stored1, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "1",
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue msg without id: %v", err)
	}
	if stored1.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	stored2, err := repo.Enqueue(ctx, domain.OutboxMessage{
		ID:            "outbox-fixed-id",
		AggregateType: domain.AggregateReview,
		AggregateID:   "review-1",
		EventType:     domain.EventReviewAdded,
		Payload:       []byte(`{"review_id":"review-1"}`),
	})
	if err != nil {
		t.Fatalf("enqueue msg with id: %v", err)
	}
	if stored2.ID != "outbox-fixed-id" {
		t.Fatalf("expected fixed id, got %q", stored2.ID)
	}

	pending, err := repo.PullPending(ctx, 0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats before marks: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats before marks: %+v", stats)
	}

	if err := repo.MarkSent(ctx, stored1.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(ctx, stored2.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stats, err = repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats after marks: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected pending=0 after marks, got %d", stats.PendingCount)
	}
}

func TestOutboxRepository_PostgresMissingRows(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	if err := repo.MarkSent(context.Background(), "missing-outbox"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish on mark sent missing id, got %v", err)
	}
}
