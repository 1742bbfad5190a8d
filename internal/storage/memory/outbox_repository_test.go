package memory

import (
	"context"
	"testing"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

func TestOutboxRepository_EnqueueAndPull(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	first, err := repo.Enqueue(ctx, domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   "1",
		EventType:     domain.EventOrderPlaced,
		Payload:       []byte(`{"order_id":1}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id")
	}
	second, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateReview, EventType: domain.EventReviewAdded})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := repo.PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("unexpected pending order: %+v", pending)
	}

	limited, err := repo.PullPending(ctx, 1)
	if err != nil {
		t.Fatalf("pull failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected 1 message, got %d", len(limited))
	}
}

func TestOutboxRepository_MarkSentAndStats(t *testing.T) {
	repo := NewOutboxRepository()
	ctx := context.Background()

	saved, err := repo.Enqueue(ctx, domain.OutboxMessage{AggregateType: domain.AggregateOrder})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if err := repo.MarkSent(ctx, saved.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if pending := repo.AllPending(); len(pending) != 0 {
		t.Fatalf("expected empty backlog, got %d", len(pending))
	}

	if err := repo.MarkFailed(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing record")
	}
}
