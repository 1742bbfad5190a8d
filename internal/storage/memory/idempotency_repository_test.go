package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/memory"
)

func TestIdempotencyRepository_CreateAndGet(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ctx := context.Background()
	ttl := time.Now().UTC().Add(2 * time.Hour).Round(time.Second)

	created, err := repo.CreateProcessing(ctx, "order-key-1", "hash-1", ttl)
	if err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if created.Status != domain.IdempotencyStatusProcessing {
		t.Fatalf("expected status %s, got %s", domain.IdempotencyStatusProcessing, created.Status)
	}

	got, err := repo.Get(ctx, "order-key-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RequestHash != "hash-1" || !got.TTLAt.Equal(ttl) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestIdempotencyRepository_ConflictAndHashMismatch(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ctx := context.Background()
	ttl := time.Now().UTC().Add(time.Hour)

	if _, err := repo.CreateProcessing(ctx, "order-key-2", "hash-a", ttl); err != nil {
		t.Fatalf("CreateProcessing failed: %v", err)
	}
	if _, err := repo.CreateProcessing(ctx, "order-key-2", "hash-a", ttl); !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		t.Fatalf("expected ErrIdempotencyKeyAlreadyExists, got %v", err)
	}
	if _, err := repo.CreateProcessing(ctx, "order-key-2", "hash-b", ttl); !errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		t.Fatalf("expected ErrIdempotencyHashMismatch, got %v", err)
	}
	if _, err := repo.CreateProcessing(ctx, " ", "hash", ttl); !errors.Is(err, domain.ErrIdempotencyKeyRequired) {
		t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
	}
}

func TestIdempotencyRepository_MarkDoneAndDeleteExpired(t *testing.T) {
	repo := memory.NewIdempotencyRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, key := range []string{"expired-old", "expired-new"} {
		if _, err := repo.CreateProcessing(ctx, key, "hash", now.Add(-time.Duration(2-i)*time.Minute)); err != nil {
			t.Fatalf("CreateProcessing %s failed: %v", key, err)
		}
	}
	if _, err := repo.CreateProcessing(ctx, "active", "hash-active", now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateProcessing active failed: %v", err)
	}

	if err := repo.MarkDone(ctx, "active", []byte(`{"order_id":1}`), 201); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}
	active, err := repo.Get(ctx, "active")
	if err != nil {
		t.Fatalf("Get active failed: %v", err)
	}
	if active.Status != domain.IdempotencyStatusDone || active.HTTPStatus != 201 {
		t.Fatalf("unexpected record: %+v", active)
	}

	removed, err := repo.DeleteExpired(ctx, now, 1)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected removed=1, got %d", removed)
	}
	if _, err := repo.Get(ctx, "expired-old"); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected oldest key to be deleted first, got %v", err)
	}
	if _, err := repo.Get(ctx, "expired-new"); err != nil {
		t.Fatalf("expected newer expired key to survive the limit, got %v", err)
	}

	if err := repo.MarkFailed(ctx, "missing", nil, 500); !errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
		t.Fatalf("expected ErrIdempotencyKeyNotFound, got %v", err)
	}
}
