package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/memory"
)

func TestReviewStore_InsertAndFind(t *testing.T) {
	store := memory.NewReviewStore()
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := store.InsertReview(ctx, domain.Review{ProductID: 1, CustomerID: 2, Rating: 5, ReviewDate: now})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = store.InsertReview(ctx, domain.Review{ProductID: 1, CustomerID: 2, Rating: 3, ReviewDate: now})
	require.NoError(t, err)
	_, err = store.InsertReview(ctx, domain.Review{ProductID: 2, CustomerID: 2, Rating: 1, ReviewDate: now})
	require.NoError(t, err)

	reviews, err := store.FindReviewsByProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, first.ID, reviews[0].ID)

	// Изменение результата не должно влиять на хранилище.
	reviews[0].Rating = 1
	again, err := store.FindReviewsByProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, again[0].Rating)

	none, err := store.FindReviewsByProduct(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
