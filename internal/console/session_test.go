package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/urbanfood/internal/console"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/catalog"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/order"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/review"
	"github.com/vladislavdragonenkov/urbanfood/internal/storage/memory"
)

func runSession(t *testing.T, store *memory.CatalogStore, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	session := console.NewSession(
		catalog.NewService(store),
		order.NewEngine(store, store),
		review.NewAggregator(memory.NewReviewStore(), review.WithProductCatalog(store)),
		strings.NewReader(strings.Join(lines, "\n")+"\n"),
		&out,
		nil,
	)
	require.NoError(t, session.Run(context.Background()))
	return out.String()
}

func TestSession_ProductAndOrderFlow(t *testing.T) {
	store := memory.NewCatalogStore()

	out := runSession(t, store,
		// фермер и два продукта
		"1", "3", "Sunny Farm", "Olga", "olga@example.com", "", "",
		"1", "1", "Tomatoes", "Vegetables", "3.50", "Red", "10",
		"1", "1", "Honey", "Pantry", "abc", "10.00", "", "1",
		"2", "vegetables",
		"4",
		// покупатель
		"2", "1", "Ivan", "Petrov", "", "", "",
		"3",
		// заказ
		"3", "1", "1 2", "2 1", "",
		"4",
		"5",
	)

	assert.Contains(t, out, "Farmer registered successfully! ID: 1")
	assert.Contains(t, out, "Product added successfully! ID: 2")
	assert.Contains(t, out, "Please enter a decimal number")
	assert.Contains(t, out, "Tomatoes")
	assert.Contains(t, out, "Sunny Farm")
	assert.Contains(t, out, "Customer registered successfully! ID: 1")
	assert.Contains(t, out, "Order placed successfully! ID: 1")
	assert.Contains(t, out, "Total: 17.00")
}

func TestSession_ReportsDomainErrors(t *testing.T) {
	store := memory.NewCatalogStore()

	out := runSession(t, store,
		"1", "3", "Farm", "", "", "", "",
		"1", "1", "Honey", "Pantry", "10.00", "", "1",
		"4",
		"2", "1", "Ivan", "Petrov", "", "", "",
		"3",
		"3", "1", "1 5", "",
		"1", "1", "",
		"2", "99",
		"4",
		"4", "1", "1", "6", "too good",
		"4",
		"5",
	)

	assert.Contains(t, out, "not enough stock for product 1 (requested 5, available 1)")
	assert.Contains(t, out, "basket must contain at least one product")
	assert.Contains(t, out, "order not found")
	assert.Contains(t, out, "rating must be between 1 and 5")
}

func TestSession_Reviews(t *testing.T) {
	store := memory.NewCatalogStore()

	out := runSession(t, store,
		"1", "3", "Farm", "", "", "", "",
		"1", "1", "Honey", "Pantry", "10.00", "", "3",
		"4",
		"4",
		"1", "1", "1", "5", "great",
		"1", "1", "1", "4", "",
		"1", "1", "1", "3", "ok",
		"3", "1",
		"2", "1",
		"4",
		"5",
	)

	assert.Contains(t, out, "Average rating: 4.00 (3 reviews)")
	assert.Contains(t, out, "5/5 by customer 1: great")
}

func TestSession_InvalidChoiceAndEOF(t *testing.T) {
	out := runSession(t, memory.NewCatalogStore(), "9", "x")

	assert.Equal(t, 2, strings.Count(out, "Invalid choice."))
}

func TestSession_StopsOnCancelledContext(t *testing.T) {
	store := memory.NewCatalogStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := console.NewSession(catalog.NewService(store), order.NewEngine(store, store),
		review.NewAggregator(memory.NewReviewStore()), strings.NewReader("1\n"), &bytes.Buffer{}, nil)

	require.ErrorIs(t, session.Run(ctx), context.Canceled)
}
