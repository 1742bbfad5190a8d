package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AggregateOrder  = "order"
	AggregateReview = "review"

	EventOrderPlaced = "order.placed"
	EventReviewAdded = "review.added"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OrderPlacedEvent: payload события order.placed.
type OrderPlacedEvent struct {
	OrderID     int64             `json:"order_id"`
	CustomerID  int64             `json:"customer_id"`
	Status      OrderStatus       `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []OrderPlacedItem `json:"items"`
	PlacedAt    time.Time         `json:"placed_at"`
}

// OrderPlacedItem: позиция в событии order.placed.
type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ReviewAddedEvent: payload события review.added.
type ReviewAddedEvent struct {
	ReviewID   string    `json:"review_id"`
	ProductID  int64     `json:"product_id"`
	CustomerID int64     `json:"customer_id"`
	Rating     int       `json:"rating"`
	ReviewDate time.Time `json:"review_date"`
}

// NewOrderPlacedMessage собирает outbox-сообщение о новом заказе.
func NewOrderPlacedMessage(order Order) (OutboxMessage, error) {
	event := OrderPlacedEvent{
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Items:       make([]OrderPlacedItem, 0, len(order.Items)),
		PlacedAt:    order.OrderDate,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal order.placed event: %w", err)
	}

	return OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     EventOrderPlaced,
		Payload:       payload,
	}, nil
}

// NewReviewAddedMessage собирает outbox-сообщение о новом отзыве.
func NewReviewAddedMessage(review Review) (OutboxMessage, error) {
	payload, err := json.Marshal(ReviewAddedEvent{
		ReviewID:   review.ID,
		ProductID:  review.ProductID,
		CustomerID: review.CustomerID,
		Rating:     review.Rating,
		ReviewDate: review.ReviewDate,
	})
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal review.added event: %w", err)
	}

	return OutboxMessage{
		AggregateType: AggregateReview,
		AggregateID:   review.ID,
		EventType:     EventReviewAdded,
		Payload:       payload,
	}, nil
}
