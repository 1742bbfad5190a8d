package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending: заказ создан и ожидает исполнения.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusFulfilled: заказ передан покупателю.
	OrderStatusFulfilled OrderStatus = "fulfilled"
	// OrderStatusCancelled: заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	// ProductName нужен только для отображения.
	ProductName string
	Quantity    int
	// UnitPrice: цена на момент оформления, а не ссылка на текущую цену продукта.
	UnitPrice decimal.Decimal
}

// LineTotal возвращает стоимость позиции: quantity × unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order агрегирует заголовок заказа и его позиции.
type Order struct {
	ID          int64
	CustomerID  int64
	OrderDate   time.Time
	TotalAmount decimal.Decimal
	Status      OrderStatus
	Items       []OrderItem
}

// OrderReceipt: результат атомарного создания заказа в хранилище.
type OrderReceipt struct {
	OrderID     int64
	TotalAmount decimal.Decimal
	// ItemIDs идут в том же порядке, что и переданные позиции.
	ItemIDs []int64
}

// SumItems считает точную сумму позиций без округления.
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// ValidateInvariants проверяет базовые инварианты заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID <= 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrOrderStatusInvalid)
	}

	for _, item := range o.Items {
		if item.ProductID <= 0 {
			errs = append(errs, ErrProductRequired)
		}
		if item.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if item.UnitPrice.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
	}
	if !SumItems(o.Items).Equal(o.TotalAmount) {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
