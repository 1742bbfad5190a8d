package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// OrderRepository: PostgreSQL-реализация OrderStore.
type OrderRepository struct {
	store *Store
	tx    *Transactor
}

// NewOrderRepository создаёт репозиторий заказов. CreateOrder выполняется
// в транзакции из ctx, а если её нет, открывает собственную.
func NewOrderRepository(store *Store, tx *Transactor) *OrderRepository {
	return &OrderRepository{store: store, tx: tx}
}

// CreateOrder вставляет заголовок, списывает остатки и вставляет позиции
// в одной транзакции. Остатки списываются в порядке product_id, чтобы
// встречные заказы не взаимоблокировались.
func (r *OrderRepository) CreateOrder(ctx context.Context, header domain.Order, items []domain.OrderItem) (domain.OrderReceipt, error) {
	if len(items) == 0 {
		return domain.OrderReceipt{}, domain.ErrEmptyBasket
	}

	requested := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return domain.OrderReceipt{}, domain.ErrInvalidQuantity
		}
		requested[item.ProductID] += item.Quantity
	}
	productIDs := make([]int64, 0, len(requested))
	for id := range requested {
		productIDs = append(productIDs, id)
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i] < productIDs[j] })

	total := domain.SumItems(items)
	receipt := domain.OrderReceipt{TotalAmount: total, ItemIDs: make([]int64, len(items))}

	err := r.tx.WithinTx(ctx, func(ctx context.Context) error {
		q := r.store.querier(ctx)

		err := q.QueryRow(ctx, `
			INSERT INTO orders (customer_id, order_date, total_amount, status)
			VALUES ($1,$2,$3::numeric,$4)
			RETURNING order_id
		`, header.CustomerID, header.OrderDate, total.StringFixed(domain.PriceScale), string(header.Status)).Scan(&receipt.OrderID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return domain.ErrCustomerNotFound
			}
			return domain.NewStorageError("insert order", err)
		}

		for _, productID := range productIDs {
			if err := decrementStock(ctx, q, productID, requested[productID]); err != nil {
				return err
			}
		}

		for i, item := range items {
			err := q.QueryRow(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity, unit_price)
				VALUES ($1,$2,$3,$4::numeric)
				RETURNING order_item_id
			`, receipt.OrderID, item.ProductID, item.Quantity, item.UnitPrice.StringFixed(domain.PriceScale)).Scan(&receipt.ItemIDs[i])
			if err != nil {
				if isForeignKeyViolation(err) {
					return domain.ErrUnknownProduct
				}
				return domain.NewStorageError("insert order item", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.OrderReceipt{}, err
	}
	return receipt, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	q := r.store.querier(ctx)
	order, err := scanOrder(q.QueryRow(ctx, `
		SELECT order_id, customer_id, order_date, total_amount::text, status
		FROM orders
		WHERE order_id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, domain.NewStorageError("select order", err)
	}

	order.Items, err = loadItems(ctx, q, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) ListOrdersByCustomer(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	query := `
		SELECT order_id, customer_id, order_date, total_amount::text, status
		FROM orders
		WHERE customer_id = $1
		ORDER BY order_date DESC, order_id DESC
	`
	args := []any{customerID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	q := r.store.querier(ctx)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("list orders", err)
	}

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, domain.NewStorageError("scan order", err)
		}
		orders = append(orders, order)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate orders", err)
	}

	// Позиции читаются после закрытия курсора: в транзакции pgx не допускает
	// двух одновременных запросов на одном соединении.
	for i := range orders {
		if orders[i].Items, err = loadItems(ctx, q, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func loadItems(ctx context.Context, q querier, orderID int64) ([]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT oi.order_item_id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price::text
		FROM order_items oi
		JOIN products p ON p.product_id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.order_item_id
	`, orderID)
	if err != nil {
		return nil, domain.NewStorageError("load order items", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			item  domain.OrderItem
			price string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &price); err != nil {
			return nil, domain.NewStorageError("scan order item", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, domain.NewStorageError("parse unit price", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate order items", err)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		order  domain.Order
		total  string
		status string
	)
	if err := row.Scan(&order.ID, &order.CustomerID, &order.OrderDate, &total, &status); err != nil {
		return domain.Order{}, err
	}

	parsed, err := decimal.NewFromString(total)
	if err != nil {
		return domain.Order{}, fmt.Errorf("parse total %q: %w", total, err)
	}
	order.TotalAmount = parsed
	order.Status = domain.OrderStatus(status)
	return order, nil
}

var _ domain.OrderStore = (*OrderRepository)(nil)
