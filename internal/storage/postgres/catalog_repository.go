package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// CatalogRepository: PostgreSQL-реализация CatalogStore.
type CatalogRepository struct {
	store *Store
}

// NewCatalogRepository создаёт репозиторий каталога поверх Store.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{store: store}
}

func (r *CatalogRepository) AddFarmer(ctx context.Context, farmer domain.Farmer) (int64, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var id int64
	err := r.store.querier(ctx).QueryRow(ctx, `
		INSERT INTO farmers (farm_name, contact_person, email, phone, address)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING farmer_id
	`, farmer.FarmName, farmer.ContactPerson, farmer.Email, farmer.Phone, farmer.Address).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("insert farmer", err)
	}
	return id, nil
}

func (r *CatalogRepository) GetFarmer(ctx context.Context, id int64) (domain.Farmer, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var f domain.Farmer
	err := r.store.querier(ctx).QueryRow(ctx, `
		SELECT farmer_id, farm_name, contact_person, email, phone, address, created_at
		FROM farmers
		WHERE farmer_id = $1
	`, id).Scan(&f.ID, &f.FarmName, &f.ContactPerson, &f.Email, &f.Phone, &f.Address, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Farmer{}, domain.ErrFarmerNotFound
		}
		return domain.Farmer{}, domain.NewStorageError("select farmer", err)
	}
	return f, nil
}

func (r *CatalogRepository) AddCustomer(ctx context.Context, customer domain.Customer) (int64, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var id int64
	err := r.store.querier(ctx).QueryRow(ctx, `
		INSERT INTO customers (first_name, last_name, email, phone, address)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING customer_id
	`, customer.FirstName, customer.LastName, customer.Email, customer.Phone, customer.Address).Scan(&id)
	if err != nil {
		return 0, domain.NewStorageError("insert customer", err)
	}
	return id, nil
}

func (r *CatalogRepository) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var c domain.Customer
	err := r.store.querier(ctx).QueryRow(ctx, `
		SELECT customer_id, first_name, last_name, email, phone, address, created_at
		FROM customers
		WHERE customer_id = $1
	`, id).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.Address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, domain.ErrCustomerNotFound
		}
		return domain.Customer{}, domain.NewStorageError("select customer", err)
	}
	return c, nil
}

func (r *CatalogRepository) AddProduct(ctx context.Context, product domain.Product) (int64, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	var id int64
	err := r.store.querier(ctx).QueryRow(ctx, `
		INSERT INTO products (farmer_id, name, category, price, description, stock_quantity)
		VALUES ($1,$2,$3,$4::numeric,$5,$6)
		RETURNING product_id
	`,
		product.FarmerID, product.Name, product.Category,
		product.Price.StringFixed(domain.PriceScale), product.Description, product.StockQuantity,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrFarmerNotFound
		}
		return 0, domain.NewStorageError("insert product", err)
	}
	return id, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	row := r.store.querier(ctx).QueryRow(ctx, `
		SELECT p.product_id, p.farmer_id, p.name, p.category, p.price::text, p.description,
		       p.stock_quantity, p.created_at, f.farm_name, f.contact_person
		FROM products p
		JOIN farmers f ON f.farmer_id = p.farmer_id
		WHERE p.product_id = $1
	`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrUnknownProduct
		}
		return domain.Product{}, domain.NewStorageError("select product", err)
	}
	return product, nil
}

func (r *CatalogRepository) GetProductsByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	rows, err := r.store.querier(ctx).Query(ctx, `
		SELECT p.product_id, p.farmer_id, p.name, p.category, p.price::text, p.description,
		       p.stock_quantity, p.created_at, f.farm_name, f.contact_person
		FROM products p
		JOIN farmers f ON f.farmer_id = p.farmer_id
		WHERE lower(btrim(p.category)) = $1
		ORDER BY p.name, p.product_id
	`, domain.NormalizeCategory(category))
	if err != nil {
		return nil, domain.NewStorageError("select products by category", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan product", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("iterate products", err)
	}
	return products, nil
}

// DecrementStock списывает остаток одним условным UPDATE, поэтому
// параллельные списания не могут увести остаток в минус.
func (r *CatalogRepository) DecrementStock(ctx context.Context, productID int64, amount int) error {
	if amount <= 0 {
		return domain.ErrInvalidQuantity
	}

	ctx, cancel := withOpTimeout(ctx)
	defer cancel()

	return decrementStock(ctx, r.store.querier(ctx), productID, amount)
}

func decrementStock(ctx context.Context, q querier, productID int64, amount int) error {
	var remaining int
	err := q.QueryRow(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity - $2
		WHERE product_id = $1 AND stock_quantity >= $2
		RETURNING stock_quantity
	`, productID, amount).Scan(&remaining)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.NewStorageError("decrement stock", err)
	}

	var available int
	err = q.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE product_id = $1`, productID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUnknownProduct
		}
		return domain.NewStorageError("read stock", err)
	}
	return &domain.InsufficientStockError{ProductID: productID, Requested: amount, Available: available}
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.Category, &price, &p.Description,
		&p.StockQuantity, &p.CreatedAt, &p.FarmName, &p.ContactPerson,
	); err != nil {
		return domain.Product{}, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = parsed
	return p, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

var _ domain.CatalogStore = (*CatalogRepository)(nil)
