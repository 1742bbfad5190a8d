package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale: число знаков после запятой, с которым хранятся цены.
const PriceScale = 2

// Farmer: поставщик, которому принадлежат продукты каталога.
type Farmer struct {
	ID            int64
	FarmName      string
	ContactPerson string
	Email         string
	Phone         string
	Address       string
	CreatedAt     time.Time
}

// Validate проверяет обязательные поля фермера.
func (f Farmer) Validate() error {
	if strings.TrimSpace(f.FarmName) == "" {
		return ErrFarmNameRequired
	}
	return nil
}

// Customer: покупатель маркетплейса.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Validate проверяет обязательные поля клиента.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return ErrCustomerNameMissing
	}
	return nil
}

// Product: позиция каталога. FarmName и ContactPerson заполняются
// только в выборках по категории (join с фермером).
type Product struct {
	ID            int64
	FarmerID      int64
	Name          string
	Category      string
	Price         decimal.Decimal
	Description   string
	StockQuantity int
	CreatedAt     time.Time

	FarmName      string
	ContactPerson string
}

// Validate проверяет продукт перед добавлением в каталог и возвращает
// все найденные нарушения.
func (p Product) Validate() error {
	var errs []error

	if p.FarmerID <= 0 {
		errs = append(errs, ErrFarmerRequired)
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if strings.TrimSpace(p.Category) == "" {
		errs = append(errs, ErrCategoryRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if !p.Price.Equal(p.Price.Round(PriceScale)) {
		errs = append(errs, ErrPricePrecision)
	}
	if p.StockQuantity < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errors.Join(errs...)
}

// NormalizeCategory приводит категорию к виду, в котором её сравнивают хранилища.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
