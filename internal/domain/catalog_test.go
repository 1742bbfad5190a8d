package domain_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

func validProduct() domain.Product {
	return domain.Product{
		FarmerID:      1,
		Name:          "Heirloom tomatoes",
		Category:      "Vegetables",
		Price:         decimal.RequireFromString("3.50"),
		StockQuantity: 12,
	}
}

func TestProductValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *domain.Product)
		want error
	}{
		{name: "ok", mut: func(*domain.Product) {}},
		{name: "no farmer", mut: func(p *domain.Product) { p.FarmerID = 0 }, want: domain.ErrFarmerRequired},
		{name: "no name", mut: func(p *domain.Product) { p.Name = "  " }, want: domain.ErrNameRequired},
		{name: "no category", mut: func(p *domain.Product) { p.Category = "" }, want: domain.ErrCategoryRequired},
		{name: "negative price", mut: func(p *domain.Product) { p.Price = decimal.RequireFromString("-0.01") }, want: domain.ErrPriceNegative},
		{name: "price precision", mut: func(p *domain.Product) { p.Price = decimal.RequireFromString("1.005") }, want: domain.ErrPricePrecision},
		{name: "negative stock", mut: func(p *domain.Product) { p.StockQuantity = -1 }, want: domain.ErrStockNegative},
		{name: "zero price allowed", mut: func(p *domain.Product) { p.Price = decimal.Zero }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validProduct()
			tc.mut(&p)

			err := p.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation category, got %v", err)
			}
		})
	}
}

func TestFarmerAndCustomerValidate(t *testing.T) {
	if err := (domain.Farmer{FarmName: "Green Acres"}).Validate(); err != nil {
		t.Fatalf("unexpected farmer error: %v", err)
	}
	if err := (domain.Farmer{}).Validate(); !errors.Is(err, domain.ErrFarmNameRequired) {
		t.Fatalf("expected ErrFarmNameRequired, got %v", err)
	}
	if err := (domain.Customer{FirstName: "Ada", LastName: "Lovelace"}).Validate(); err != nil {
		t.Fatalf("unexpected customer error: %v", err)
	}
	if err := (domain.Customer{FirstName: "Ada"}).Validate(); !errors.Is(err, domain.ErrCustomerNameMissing) {
		t.Fatalf("expected ErrCustomerNameMissing, got %v", err)
	}
}

func TestNormalizeCategory(t *testing.T) {
	if got := domain.NormalizeCategory("  Dairy "); got != "dairy" {
		t.Fatalf("unexpected category: %q", got)
	}
}
