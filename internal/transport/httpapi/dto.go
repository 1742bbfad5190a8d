package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

type farmerRequest struct {
	FarmName      string `json:"farm_name" validate:"required,max=200"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
}

func (r farmerRequest) toDomain() domain.Farmer {
	return domain.Farmer{
		FarmName:      r.FarmName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Address:       r.Address,
	}
}

type farmerResponse struct {
	ID            int64     `json:"id"`
	FarmName      string    `json:"farm_name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newFarmerResponse(f domain.Farmer) farmerResponse {
	return farmerResponse{
		ID:            f.ID,
		FarmName:      f.FarmName,
		ContactPerson: f.ContactPerson,
		Email:         f.Email,
		Phone:         f.Phone,
		Address:       f.Address,
		CreatedAt:     f.CreatedAt,
	}
}

type customerRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"max=50"`
	Address   string `json:"address" validate:"max=500"`
}

func (r customerRequest) toDomain() domain.Customer {
	return domain.Customer{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
	}
}

type customerResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newCustomerResponse(c domain.Customer) customerResponse {
	return customerResponse{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt,
	}
}

// productRequest принимает цену строкой, чтобы не терять точность во float.
type productRequest struct {
	FarmerID      int64  `json:"farmer_id" validate:"required,gt=0"`
	Name          string `json:"name" validate:"required,max=200"`
	Category      string `json:"category" validate:"required,max=100"`
	Price         string `json:"price" validate:"required,numeric"`
	Description   string `json:"description" validate:"max=2000"`
	StockQuantity int    `json:"stock_quantity" validate:"gte=0"`
}

func (r productRequest) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return domain.Product{}, errMalformedBody
	}
	return domain.Product{
		FarmerID:      r.FarmerID,
		Name:          r.Name,
		Category:      r.Category,
		Price:         price,
		Description:   r.Description,
		StockQuantity: r.StockQuantity,
	}, nil
}

type productResponse struct {
	ID            int64     `json:"id"`
	FarmerID      int64     `json:"farmer_id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Price         string    `json:"price"`
	Description   string    `json:"description,omitempty"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
	FarmName      string    `json:"farm_name,omitempty"`
	ContactPerson string    `json:"contact_person,omitempty"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		FarmerID:      p.FarmerID,
		Name:          p.Name,
		Category:      p.Category,
		Price:         p.Price.StringFixed(domain.PriceScale),
		Description:   p.Description,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		FarmName:      p.FarmName,
		ContactPerson: p.ContactPerson,
	}
}

type orderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

type placeOrderRequest struct {
	CustomerID int64              `json:"customer_id" validate:"required,gt=0"`
	Items      []orderLineRequest `json:"items" validate:"dive"`
}

// basket сворачивает позиции в корзину; повторы одного продукта суммируются.
func (r placeOrderRequest) basket() (map[int64]int, error) {
	basket := make(map[int64]int, len(r.Items))
	for _, line := range r.Items {
		if line.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
		basket[line.ProductID] += line.Quantity
	}
	return basket, nil
}

type orderItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

type orderResponse struct {
	ID          int64               `json:"id"`
	CustomerID  int64               `json:"customer_id"`
	OrderDate   time.Time           `json:"order_date"`
	TotalAmount string              `json:"total_amount"`
	Status      domain.OrderStatus  `json:"status"`
	Items       []orderItemResponse `json:"items"`
}

func newOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		OrderDate:   o.OrderDate,
		TotalAmount: o.TotalAmount.StringFixed(domain.PriceScale),
		Status:      o.Status,
		Items:       make([]orderItemResponse, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(domain.PriceScale),
			LineTotal:   item.LineTotal().StringFixed(domain.PriceScale),
		})
	}
	return resp
}

type reviewRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

type reviewResponse struct {
	ID         string    `json:"id"`
	ProductID  int64     `json:"product_id"`
	CustomerID int64     `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	ReviewDate time.Time `json:"review_date"`
}

func newReviewResponse(r domain.Review) reviewResponse {
	return reviewResponse{
		ID:         r.ID,
		ProductID:  r.ProductID,
		CustomerID: r.CustomerID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		ReviewDate: r.ReviewDate,
	}
}

type ratingResponse struct {
	ProductID int64  `json:"product_id"`
	Average   string `json:"average"`
	Count     int    `json:"count"`
}

func newRatingResponse(s domain.RatingSummary) ratingResponse {
	return ratingResponse{
		ProductID: s.ProductID,
		Average:   s.Average.StringFixed(2),
		Count:     s.Count,
	}
}
