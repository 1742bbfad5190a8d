// Package httpapi: HTTP-интерфейс маркетплейса.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
	"github.com/vladislavdragonenkov/urbanfood/internal/service/idempotency"
)

const (
	maxBodyBytes        = 1 << 20
	defaultRequestLimit = 30 * time.Second
)

// CatalogService: операции каталога, доступные через HTTP.
type CatalogService interface {
	AddFarmer(ctx context.Context, farmer domain.Farmer) (domain.Farmer, error)
	GetFarmer(ctx context.Context, id int64) (domain.Farmer, error)
	AddCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (domain.Customer, error)
	AddProduct(ctx context.Context, product domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	ProductsByCategory(ctx context.Context, category string) ([]domain.Product, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, customerID int64, basket map[int64]int) (domain.Order, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	ListCustomerOrders(ctx context.Context, customerID int64, limit int) ([]domain.Order, error)
}

type ReviewService interface {
	AddReview(ctx context.Context, review domain.Review) (domain.Review, error)
	GetAverageRating(ctx context.Context, productID int64) (domain.RatingSummary, error)
	GetReviewsForProduct(ctx context.Context, productID int64) ([]domain.Review, error)
}

// Dependencies: сервисы, которые обслуживает API. Idempotency и Limiter опциональны.
type Dependencies struct {
	Catalog     CatalogService
	Orders      OrderService
	Reviews     ReviewService
	Idempotency *idempotency.Guard
	Limiter     *RateLimiter
	Logger      *log.Entry
	// RequestTimeout ограничивает обработку одного запроса.
	RequestTimeout time.Duration
}

type api struct {
	catalog  CatalogService
	orders   OrderService
	reviews  ReviewService
	validate *validator.Validate
	logger   *log.Entry
}

// NewRouter собирает chi-роутер /api/v1.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "http-api")
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestLimit
	}

	a := &api{
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		reviews:  deps.Reviews,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Group(func(read chi.Router) {
			read.Get("/farmers/{id}", a.getFarmer)
			read.Get("/customers/{id}", a.getCustomer)
			read.Get("/customers/{id}/orders", a.listCustomerOrders)
			read.Get("/products", a.listProducts)
			read.Get("/products/{id}", a.getProduct)
			read.Get("/products/{id}/reviews", a.listReviews)
			read.Get("/products/{id}/rating", a.getRating)
			read.Get("/orders/{id}", a.getOrder)
		})

		v1.Group(func(write chi.Router) {
			if deps.Limiter != nil {
				write.Use(deps.Limiter.Middleware)
			}
			write.Post("/farmers", a.createFarmer)
			write.Post("/customers", a.createCustomer)
			write.Post("/products", a.createProduct)
			write.Post("/products/{id}/reviews", a.createReview)
			write.With(idempotencyMiddleware(deps.Idempotency, logger)).Post("/orders", a.placeOrder)
		})
	})

	return r
}
