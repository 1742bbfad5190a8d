package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return a.validate.Struct(dst)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", errMalformedBody)
	}
	return id, nil
}

func (a *api) createFarmer(w http.ResponseWriter, r *http.Request) {
	var req farmerRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	farmer, err := a.catalog.AddFarmer(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFarmerResponse(farmer))
}

func (a *api) getFarmer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	farmer, err := a.catalog.GetFarmer(r.Context(), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newFarmerResponse(farmer))
}

func (a *api) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	customer, err := a.catalog.AddCustomer(r.Context(), req.toDomain())
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerResponse(customer))
}

func (a *api) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	customer, err := a.catalog.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newCustomerResponse(customer))
}

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	product, err := req.toDomain()
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	product, err = a.catalog.AddProduct(r.Context(), product)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductResponse(product))
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	product, err := a.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductResponse(product))
}

// listProducts: GET /products?category=...
func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.catalog.ProductsByCategory(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, newProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	basket, err := req.basket()
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	order, err := a.orders.PlaceOrder(r.Context(), req.CustomerID, basket)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	order, err := a.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (a *api) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			writeError(w, r, a.logger, errors.Join(errMalformedBody, errors.New("invalid limit")))
			return
		}
	}
	orders, err := a.orders.ListCustomerOrders(r.Context(), id, limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) createReview(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	var req reviewRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	review, err := a.reviews.AddReview(r.Context(), domain.Review{
		ProductID:  productID,
		CustomerID: req.CustomerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, newReviewResponse(review))
}

func (a *api) listReviews(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	reviews, err := a.reviews.GetReviewsForProduct(r.Context(), productID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	resp := make([]reviewResponse, 0, len(reviews))
	for _, rv := range reviews {
		resp = append(resp, newReviewResponse(rv))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) getRating(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	summary, err := a.reviews.GetAverageRating(r.Context(), productID)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newRatingResponse(summary))
}
