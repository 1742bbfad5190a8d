// Package console: интерактивное меню управления маркетплейсом поверх тех же
// сервисов, что и HTTP API.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/urbanfood/internal/domain"
)

// CatalogService: операции каталога, которые использует меню.
type CatalogService interface {
	AddFarmer(ctx context.Context, farmer domain.Farmer) (domain.Farmer, error)
	AddCustomer(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (domain.Customer, error)
	AddProduct(ctx context.Context, product domain.Product) (domain.Product, error)
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

// errQuit сигнализирует о закрытом вводе.
var errQuit = errors.New("input closed")

// Session читает команды из in и печатает результаты в out.
type Session struct {
	catalog CatalogService
	orders  OrderService
	reviews ReviewService
	in      *bufio.Scanner
	out     io.Writer
	logger  *log.Entry
}

func NewSession(catalog CatalogService, orders OrderService, reviews ReviewService, in io.Reader, out io.Writer, logger *log.Entry) *Session {
	if logger == nil {
		logger = log.WithField("component", "console")
	}
	return &Session{
		catalog: catalog,
		orders:  orders,
		reviews: reviews,
		in:      bufio.NewScanner(in),
		out:     out,
		logger:  logger,
	}
}

type menuItem struct {
	title  string
	action func(ctx context.Context) error
}

// Run показывает главное меню до выбора "Exit", закрытия ввода или отмены ctx.
func (s *Session) Run(ctx context.Context) error {
	err := s.menu(ctx, "UrbanFood Management System", "Exit", []menuItem{
		{title: "Product Management", action: s.productMenu},
		{title: "Customer Management", action: s.customerMenu},
		{title: "Order Management", action: s.orderMenu},
		{title: "Review Management", action: s.reviewMenu},
	})
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

func (s *Session) productMenu(ctx context.Context) error {
	return s.menu(ctx, "Product Management", "Back to Main Menu", []menuItem{
		{title: "Add New Product", action: s.addProduct},
		{title: "View Products by Category", action: s.viewProductsByCategory},
		{title: "Register Farmer", action: s.addFarmer},
	})
}

func (s *Session) customerMenu(ctx context.Context) error {
	return s.menu(ctx, "Customer Management", "Back to Main Menu", []menuItem{
		{title: "Register Customer", action: s.addCustomer},
		{title: "View Customer", action: s.viewCustomer},
	})
}

func (s *Session) orderMenu(ctx context.Context) error {
	return s.menu(ctx, "Order Management", "Back to Main Menu", []menuItem{
		{title: "Place Order", action: s.placeOrder},
		{title: "View Order", action: s.viewOrder},
		{title: "View Customer Orders", action: s.viewCustomerOrders},
	})
}

func (s *Session) reviewMenu(ctx context.Context) error {
	return s.menu(ctx, "Review Management", "Back to Main Menu", []menuItem{
		{title: "Add Review", action: s.addReview},
		{title: "View Product Reviews", action: s.viewReviews},
		{title: "View Average Rating", action: s.viewRating},
	})
}

// menu печатает пункты, последний пункт (exitTitle) завершает цикл.
func (s *Session) menu(ctx context.Context, title, exitTitle string, items []menuItem) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.printf("\n=== %s ===\n", title)
		for i, item := range items {
			s.printf("%d. %s\n", i+1, item.title)
		}
		s.printf("%d. %s\n", len(items)+1, exitTitle)

		choice, err := s.prompt("Enter your choice")
		if err != nil {
			return err
		}

		n, convErr := strconv.Atoi(choice)
		switch {
		case convErr != nil || n < 1 || n > len(items)+1:
			s.printf("Invalid choice.\n")
		case n == len(items)+1:
			return nil
		default:
			if err := items[n-1].action(ctx); err != nil {
				if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
					return err
				}
				s.reportError(err)
			}
		}
	}
}

func (s *Session) addFarmer(ctx context.Context) error {
	s.printf("\n=== Register Farmer ===\n")
	var farmer domain.Farmer
	if err := s.readStrings(
		field{"Farm Name", &farmer.FarmName},
		field{"Contact Person", &farmer.ContactPerson},
		field{"Email", &farmer.Email},
		field{"Phone", &farmer.Phone},
		field{"Address", &farmer.Address},
	); err != nil {
		return err
	}

	stored, err := s.catalog.AddFarmer(ctx, farmer)
	if err != nil {
		return err
	}
	s.printf("Farmer registered successfully! ID: %d\n", stored.ID)
	return nil
}

func (s *Session) addProduct(ctx context.Context) error {
	s.printf("\n=== Add New Product ===\n")
	var (
		product domain.Product
		err     error
	)
	if product.FarmerID, err = s.promptID("Farmer ID"); err != nil {
		return err
	}
	if err := s.readStrings(
		field{"Product Name", &product.Name},
		field{"Category", &product.Category},
	); err != nil {
		return err
	}
	if product.Price, err = s.promptDecimal("Price"); err != nil {
		return err
	}
	if product.Description, err = s.prompt("Description"); err != nil {
		return err
	}
	if product.StockQuantity, err = s.promptInt("Stock Quantity"); err != nil {
		return err
	}

	stored, err := s.catalog.AddProduct(ctx, product)
	if err != nil {
		return err
	}
	s.printf("Product added successfully! ID: %d\n", stored.ID)
	return nil
}

func (s *Session) viewProductsByCategory(ctx context.Context) error {
	s.printf("\n=== View Products by Category ===\n")
	category, err := s.prompt("Enter category")
	if err != nil {
		return err
	}

	products, err := s.catalog.ProductsByCategory(ctx, category)
	if err != nil {
		return err
	}

	s.printf("\n=== Products in %s ===\n", category)
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tName\tPrice\tStock\tFarm")
	for _, p := range products {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, p.Price.StringFixed(domain.PriceScale), p.StockQuantity, p.FarmName)
	}
	return tw.Flush()
}

func (s *Session) addCustomer(ctx context.Context) error {
	s.printf("\n=== Register Customer ===\n")
	var customer domain.Customer
	if err := s.readStrings(
		field{"First Name", &customer.FirstName},
		field{"Last Name", &customer.LastName},
		field{"Email", &customer.Email},
		field{"Phone", &customer.Phone},
		field{"Address", &customer.Address},
	); err != nil {
		return err
	}

	stored, err := s.catalog.AddCustomer(ctx, customer)
	if err != nil {
		return err
	}
	s.printf("Customer registered successfully! ID: %d\n", stored.ID)
	return nil
}

func (s *Session) viewCustomer(ctx context.Context) error {
	id, err := s.promptID("Customer ID")
	if err != nil {
		return err
	}
	c, err := s.catalog.GetCustomer(ctx, id)
	if err != nil {
		return err
	}
	s.printf("#%d %s %s <%s> %s\n%s\n", c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.Address)
	return nil
}

// placeOrder собирает корзину строками "<product id> <quantity>" до пустой строки.
func (s *Session) placeOrder(ctx context.Context) error {
	s.printf("\n=== Place Order ===\n")
	customerID, err := s.promptID("Customer ID")
	if err != nil {
		return err
	}

	s.printf("Enter items as '<product id> <quantity>', empty line to finish.\n")
	basket := make(map[int64]int)
	for {
		line, err := s.prompt("Item")
		if err != nil {
			return err
		}
		if line == "" {
			break
		}
		productID, qty, parseErr := parseBasketLine(line)
		if parseErr != nil {
			s.printf("%v\n", parseErr)
			continue
		}
		basket[productID] += qty
	}

	order, err := s.orders.PlaceOrder(ctx, customerID, basket)
	if err != nil {
		return err
	}
	s.printf("Order placed successfully! ID: %d\n", order.ID)
	return s.printOrder(order)
}

func (s *Session) viewOrder(ctx context.Context) error {
	id, err := s.promptID("Order ID")
	if err != nil {
		return err
	}
	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	return s.printOrder(order)
}

func (s *Session) viewCustomerOrders(ctx context.Context) error {
	id, err := s.promptID("Customer ID")
	if err != nil {
		return err
	}
	orders, err := s.orders.ListCustomerOrders(ctx, id, 0)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		s.printf("No orders.\n")
		return nil
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDate\tTotal\tStatus")
	for _, o := range orders {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", o.ID, o.OrderDate.Format("2006-01-02 15:04"), o.TotalAmount.StringFixed(domain.PriceScale), o.Status)
	}
	return tw.Flush()
}

func (s *Session) printOrder(order domain.Order) error {
	s.printf("Order #%d  customer %d  %s  status %s\n", order.ID, order.CustomerID, order.OrderDate.Format("2006-01-02 15:04"), order.Status)
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Product\tName\tQty\tUnit Price\tLine Total")
	for _, item := range order.Items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice.StringFixed(domain.PriceScale), item.LineTotal().StringFixed(domain.PriceScale))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s.printf("Total: %s\n", order.TotalAmount.StringFixed(domain.PriceScale))
	return nil
}

func (s *Session) addReview(ctx context.Context) error {
	s.printf("\n=== Add Review ===\n")
	var (
		review domain.Review
		err    error
	)
	if review.ProductID, err = s.promptID("Product ID"); err != nil {
		return err
	}
	if review.CustomerID, err = s.promptID("Customer ID"); err != nil {
		return err
	}
	if review.Rating, err = s.promptInt("Rating (1-5)"); err != nil {
		return err
	}
	if review.Comment, err = s.prompt("Comment"); err != nil {
		return err
	}

	stored, err := s.reviews.AddReview(ctx, review)
	if err != nil {
		return err
	}
	s.printf("Review added successfully! ID: %s\n", stored.ID)
	return nil
}

func (s *Session) viewReviews(ctx context.Context) error {
	id, err := s.promptID("Product ID")
	if err != nil {
		return err
	}
	reviews, err := s.reviews.GetReviewsForProduct(ctx, id)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		s.printf("No reviews yet.\n")
		return nil
	}
	for _, r := range reviews {
		s.printf("[%s] %d/5 by customer %d: %s\n", r.ReviewDate.Format("2006-01-02"), r.Rating, r.CustomerID, r.Comment)
	}
	return nil
}

func (s *Session) viewRating(ctx context.Context) error {
	id, err := s.promptID("Product ID")
	if err != nil {
		return err
	}
	summary, err := s.reviews.GetAverageRating(ctx, id)
	if err != nil {
		return err
	}
	s.printf("Average rating: %s (%d reviews)\n", summary.Average.StringFixed(2), summary.Count)
	return nil
}

func (s *Session) reportError(err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		s.printf("Error: not enough stock for product %d (requested %d, available %d)\n",
			stockErr.ProductID, stockErr.Requested, stockErr.Available)
	case errors.Is(err, domain.ErrStorageFailure):
		s.logger.WithError(err).Error("console operation failed")
		s.printf("Error: storage is unavailable, try again later\n")
	default:
		s.printf("Error: %v\n", err)
	}
}

type field struct {
	label string
	dst   *string
}

func (s *Session) readStrings(fields ...field) error {
	for _, f := range fields {
		value, err := s.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = value
	}
	return nil
}

func (s *Session) prompt(label string) (string, error) {
	s.printf("%s: ", label)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errQuit
	}
	return strings.TrimSpace(s.in.Text()), nil
}

// promptInt повторяет вопрос, пока не получит целое число.
func (s *Session) promptInt(label string) (int, error) {
	for {
		raw, err := s.prompt(label)
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(raw)
		if convErr == nil {
			return n, nil
		}
		s.printf("Please enter a whole number.\n")
	}
}

func (s *Session) promptID(label string) (int64, error) {
	for {
		raw, err := s.prompt(label)
		if err != nil {
			return 0, err
		}
		id, convErr := strconv.ParseInt(raw, 10, 64)
		if convErr == nil && id > 0 {
			return id, nil
		}
		s.printf("Please enter a positive ID.\n")
	}
}

func (s *Session) promptDecimal(label string) (decimal.Decimal, error) {
	for {
		raw, err := s.prompt(label)
		if err != nil {
			return decimal.Zero, err
		}
		d, convErr := decimal.NewFromString(raw)
		if convErr == nil {
			return d, nil
		}
		s.printf("Please enter a decimal number, e.g. 3.50.\n")
	}
}

func parseBasketLine(line string) (int64, int, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return 0, 0, errors.New("expected '<product id> <quantity>'")
	}
	productID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || productID <= 0 {
		return 0, 0, fmt.Errorf("invalid product id %q", parts[0])
	}
	qty, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quantity %q", parts[1])
	}
	return productID, qty, nil
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
