package domain

import (
	"errors"
	"fmt"
)

// Категории ошибок. Конкретные ошибки ниже разворачиваются в одну из них,
// поэтому вызывающий код может проверять как категорию, так и причину.
var (
	// ErrNotFound: ссылка на несуществующий продукт, клиента, фермера или заказ.
	ErrNotFound = errors.New("not found")
	// ErrValidation: входные данные нарушают правила домена.
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock: на складе меньше единиц товара, чем запрошено.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStorageFailure: хранилище недоступно, отклонило запись или транзакция прервана.
	ErrStorageFailure = errors.New("storage failure")
)

var (
	ErrUnknownProduct   = newKindError(ErrNotFound, "unknown product")
	ErrCustomerNotFound = newKindError(ErrNotFound, "customer not found")
	ErrFarmerNotFound   = newKindError(ErrNotFound, "farmer not found")
	ErrOrderNotFound    = newKindError(ErrNotFound, "order not found")

	// Ошибка пустой корзины.
	ErrEmptyBasket = newKindError(ErrValidation, "basket must contain at least one product")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrInvalidQuantity = newKindError(ErrValidation, "quantity must be greater than zero")
	// Ошибка оценки вне диапазона 1..5.
	ErrInvalidRating = newKindError(ErrValidation, "rating must be between 1 and 5")

	ErrCustomerRequired    = newKindError(ErrValidation, "customer_id is required")
	ErrProductRequired     = newKindError(ErrValidation, "product_id is required")
	ErrFarmerRequired      = newKindError(ErrValidation, "farmer_id is required")
	ErrNameRequired        = newKindError(ErrValidation, "name is required")
	ErrCategoryRequired    = newKindError(ErrValidation, "category is required")
	ErrFarmNameRequired    = newKindError(ErrValidation, "farm_name is required")
	ErrPriceNegative       = newKindError(ErrValidation, "price must be non-negative")
	ErrPricePrecision      = newKindError(ErrValidation, "price must have at most two decimal places")
	ErrStockNegative       = newKindError(ErrValidation, "stock quantity must be non-negative")
	ErrItemsRequired       = newKindError(ErrValidation, "order must contain at least one item")
	ErrAmountMismatch      = newKindError(ErrValidation, "order total does not match items sum")
	ErrOrderStatusInvalid  = newKindError(ErrValidation, "order status is invalid")
	ErrCommentTooLong      = newKindError(ErrValidation, "comment is too long")
	ErrCustomerNameMissing = newKindError(ErrValidation, "first_name and last_name are required")

	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// InsufficientStockError сообщает, какой продукт не удалось списать.
// Available < 0 означает, что остаток в момент отказа неизвестен.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.Available < 0 {
		return fmt.Sprintf("insufficient stock for product %d: requested %d", e.ProductID, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StorageError оборачивает отказ хранилища. errors.Is срабатывает
// и на ErrStorageFailure, и на исходную причину (например, context.Canceled).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, ErrStorageFailure, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageFailure, e.Err} }

// NewStorageError превращает ошибку драйвера в StorageError.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

// WrapStorage пропускает уже типизированные ошибки домена как есть,
// остальные считает отказом хранилища.
func WrapStorage(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case IsDomainError(err):
		return err
	default:
		return NewStorageError(op, err)
	}
}

// IsDomainError проверяет, относится ли ошибка к одной из категорий домена.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrStorageFailure)
}
