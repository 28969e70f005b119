package shared

// DomainError represents a domain-level rule violation. These are the only
// errors surfaced synchronously to a floor operator.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError carrying the same code, so callers can compare
// against the sentinels below with errors.Is regardless of the message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInvalidTable        = NewDomainError("INVALID_TABLE", "Table does not exist")
	ErrInvalidQuantity     = NewDomainError("INVALID_QUANTITY", "Quantity must be a positive integer")
	ErrMinQuantity         = NewDomainError("MIN_QUANTITY", "Quantity cannot go below 1, delete the line instead")
	ErrProductNotFound     = NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	ErrEmptyTable          = NewDomainError("EMPTY_TABLE", "Table has no open order")
	ErrInvalidPayment      = NewDomainError("INVALID_PAYMENT", "Amount tendered must be a non-negative number")
	ErrInsufficientPayment = NewDomainError("INSUFFICIENT_PAYMENT", "Amount tendered is less than the total")
	ErrCategoryInUse       = NewDomainError("CATEGORY_IN_USE", "Category is referenced by at least one product")
	ErrDuplicateCode       = NewDomainError("DUPLICATE_CODE", "Product code already exists")
	ErrDuplicateName       = NewDomainError("DUPLICATE_NAME", "Category name already exists for this kind")
	ErrNotLoaded           = NewDomainError("NOT_LOADED", "No snapshot has been loaded yet")
	ErrNoSession           = NewDomainError("NO_SESSION", "Sign in first")
)
