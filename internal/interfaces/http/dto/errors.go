package dto

import "net/http"

// Error codes of the HTTP layer. Domain rule violations travel with their
// own codes (CATEGORY_IN_USE, INVALID_TABLE, ...) so clients can tell them
// apart without parsing messages.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited  = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,
	ErrCodeTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	// domain codes
	"NOT_FOUND":            http.StatusNotFound,
	"PRODUCT_NOT_FOUND":    http.StatusNotFound,
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_TABLE":        http.StatusBadRequest,
	"INVALID_QUANTITY":     http.StatusBadRequest,
	"INVALID_PAYMENT":      http.StatusBadRequest,
	"CATEGORY_IN_USE":      http.StatusConflict,
	"DUPLICATE_CODE":       http.StatusConflict,
	"DUPLICATE_NAME":       http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"EMPTY_TABLE":          http.StatusUnprocessableEntity,
	"MIN_QUANTITY":         http.StatusUnprocessableEntity,
	"INSUFFICIENT_PAYMENT": http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are treated as internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
