package dto

import "net/http"

// Transport error codes, ERR_<DESCRIPTION>. The domain layer speaks its own
// taxonomy (NOT_FOUND, INSUFFICIENT_STOCK, ...); NormalizeErrorCode
// translates at the edge.
const (
	ErrCodeInternal     = "ERR_INTERNAL"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"

	// Ledger rule violations.
	ErrCodeInvalidState       = "ERR_INVALID_STATE"
	ErrCodeInsufficientStock  = "ERR_INSUFFICIENT_STOCK"
	ErrCodeConversionNotFound = "ERR_CONVERSION_NOT_FOUND"
	ErrCodeVolumeMismatch     = "ERR_VOLUME_MISMATCH"
	ErrCodeSourceExhausted    = "ERR_SOURCE_EXHAUSTED"
)

// httpStatusByCode picks the response status for each transport code.
// Ledger rule violations answer 422: the request was well-formed, the
// ledger just refuses it. A missing conversion is a lookup miss, so 404.
var httpStatusByCode = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeBadRequest:   http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock:  http.StatusUnprocessableEntity,
	ErrCodeVolumeMismatch:     http.StatusUnprocessableEntity,
	ErrCodeSourceExhausted:    http.StatusUnprocessableEntity,
	ErrCodeConversionNotFound: http.StatusNotFound,
}

// GetHTTPStatus returns the status for a transport code, defaulting to 500
// for codes it does not know.
func GetHTTPStatus(code string) int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainToTransport translates the domain error taxonomy. Every code a
// domain constructor can emit has an entry here.
var domainToTransport = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"DUPLICATE_KEY":           ErrCodeAlreadyExists,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"CONCURRENCY_CONFLICT":    ErrCodeConcurrencyConflict,
	"INVALID_STATE":           ErrCodeInvalidState,
	"INSUFFICIENT_STOCK":      ErrCodeInsufficientStock,
	"CONVERSION_NOT_FOUND":    ErrCodeConversionNotFound,
	"VOLUME_MISMATCH":         ErrCodeVolumeMismatch,
	"SOURCE_EXHAUSTED":        ErrCodeSourceExhausted,
	"AGGREGATE_UPDATE_FAILED": ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its transport form.
// Codes without a mapping pass through unchanged.
func NormalizeErrorCode(code string) string {
	if transport, ok := domainToTransport[code]; ok {
		return transport
	}
	return code
}
