package shared

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...any) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrDuplicateKey        = NewDomainError("DUPLICATE_KEY", "Resource already exists")
	ErrValidation          = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrConversionNotFound  = NewDomainError("CONVERSION_NOT_FOUND", "No unit conversion defined for product and packaging unit")
	ErrVolumeMismatch      = NewDomainError("VOLUME_MISMATCH", "Return packaging unit is larger than the unit sold")
	ErrSourceExhausted     = NewDomainError("SOURCE_EXHAUSTED", "Allocation sources cannot cover the requested return")
	ErrAggregateUpdate     = NewDomainError("AGGREGATE_UPDATE_FAILED", "Product aggregate recomputation failed")
)

// CompensationError reports a failed rollback together with the error that
// triggered it. A failed rollback is never hidden behind the original failure.
type CompensationError struct {
	Original     error
	Compensation error
}

// Error implements the error interface
func (e *CompensationError) Error() string {
	return fmt.Sprintf("operation failed (%v) and compensation also failed (%v)", e.Original, e.Compensation)
}

// Unwrap returns the original error for errors.Is/As chains
func (e *CompensationError) Unwrap() error {
	return e.Original
}

// NewCompensationError creates a CompensationError
func NewCompensationError(original, compensation error) *CompensationError {
	return &CompensationError{Original: original, Compensation: compensation}
}
