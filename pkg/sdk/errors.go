package sdk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sumandas0/entropic-model/pkg/utils"
)

// ErrorType represents the type of error returned by the API
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeAlreadyExists ErrorType = "already_exists"
	ErrorTypeRateLimited   ErrorType = "rate_limited"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// APIError represents an error response from a resource API
type APIError struct {
	Type    ErrorType      `json:"type"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Code    int            `json:"-"` // HTTP status code
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (details: %v)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap maps the error onto the matching sentinel of pkg/utils.
func (e *APIError) Unwrap() error {
	switch e.Type {
	case ErrorTypeNotFound:
		return utils.ErrNotFound
	case ErrorTypeValidation:
		return utils.ErrValidation
	case ErrorTypeAlreadyExists:
		return utils.ErrAlreadyExists
	default:
		return utils.ErrTransport
	}
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.Code >= http.StatusInternalServerError || e.Code == http.StatusTooManyRequests
}

// IsValidation returns true if the error is a validation error
func (e *APIError) IsValidation() bool {
	return e.Type == ErrorTypeValidation
}

// IsNotFound returns true if the error is a not found error
func (e *APIError) IsNotFound() bool {
	return e.Type == ErrorTypeNotFound
}

// IsAlreadyExists returns true if the error is an already exists error
func (e *APIError) IsAlreadyExists() bool {
	return e.Type == ErrorTypeAlreadyExists
}

// IsInternal returns true if the error is an internal server error
func (e *APIError) IsInternal() bool {
	return e.Type == ErrorTypeInternal
}

// AsAPIError extracts an APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// FieldErrors returns the per-field messages a validation error carries in its details
// under the "fields" key, ready for model.SetError.
func (e *APIError) FieldErrors() map[string]string {
	raw, ok := e.Details["fields"].(map[string]any)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(raw))
	for field, msg := range raw {
		fields[field] = fmt.Sprint(msg)
	}
	return fields
}

// isTransportFailure tells the circuit breaker which errors count as failures. Client
// errors other than 429 say nothing about endpoint health.
func isTransportFailure(err error) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Retryable()
	}
	return true
}

func errorTypeFor(code string, status int) ErrorType {
	switch code {
	case utils.CodeValidation, utils.CodeInvalidInput:
		return ErrorTypeValidation
	case utils.CodeNotFound:
		return ErrorTypeNotFound
	case utils.CodeAlreadyExists:
		return ErrorTypeAlreadyExists
	case utils.CodeRateLimited:
		return ErrorTypeRateLimited
	case utils.CodeInternal:
		return ErrorTypeInternal
	}

	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorTypeValidation
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeAlreadyExists
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimited
	case http.StatusInternalServerError:
		return ErrorTypeInternal
	default:
		return ErrorTypeUnknown
	}
}
