// Package errors provides standardized error handling for the order service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeOrderComplete   ErrorCode = "ORDER_ALREADY_COMPLETE"
	ErrCodeInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrCodeAuthorization   ErrorCode = "AUTHORIZATION_FAILED"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodePersistence     ErrorCode = "PERSISTENCE_FAILED"
	ErrCodeOrderNumber     ErrorCode = "ORDER_NUMBER_CONFLICT"
	ErrCodeChannelDelivery ErrorCode = "CHANNEL_DELIVERY_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidStateError creates a non-retryable state machine error. It covers
// statuses outside the enum and transitions along undefined edges.
func NewInvalidStateError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   "Invalid order status transition",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderCompleteError signals a transition requested on a terminal order.
// This is a user-facing "order already complete" condition, not a fault.
func NewOrderCompleteError(status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderComplete,
		Message:   "Order is already complete",
		Details:   fmt.Sprintf("status: %s has no successor", status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidRequestError creates a non-retryable request parsing error.
func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthorizationError creates a non-retryable authorization error.
// The masked flag controls whether the HTTP layer presents it as a 404 so
// that non-owners learn nothing beyond what a missing order would reveal.
func NewAuthorizationError(details string, masked bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthorization,
		Message:   "Actor is not authorized for this order",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"masked": masked},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable resource lookup error.
func NewNotFoundError(resource string, id int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("%s id: %d", resource, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceError creates a retryable storage error.
func NewPersistenceError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistence,
		Message:   "Storage operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderNumberConflictError signals that order number generation exhausted
// its retries. Callers retry internally with fresh candidates before this
// ever surfaces.
func NewOrderNumberConflictError(attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderNumber,
		Message:   "Order number generation conflict",
		Details:   fmt.Sprintf("exhausted %d attempts", attempts),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelDeliveryError creates a soft error for a failed notification
// channel. It is logged, never surfaced to the transition caller.
func NewChannelDeliveryError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelDelivery,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: false,
		Metadata:  map[string]interface{}{"channel": channel},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus maps an error code to the response status the API surfaces.
// Authorization errors default to 403; masked ones are reported as 404 by
// HTTPStatusFor so existence never leaks to strangers.
var HTTPStatus = map[ErrorCode]int{
	ErrCodeInvalidState:   http.StatusBadRequest,
	ErrCodeOrderComplete:  http.StatusBadRequest,
	ErrCodeInvalidRequest: http.StatusBadRequest,
	ErrCodeAuthorization:  http.StatusForbidden,
	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodePersistence:    http.StatusInternalServerError,
	ErrCodeOrderNumber:    http.StatusInternalServerError,
}

// HTTPStatusFor resolves the response status for any error, normalizing
// unknown errors to 500.
func HTTPStatusFor(err error) int {
	var stdErr *StandardError
	if !errors.As(err, &stdErr) {
		return http.StatusInternalServerError
	}
	if stdErr.Code == ErrCodeAuthorization {
		if masked, ok := stdErr.Metadata["masked"].(bool); ok && masked {
			return http.StatusNotFound
		}
	}
	if status, ok := HTTPStatus[stdErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ==========================
// 4. Utility Functions
// ==========================

// AsStandard normalizes any error to a StandardError.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	return errors.As(err, &stdErr) && stdErr.Code == code
}
