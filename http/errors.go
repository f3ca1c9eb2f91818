package http

import (
	"errors"
	"fmt"
	"time"
)

// ClientError represents different types of REST client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError     ErrorType = "network"
	TimeoutError     ErrorType = "timeout"
	HTTPError        ErrorType = "http"
	ValidationError  ErrorType = "validation"
	InterceptorError ErrorType = "interceptor"
	// RefreshError means the token refresh triggered by an expired-token response failed
	RefreshError ErrorType = "refresh"
	// RetryError means the single retry after a successful refresh failed
	RetryError ErrorType = "retry"
	// WaitError means the caller's context ended while waiting for a refresh
	WaitError ErrorType = "wait"
	// DecodeError means a response body could not be decoded
	DecodeError ErrorType = "decode"
)

// networkError represents network-related errors
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents timeout-related errors
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// httpError represents HTTP status-related errors
type httpError struct {
	message    string
	statusCode int
	body       []byte
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP error: %s (status: %d)", e.message, e.statusCode)
}

func (e *httpError) Type() ErrorType {
	return HTTPError
}

func (e *httpError) StatusCode() int {
	return e.statusCode
}

func (e *httpError) Body() []byte {
	return e.body
}

// validationError represents request validation errors
type validationError struct {
	message string
	field   string
}

func (e *validationError) Error() string {
	if e.field != "" {
		return fmt.Sprintf("validation error: %s (field: %s)", e.message, e.field)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

// interceptorError represents interceptor-related errors
type interceptorError struct {
	message string
	wrapped error
	stage   string
}

func (e *interceptorError) Error() string {
	return fmt.Sprintf("interceptor error: %s (stage: %s): %v", e.message, e.stage, e.wrapped)
}

func (e *interceptorError) Type() ErrorType {
	return InterceptorError
}

func (e *interceptorError) Unwrap() error {
	return e.wrapped
}

// refreshError is returned with the original expired-token response when the
// refresh failed. It wraps *refresh.RefreshError.
type refreshError struct {
	statusCode int
	wrapped    error
}

func (e *refreshError) Error() string {
	return fmt.Sprintf("refresh error: request rejected with status %d and credentials could not be refreshed: %v", e.statusCode, e.wrapped)
}

func (e *refreshError) Type() ErrorType {
	return RefreshError
}

func (e *refreshError) StatusCode() int {
	return e.statusCode
}

func (e *refreshError) Unwrap() error {
	return e.wrapped
}

// retryError is returned when the request sent with refreshed credentials
// failed. statusCode is zero when the retry never got a response.
type retryError struct {
	statusCode int
	wrapped    error
}

func (e *retryError) Error() string {
	if e.statusCode == 0 {
		return fmt.Sprintf("retry error: request failed after token refresh: %v", e.wrapped)
	}
	return fmt.Sprintf("retry error: request failed after token refresh (status: %d): %v", e.statusCode, e.wrapped)
}

func (e *retryError) Type() ErrorType {
	return RetryError
}

func (e *retryError) StatusCode() int {
	return e.statusCode
}

func (e *retryError) Unwrap() error {
	return e.wrapped
}

// waitError is returned when the caller gave up waiting for a refresh.
type waitError struct {
	statusCode int
	wrapped    error
}

func (e *waitError) Error() string {
	return fmt.Sprintf("wait error: gave up waiting for token refresh (status: %d): %v", e.statusCode, e.wrapped)
}

func (e *waitError) Type() ErrorType {
	return WaitError
}

func (e *waitError) StatusCode() int {
	return e.statusCode
}

func (e *waitError) Unwrap() error {
	return e.wrapped
}

// decodeError represents a response body that does not match the target shape
type decodeError struct {
	statusCode int
	target     string
	wrapped    error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("decode error: cannot decode response into %s (status: %d): %v", e.target, e.statusCode, e.wrapped)
}

func (e *decodeError) Type() ErrorType {
	return DecodeError
}

func (e *decodeError) StatusCode() int {
	return e.statusCode
}

func (e *decodeError) Unwrap() error {
	return e.wrapped
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{
		message: message,
		wrapped: wrapped,
	}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration) ClientError {
	return &timeoutError{
		message: message,
		timeout: timeout,
	}
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(message string, statusCode int, body []byte) ClientError {
	return &httpError{
		message:    message,
		statusCode: statusCode,
		body:       body,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string) ClientError {
	return &validationError{
		message: message,
		field:   field,
	}
}

// NewInterceptorError creates a new interceptor error
func NewInterceptorError(message, stage string, wrapped error) ClientError {
	return &interceptorError{
		message: message,
		wrapped: wrapped,
		stage:   stage,
	}
}

// NewRefreshError creates a refresh error for an expired-token response
func NewRefreshError(statusCode int, wrapped error) ClientError {
	return &refreshError{statusCode: statusCode, wrapped: wrapped}
}

// NewRetryError creates a retry error; statusCode is zero for transport failures
func NewRetryError(statusCode int, wrapped error) ClientError {
	return &retryError{statusCode: statusCode, wrapped: wrapped}
}

// NewWaitError creates a wait error for an expired-token response
func NewWaitError(statusCode int, wrapped error) ClientError {
	return &waitError{statusCode: statusCode, wrapped: wrapped}
}

// NewDecodeError creates a decode error
func NewDecodeError(statusCode int, target string, wrapped error) ClientError {
	return &decodeError{statusCode: statusCode, target: target, wrapped: wrapped}
}

// IsErrorType checks if the outermost client error in err's chain is of a specific type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// IsHTTPStatusError checks if an error is an HTTP error with a specific status code
func IsHTTPStatusError(err error, statusCode int) bool {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode() == statusCode
	}
	return false
}

// StatusCode returns the HTTP status carried by the outermost client error
// that has one. Transport failures report false.
func StatusCode(err error) (int, bool) {
	var withStatus interface {
		StatusCode() int
	}
	if errors.As(err, &withStatus) && withStatus.StatusCode() != 0 {
		return withStatus.StatusCode(), true
	}
	return 0, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
