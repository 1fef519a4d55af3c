package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound     = "NOT_FOUND"
	CodeValidation   = "VALIDATION_ERROR"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
	CodeBadRequest   = "BAD_REQUEST"
	CodeTimeout      = "TIMEOUT"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRateLimited  = "RATE_LIMITED"

	CodeNoDeviceAvailable = "NO_DEVICE_AVAILABLE"
	CodeAlreadyLocked     = "ALREADY_LOCKED"
	CodeNotOwner          = "NOT_OWNER"
	CodeInvalidState      = "INVALID_STATE"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodePinFailed         = "PIN_FAILED"
	CodeAccountBusy       = "ACCOUNT_BUSY"
	CodeAlreadyDecided    = "ALREADY_DECIDED"
)

// Retry tells the caller whether repeating the same request can succeed.
type Retry string

const (
	RetryNow   Retry = "retry_now"
	RetryLater Retry = "retry_later"
	RetryAbort Retry = "abort"
)

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Retry      Retry          `json:"retry,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) Response() ErrorResponse {
	return ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Retry:   e.Retry,
		Details: e.Details,
	}
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Retry   Retry          `json:"retry,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func (e *AppError) WithRetry(r Retry) *AppError {
	e.Retry = r
	return e
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Retry:      RetryAbort,
	}
}

func NotFoundWithID(resource, id string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Retry:      RetryAbort,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Retry:      RetryAbort,
		Details:    details,
	}
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Retry:      RetryAbort,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Retry:      RetryAbort,
	}
}

func Forbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
		Retry:      RetryAbort,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Retry:      RetryLater,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Retry:      RetryLater,
		Err:        err,
	}
}

func Timeout(message string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    message,
		HTTPStatus: http.StatusGatewayTimeout,
		Retry:      RetryLater,
	}
}

func Unavailable(service string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s is temporarily unavailable", service),
		HTTPStatus: http.StatusServiceUnavailable,
		Retry:      RetryLater,
	}
}

func RateLimited(message string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    message,
		HTTPStatus: http.StatusTooManyRequests,
		Retry:      RetryLater,
	}
}

func NoDeviceAvailable() *AppError {
	return &AppError{
		Code:       CodeNoDeviceAvailable,
		Message:    "no device is available",
		HTTPStatus: http.StatusServiceUnavailable,
		Retry:      RetryLater,
	}
}

func AlreadyLocked(resource string) *AppError {
	return &AppError{
		Code:       CodeAlreadyLocked,
		Message:    fmt.Sprintf("%s is held by another session", resource),
		HTTPStatus: http.StatusConflict,
		Retry:      RetryLater,
	}
}

func NotOwner(resource string) *AppError {
	return &AppError{
		Code:       CodeNotOwner,
		Message:    fmt.Sprintf("%s lease is held by another session", resource),
		HTTPStatus: http.StatusConflict,
		Retry:      RetryAbort,
	}
}

func InvalidState(from, operation string) *AppError {
	return &AppError{
		Code:       CodeInvalidState,
		Message:    fmt.Sprintf("operation %s is not allowed in state %s", operation, from),
		HTTPStatus: http.StatusConflict,
		Retry:      RetryAbort,
		Details: map[string]any{
			"state":     from,
			"operation": operation,
		},
	}
}

func InsufficientFunds() *AppError {
	return &AppError{
		Code:       CodeInsufficientFunds,
		Message:    "insufficient funds",
		HTTPStatus: http.StatusUnprocessableEntity,
		Retry:      RetryAbort,
	}
}

func PinFailed(remaining int) *AppError {
	retry := RetryNow
	if remaining <= 0 {
		retry = RetryAbort
	}
	return &AppError{
		Code:       CodePinFailed,
		Message:    "pin verification failed",
		HTTPStatus: http.StatusUnauthorized,
		Retry:      retry,
		Details:    map[string]any{"remaining_attempts": remaining},
	}
}

func AccountBusy() *AppError {
	return &AppError{
		Code:       CodeAccountBusy,
		Message:    "account is in use by another session",
		HTTPStatus: http.StatusConflict,
		Retry:      RetryLater,
	}
}

func AlreadyDecided(status string) *AppError {
	return &AppError{
		Code:       CodeAlreadyDecided,
		Message:    "transaction has already been decided",
		HTTPStatus: http.StatusConflict,
		Retry:      RetryAbort,
		Details:    map[string]any{"status": status},
	}
}

func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}

// HasCode reports whether err is an AppError carrying code.
func HasCode(err error, code string) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr) && appErr.Code == code
}
