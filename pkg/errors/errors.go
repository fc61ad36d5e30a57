package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicate          = "DUPLICATE"
	CodeValidation         = "VALIDATION_ERROR"
	CodeAdapterUnavailable = "ADAPTER_UNAVAILABLE"
	CodeAdapterConflict    = "ADAPTER_CONFLICT"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeInvalidRange       = "INVALID_RANGE"
	CodeCanceled           = "CANCELED"
	CodeTransportFailure   = "TRANSPORT_FAILURE"
	CodeDeadLetterExceeded = "DEAD_LETTER_EXCEEDED"
	CodeEndpointDisabled   = "ENDPOINT_DISABLED"
	CodeInternal           = "INTERNAL_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// 499 is the de-facto status for a request the client gave up on.
const statusClientClosedRequest = 499

var (
	ErrNotFound           = NewError(CodeNotFound, "resource not found", http.StatusNotFound)
	ErrDuplicate          = NewError(CodeDuplicate, "resource already exists", http.StatusConflict)
	ErrValidation         = NewError(CodeValidation, "validation failed", http.StatusBadRequest)
	ErrAdapterUnavailable = NewError(CodeAdapterUnavailable, "no adapter registered for protocol", http.StatusUnprocessableEntity)
	ErrAdapterConflict    = NewError(CodeAdapterConflict, "adapter already registered for protocol", http.StatusConflict)
	ErrUnsupportedFormat  = NewError(CodeUnsupportedFormat, "no transformer registered for format pair", http.StatusUnprocessableEntity)
	ErrInvalidRange       = NewError(CodeInvalidRange, "invalid time range", http.StatusBadRequest)
	ErrCanceled           = NewError(CodeCanceled, "operation canceled", statusClientClosedRequest)
	ErrTransportFailure   = NewError(CodeTransportFailure, "transport failure", http.StatusBadGateway)
	ErrDeadLetterExceeded = NewError(CodeDeadLetterExceeded, "retry budget exhausted, message dead-lettered", http.StatusUnprocessableEntity)
	ErrEndpointDisabled   = NewError(CodeEndpointDisabled, "endpoint is disabled", http.StatusConflict)
	ErrInternal           = NewError(CodeInternal, "internal server error", http.StatusInternalServerError)
	ErrTimeout            = NewError(CodeTimeout, "operation timed out", http.StatusGatewayTimeout)
	ErrServiceUnavailable = NewError(CodeServiceUnavailable, "service unavailable", http.StatusServiceUnavailable)
)

// ErrorResponse documents the body written by ToErrorResponse.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	ErrorCode string                 `json:"error_code"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
		msg = detailMsg
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so that errors.Is(err, ErrNotFound) holds for any
// derived copy of the sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
	}
	switch e.Code {
	case CodeTransportFailure, CodeTimeout, CodeServiceUnavailable, CodeCanceled:
		return true
	}
	return false
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}
	return e.Code == CodeDeadLetterExceeded || e.Code == CodeValidation
}

func (e *Error) clone() *Error {
	err := *e
	if e.Details != nil {
		err.Details = make(map[string]interface{}, len(e.Details))
		for k, v := range e.Details {
			err.Details[k] = v
		}
	}
	return &err
}

func (e *Error) WithCause(cause error) *Error {
	err := e.clone()
	err.Cause = cause
	return err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := e.clone()
	if err.Details == nil {
		err.Details = make(map[string]interface{})
	}
	err.Details[key] = value
	return err
}

func (e *Error) WithMessage(message string) *Error {
	return e.WithDetail("message", message)
}

func (e *Error) AsRetryable() *Error {
	err := e.clone()
	retryable := true
	err.retryable = &retryable
	return err
}

func (e *Error) AsFatal() *Error {
	err := e.clone()
	retryable := false
	err.retryable = &retryable
	return err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

func hasCode(err error, code string) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

func IsNotFound(err error) bool           { return hasCode(err, CodeNotFound) }
func IsDuplicate(err error) bool          { return hasCode(err, CodeDuplicate) }
func IsValidation(err error) bool         { return hasCode(err, CodeValidation) }
func IsAdapterUnavailable(err error) bool { return hasCode(err, CodeAdapterUnavailable) }
func IsAdapterConflict(err error) bool    { return hasCode(err, CodeAdapterConflict) }
func IsUnsupportedFormat(err error) bool  { return hasCode(err, CodeUnsupportedFormat) }
func IsInvalidRange(err error) bool       { return hasCode(err, CodeInvalidRange) }
func IsCanceled(err error) bool           { return hasCode(err, CodeCanceled) }
func IsTransportFailure(err error) bool   { return hasCode(err, CodeTransportFailure) }
func IsDeadLetterExceeded(err error) bool { return hasCode(err, CodeDeadLetterExceeded) }
func IsEndpointDisabled(err error) bool   { return hasCode(err, CodeEndpointDisabled) }

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"error":      appErr.Error(),
		"error_code": appErr.Code,
	}

	if len(appErr.Details) > 0 {
		details := make(map[string]interface{}, len(appErr.Details))
		for k, v := range appErr.Details {
			if k == "stack_trace" {
				continue
			}
			details[k] = v
		}
		response["details"] = details
	}

	return response
}
