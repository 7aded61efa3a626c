package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a stable machine-readable reason code. Codes are part of the wire
// protocol: every failure returned to a client carries exactly one of these.
type Code string

const (
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeNotRegistered    Code = "NOT_REGISTERED"
	CodeDuplicate        Code = "DUPLICATE_SUBMISSION"
	CodeSessionClosed    Code = "SESSION_CLOSED"
	CodePoolExhausted    Code = "POOL_EXHAUSTED"
	CodeContention       Code = "CONTENTION"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// AppError is a typed application error carrying a reason code.
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code, so sentinel-style comparisons with errors.Is
// work across wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if stderrors.As(target, &appErr) {
		return e.Code == appErr.Code
	}
	return false
}

// Retryable reports whether the caller may usefully retry the operation.
func (e *AppError) Retryable() bool {
	return e.Code == CodeContention || e.Code == CodeStoreUnavailable
}

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: err}
}

// CodeOf extracts the reason code from err, defaulting to INTERNAL_ERROR for
// untyped errors.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// AsAppError returns err as an *AppError if one is anywhere in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}
