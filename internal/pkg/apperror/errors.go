package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode — стабильный машинный код причины, по которому UI выбирает сообщение.
type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest         ErrorCode = "BAD_REQUEST"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodeAlreadyApplied     ErrorCode = "ALREADY_APPLIED"
	ErrCodeDisputeAlreadyOpen ErrorCode = "DISPUTE_ALREADY_OPEN"
	ErrCodeInvalidLedgerState ErrorCode = "INVALID_LEDGER_STATE"
	ErrCodeConflict           ErrorCode = "CONCURRENCY_CONFLICT"
	ErrCodeGatewayTimeout     ErrorCode = "GATEWAY_TIMEOUT"
	ErrCodeGateway            ErrorCode = "GATEWAY_ERROR"
	ErrCodePersistence        ErrorCode = "PERSISTENCE_FAILURE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// Retryable сообщает, можно ли повторить ту же операцию целиком.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case ErrCodeGatewayTimeout, ErrCodeGateway, ErrCodePersistence, ErrCodeConflict:
		return true
	}
	return false
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition, ErrCodeAlreadyApplied, ErrCodeDisputeAlreadyOpen,
		ErrCodeInvalidLedgerState, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeGatewayTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeGateway:
		return http.StatusBadGateway
	case ErrCodePersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или INTERNAL_ERROR для неизвестных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is проверяет, что в цепочке есть AppError с указанным кодом.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return Is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

var (
	ErrOrderNotFound   = New(ErrCodeNotFound, "заказ не найден")
	ErrDisputeNotFound = New(ErrCodeNotFound, "спор не найден")
	ErrPaymentNotFound = New(ErrCodeNotFound, "платёж по заказу не найден")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden       = New(ErrCodeForbidden, "недостаточно прав")
)
