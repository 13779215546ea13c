package errors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeForbidden              = "FORBIDDEN"
	CodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	CodeInvalidToken           = "INVALID_TOKEN"
	CodeBadRequest             = "BAD_REQUEST"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInactiveDevice         = "INACTIVE_DEVICE"
	CodeIncorrectLogin         = "INCORRECT_LOGIN"
	CodeDisallowedLogin        = "DISALLOWED_LOGIN"
	CodeServer                 = "SERVER_ERROR"
)

var (
	ErrForbidden              = NewAppError(CodeForbidden, "you are not allowed to perform this action", nil)
	ErrAuthenticationRequired = NewAppError(CodeAuthenticationRequired, "authentication required", nil)
	ErrInvalidToken           = NewAppError(CodeInvalidToken, "invalid or expired token", nil)
	ErrIncorrectLogin         = NewAppError(CodeIncorrectLogin, "incorrect email or password", nil)
	ErrDisallowedLogin        = NewAppError(CodeDisallowedLogin, "user account is not active", nil)
	ErrServer                 = NewAppError(CodeServer, "internal server error", nil)
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy carrying a caller-facing message. The copy still
// matches the receiver under errors.Is.
func (e *AppError) WithDetail(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Err:     e,
	}
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(err error) *AppError {
	return NewAppError(CodeValidation, "Invalid input", err)
}

func NewBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, nil)
}

// CodeOf returns the code of the outermost AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

var statusByCode = map[string]int{
	CodeNotFound:               http.StatusNotFound,
	CodeAlreadyExists:          http.StatusConflict,
	CodeForbidden:              http.StatusForbidden,
	CodeInactiveDevice:         http.StatusForbidden,
	CodeDisallowedLogin:        http.StatusForbidden,
	CodeAuthenticationRequired: http.StatusUnauthorized,
	CodeInvalidToken:           http.StatusUnauthorized,
	CodeIncorrectLogin:         http.StatusUnauthorized,
	CodeBadRequest:             http.StatusBadRequest,
	CodeValidation:             http.StatusBadRequest,
	CodeServer:                 http.StatusInternalServerError,
}

// HTTPStatus maps err to a response status. Errors without a known code are
// internal server errors.
func HTTPStatus(err error) int {
	if status, ok := statusByCode[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message of err. Errors without a code
// get the generic server error message.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrServer.Message
}
