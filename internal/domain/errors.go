package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindAuth       ErrorKind = "auth"
	KindForbidden  ErrorKind = "forbidden"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
)

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is the error type services hand to the HTTP layer. Anything that
// is not an *AppError is treated as an internal failure.
type AppError struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewValidationError(message string, fields ...FieldError) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Fields: fields}
}

func NewAuthError(message string) *AppError {
	return &AppError{Kind: KindAuth, Message: message}
}

// NewForbiddenError covers both "authenticated but not the owner" and
// "account deactivated".
func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

// IsKind reports whether err wraps an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

var (
	ErrUserNotFound     = NewNotFoundError("User not found")
	ErrPostNotFound     = NewNotFoundError("Post not found")
	ErrCommentNotFound  = NewNotFoundError("Comment not found")
	ErrProductNotFound  = NewNotFoundError("Product not found")
	ErrImageNotFound    = NewNotFoundError("Image not found")
	ErrCategoryNotFound = NewNotFoundError("Category not found")

	ErrInvalidCredentials = NewAuthError("Invalid credentials")
	ErrAccountDeactivated = NewForbiddenError("Account is deactivated")
)
