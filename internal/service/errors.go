package service

import (
	"errors"
	"strings"
)

// Виды ошибок бизнес-уровня. Проверяются через errors.Is.
var (
	// ErrValidation - некорректный или неполный ввод (HTTP 400).
	ErrValidation = errors.New("validation error")
	// ErrConflict - нарушение уникальности username/email (HTTP 409).
	ErrConflict = errors.New("conflict")
	// ErrNotFound - искомая сущность отсутствует (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrAuth - отсутствующие/неверные учётные данные или токен (HTTP 401).
	ErrAuth = errors.New("unauthorized")
)

// Error - ошибка бизнес-уровня: вид, сообщение для клиента и детали.
type Error struct {
	Kind    error
	Message string
	Details []string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Kind.Error() + ": " + e.Message
	}

	return e.Kind.Error() + ": " + e.Message + " (" + strings.Join(e.Details, "; ") + ")"
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string, details ...string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

func validationError(msg string, details ...string) error {
	return newError(ErrValidation, msg, details...)
}

func conflictError(msg string) error { return newError(ErrConflict, msg) }

func notFoundError(msg string) error { return newError(ErrNotFound, msg) }

func authError(msg string) error { return newError(ErrAuth, msg) }
