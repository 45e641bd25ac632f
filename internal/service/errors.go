// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound — объявление не найдено или принадлежит другому владельцу.
	ErrNotFound = errors.New("объявление не найдено")
	// ErrStorage — ошибка хранилища изображений или базы данных.
	ErrStorage = errors.New("ошибка хранилища")
	// ErrUnauthenticated — запрос без идентификатора владельца.
	ErrUnauthenticated = errors.New("требуется аутентификация")
)

// ValidationError — ошибка валидации входных данных со списком нарушений.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "ошибка валидации: " + strings.Join(e.Violations, "; ")
}

// newValidationError создаёт ValidationError из списка нарушений.
func newValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}
