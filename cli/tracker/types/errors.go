package types

import (
	"errors"
	"fmt"
)

// ErrBatchAborted пакетная запись откатилась целиком
var ErrBatchAborted = errors.New("пакетная запись отменена, изменения откатились")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("некорректное значение поля %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s с ID %s не найден", e.Entity, e.ID)
}

// StorageError ошибка хранилища. Текст наружу общий, исходная причина доступна через Unwrap для логов.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "ошибка выполнения запроса"
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
