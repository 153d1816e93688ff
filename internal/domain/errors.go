package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderAlreadyExists возвращается хранилищем при нарушении уникальности order_id.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// ErrStoreUnavailable — хранилище не инициализировано или недоступно.
	ErrStoreUnavailable = errors.New("order store is unavailable")
	// ErrCollaboratorUnavailable: внешний сервис отклонил вызов без попытки (например, открыт circuit breaker).
	ErrCollaboratorUnavailable = errors.New("collaborator is unavailable")
)

// ErrorKind классифицирует источник ошибки операции.
// На HTTP-уровне все виды превращаются в один и тот же 500, различие нужно логам и метрикам.
type ErrorKind string

const (
	KindUnknown      ErrorKind = "unknown"
	KindStore        ErrorKind = "store"
	KindCollaborator ErrorKind = "collaborator"
)

// OpError связывает ошибку с операцией и её видом.
type OpError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// StoreError оборачивает ошибку хранилища.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: KindStore, Err: err}
}

// CollaboratorError оборачивает ошибку вызова внешнего сервиса.
func CollaboratorError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Kind: KindCollaborator, Err: err}
}

// KindOf возвращает вид ошибки; для nil возвращается пустая строка.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}

// IsAlreadyExists проверяет, является ли ошибка нарушением уникальности заказа.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrOrderAlreadyExists)
}
