package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
// Каждый метод соответствует ровно одному SQL-выражению; существование строки перед
// UPDATE/DELETE не проверяется.
type OrderRepository interface {
	// ListByStatus возвращает все заказы с указанным статусом.
	ListByStatus(ctx context.Context, status OrderStatus) ([]Order, error)
	// Create вставляет строку. При дубликате ID возвращает ErrOrderAlreadyExists.
	Create(ctx context.Context, order Order) error
	// UpdatePayload заменяет payload заказа. Отсутствие строки ошибкой не считается.
	UpdatePayload(ctx context.Context, id string, payload []byte, updatedAt time.Time) error
	// Delete удаляет заказ. Отсутствие строки ошибкой не считается.
	Delete(ctx context.Context, id string) error
}
