package domain

import (
	"context"
	"time"
)

// OrderCreator описывает внешний сервис управления заказами (ERP), вызывается при создании заказа.
// Ответ сервиса не разбирается: ошибкой считается только неудавшийся вызов.
type OrderCreator interface {
	CreateOrder(ctx context.Context, orderID string, payload []byte) error
}

// ProductCatalog описывает внешний сервис каталога товаров.
type ProductCatalog interface {
	ListProducts(ctx context.Context) ([]Product, error)
}

// EventPublisher публикует события заказов наружу (Kafka, RabbitMQ).
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// OrderEventType задаёт тип события жизненного цикла заказа.
type OrderEventType string

const (
	OrderEventCreated OrderEventType = "order.created"
	OrderEventUpdated OrderEventType = "order.updated"
	OrderEventDeleted OrderEventType = "order.deleted"
)

// OrderEvent сообщает о выполненной операции над заказом. Payload в событие не попадает.
type OrderEvent struct {
	Type       OrderEventType `json:"event_type"`
	OrderID    string         `json:"order_id"`
	Status     OrderStatus    `json:"status,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewOrderEvent создаёт событие с текущим временем в UTC.
func NewOrderEvent(eventType OrderEventType, orderID string, status OrderStatus) OrderEvent {
	return OrderEvent{
		Type:       eventType,
		OrderID:    orderID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
	}
}
