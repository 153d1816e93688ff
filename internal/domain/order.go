package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// OrderStatus описывает статус строки заказа в хранилище.
type OrderStatus string

const (
	// OrderStatusActive — заказ виден в выборке GET /orders.
	OrderStatusActive OrderStatus = "ACTIVE"
)

// Order — запись о заказе. Payload хранится и отдаётся как есть, без разбора.
type Order struct {
	// ID непрозрачен, уникальность обеспечивает хранилище.
	ID string
	// Payload содержит сырые данные заказа в том виде, в каком их прислал клиент.
	Payload []byte
	// Status используется только для фильтрации активных заказов.
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product описывает позицию каталога, доступную только на чтение.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PeekEnvelope достаёт order_id и status из payload, если он является JSON-объектом.
// Поля читаются независимо: поле неожиданного типа даёт пустое значение только для себя.
// Payload не валидируется: для любого другого содержимого возвращаются пустые значения.
func PeekEnvelope(payload []byte) (string, OrderStatus) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return "", ""
	}
	return stringField(fields, "order_id"), OrderStatus(stringField(fields, "status"))
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// ClonePayload возвращает копию payload, чтобы хранилище не делило буфер с вызывающим кодом.
func ClonePayload(payload []byte) []byte {
	if payload == nil {
		return nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out
}
