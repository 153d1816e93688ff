package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

const (
	resultSuccess = "success"
	resultError   = "error"
)

// OrderMetrics собирает метрики бизнес-операций над заказами.
type OrderMetrics struct {
	operations      *prometheus.CounterVec
	eventsPublished *prometheus.CounterVec
}

// NewOrderMetrics регистрирует метрики операций в registerer (nil означает DefaultRegisterer).
func NewOrderMetrics(registerer prometheus.Registerer) *OrderMetrics {
	return &OrderMetrics{
		operations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_operations_total",
			Help: "Total number of order operations by result and error kind",
		}, []string{"operation", "result", "error_kind"}), "orders_operations_total"),
		eventsPublished: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_events_published_total",
			Help: "Total number of order events handed to the event publisher",
		}, []string{"result"}), "orders_events_published_total"),
	}
}

// RecordOperation учитывает результат операции; для ошибки пишет её domain.ErrorKind.
func (m *OrderMetrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	if err == nil {
		m.operations.WithLabelValues(operation, resultSuccess, "").Inc()
		return
	}
	m.operations.WithLabelValues(operation, resultError, string(domain.KindOf(err))).Inc()
}

// RecordEventPublished учитывает попытку публикации события.
func (m *OrderMetrics) RecordEventPublished(err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}
