package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

// orderRepositoryInMemory хранит заказы в map под RWMutex.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// ListByStatus возвращает заказы со статусом status, отсортированные по времени создания.
func (r *orderRepositoryInMemory) ListByStatus(_ context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.Status != status {
			continue
		}
		order.Payload = domain.ClonePayload(order.Payload)
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Create сохраняет новый заказ, если ID ещё не занят (аналог PRIMARY KEY).
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	order.Payload = domain.ClonePayload(order.Payload)
	r.items[order.ID] = order
	return nil
}

// UpdatePayload заменяет payload; для несуществующего ID ничего не делает.
func (r *orderRepositoryInMemory) UpdatePayload(_ context.Context, id string, payload []byte, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return nil
	}
	order.Payload = domain.ClonePayload(payload)
	order.UpdatedAt = updatedAt
	r.items[id] = order
	return nil
}

// Delete удаляет заказ; для несуществующего ID ничего не делает.
func (r *orderRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
