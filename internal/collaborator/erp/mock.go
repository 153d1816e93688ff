package erp

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

// Call запоминает один вызов Mock.CreateOrder.
type Call struct {
	OrderID string
	Payload []byte
}

// Mock заменяет ERP в тестах.
type Mock struct {
	mu        sync.Mutex
	CreateErr error
	calls     []Call
}

// NewMock возвращает mock с успешным сценарием по умолчанию.
func NewMock() *Mock {
	return &Mock{}
}

// CreateOrder запоминает вызов и возвращает настроенную ошибку.
func (m *Mock) CreateOrder(_ context.Context, orderID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{OrderID: orderID, Payload: domain.ClonePayload(payload)})
	return m.CreateErr
}

// SetCreateErr меняет ошибку под мьютексом, когда mock уже используется из хэндлеров.
func (m *Mock) SetCreateErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateErr = err
}

// Calls возвращает копию списка вызовов.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

var _ domain.OrderCreator = (*Mock)(nil)
