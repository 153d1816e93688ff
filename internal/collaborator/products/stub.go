// Package products предоставляет каталог товаров. Пока это заглушка: реальный сервис каталога
// подключается отдельной реализацией domain.ProductCatalog.
package products

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

// Stub отдаёт статический каталог.
type Stub struct {
	mu       sync.RWMutex
	products []domain.Product
	err      error
	calls    int
}

// NewStub возвращает каталог с заданным набором товаров (может быть пустым).
func NewStub(products ...domain.Product) *Stub {
	return &Stub{products: append([]domain.Product(nil), products...)}
}

// SetError заставляет ListProducts возвращать err.
func (s *Stub) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// ListProducts возвращает копию каталога.
func (s *Stub) ListProducts(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]domain.Product(nil), s.products...), nil
}

// Calls возвращает число вызовов ListProducts.
func (s *Stub) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

var _ domain.ProductCatalog = (*Stub)(nil)
