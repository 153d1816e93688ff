// Package orders содержит сценарии работы с заказами: выборку активных, создание
// с пересылкой в ERP, замену payload, удаление и выдачу каталога товаров.
package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
	"github.com/vladislavdragonenkov/orderapi/internal/metrics"
)

// Имена операций для логов, метрик и domain.OpError.
const (
	OpListActive   = "list_active"
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpListProducts = "list_products"
)

// CreateInput содержит данные для создания заказа.
type CreateInput struct {
	// OrderID берётся из заголовка запроса; если пуст, берётся из payload или генерируется.
	OrderID string
	Payload []byte
}

// Option настраивает Service.
type Option func(*Service)

// WithEvents подключает публикацию событий после успешных изменений.
func WithEvents(publisher domain.EventPublisher) Option {
	return func(s *Service) { s.events = publisher }
}

// WithMetrics подключает метрики операций.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (тесты).
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service не хранит состояния между запросами: всё состояние живёт в репозитории.
type Service struct {
	repo    domain.OrderRepository
	erp     domain.OrderCreator
	catalog domain.ProductCatalog
	events  domain.EventPublisher
	metrics *metrics.OrderMetrics
	logger  *log.Entry
	now     func() time.Time
}

// NewService собирает сервис. erp и catalog могут быть nil: тогда вызов ERP пропускается,
// а каталог считается пустым.
func NewService(
	repo domain.OrderRepository,
	erp domain.OrderCreator,
	catalog domain.ProductCatalog,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	s := &Service{
		repo:    repo,
		erp:     erp,
		catalog: catalog,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActive возвращает все заказы в статусе ACTIVE. При ошибке хранилища частичных данных нет.
func (s *Service) ListActive(ctx context.Context) ([]domain.Order, error) {
	orders, err := s.repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		return nil, s.fail(OpListActive, "", domain.StoreError(OpListActive, err))
	}

	for _, order := range orders {
		s.logger.WithField("order_id", order.ID).Debug("active order")
	}
	s.metrics.RecordOperation(OpListActive, nil)
	return orders, nil
}

// Create пересылает payload в ERP и затем вставляет строку. Если ERP недоступна,
// в хранилище ничего не пишется.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Order, error) {
	id, status := resolveIdentity(in)
	now := s.now()
	order := domain.Order{
		ID:        id,
		Payload:   domain.ClonePayload(in.Payload),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.erp != nil {
		if err := s.erp.CreateOrder(ctx, order.ID, order.Payload); err != nil {
			return domain.Order{}, s.fail(OpCreate, order.ID, domain.CollaboratorError(OpCreate, err))
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return domain.Order{}, s.fail(OpCreate, order.ID, domain.StoreError(OpCreate, err))
	}

	s.metrics.RecordOperation(OpCreate, nil)
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"status":   order.Status,
		"bytes":    len(order.Payload),
	}).Info("order created")
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventCreated, order.ID, order.Status))
	return order, nil
}

// Update заменяет payload заказа. Существование строки не проверяется.
func (s *Service) Update(ctx context.Context, id string, payload []byte) error {
	if err := s.repo.UpdatePayload(ctx, id, payload, s.now()); err != nil {
		return s.fail(OpUpdate, id, domain.StoreError(OpUpdate, err))
	}

	s.metrics.RecordOperation(OpUpdate, nil)
	s.logger.WithField("order_id", id).Info("order payload updated")
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventUpdated, id, ""))
	return nil
}

// Delete удаляет заказ. Существование строки не проверяется.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(OpDelete, id, domain.StoreError(OpDelete, err))
	}

	s.metrics.RecordOperation(OpDelete, nil)
	s.logger.WithField("order_id", id).Info("order deleted")
	s.publish(ctx, domain.NewOrderEvent(domain.OrderEventDeleted, id, ""))
	return nil
}

// ListProducts делегирует каталогу товаров.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if s.catalog == nil {
		s.metrics.RecordOperation(OpListProducts, nil)
		return []domain.Product{}, nil
	}

	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return nil, s.fail(OpListProducts, "", domain.CollaboratorError(OpListProducts, err))
	}
	s.metrics.RecordOperation(OpListProducts, nil)
	return products, nil
}

func (s *Service) fail(op, orderID string, err error) error {
	s.metrics.RecordOperation(op, err)

	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation":  op,
		"error_kind": domain.KindOf(err),
	})
	if orderID != "" {
		entry = entry.WithField("order_id", orderID)
	}
	entry.Error("order operation failed")
	return err
}

// publish не влияет на результат операции: ошибка только логируется и считается.
func (s *Service) publish(ctx context.Context, event domain.OrderEvent) {
	if s.events == nil {
		return
	}

	err := s.events.Publish(ctx, event)
	s.metrics.RecordEventPublished(err)
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"order_id":   event.OrderID,
			"event_type": event.Type,
		}).Warn("failed to publish order event")
	}
}

// resolveIdentity выбирает ID: заголовок, затем order_id из JSON-payload, затем UUID.
func resolveIdentity(in CreateInput) (string, domain.OrderStatus) {
	peekedID, status := domain.PeekEnvelope(in.Payload)

	id := strings.TrimSpace(in.OrderID)
	if id == "" {
		id = peekedID
	}
	if id == "" {
		id = uuid.NewString()
	}
	if status == "" {
		status = domain.OrderStatusActive
	}
	return id, status
}
