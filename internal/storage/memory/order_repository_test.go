package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
	"github.com/vladislavdragonenkov/orderapi/internal/storage/memory"
)

func newOrder(id string, createdAt time.Time) domain.Order {
	return domain.Order{
		ID:        id,
		Payload:   []byte(`{"order_id":"` + id + `","status":"ACTIVE"}`),
		Status:    domain.OrderStatusActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestOrderRepository_CreateAndListActive(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	now := time.Now().UTC()

	if err := repo.Create(ctx, newOrder("order-2", now.Add(time.Second))); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(ctx, newOrder("order-1", now)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	closed := newOrder("order-3", now)
	closed.Status = "CLOSED"
	if err := repo.Create(ctx, closed); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 active orders, got %d", len(orders))
	}
	if orders[0].ID != "order-1" || orders[1].ID != "order-2" {
		t.Fatalf("unexpected order: %s, %s", orders[0].ID, orders[1].ID)
	}
}

func TestOrderRepository_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	err := repo.Create(ctx, order)
	if !errors.Is(err, domain.ErrOrderAlreadyExists) {
		t.Fatalf("expected ErrOrderAlreadyExists, got %v", err)
	}
}

func TestOrderRepository_PayloadIsCopied(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", time.Now().UTC())

	if err := repo.Create(ctx, order); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	order.Payload[0] = 'X'

	orders, err := repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if orders[0].Payload[0] != '{' {
		t.Fatalf("stored payload was mutated through caller buffer: %q", orders[0].Payload)
	}
}

func TestOrderRepository_UpdatePayload(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	created := time.Now().UTC()
	if err := repo.Create(ctx, newOrder("order-1", created)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updatedAt := created.Add(time.Minute)
	if err := repo.UpdatePayload(ctx, "order-1", []byte("v2"), updatedAt); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	orders, err := repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if string(orders[0].Payload) != "v2" {
		t.Fatalf("expected payload v2, got %q", orders[0].Payload)
	}
	if !orders[0].UpdatedAt.Equal(updatedAt) {
		t.Fatalf("expected updated_at %s, got %s", updatedAt, orders[0].UpdatedAt)
	}
}

func TestOrderRepository_UpdateAndDeleteMissingAreNoop(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()

	if err := repo.UpdatePayload(ctx, "missing", []byte("x"), time.Now()); err != nil {
		t.Fatalf("update of missing order should not fail: %v", err)
	}
	if err := repo.Delete(ctx, "missing"); err != nil {
		t.Fatalf("delete of missing order should not fail: %v", err)
	}

	orders, err := repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("update of missing id must not create a row, got %d rows", len(orders))
	}
}

func TestOrderRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewOrderRepository()
	if err := repo.Create(ctx, newOrder("order-1", time.Now().UTC())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := repo.Delete(ctx, "order-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	orders, err := repo.ListByStatus(ctx, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders after delete, got %d", len(orders))
	}
}
