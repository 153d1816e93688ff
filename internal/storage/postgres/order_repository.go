package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

const uniqueViolationCode = "23505"

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository поверх общего Store.
// Каждый метод выполняет ровно одно выражение на отдельном соединении.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT order_id, data, status, created_at, updated_at
			FROM orders
			WHERE status = $1
			ORDER BY created_at ASC, order_id ASC
		`, string(status))
		if err != nil {
			return fmt.Errorf("select orders: %w", err)
		}
		defer rows.Close()

		orders = make([]domain.Order, 0)
		for rows.Next() {
			var (
				order     domain.Order
				rawStatus string
			)
			if err := rows.Scan(&order.ID, &order.Payload, &rawStatus, &order.CreatedAt, &order.UpdatedAt); err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			order.Status = domain.OrderStatus(rawStatus)
			orders = append(orders, order)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate orders: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	payload := order.Payload
	if payload == nil {
		payload = []byte{}
	}

	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO orders (order_id, data, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, payload, string(order.Status), order.CreatedAt, order.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrOrderAlreadyExists
			}
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) UpdatePayload(ctx context.Context, id string, payload []byte, updatedAt time.Time) error {
	if payload == nil {
		payload = []byte{}
	}

	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx,
			`UPDATE orders SET data = $1, updated_at = $2 WHERE order_id = $3`,
			payload, updatedAt, id,
		); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode
	}
	return false
}

var _ domain.OrderRepository = (*orderRepository)(nil)
