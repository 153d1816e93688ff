package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
)

const openPingTimeout = 5 * time.Second

// Store оборачивает общий пул соединений, он создаётся один раз при старте и
// внедряется в репозитории. Каждая операция берёт отдельное соединение через withConn.
type Store struct {
	db *sql.DB
}

// Option настраивает пул при открытии Store.
type Option func(*sql.DB)

// WithMaxOpenConns ограничивает число открытых соединений.
func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) { db.SetMaxOpenConns(n) }
}

// WithConnMaxLifetime ограничивает время жизни соединения.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *sql.DB) { db.SetConnMaxLifetime(d) }
}

// Open открывает пул pgx и проверяет, что база отвечает.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	for _, opt := range opts {
		opt(db)
	}

	pingCtx, cancel := context.WithTimeout(ctx, openPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает низкоуровневый пул.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}

// Ping проверяет доступность базы; используется readiness-пробой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return domain.ErrStoreUnavailable
	}
	return s.db.PingContext(ctx)
}

// withConn берёт соединение из пула на время fn и возвращает его на любом пути выхода.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	if s == nil || s.db == nil {
		return domain.ErrStoreUnavailable
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// EnsureSchema применяет все неприменённые миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
