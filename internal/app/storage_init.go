package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/domain"
	"github.com/vladislavdragonenkov/orderapi/internal/storage/memory"
	"github.com/vladislavdragonenkov/orderapi/internal/storage/postgres"
)

const postgresConnMaxLifetime = 30 * time.Minute

// runtimeDependencies держит ресурсы, которые живут всё время работы процесса и
// закрываются при остановке в обратном порядке.
type runtimeDependencies struct {
	repo    domain.OrderRepository
	store   *postgres.Store
	closers []func() error
}

func (d *runtimeDependencies) addCloser(fn func() error) {
	d.closers = append(d.closers, fn)
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			logger.WithError(err).Warn("failed to close runtime dependency")
		}
	}
	d.closers = nil
}

// initRuntimeDependencies открывает хранилище согласно cfg.StorageDriver.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch StorageDriver(strings.ToLower(strings.TrimSpace(string(cfg.StorageDriver)))) {
	case StorageDriverMemory:
		logger.Info("using in-memory order storage")
		return &runtimeDependencies{repo: memory.NewOrderRepository()}, nil
	case StorageDriverPostgres:
		return initPostgresDependencies(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func initPostgresDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	dsn := strings.TrimSpace(cfg.PostgresDSN)
	if dsn == "" {
		return nil, errors.New("postgres storage requires a DSN")
	}

	store, err := postgres.Open(ctx, dsn,
		postgres.WithMaxOpenConns(cfg.PostgresMaxConns),
		postgres.WithConnMaxLifetime(postgresConnMaxLifetime),
	)
	if err != nil {
		return nil, err
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("postgres schema is up to date")
	}

	deps := &runtimeDependencies{
		repo:  postgres.NewOrderRepository(store),
		store: store,
	}
	deps.addCloser(store.Close)
	logger.Info("using postgres order storage")
	return deps, nil
}
