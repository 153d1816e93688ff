package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	set, err := readMigrations(embeddedMigrations, "sql/migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	latest := set[len(set)-1].Version

	if err := store.MigrateDown(ctx, len(set)+10); err != nil {
		t.Fatalf("migrate down reset: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Current: 0, Applied: 0, Pending: len(set)})

	if err := store.MigrateUp(ctx, 1); err != nil {
		t.Fatalf("migrate up one step: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Current: set[0].Version, Applied: 1, Pending: len(set) - 1})

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Current: latest, Applied: len(set), Pending: 0})

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Current: latest, Applied: len(set), Pending: 0})

	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	assertMigrationState(t, store, MigrationState{Current: set[len(set)-2].Version, Applied: len(set) - 1, Pending: 1})

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("restore schema: %v", err)
	}
}

func assertMigrationState(t *testing.T, store *Store, want MigrationState) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected migration state: got=%+v want=%+v", got, want)
	}
}
