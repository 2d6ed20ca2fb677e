//go:build integration
// +build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"fiber-cms-pg/internal/config"
)

func Test_Open_With_PostgresContainer(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("cms"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithSQLDriver("pgx"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	cfg := &config.Config{}
	cfg.PG.URL = fmt.Sprintf("postgres://postgres:postgres@%s:%s/cms?sslmode=disable", host, port.Port())
	cfg.PG.MaxOpenConns = 5
	cfg.PG.MaxIdleConns = 2

	d, closeFn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeFn()

	if d.Dialect != DialectPostgres {
		t.Fatalf("dialect = %q", d.Dialect)
	}

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Running twice proves the migration is idempotent.
	if err := Migrate(ctx2, d); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(ctx2, d); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	now := time.Now()
	insert := `INSERT INTO cms_user (id, name, email, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := d.ExecContext(ctx2, insert, "u1", "First Admin", "one@example.com", "superadmin", now, now); err != nil {
		t.Fatalf("insert superadmin: %v", err)
	}
	if _, err := d.ExecContext(ctx2, insert, "u2", "Second Admin", "two@example.com", "superadmin", now, now); err == nil {
		t.Fatal("second superadmin insert should violate the partial unique index")
	}
	if _, err := d.ExecContext(ctx2, insert, "u3", "Editor", "three@example.com", "editor", now, now); err != nil {
		t.Fatalf("insert editor: %v", err)
	}

	var count int
	if err := d.QueryRowContext(ctx2, `SELECT COUNT(*) FROM cms_user`).Scan(&count); err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 users, got %d", count)
	}
}
