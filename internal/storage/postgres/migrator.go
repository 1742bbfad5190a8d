package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	migrationsDir   = "sql/migrations"
	migrationsTable = "schema_migrations"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

// MigrateUp применяет up-миграции.
// steps=0 означает "применить все доступные".
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrator(ctx, func(m *migrate.Migrate) error {
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	})
}

// MigrateDown откатывает миграции.
// steps<=0 интерпретируется как 1 шаг для безопасного поведения.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}
	return s.withMigrator(ctx, func(m *migrate.Migrate) error {
		return m.Steps(-steps)
	})
}

// MigrationStatus возвращает текущую версию схемы и флаг dirty.
// Версия 0 означает, что ни одна миграция не применена.
func (s *Store) MigrationStatus(ctx context.Context) (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := s.withMigrator(ctx, func(m *migrate.Migrate) error {
		v, d, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		version, dirty = v, d
		return err
	})
	return version, dirty, err
}

// withMigrator открывает отдельное database/sql подключение: migrate.Close
// закрывает переданную ему базу, пул Store при этом не затрагивается.
func (s *Store) withMigrator(ctx context.Context, fn func(m *migrate.Migrate) error) error {
	if s == nil || s.dsn == "" {
		return fmt.Errorf("postgres store is not initialized")
	}

	db, err := sql.Open("pgx", s.dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	m, err := newMigrator(db)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() {
		_, _ = m.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			m.GracefulStop <- true
		case <-done:
		}
	}()

	if err := fn(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return ctx.Err()
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return nil, fmt.Errorf("init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}
