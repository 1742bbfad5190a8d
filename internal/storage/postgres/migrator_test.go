package postgres

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations_PairedUpAndDown(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(migrationsFS, migrationsDir)
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations dir: %s", name)
		}
	}

	if len(ups) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for base := range ups {
		if !downs[base] {
			t.Fatalf("migration %s has no down file", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Fatalf("migration %s has no up file", base)
		}
	}
}

func TestEmbeddedMigrations_SourceVersions(t *testing.T) {
	t.Parallel()

	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		t.Fatalf("iofs source: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("first version: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first version 1, got %d", first)
	}

	versions := []uint{first}
	for v := first; ; {
		next, err := src.Next(v)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("next version after %d: %v", v, err)
			}
			break
		}
		versions = append(versions, next)
		v = next
	}
	if len(versions) != 3 {
		t.Fatalf("expected 3 migrations, got %v", versions)
	}
}

func TestMigrateUp_UninitializedStore(t *testing.T) {
	t.Parallel()

	var store *Store
	if err := store.MigrateUp(context.Background(), 0); err == nil {
		t.Fatal("expected error for nil store")
	}
}
