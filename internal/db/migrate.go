package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
)

// ListMigrations returns the .sql files in dir in lexical order.
func ListMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Migrator applies the SQL files of a directory exactly once each, recording
// applied versions in schema_migrations.
type Migrator struct {
	Pool Pool
	Dir  string
	Out  io.Writer
}

// Status prints every migration with a marker telling whether it was applied.
func (m Migrator) Status(ctx context.Context) error {
	names, applied, err := m.load(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		mark := " "
		if _, ok := applied[name]; ok {
			mark = "x"
		}
		fmt.Fprintf(m.out(), "[%s] %s\n", mark, name)
	}
	return nil
}

// Up applies pending migrations in order. Each file runs in its own transaction.
func (m Migrator) Up(ctx context.Context) error {
	names, applied, err := m.load(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, name := range names {
		if _, ok := applied[name]; ok {
			continue
		}

		contents, err := os.ReadFile(filepath.Join(m.Dir, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		err = crdbpgx.ExecuteTx(ctx, m.Pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(contents)); err != nil {
				return fmt.Errorf("apply migration %s: %w", name, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
				return fmt.Errorf("record migration %s: %w", name, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		pending++
		fmt.Fprintf(m.out(), "applied migration %s\n", name)
	}

	if pending == 0 {
		fmt.Fprintln(m.out(), "no migrations to apply")
	}
	return nil
}

// Seed executes a single SQL file from dir. A bare name such as "dev" resolves to dev_seed.sql.
func Seed(ctx context.Context, pool Pool, dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("seed name must be provided")
	}
	if !strings.HasSuffix(name, ".sql") {
		name = fmt.Sprintf("%s_seed.sql", name)
	}

	contents, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("read seed %s: %w", name, err)
	}

	if err := WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, string(contents))
		return err
	}); err != nil {
		return "", fmt.Errorf("apply seed %s: %w", name, err)
	}
	return name, nil
}

func (m Migrator) load(ctx context.Context) ([]string, map[string]struct{}, error) {
	names, err := ListMigrations(m.Dir)
	if err != nil {
		return nil, nil, err
	}

	conn, err := m.Pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
                version TEXT PRIMARY KEY,
                applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`); err != nil {
		return nil, nil, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	rows, err := conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate applied migrations: %w", err)
	}

	return names, applied, nil
}

func (m Migrator) out() io.Writer {
	if m.Out == nil {
		return os.Stdout
	}
	return m.Out
}
