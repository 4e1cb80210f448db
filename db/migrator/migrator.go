// Package migrator applies the SQL files in db/migrations in lexical order and
// records each one with its checksum in schema_migrations.
package migrator

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createBookkeeping = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    filename   TEXT        PRIMARY KEY,
    checksum   TEXT        NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// ErrChecksumMismatch is returned when an applied migration file was edited.
var ErrChecksumMismatch = errors.New("migration has been modified")

type Migrator struct {
	pool          *pgxpool.Pool
	migrationsDir string
	logger        *slog.Logger
}

func New(pool *pgxpool.Pool, migrationsDir string, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{
		pool:          pool,
		migrationsDir: migrationsDir,
		logger:        logger.With("component", "migrator"),
	}
}

// ApplyAll applies every pending migration, each in its own transaction, and
// verifies the checksums of those already applied.
func (m *Migrator) ApplyAll(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, createBookkeeping); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := migrationFiles(m.migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	for _, filename := range files {
		content, err := os.ReadFile(filepath.Join(m.migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filename, err)
		}
		sum := checksum(content)

		if stored, ok := applied[filename]; ok {
			if stored != sum {
				return fmt.Errorf("%s: %w (expected checksum %s, got %s)", filename, ErrChecksumMismatch, stored, sum)
			}
			continue
		}

		if err := m.apply(ctx, filename, content, sum); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", filename, err)
		}
	}
	return nil
}

func (m *Migrator) appliedChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := m.pool.Query(ctx, "SELECT filename, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var filename, sum string
		if err := rows.Scan(&filename, &sum); err != nil {
			return nil, err
		}
		applied[filename] = sum
	}
	return applied, rows.Err()
}

func (m *Migrator) apply(ctx context.Context, filename string, content []byte, sum string) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			m.logger.Warn("failed to rollback migration", "file", filename, "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)",
		filename, sum); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	m.logger.Info("applied migration", "file", filename, "checksum", sum[:8])
	return nil
}

// ListApplied returns applied migrations in application order.
func (m *Migrator) ListApplied(ctx context.Context) ([]string, error) {
	rows, err := m.pool.Query(ctx, "SELECT filename FROM schema_migrations ORDER BY applied_at, filename")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []string
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		migrations = append(migrations, filename)
	}
	return migrations, rows.Err()
}

func migrationFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || strings.HasPrefix(name, "README") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
