// Package sqlite provides the embedded user store.
// This package uses modernc.org/sqlite, a pure Go SQLite implementation that
// doesn't require CGO, so the dashboard still ships as a single binary.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/config"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/domain"
	"github.com/darren7753/admin-and-user-management-for-sentiment-analysis-app/internal/repository"
)

//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// DB wraps a sql.DB connection for SQLite.
type DB struct {
	db     *sql.DB
	logger zerolog.Logger
	path   string
	users  *userRepository
}

// dsn builds the modernc connection string with pragmas applied per connection.
func dsn(cfg config.SQLiteConfig) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	if cfg.JournalMode != "" {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", cfg.JournalMode))
	}
	if cfg.BusyTimeout > 0 {
		q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout))
	}
	if cfg.CacheSize != 0 {
		q.Add("_pragma", fmt.Sprintf("cache_size(%d)", cfg.CacheSize))
	}
	if cfg.SynchronousMode != "" {
		q.Add("_pragma", fmt.Sprintf("synchronous(%s)", cfg.SynchronousMode))
	}
	return "file:" + cfg.Path + "?" + q.Encode()
}

// connMaxLifetime is how long a pooled connection may be reused. An
// in-memory database lives only as long as its connection, so it is never recycled.
func connMaxLifetime(path string) time.Duration {
	if isMemory(path) {
		return 0
	}
	return time.Hour
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// NewDB opens the SQLite database at cfg.Path.
// Use ":memory:" for an in-memory database.
func NewDB(ctx context.Context, cfg config.SQLiteConfig, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, domain.Unavailable("open sqlite", err)
	}

	// SQLite works best with a single writer; it also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(connMaxLifetime(cfg.Path))

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.Unavailable("ping sqlite", err)
	}

	logger.Info().
		Str("path", cfg.Path).
		Str("journal_mode", cfg.JournalMode).
		Msg("connected to SQLite database")

	d := &DB{
		db:     db,
		logger: logger,
		path:   cfg.Path,
	}
	d.users = &userRepository{db: d}
	return d, nil
}

// Users returns the user repository.
func (db *DB) Users() repository.UserRepository {
	return db.users
}

// EnsureSchema applies pending migrations.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.Migrate(ctx)
	return err
}

// Close closes the database connection.
func (db *DB) Close(_ context.Context) error {
	db.logger.Info().Msg("closing SQLite connection")
	return db.db.Close()
}

// Ping checks the database connection.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.db.PingContext(ctx); err != nil {
		return domain.Unavailable("ping sqlite", err)
	}
	return nil
}

// Migration is one embedded schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations returns the embedded migrations ordered by version.
// Files are named NNNNNN_name.up.sql.
func Migrations() ([]Migration, error) {
	return loadMigrations(migrationsFS, "migrations")
}

func loadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	var out []Migration
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %q has no version prefix", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		body, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %q: %w", name, err)
		}
		out = append(out, Migration{
			Version: version,
			Name:    strings.TrimSuffix(rest, ".up.sql"),
			SQL:     string(body),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Version returns the highest applied migration version, 0 if none.
func (db *DB) Version(ctx context.Context) (int, error) {
	if err := db.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}
	var v int
	if err := db.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to get current migration version: %w", err)
	}
	return v, nil
}

func (db *DB) ensureMigrationsTable(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// Migrate applies every embedded migration newer than the current version
// and returns how many were applied.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	current, err := db.Version(ctx)
	if err != nil {
		return 0, err
	}

	migrations, err := Migrations()
	if err != nil {
		return 0, err
	}

	db.logger.Info().Int("current_version", current).Msg("checking migrations")

	applied := 0
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := db.apply(ctx, m); err != nil {
			return applied, err
		}
		applied++
		db.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("applied migration")
	}
	return applied, nil
}

func (db *DB) apply(ctx context.Context, m Migration) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("failed to apply migration %d: %w", m.Version, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

// Ensure DB implements repository.Store.
var _ repository.Store = (*DB)(nil)
