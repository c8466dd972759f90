// This file implements a PostgreSQL-backed session repository.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/ReflectPipe/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 10
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore stores sessions in a Postgres table; each Append is one row insert.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	cfg := applyOpts(opts)
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Append(ctx context.Context, rec models.SessionRecord) error {
	args, err := recordArgs(rec)
	if err != nil {
		return err
	}
	args = append(args, rec.StartedAt)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`, started_ts) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, args...)
	if err != nil {
		slog.Error("PostgresStore Append failed", "error", err, "id", rec.ID)
		return fmt.Errorf("failed to insert session %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore Append succeeded", "id", rec.ID, "sessionType", rec.SessionType)
	return nil
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.SessionRecord, error) {
	return s.query(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY seq`)
}

func (s *PostgresStore) QueryByDateRange(ctx context.Context, from, to time.Time) ([]models.SessionRecord, error) {
	return s.query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE started_ts >= $1 AND started_ts < $2 ORDER BY seq`, from, to)
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]models.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		slog.Error("PostgresStore query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows, "postgres")
}

// Close closes the Postgres database connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
