package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"solbank/pkg/store"

	_ "github.com/lib/pq"
)

// PostgresStore is a Postgres-backed implementation of store.Store, holding
// the key space in a single key/value table with JSONB values.
type PostgresStore struct {
	db    *sql.DB
	table string
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Table is the key/value table name (created on construction if missing).
	Table string
}

// DefaultConfig returns default PostgreSQL configuration.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "solbank",
		SSLMode:  "disable",
		Table:    "bank_state",
	}
}

// NewPostgresStore connects to Postgres, verifies the connection, and
// ensures the key/value table exists.
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if cfg.Table == "" {
		cfg.Table = "bank_state"
	}

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		key   TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, cfg.Table)
	if _, err := db.ExecContext(ctx, create); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: create table: %w", err)
	}

	return &PostgresStore{db: db, table: cfg.Table}, nil
}

// Get retrieves the raw value stored under key.
func (p *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := store.ValidateKey(key); err != nil {
		return nil, err
	}

	var raw []byte
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = $1", p.table)
	err := p.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrKeyNotFound
	}
	if err != nil {
		return nil, store.WrapError(err, "postgres", "get")
	}
	return raw, nil
}

// Set upserts the raw value under key.
func (p *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = now()`, p.table)
	if _, err := p.db.ExecContext(ctx, query, key, value); err != nil {
		return store.WrapError(err, "postgres", "set")
	}
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (p *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := store.ValidateKey(key); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE key = $1", p.table)
	if _, err := p.db.ExecContext(ctx, query, key); err != nil {
		return store.WrapError(err, "postgres", "delete")
	}
	return nil
}

// Keys lists all keys currently present.
func (p *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT key FROM %s", p.table)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.WrapError(err, "postgres", "keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, store.WrapError(err, "postgres", "keys")
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Name returns the backend identifier.
func (p *PostgresStore) Name() string {
	return "postgres"
}

// Close releases the connection pool.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
