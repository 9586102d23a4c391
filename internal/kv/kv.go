// ABOUTME: SQLite-backed key-value storage using modernc.org/sqlite
// ABOUTME: Provides namespaced partitions with ordered key iteration

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrKeyNotFound is returned when a requested key does not exist.
var ErrKeyNotFound = errors.New("key not found")

// Well-known partition names.
const (
	PartitionAccounts    = "accounts"
	PartitionPreferences = "preferences"
)

// DB is a durable key-value store backed by a single SQLite file.
// Writes are atomic per key; there are no multi-key transactions.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the store at the given path.
// Parent directories are created if needed. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	logger := slog.Default().With("component", "kv")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A pooled second connection to :memory: would get its own empty database
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	d := &DB{
		db:     db,
		logger: logger,
	}

	if err := d.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("key-value store opened", "path", path)
	return d, nil
}

// createSchema creates the kv table if it doesn't exist
func (d *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS kv (
			partition TEXT NOT NULL,
			key       TEXT NOT NULL,
			value     BLOB NOT NULL,
			PRIMARY KEY (partition, key)
		);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	d.logger.Info("key-value store closed")
	return d.db.Close()
}

// Partition returns a view of the store scoped to a single namespace.
func (d *DB) Partition(name string) *Partition {
	return &Partition{db: d.db, name: name}
}

// Partition is a namespaced view over the key-value store.
type Partition struct {
	db   *sql.DB
	name string
}

// Put stores a value under key, replacing any previous value.
func (p *Partition) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (partition, key, value) VALUES (?, ?, ?)
		ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value
	`
	if _, err := p.db.ExecContext(ctx, query, p.name, key, value); err != nil {
		return fmt.Errorf("putting key %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (p *Partition) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE partition = ? AND key = ?", p.name, key,
	).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting key %q: %w", key, err)
	}
	return value, nil
}

// Has reports whether key exists in the partition.
func (p *Partition) Has(ctx context.Context, key string) (bool, error) {
	var one int
	err := p.db.QueryRowContext(ctx,
		"SELECT 1 FROM kv WHERE partition = ? AND key = ?", p.name, key,
	).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking key %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key from the partition. Deleting an absent key is not an error.
func (p *Partition) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx,
		"DELETE FROM kv WHERE partition = ? AND key = ?", p.name, key,
	); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys in the partition in ascending order.
func (p *Partition) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT key FROM kv WHERE partition = ? ORDER BY key ASC", p.name,
	)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keys: %w", err)
	}
	return keys, nil
}

// Count returns the number of keys in the partition.
func (p *Partition) Count(ctx context.Context) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM kv WHERE partition = ?", p.name,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting keys: %w", err)
	}
	return count, nil
}

// Entries calls fn for each key-value pair in ascending key order.
// Iteration stops early if fn returns an error.
func (p *Partition) Entries(ctx context.Context, fn func(key string, value []byte) error) error {
	rows, err := p.db.QueryContext(ctx,
		"SELECT key, value FROM kv WHERE partition = ? ORDER BY key ASC", p.name,
	)
	if err != nil {
		return fmt.Errorf("scanning partition: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning entry: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating entries: %w", err)
	}
	return nil
}
