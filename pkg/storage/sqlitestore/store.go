// Package sqlitestore keeps portal client namespaces in a SQLite database so
// sessions and quote drafts survive restarts.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	portal "github.com/goliatone/go-insurance/components/portal"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_storage (
	client_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (client_id, key)
);
CREATE INDEX IF NOT EXISTS idx_client_storage_updated ON client_storage(updated_at);
`

// Store is a portal.StorageProvider backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ portal.StorageProvider = (*Store)(nil)

// Open creates the database at path and its schema. ":memory:" keeps the
// data in process.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlitestore: path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlitestore: create directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ForClient returns the namespace of clientID.
func (s *Store) ForClient(clientID string) portal.Storage {
	return clientStore{store: s, client: clientID}
}

// Prune removes entries not written since before.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM client_storage WHERE updated_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlitestore: prune: %w", err)
	}
	return res.RowsAffected()
}

type clientStore struct {
	store  *Store
	client string
}

func (c clientStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.store.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = ? AND key = ?`, c.client, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlitestore: get %s: %w", key, err)
	}
	return value, true, nil
}

func (c clientStore) Set(ctx context.Context, key, value string) error {
	if c.client == "" {
		return errors.New("sqlitestore: storage requires client id")
	}
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO client_storage (client_id, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		c.client, key, value, c.store.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: set %s: %w", key, err)
	}
	return nil
}

func (c clientStore) Delete(ctx context.Context, key string) error {
	_, err := c.store.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = ? AND key = ?`, c.client, key,
	)
	if err != nil {
		return fmt.Errorf("sqlitestore: delete %s: %w", key, err)
	}
	return nil
}
