// Package localstore persists the console's small set of key/value entries
// (the credential pair and the bare access token) in a single SQLite file,
// the way a browser front-end would use localStorage.
package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"incaweb/internal/platform/crypto"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

type Store struct {
	db     *sql.DB
	crypto *crypto.Service
}

// Open opens (creating if needed) the store at path. Values are encrypted at
// rest when the crypto service has a key configured.
func Open(path string, cryptoSvc *crypto.Service) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize store schema: %w", err)
	}

	return &Store{db: db, crypto: cryptoSvc}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key. A missing key is reported via the second
// return value, not an error.
func (s *Store) Get(key string) (string, bool, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read key %s: %w", key, err)
	}
	value, err := s.crypto.DecryptString(raw)
	if err != nil {
		return "", false, fmt.Errorf("decrypt key %s: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	encrypted, err := s.crypto.EncryptString(value)
	if err != nil {
		return fmt.Errorf("encrypt key %s: %w", key, err)
	}
	if encrypted == nil {
		encrypted = []byte{}
	}
	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, encrypted)
	if err != nil {
		return fmt.Errorf("write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete key %s: %w", key, err)
	}
	return nil
}
