// Package storage persists the agent's opaque key/value configuration
// (tenant id, client id, API key, JWT token, user object, heartbeat
// interval, environment selector, auto-register flag) in a small SQLite
// database, independent of the job queue's own JSON file.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ConfigStore is an opaque key/value persistence contract: the core
// only requires CRUD by string key, so any backend could satisfy it.
type ConfigStore interface {
	Set(key string, value interface{}) error
	Get(key string, dest interface{}) (found bool, err error)
	Delete(key string) error
	Close() error
}

// SQLiteConfigStore implements ConfigStore on top of modernc.org/sqlite,
// the same pure-Go driver the rest of this stack's storage layer uses.
type SQLiteConfigStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewConfigStore opens (creating if necessary) a SQLite-backed config
// store at dbPath.
func NewConfigStore(dbPath string) (*SQLiteConfigStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open config store: %w", err)
	}

	s := &SQLiteConfigStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteConfigStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agent_config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create agent_config schema: %w", err)
	}
	return nil
}

// Set stores any JSON-serializable value under key, upserting in place.
func (s *SQLiteConfigStore) Set(key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal config value %q: %w", key, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO agent_config (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("save config value %q: %w", key, err)
	}
	return nil
}

// Get decodes the stored value for key into dest. found is false and
// err is nil if the key is absent, so callers can distinguish "never
// set" from a decode failure.
func (s *SQLiteConfigStore) Get(key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRow(`SELECT value FROM agent_config WHERE key = ?`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get config value %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("unmarshal config value %q: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *SQLiteConfigStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM agent_config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete config value %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteConfigStore) Close() error {
	return s.db.Close()
}

// Well-known keys the orchestrator reads/writes through ConfigStore.
const (
	KeyTenantID         = "tenant_id"
	KeyClientID         = "client_id"
	KeyAPIKey           = "api_key"
	KeyToken            = "token"
	KeyUser             = "user"
	KeyHeartbeatSeconds = "heartbeat_interval_seconds"
	KeyEnvironment      = "environment"
	KeyAutoRegister     = "auto_register"
)
