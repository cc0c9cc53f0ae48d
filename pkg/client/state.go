package client

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Persisted state keys.
const (
	configKeyUsername = "username"
	configKeyRoom     = "room"
)

// State manages client-side persistent state: the last granted identity and
// the active room selection, surviving restarts of the client.
type State struct {
	db  *sql.DB
	dir string
}

// OpenState opens or creates the client state database.
func OpenState(path string) (*State, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Client only needs one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	state := &State{
		db:  db,
		dir: dir,
	}

	if err := state.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return state, nil
}

// Close closes the state database.
func (s *State) Close() error {
	return s.db.Close()
}

func (s *State) initSchema() error {
	schema := `
CREATE TABLE IF NOT EXISTS Config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// GetConfig retrieves a configuration value. A missing key reads as "".
func (s *State) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig stores a configuration value.
func (s *State) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Config (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// lookupConfig retrieves a value and reports whether the key exists, so
// callers can tell an empty value apart from an absent one.
func (s *State) lookupConfig(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Username returns the last server-granted identity, or "" if none.
func (s *State) Username() string {
	name, _ := s.GetConfig(configKeyUsername)
	return name
}

// SetUsername stores the server-granted identity.
func (s *State) SetUsername(name string) error {
	return s.SetConfig(configKeyUsername, name)
}

// ActiveRoom returns the persisted room selection. The empty string with
// ok=true means the public room; ok=false means no selection was persisted.
func (s *State) ActiveRoom() (string, bool) {
	room, ok, err := s.lookupConfig(configKeyRoom)
	if err != nil {
		return "", false
	}
	return room, ok
}

// SetActiveRoom persists the room selection.
func (s *State) SetActiveRoom(room string) error {
	return s.SetConfig(configKeyRoom, room)
}

// ClearActiveRoom removes the persisted room selection entirely.
func (s *State) ClearActiveRoom() error {
	_, err := s.db.Exec("DELETE FROM Config WHERE key = ?", configKeyRoom)
	return err
}

// StateDir returns the directory where state is stored.
func (s *State) StateDir() string {
	return s.dir
}
