package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"

	"embervale/server/models"

	_ "modernc.org/sqlite" // cgo-free SQLite driver
)

// SQLiteStore is the embedded-database backend: the same schema as the
// PostgreSQL store without needing a server process.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database in dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	path := filepath.Join(dir, "embervale.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// Single writer; the flush worker serializes writes anyway, and
	// WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %v", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		username TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		next_char_id INTEGER NOT NULL,
		characters TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tile_overrides (
		coord TEXT PRIMARY KEY,
		tile INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LoadAccounts loads every account row.
func (s *SQLiteStore) LoadAccounts() (map[string]*models.Account, error) {
	rows, err := s.db.Query(`SELECT username, password, next_char_id, characters FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %v", err)
	}
	defer rows.Close()

	accounts := make(map[string]*models.Account)
	for rows.Next() {
		var username, charsJSON string
		acct := &models.Account{}
		if err := rows.Scan(&username, &acct.Password, &acct.NextCharID, &charsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan account: %v", err)
		}
		if err := json.Unmarshal([]byte(charsJSON), &acct.Characters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal characters for %s: %v", username, err)
		}
		if acct.Characters == nil {
			acct.Characters = make(map[string]*models.Character)
		}
		accounts[username] = acct
	}
	return accounts, rows.Err()
}

// SaveAccount upserts one account row.
func (s *SQLiteStore) SaveAccount(username string, acct *models.Account) error {
	charsJSON, err := json.Marshal(acct.Characters)
	if err != nil {
		return fmt.Errorf("failed to marshal characters: %v", err)
	}

	query := `
	INSERT INTO accounts (username, password, next_char_id, characters)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (username)
	DO UPDATE SET password = excluded.password,
		next_char_id = excluded.next_char_id,
		characters = excluded.characters
	`
	if _, err := s.db.Exec(query, username, acct.Password, acct.NextCharID, string(charsJSON)); err != nil {
		return fmt.Errorf("failed to save account: %v", err)
	}
	return nil
}

// LoadOverrides loads the sparse tile-override map.
func (s *SQLiteStore) LoadOverrides() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT coord, tile FROM tile_overrides`)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %v", err)
	}
	defer rows.Close()

	overrides := make(map[string]int)
	for rows.Next() {
		var coord string
		var tile int
		if err := rows.Scan(&coord, &tile); err != nil {
			return nil, fmt.Errorf("failed to scan override: %v", err)
		}
		overrides[coord] = tile
	}
	return overrides, rows.Err()
}

// SaveOverrides replaces the override table in one transaction.
func (s *SQLiteStore) SaveOverrides(overrides map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tile_overrides`); err != nil {
		return fmt.Errorf("failed to clear overrides: %v", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO tile_overrides (coord, tile) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %v", err)
	}
	defer stmt.Close()
	for coord, tile := range overrides {
		if _, err := stmt.Exec(coord, tile); err != nil {
			return fmt.Errorf("failed to insert override: %v", err)
		}
	}
	return tx.Commit()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
