package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"embervale/server/models"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStore handles database operations using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage manager
func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	store := &PostgresStore{db: db}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %v", err)
	}

	return store, nil
}

// initSchema initializes the database schema
func (dm *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		username TEXT PRIMARY KEY,
		password TEXT NOT NULL,
		next_char_id INTEGER NOT NULL,
		characters JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS tile_overrides (
		coord TEXT PRIMARY KEY,
		tile INTEGER NOT NULL
	);
	`

	_, err := dm.db.Exec(schema)
	return err
}

// LoadAccounts loads every account row.
func (dm *PostgresStore) LoadAccounts() (map[string]*models.Account, error) {
	rows, err := dm.db.Query(`SELECT username, password, next_char_id, characters FROM accounts`)
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
func (dm *PostgresStore) SaveAccount(username string, acct *models.Account) error {
	charsJSON, err := json.Marshal(acct.Characters)
	if err != nil {
		return fmt.Errorf("failed to marshal characters: %v", err)
	}

	query := `
	INSERT INTO accounts (username, password, next_char_id, characters)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (username)
	DO UPDATE SET
		password = $2, next_char_id = $3, characters = $4,
		updated_at = NOW()
	`

	if _, err := dm.db.Exec(query, username, acct.Password, acct.NextCharID, string(charsJSON)); err != nil {
		return fmt.Errorf("failed to save account: %v", err)
	}
	return nil
}

// LoadOverrides loads the sparse tile-override map.
func (dm *PostgresStore) LoadOverrides() (map[string]int, error) {
	rows, err := dm.db.Query(`SELECT coord, tile FROM tile_overrides`)
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
func (dm *PostgresStore) SaveOverrides(overrides map[string]int) error {
	tx, err := dm.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tile_overrides`); err != nil {
		return fmt.Errorf("failed to clear overrides: %v", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO tile_overrides (coord, tile) VALUES ($1, $2)`)
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

// Close closes the database connection
func (dm *PostgresStore) Close() error {
	log.Println("Closing database connection...")
	return dm.db.Close()
}
