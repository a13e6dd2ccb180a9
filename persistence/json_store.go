package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"embervale/server/models"
)

const (
	accountsFile  = "accounts.json"
	overridesFile = "map_overrides.json"
)

// JSONStore persists accounts and tile overrides as JSON files in the
// data directory. This is the default backend and matches the persisted
// artifact formats exactly: whole files replaced atomically via a temp
// file and rename.
type JSONStore struct {
	dir   string
	mutex sync.Mutex
	data  *jsonData
}

type jsonData struct {
	Users map[string]*models.Account `json:"users"`
}

// NewJSONStore creates a new JSON storage manager rooted at dir.
func NewJSONStore(dir string) (*JSONStore, error) {
	store := &JSONStore{
		dir:  dir,
		data: &jsonData{Users: make(map[string]*models.Account)},
	}

	path := store.accountsPath()
	if _, err := os.Stat(path); err == nil {
		if err := store.loadAccountsFile(); err != nil {
			return nil, fmt.Errorf("failed to load JSON store: %w", err)
		}
	} else {
		if err := store.saveAccountsFile(); err != nil {
			return nil, fmt.Errorf("failed to create JSON store file: %w", err)
		}
	}

	return store, nil
}

func (js *JSONStore) accountsPath() string  { return filepath.Join(js.dir, accountsFile) }
func (js *JSONStore) overridesPath() string { return filepath.Join(js.dir, overridesFile) }

// atomicWriteJSON writes v to path through a temp file and rename.
func atomicWriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (js *JSONStore) loadAccountsFile() error {
	file, err := os.ReadFile(js.accountsPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(file, js.data)
}

func (js *JSONStore) saveAccountsFile() error {
	return atomicWriteJSON(js.accountsPath(), js.data)
}

// LoadAccounts returns the full account map.
func (js *JSONStore) LoadAccounts() (map[string]*models.Account, error) {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	out := make(map[string]*models.Account, len(js.data.Users))
	for name, acct := range js.data.Users {
		out[name] = acct
	}
	return out, nil
}

// SaveAccount updates one account and rewrites the store.
func (js *JSONStore) SaveAccount(username string, acct *models.Account) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	js.data.Users[username] = acct
	return js.saveAccountsFile()
}

// LoadOverrides reads the sparse tile-override map.
func (js *JSONStore) LoadOverrides() (map[string]int, error) {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.overridesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int), nil
		}
		return nil, err
	}
	overrides := make(map[string]int)
	if err := json.Unmarshal(file, &overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

// SaveOverrides atomically replaces the tile-override file.
func (js *JSONStore) SaveOverrides(overrides map[string]int) error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	return atomicWriteJSON(js.overridesPath(), overrides)
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
