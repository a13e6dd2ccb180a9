package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"

	"embervale/server/models"
)

// backupPrefix names the rolling backup files written under
// <dataDir>/backups.
const backupPrefix = "backup-"

// BackupPayload is the full persisted state captured in one backup.
type BackupPayload struct {
	CreatedAt string                     `json:"created_at"`
	Users     map[string]*models.Account `json:"users"`
	Overrides map[string]int             `json:"overrides"`
}

// WriteBackup writes a zstd-compressed JSON snapshot of the account
// store and tile overrides and returns its path.
func WriteBackup(dataDir string, users map[string]*models.Account, overrides map[string]int) (string, error) {
	dir := filepath.Join(dataDir, "backups")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	payload := BackupPayload{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Users:     users,
		Overrides: overrides,
	}

	path := filepath.Join(dir, fmt.Sprintf("%s%d.json.zst", backupPrefix, time.Now().Unix()))
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return "", err
	}
	if err := json.NewEncoder(enc).Encode(payload); err != nil {
		enc.Close()
		f.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, os.Rename(tmp, path)
}

// ReadBackup decodes one backup file.
func ReadBackup(path string) (BackupPayload, error) {
	var payload BackupPayload
	f, err := os.Open(path)
	if err != nil {
		return payload, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return payload, err
	}
	defer dec.Close()

	err = json.NewDecoder(dec.IOReadCloser()).Decode(&payload)
	return payload, err
}

// PruneBackups keeps the newest `keep` backups and removes the rest.
func PruneBackups(dataDir string, keep int) error {
	dir := filepath.Join(dataDir, "backups")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) > len(backupPrefix) && name[:len(backupPrefix)] == backupPrefix {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(names)
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
