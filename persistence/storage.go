package persistence

import "embervale/server/models"

// Storage defines the interface for data persistence
//
// Accounts are written one at a time (the dirty-flush path); overrides
// are written as a whole batch. Every backend replaces its data
// atomically so a crash mid-write never corrupts the store.
type Storage interface {
	LoadAccounts() (map[string]*models.Account, error)
	SaveAccount(username string, acct *models.Account) error

	// Overrides are keyed "tx,ty" with the replacement tile value.
	LoadOverrides() (map[string]int, error)
	SaveOverrides(overrides map[string]int) error

	Close() error
}
