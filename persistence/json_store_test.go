package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"embervale/server/models"
)

func TestJSONStoreAccountRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	acct := &models.Account{
		Password:   "deadbeef",
		NextCharID: 2,
		Characters: map[string]*models.Character{
			"1": {
				ID: "1", Name: "Brann", Class: "Warrior", Race: "Dwarf",
				Level: 3, XP: 40, NextXP: 225, Gold: 17,
				HP: 120, MaxHP: 160, MP: 30, MaxMP: 50,
				Stats: &models.Stats{Str: 9, Int: 5, Agi: 6, Sta: 7},
				Inventory: []*models.Item{
					{ID: 100011, Name: "Small Potion", Type: "potion", Power: 30},
				},
			},
		},
	}
	if err := store.SaveAccount("alice", acct); err != nil {
		t.Fatalf("save: %v", err)
	}

	// a fresh store must read the same data back from disk
	reopened, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	accts, err := reopened.LoadAccounts()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := accts["alice"]
	if got == nil || got.Password != "deadbeef" || got.NextCharID != 2 {
		t.Fatalf("account = %+v", got)
	}
	ch := got.Characters["1"]
	if ch == nil || ch.Name != "Brann" || ch.Gold != 17 || ch.Level != 3 {
		t.Fatalf("character = %+v", ch)
	}
	if len(ch.Inventory) != 1 || ch.Inventory[0].ID != 100011 {
		t.Fatalf("inventory = %+v", ch.Inventory)
	}
	if ch.X != nil || ch.Y != nil {
		t.Fatalf("position should still be unset")
	}
}

func TestJSONStoreOverridesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	// no overrides file yet: empty map, not an error
	empty, err := store.LoadOverrides()
	if err != nil || len(empty) != 0 {
		t.Fatalf("initial overrides = %v, %v", empty, err)
	}

	want := map[string]int{"10,20": 2, "-3,7": 1, "0,0": 4}
	if err := store.SaveOverrides(want); err != nil {
		t.Fatalf("save overrides: %v", err)
	}
	got, err := store.LoadOverrides()
	if err != nil {
		t.Fatalf("load overrides: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("overrides = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("override %s = %d, want %d", k, got[k], v)
		}
	}
}

func TestJSONStoreWritesAreAtomic(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.SaveAccount("alice", &models.Account{Password: "x"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	// no temp file may survive a completed write
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
