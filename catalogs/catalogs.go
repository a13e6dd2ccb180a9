// Package catalogs loads the merchant and quest catalogs: JSON files in
// the data directory, written with defaults when missing and validated
// against embedded JSON Schemas before use.
package catalogs

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"embervale/server/models"
)

//go:embed schemas/merchants.schema.json
var merchantsSchemaJSON string

//go:embed schemas/quests.schema.json
var questsSchemaJSON string

const (
	merchantsFile = "merchants.json"
	questsFile    = "quests.json"
)

// Merchant is one merchant catalog entry with its purchasable stock.
type Merchant struct {
	Name  string         `json:"name"`
	Stock []*models.Item `json:"stock"`
}

// QuestRequirements lists kill targets by NPC name fragment.
type QuestRequirements struct {
	Kill map[string]int `json:"kill"`
}

// QuestRewards is granted on turn-in.
type QuestRewards struct {
	XP   int          `json:"xp"`
	Gold int          `json:"gold"`
	Item *models.Item `json:"item,omitempty"`
}

// Quest is one quest catalog entry.
type Quest struct {
	Title        string            `json:"title"`
	Desc         string            `json:"desc"`
	Requirements QuestRequirements `json:"requirements"`
	Rewards      QuestRewards      `json:"rewards"`
}

// Catalogs bundles the loaded, validated catalog data.
type Catalogs struct {
	Merchants map[string]*Merchant
	Quests    map[string]*Quest
}

var defaultMerchants = map[string]*Merchant{
	"weaponsmith": {
		Name: "Weaponsmith",
		Stock: []*models.Item{
			{Name: "Rusty Sword", Type: models.ItemTypeWeapon, Power: 5, Price: 20},
			{Name: "Light Axe", Type: models.ItemTypeWeapon, Power: 8, Price: 45},
			{Name: "Short Bow", Type: models.ItemTypeWeapon, Power: 7, Price: 38},
		},
	},
	"alchemist": {
		Name: "Alchemist",
		Stock: []*models.Item{
			{Name: "Small Potion", Type: models.ItemTypePotion, Power: 30, Price: 10},
			{Name: "Mana Potion", Type: models.ItemTypeScroll, Power: 25, Price: 14},
			{Name: "Fortifying Tonic", Type: models.ItemTypePotion, Power: 50, Price: 25},
		},
	},
}

var defaultQuests = map[string]*Quest{
	"q_slimes_5": {
		Title:        "Slime Cleanup",
		Desc:         "Destroy 5 Slimes near the village.",
		Requirements: QuestRequirements{Kill: map[string]int{"Slime": 5}},
		Rewards:      QuestRewards{XP: 60, Gold: 20},
	},
	"q_gobs_3": {
		Title:        "Goblin Racket",
		Desc:         "Kill 3 Goblins.",
		Requirements: QuestRequirements{Kill: map[string]int{"Goblin": 3}},
		Rewards:      QuestRewards{XP: 80, Gold: 25},
	},
}

// Load reads both catalogs from dataDir, creating default files first
// when they are missing. A catalog that fails schema validation is a
// startup error, not a silently-empty catalog.
func Load(dataDir string) (*Catalogs, error) {
	if err := ensureDefaults(dataDir); err != nil {
		return nil, err
	}

	c := &Catalogs{}
	if err := loadValidated(filepath.Join(dataDir, merchantsFile), merchantsSchemaJSON, "merchants.schema.json", &c.Merchants); err != nil {
		return nil, fmt.Errorf("merchant catalog: %w", err)
	}
	if err := loadValidated(filepath.Join(dataDir, questsFile), questsSchemaJSON, "quests.schema.json", &c.Quests); err != nil {
		return nil, fmt.Errorf("quest catalog: %w", err)
	}
	return c, nil
}

func ensureDefaults(dataDir string) error {
	pairs := []struct {
		path string
		v    any
	}{
		{filepath.Join(dataDir, merchantsFile), defaultMerchants},
		{filepath.Join(dataDir, questsFile), defaultQuests},
	}
	for _, p := range pairs {
		if _, err := os.Stat(p.path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return err
		}
		data, err := json.MarshalIndent(p.v, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p.path, data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func loadValidated(path, schemaText, schemaName string, out any) error {
	schema, err := jsonschema.CompileString(schemaName, schemaText)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("validate %s: %w", path, err)
	}
	return json.Unmarshal(raw, out)
}

// SellPrice is what a merchant pays for an item.
func SellPrice(it *models.Item) int {
	price := it.Power / 2
	if it.Type == models.ItemTypeWeapon {
		price += 5
	} else {
		price += 2
	}
	if price < 1 {
		price = 1
	}
	return price
}
