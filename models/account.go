package models

// QuestState tracks one character's standing on one quest.
type QuestState struct {
	Status   string         `json:"status"` // available, active, done
	Progress map[string]int `json:"progress"`
}

// Character is the persisted snapshot of a player. It is the source of
// truth while the character is offline; the live Player owns the state
// while a session is in world.
type Character struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Race  string `json:"race"`

	Level  int `json:"level"`
	XP     int `json:"xp"`
	NextXP int `json:"next_xp"`
	Gold   int `json:"gold"`

	WeaponBonus int    `json:"weapon_bonus"`
	WeaponName  string `json:"weapon_name,omitempty"`

	HP    float64 `json:"hp"`
	MaxHP float64 `json:"max_hp"`
	MP    float64 `json:"mp"`
	MaxMP float64 `json:"max_mp"`

	// Nil until the character has entered the world once.
	X *float64 `json:"x"`
	Y *float64 `json:"y"`

	Stats      *Stats `json:"stats"`
	StatPoints int    `json:"stat_points"`

	Inventory []*Item                `json:"inventory"`
	Equipment map[string]*Item       `json:"equipment,omitempty"`
	Quests    map[string]*QuestState `json:"quests,omitempty"`
}

// Account is one registered user: a password hash and the user's
// characters keyed by character id.
type Account struct {
	Password   string                `json:"password"` // sha256 hex
	Characters map[string]*Character `json:"characters"`
	NextCharID int                   `json:"next_char_id"`
}

// CharacterSummary is the character-select listing entry.
type CharacterSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Class string `json:"class"`
	Level int    `json:"level"`
}

// Summaries lists the account's characters for the select screen.
func (a *Account) Summaries() []CharacterSummary {
	out := make([]CharacterSummary, 0, len(a.Characters))
	for id, ch := range a.Characters {
		out = append(out, CharacterSummary{ID: id, Name: ch.Name, Class: ch.Class, Level: ch.Level})
	}
	return out
}
