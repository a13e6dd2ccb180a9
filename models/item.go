package models

// Item type tags used in inventories, ground drops and merchant stock.
const (
	ItemTypePotion  = "potion"
	ItemTypeScroll  = "scroll"
	ItemTypeWeapon  = "weapon"
	ItemTypeGold    = "gold"
	ItemTypeStairs  = "stairs"
	ItemTypeShield  = "shield"
	ItemTypeOffhand = "offhand"
	ItemTypeRing    = "ring"
)

// Item is an owned item: an inventory entry, an equipped piece, a quest
// reward or a merchant stock line.
type Item struct {
	ID    int    `json:"id,omitempty"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Power int    `json:"power"`
	Price int    `json:"price,omitempty"`
	Floor int    `json:"floor,omitempty"`
}

// GroundItem is an item lying in the world, addressed by its own id in
// the world registry.
type GroundItem struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Power int     `json:"power"`
	Floor int     `json:"floor,omitempty"`
}

// GroundItemIDBase offsets inventory ids minted from picked-up ground
// items so the two id spaces never collide.
const GroundItemIDBase = 1000000
