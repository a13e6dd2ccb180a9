package models

import "time"

// Character classes. The default class is what a character created
// before class selection existed falls back to.
const (
	ClassWarrior    = "Warrior"
	ClassMage       = "Mage"
	ClassRogue      = "Rogue"
	ClassAdventurer = "Adventurer"
)

// Stats are the four base attributes. Damage bonuses and gear scaling
// read these directly.
type Stats struct {
	Str int `json:"str"`
	Int int `json:"int"`
	Agi int `json:"agi"`
	Sta int `json:"sta"`
}

// Equipment slot names. Every player carries all nine keys; empty
// slots hold nil.
var EquipmentSlots = []string{
	"head", "neck", "chest", "legs", "boots",
	"ring1", "ring2", "weapon", "offhand",
}

// SlotAccepts maps an equipment slot to the item types it takes.
var SlotAccepts = map[string]map[string]bool{
	"head":    {"head": true},
	"neck":    {"neck": true},
	"chest":   {"chest": true},
	"legs":    {"legs": true},
	"boots":   {"boots": true},
	"ring1":   {ItemTypeRing: true},
	"ring2":   {ItemTypeRing: true},
	"weapon":  {ItemTypeWeapon: true},
	"offhand": {ItemTypeShield: true, ItemTypeOffhand: true},
}

// Player is the live, in-world state of a connected character. The
// persisted snapshot lives in Character; exactly one of the two is
// authoritative at any time.
type Player struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	HP    float64 `json:"hp"`
	MaxHP float64 `json:"max_hp"`
	MP    float64 `json:"mp"`
	MaxMP float64 `json:"max_mp"`

	Dead      bool      `json:"dead"`
	RespawnAt time.Time `json:"-"`

	Level  int `json:"level"`
	XP     int `json:"xp"`
	NextXP int `json:"next_xp"`
	Gold   int `json:"gold"`

	WeaponBonus int    `json:"weapon_bonus"`
	WeaponName  string `json:"weapon_name,omitempty"`

	Class string `json:"class"`
	Race  string `json:"race"`

	Stats      Stats `json:"stats"`
	StatPoints int   `json:"stat_points"`

	Equipment map[string]*Item `json:"equipment"`

	// GearStats is Stats plus aggregate equipment bonuses, recomputed
	// by ApplyEquipment after every equipment change.
	GearStats Stats `json:"gear_stats"`

	TowerFloor int `json:"tower_floor,omitempty"`
}

// ClassBase returns the base resource pools for a class.
func ClassBase(class string) (maxHP, maxMP float64) {
	switch class {
	case ClassWarrior:
		return 140, 40
	case ClassMage:
		return 90, 110
	case ClassRogue:
		return 110, 70
	default:
		return 100, 60
	}
}

// NewEquipment returns an equipment map with all slots present and empty.
func NewEquipment() map[string]*Item {
	eq := make(map[string]*Item, len(EquipmentSlots))
	for _, slot := range EquipmentSlots {
		eq[slot] = nil
	}
	return eq
}

// NewPlayer builds a fresh level-1 player at the given position.
func NewPlayer(name string, x, y float64) *Player {
	return &Player{
		Name: name, X: x, Y: y,
		HP: 100, MaxHP: 100,
		MP: 60, MaxMP: 60,
		Level: 1, XP: 0, NextXP: 100,
		Class: ClassAdventurer, Race: "Human",
		Stats:     Stats{Str: 5, Int: 5, Agi: 5, Sta: 5},
		Equipment: NewEquipment(),
	}
}

// PlayerFromCharacter restores a live player from its persisted
// snapshot, placing it at the given position.
func PlayerFromCharacter(ch *Character, x, y float64) *Player {
	p := NewPlayer(ch.Name, x, y)
	p.Level = ch.Level
	p.XP = ch.XP
	p.NextXP = ch.NextXP
	p.Gold = ch.Gold
	p.WeaponBonus = ch.WeaponBonus
	p.WeaponName = ch.WeaponName
	p.Class = ch.Class
	p.Race = ch.Race

	baseHP, baseMP := ClassBase(ch.Class)
	p.MaxHP = baseHP
	p.MaxMP = baseMP
	if ch.MaxHP > 0 {
		p.MaxHP = ch.MaxHP
	}
	if ch.MaxMP > 0 {
		p.MaxMP = ch.MaxMP
	}
	p.HP = clampResource(ch.HP, p.MaxHP)
	p.MP = clampResource(ch.MP, p.MaxMP)

	if ch.Stats != nil {
		p.Stats = *ch.Stats
	}
	p.StatPoints = ch.StatPoints
	if ch.Equipment != nil {
		p.Equipment = NewEquipment()
		for slot, it := range ch.Equipment {
			if _, known := SlotAccepts[slot]; known {
				p.Equipment[slot] = it
			}
		}
	}
	p.ApplyEquipment()
	return p
}

func clampResource(v, max float64) float64 {
	if v <= 0 {
		return max
	}
	if v > max {
		return max
	}
	return v
}

// ApplyEquipment recomputes the weapon bonus and aggregate gear stats
// from the current equipment map. Call after any equip/unequip.
func (p *Player) ApplyEquipment() {
	p.WeaponBonus = 0
	p.WeaponName = ""
	var bonus Stats
	for slot, it := range p.Equipment {
		if it == nil {
			continue
		}
		power := it.Power
		if slot == "weapon" && it.Type == ItemTypeWeapon {
			if power > p.WeaponBonus {
				p.WeaponBonus = power
				p.WeaponName = it.Name
			}
			switch p.Class {
			case ClassWarrior:
				bonus.Str += power
			case ClassMage:
				bonus.Int += power
			case ClassRogue:
				bonus.Agi += power
			}
		}
		switch slot {
		case "head", "chest", "legs", "boots":
			bonus.Sta += power / 2
		case "ring1", "ring2":
			bonus.Str += power / 3
			bonus.Int += power / 3
			bonus.Agi += power / 3
		case "offhand":
			if it.Type == ItemTypeShield || it.Type == ItemTypeOffhand {
				bonus.Sta += power / 2
			}
		}
	}
	p.GearStats = Stats{
		Str: p.Stats.Str + bonus.Str,
		Int: p.Stats.Int + bonus.Int,
		Agi: p.Stats.Agi + bonus.Agi,
		Sta: p.Stats.Sta + bonus.Sta,
	}
}

// GrantXPGold credits a kill or quest reward and resolves level-ups.
// Granting exactly NextXP always yields exactly one level. Reports
// whether the player leveled.
func (p *Player) GrantXPGold(xp, gold int) bool {
	p.XP += xp
	p.Gold += gold
	leveled := false
	for p.XP >= p.NextXP {
		p.XP -= p.NextXP
		p.Level++
		p.NextXP = int(float64(p.NextXP) * 1.5)
		p.MaxHP += 10
		p.MaxMP += 5
		p.HP = p.MaxHP
		p.MP = p.MaxMP
		p.StatPoints += 5
		leveled = true
	}
	return leveled
}
