package models

// Spell delivery kinds.
const (
	SpellProjectile = "projectile"
	SpellCone       = "cone"
	SpellArea       = "aoe"
	SpellHeal       = "heal"
)

// Spell describes one spellbook slot. Fields are pointwise by kind:
// projectiles use Speed/TTL, cones use Radius/AngleDeg, areas use
// Radius, heals use Amount.
type Spell struct {
	Name     string  `json:"name"`
	Kind     string  `json:"type"`
	Speed    float64 `json:"speed,omitempty"`
	Radius   float64 `json:"radius,omitempty"`
	AngleDeg float64 `json:"angle_deg,omitempty"`
	Dmg      int     `json:"dmg"`
	Amount   float64 `json:"amount,omitempty"`
	Cost     float64 `json:"cost"`
	Cooldown float64 `json:"cd"`
	TTL      float64 `json:"ttl,omitempty"`
}

// SpellsByClass is the fixed 4-slot spellbook per class. Classes not
// listed here (Adventurer) have no spells.
var SpellsByClass = map[string]map[int]Spell{
	ClassWarrior: {
		1: {Name: "Axe Throw", Kind: SpellProjectile, Speed: 6.0, Dmg: 24, Cost: 6, Cooldown: 0.7, TTL: 2.0},
		2: {Name: "Cleave", Kind: SpellCone, Radius: 90, AngleDeg: 70, Dmg: 20, Cost: 10, Cooldown: 2.0},
		3: {Name: "War Cry", Kind: SpellArea, Radius: 80, Dmg: 0, Cost: 8, Cooldown: 6.0},
		4: {Name: "Second Wind", Kind: SpellHeal, Amount: 30, Cost: 0, Cooldown: 8.0},
	},
	ClassMage: {
		1: {Name: "Fireball", Kind: SpellProjectile, Speed: 6.8, Dmg: 26, Cost: 12, Cooldown: 0.7, TTL: 2.2},
		2: {Name: "Frost Cone", Kind: SpellCone, Radius: 120, AngleDeg: 60, Dmg: 18, Cost: 16, Cooldown: 2.0},
		3: {Name: "Arcane Nova", Kind: SpellArea, Radius: 90, Dmg: 22, Cost: 20, Cooldown: 4.0},
		4: {Name: "Minor Heal", Kind: SpellHeal, Amount: 35, Cost: 18, Cooldown: 3.0},
	},
	ClassRogue: {
		1: {Name: "Thrown Dagger", Kind: SpellProjectile, Speed: 7.2, Dmg: 22, Cost: 5, Cooldown: 0.5, TTL: 1.8},
		2: {Name: "Slash", Kind: SpellCone, Radius: 80, AngleDeg: 70, Dmg: 18, Cost: 8, Cooldown: 1.6},
		3: {Name: "Blinding Powder", Kind: SpellArea, Radius: 70, Dmg: 0, Cost: 10, Cooldown: 5.0},
		4: {Name: "Quick Heal", Kind: SpellHeal, Amount: 25, Cost: 10, Cooldown: 6.0},
	},
}

// StatBonus is the additive damage bonus a caster's class grants for a
// delivery kind: the class stat scaled by a per-kind coefficient.
func StatBonus(class string, stats Stats, kind string) int {
	var stat int
	var coeff float64
	switch class {
	case ClassWarrior:
		stat = stats.Str
		switch kind {
		case SpellProjectile:
			coeff = 0.6
		case SpellCone:
			coeff = 0.5
		case SpellArea:
			coeff = 0.4
		}
	case ClassMage:
		stat = stats.Int
		switch kind {
		case SpellProjectile:
			coeff = 0.6
		case SpellCone:
			coeff = 0.4
		case SpellArea:
			coeff = 0.6
		}
	case ClassRogue:
		stat = stats.Agi
		switch kind {
		case SpellProjectile:
			coeff = 0.6
		case SpellCone:
			coeff = 0.4
		case SpellArea:
			coeff = 0.3
		}
	}
	return int(float64(stat) * coeff)
}
