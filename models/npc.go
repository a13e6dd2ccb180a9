package models

import "time"

// NPC is any non-player entity: hostile mobs, bosses and pacifist
// villagers (merchants, quest givers, the tower guardian). Pacifist
// NPCs never despawn and never path toward players.
type NPC struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Name    string  `json:"name"`
	HP      int     `json:"hp"`
	MaxHP   int     `json:"max_hp"`
	Hostile bool    `json:"hostile"`
	Speed   float64 `json:"speed"`
	Dmg     int     `json:"dmg"`
	Level   int     `json:"level"`

	AtkUntil time.Time `json:"-"`

	IsBoss   bool      `json:"is_boss,omitempty"`
	BossBig  bool      `json:"boss_big,omitempty"`
	BossNext time.Time `json:"-"`

	MerchantID    string   `json:"merchant_id,omitempty"`
	QuestIDs      []string `json:"quest_ids,omitempty"`
	TowerEntrance bool     `json:"tower_entrance,omitempty"`

	LastHitBy int `json:"-"`
}

// Projectile is a live spell projectile owned by the session that cast
// it. Removed on hit, expiry, terrain collision or leaving the world.
type Projectile struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	VX  float64 `json:"vx"`
	VY  float64 `json:"vy"`
	Dmg int     `json:"dmg"`

	Owner    int       `json:"owner"`
	ExpireAt time.Time `json:"-"`
}
