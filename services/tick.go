package services

import (
	"context"
	"math"
	"time"

	"embervale/server/models"
)

const (
	aggroRadius     = 160.0
	meleeRadius     = 28.0
	meleeCooldown   = 1200 * time.Millisecond
	respawnDelay    = 4 * time.Second
	regenPerTick    = 0.5
	npcFloor        = 5
	npcTopUpChance  = 0.05
	worldEventOdds  = 0.002
	projectileSteps = 2
	projectileHit   = 18.0
)

// SeedInitialMobs populates the world with its starting hostiles and
// pushes the first snapshot.
func (w *WorldService) SeedInitialMobs() {
	w.mu.Lock()
	for i := 0; i < 6; i++ {
		x, y := w.randomFreePosLocked(0, 0, 64)
		w.spawnMobAtLocked(x, y, 0, "")
	}
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.broadcast(snap)
}

// Run drives the fixed-rate simulation until the context is canceled.
// A snapshot goes out only on ticks that changed observable state.
func (w *WorldService) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(w.tickHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick()
		}
	}
}

// Tick advances the simulation one step: projectiles, NPC AI, boss
// bursts, respawns, regeneration and ambient spawning.
func (w *WorldService) Tick() {
	w.mu.Lock()
	changed := false
	t0 := w.now()

	changed = w.stepProjectilesLocked(t0) || changed
	changed = w.stepNPCsLocked(t0) || changed
	changed = w.stepPlayersLocked(t0) || changed

	if len(w.npcs) < npcFloor && w.rng.Float64() < npcTopUpChance {
		x, y := w.randomFreePosLocked(0, 0, 64)
		w.spawnMobAtLocked(x, y, 0, "")
		changed = true
	}
	if w.rng.Float64() < worldEventOdds {
		x, y := w.randomFreePosLocked(0, 0, 64)
		w.placeGroundItemLocked(&models.GroundItem{
			X: x, Y: y, Name: "Unstable Portal", Type: models.ItemTypeGold, Power: 1,
		})
		changed = true
	}

	var snap any
	if changed {
		if s := w.maybeSnapshotLocked(); s != nil {
			snap = s
		}
	}
	w.mu.Unlock()

	if snap != nil {
		w.broadcast(snap)
	}
}

// stepProjectilesLocked advances every projectile in sub-steps so fast
// shots cannot tunnel through a tile, then resolves expiry, terrain
// and NPC hits.
func (w *WorldService) stepProjectilesLocked(t0 time.Time) bool {
	changed := false
	for prid, pr := range w.projs {
		for i := 0; i < projectileSteps; i++ {
			pr.X += pr.VX / projectileSteps
			pr.Y += pr.VY / projectileSteps
		}
		changed = true
		if pr.X < 0 || pr.X > models.WorldW || pr.Y < 0 || pr.Y > models.WorldH || !t0.Before(pr.ExpireAt) {
			delete(w.projs, prid)
			continue
		}
		if w.chunks.CollidesRect(pr.X, pr.Y, 10, 10) {
			delete(w.projs, prid)
			continue
		}
		for nid, n := range w.npcs {
			if math.Hypot(pr.X-n.X, pr.Y-n.Y) <= projectileHit {
				bonus := w.casterBonusLocked(pr.Owner, models.SpellProjectile)
				w.hitNPCLocked(nid, n, pr.Owner, pr.Dmg+bonus)
				delete(w.projs, prid)
				break
			}
		}
	}
	return changed
}

// stepNPCsLocked runs hostile AI: chase the nearest living player
// inside the aggro radius, melee in close range, and fire boss bursts.
func (w *WorldService) stepNPCsLocked(t0 time.Time) bool {
	changed := false
	for _, n := range w.npcs {
		var target *models.Player
		best := math.MaxFloat64
		for _, p := range w.players {
			if p.Dead {
				continue
			}
			d := math.Hypot(n.X-p.X, n.Y-p.Y)
			if d < best {
				best, target = d, p
			}
		}
		if !n.Hostile {
			continue
		}
		if target != nil && best < aggroRadius {
			if best > 2 {
				vx, vy := target.X-n.X, target.Y-n.Y
				l := math.Hypot(vx, vy)
				if l == 0 {
					l = 1
				}
				n.X, n.Y = w.chunks.MoveWithCollisions(n.X, n.Y, n.Speed*vx/l, n.Speed*vy/l, models.NPCSize)
				changed = true
			}
			if best <= meleeRadius && !t0.Before(n.AtkUntil) {
				n.AtkUntil = t0.Add(meleeCooldown)
				target.HP -= float64(n.Dmg)
				if target.HP <= 0 && !target.Dead {
					target.Dead = true
					target.RespawnAt = t0.Add(respawnDelay)
				}
				changed = true
			}
		}
		if n.IsBoss && !t0.Before(n.BossNext) {
			interval, radius, mult := 5.0, 90.0, 1.2
			if n.BossBig {
				interval, radius, mult = 3.5, 120.0, 1.5
			}
			n.BossNext = t0.Add(time.Duration(interval * float64(time.Second)))
			for _, p := range w.players {
				if p.Dead {
					continue
				}
				if math.Hypot(n.X-p.X, n.Y-p.Y) <= radius {
					p.HP -= float64(int(float64(n.Dmg) * mult))
					if p.HP <= 0 && !p.Dead {
						p.Dead = true
						p.RespawnAt = t0.Add(respawnDelay)
					}
					changed = true
				}
			}
		}
	}
	return changed
}

// stepPlayersLocked resolves pending respawns and passive regen.
func (w *WorldService) stepPlayersLocked(t0 time.Time) bool {
	changed := false
	for _, p := range w.players {
		if p.Dead && !t0.Before(p.RespawnAt) {
			p.Dead = false
			p.HP = p.MaxHP
			p.MP = p.MaxMP
			p.X, p.Y = w.randomFreePosLocked(0, 0, 64)
			changed = true
		}
		if !p.Dead {
			p.HP = math.Min(p.MaxHP, p.HP+regenPerTick)
			p.MP = math.Min(p.MaxMP, p.MP+regenPerTick)
		}
	}
	return changed
}
