package services

import (
	"fmt"
	"math"
	"time"

	"embervale/server/messages"
	"embervale/server/models"
)

// Cast precondition failure reasons, reported verbatim to the caster.
const (
	castFailDead     = "dead"
	castFailNoSkill  = "noskill"
	castFailNoMana   = "nomana"
	castFailCooldown = "cooldown"
)

// canCastLocked checks cast preconditions in a fixed order: alive,
// spell known, mana, cooldown. Nothing is mutated on failure.
func (w *WorldService) canCastLocked(pid, slot int) (models.Spell, string, bool) {
	p := w.players[pid]
	if p == nil || p.Dead {
		return models.Spell{}, castFailDead, false
	}
	sp, ok := models.SpellsByClass[p.Class][slot]
	if !ok {
		return models.Spell{}, castFailNoSkill, false
	}
	if p.MP < sp.Cost {
		return models.Spell{}, castFailNoMana, false
	}
	if readyAt, ok := w.cooldowns[pid][slot]; ok && w.now().Before(readyAt) {
		return models.Spell{}, castFailCooldown, false
	}
	return sp, "", true
}

// spendCastLocked debits mana and arms the cooldown. Runs before the
// spell effect, so the cost is paid even when the effect hits nothing.
func (w *WorldService) spendCastLocked(pid, slot int, sp models.Spell) {
	p := w.players[pid]
	p.MP = math.Max(0, p.MP-sp.Cost)
	cds := w.cooldowns[pid]
	if cds == nil {
		cds = make(map[int]time.Time)
		w.cooldowns[pid] = cds
	}
	cds[slot] = w.now().Add(time.Duration(sp.Cooldown * float64(time.Second)))
}

// Cast resolves one spell slot toward a target point. On success the
// cost is spent, the delivery applies, and an fx notice plus a state
// snapshot go out; a precondition failure only yields a system chat to
// the caster.
func (w *WorldService) Cast(pid, slot int, tx, ty float64) {
	var (
		fail *messages.ChatMessage
		fx   *messages.FXMessage
		snap *messages.StateMessage
	)

	w.mu.Lock()
	sp, reason, ok := w.canCastLocked(pid, slot)
	if !ok {
		m := messages.SystemChat(fmt.Sprintf("Spell %d unavailable (%s).", slot, reason))
		fail = &m
	} else {
		p := w.players[pid]
		px, py := p.X, p.Y
		w.spendCastLocked(pid, slot, sp)
		switch sp.Kind {
		case models.SpellProjectile:
			w.spawnProjectileLocked(pid, px, py, tx, ty, sp)
		case models.SpellCone:
			w.applyConeLocked(pid, px, py, tx, ty, sp)
		case models.SpellArea:
			w.applyAreaLocked(pid, px, py, sp)
		case models.SpellHeal:
			p.HP = math.Min(p.MaxHP, p.HP+sp.Amount)
		}
		fx = &messages.FXMessage{
			Type: messages.MessageTypeFX, FX: "cast", Slot: slot,
			X: px, Y: py, TX: tx, TY: ty, Duration: 0.25,
		}
		snap = w.maybeSnapshotLocked()
	}
	w.mu.Unlock()

	if fail != nil {
		w.send(pid, fail)
	}
	if fx != nil {
		w.broadcast(fx)
	}
	if snap != nil {
		w.broadcast(snap)
	}
}

func (w *WorldService) spawnProjectileLocked(pid int, px, py, tx, ty float64, sp models.Spell) {
	ang := math.Atan2(ty-py, tx-px)
	prid := w.nextProjID
	w.nextProjID++
	w.projs[prid] = &models.Projectile{
		X: px, Y: py,
		VX: math.Cos(ang) * sp.Speed, VY: math.Sin(ang) * sp.Speed,
		Dmg: sp.Dmg, Owner: pid,
		ExpireAt: w.now().Add(time.Duration(sp.TTL * float64(time.Second))),
	}
}

func (w *WorldService) applyConeLocked(pid int, px, py, tx, ty float64, sp models.Spell) {
	aim := math.Atan2(ty-py, tx-px)
	half := sp.AngleDeg * math.Pi / 180 / 2
	bonus := w.casterBonusLocked(pid, models.SpellCone)
	for nid, n := range w.npcs {
		if math.Hypot(px-n.X, py-n.Y) > sp.Radius {
			continue
		}
		ang := math.Atan2(n.Y-py, n.X-px)
		// fold the difference into [-pi, pi]
		diff := math.Atan2(math.Sin(ang-aim), math.Cos(ang-aim))
		if math.Abs(diff) <= half {
			w.hitNPCLocked(nid, n, pid, sp.Dmg+bonus)
		}
	}
}

func (w *WorldService) applyAreaLocked(pid int, px, py float64, sp models.Spell) {
	bonus := w.casterBonusLocked(pid, models.SpellArea)
	for nid, n := range w.npcs {
		if math.Hypot(px-n.X, py-n.Y) <= sp.Radius {
			w.hitNPCLocked(nid, n, pid, sp.Dmg+bonus)
		}
	}
}

func (w *WorldService) casterBonusLocked(pid int, kind string) int {
	p := w.players[pid]
	if p == nil {
		return 0
	}
	return models.StatBonus(p.Class, p.Stats, kind)
}

// hitNPCLocked applies damage and, on a kill, credits the attacker:
// XP, gold, quest kill progress, a loot roll, and removal of the NPC.
// The credit goes to whoever landed the killing blow.
func (w *WorldService) hitNPCLocked(nid int, n *models.NPC, attacker, dmg int) {
	n.HP -= dmg
	n.LastHitBy = attacker
	if n.HP > 0 {
		return
	}
	if owner := w.players[attacker]; owner != nil {
		owner.GrantXPGold(12+w.rng.Intn(11), 1+w.rng.Intn(3))
		if w.accounts != nil {
			if ident, ok := w.identities[attacker]; ok {
				w.accounts.MarkDirty(ident.Username)
			}
			w.accounts.incQuestKillLocked(attacker, n.Name)
		}
	}
	w.dropLootAtLocked(n.X, n.Y)
	delete(w.npcs, nid)
}
