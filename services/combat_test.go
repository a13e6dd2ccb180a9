package services

import (
	"testing"
	"time"

	"embervale/server/models"
)

func TestCastFailsWithoutMutation(t *testing.T) {
	w, _, clock := newTestWorld(t)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)

	// not enough mana for Fireball (cost 12)
	p.MP = 5
	w.Cast(pid, 1, 8300, 8220)
	if p.MP != 5 {
		t.Fatalf("failed cast spent mana: %v", p.MP)
	}
	if len(w.projs) != 0 {
		t.Fatalf("failed cast spawned a projectile")
	}
	if len(w.cooldowns[pid]) != 0 {
		t.Fatalf("failed cast armed a cooldown")
	}

	// unknown slot
	p.MP = 110
	w.Cast(pid, 9, 8300, 8220)
	if p.MP != 110 || len(w.projs) != 0 {
		t.Fatalf("unknown slot mutated state")
	}

	// dead casters cast nothing
	p.Dead = true
	w.Cast(pid, 1, 8300, 8220)
	if p.MP != 110 || len(w.projs) != 0 {
		t.Fatalf("dead cast mutated state")
	}
	p.Dead = false

	// success: mana debited, cooldown armed, projectile spawned
	w.Cast(pid, 1, 8300, 8220)
	if p.MP != 110-12 {
		t.Fatalf("mp = %v, want 98", p.MP)
	}
	if len(w.projs) != 1 {
		t.Fatalf("projectiles = %d, want 1", len(w.projs))
	}
	readyAt, ok := w.cooldowns[pid][1]
	if !ok {
		t.Fatalf("cooldown not armed")
	}
	if want := clock.now().Add(700 * time.Millisecond); !readyAt.Equal(want) {
		t.Fatalf("cooldown ready at %v, want %v", readyAt, want)
	}

	// second cast inside the cooldown changes nothing
	w.Cast(pid, 1, 8300, 8220)
	if p.MP != 98 || len(w.projs) != 1 {
		t.Fatalf("cooldown cast mutated state")
	}

	// after the cooldown elapses the slot works again
	clock.advance(700 * time.Millisecond)
	w.Cast(pid, 1, 8300, 8220)
	if p.MP != 98-12 || len(w.projs) != 2 {
		t.Fatalf("cast after cooldown failed: mp=%v projs=%d", p.MP, len(w.projs))
	}
}

func TestConeHitsOnlyInsideArc(t *testing.T) {
	w, _, _ := newTestWorld(t)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.MP = 110

	// Frost Cone: radius 120, 60 degrees, aimed east
	inFront := addNPC(w, &models.NPC{X: 8300, Y: 8220, Name: "Goblin", HP: 1000, MaxHP: 1000, Hostile: true})
	behind := addNPC(w, &models.NPC{X: 8140, Y: 8220, Name: "Goblin", HP: 1000, MaxHP: 1000, Hostile: true})
	tooFar := addNPC(w, &models.NPC{X: 8500, Y: 8220, Name: "Goblin", HP: 1000, MaxHP: 1000, Hostile: true})

	w.Cast(pid, 2, 8300, 8220)

	wantDmg := 18 + models.StatBonus(models.ClassMage, p.Stats, models.SpellCone)
	if got := w.npcs[inFront].HP; got != 1000-wantDmg {
		t.Fatalf("front npc hp = %d, want %d", got, 1000-wantDmg)
	}
	if got := w.npcs[behind].HP; got != 1000 {
		t.Fatalf("npc behind the caster took damage: %d", got)
	}
	if got := w.npcs[tooFar].HP; got != 1000 {
		t.Fatalf("npc beyond the radius took damage: %d", got)
	}
}

func TestAreaSpellHitsAllInRadius(t *testing.T) {
	w, _, _ := newTestWorld(t)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.MP = 110

	// Arcane Nova: radius 90, dmg 22
	near := addNPC(w, &models.NPC{X: 8270, Y: 8220, Name: "Slime", HP: 1000, MaxHP: 1000, Hostile: true})
	alsoNear := addNPC(w, &models.NPC{X: 8220, Y: 8150, Name: "Slime", HP: 1000, MaxHP: 1000, Hostile: true})
	outside := addNPC(w, &models.NPC{X: 8400, Y: 8220, Name: "Slime", HP: 1000, MaxHP: 1000, Hostile: true})

	w.Cast(pid, 3, 8220, 8220)

	wantDmg := 22 + models.StatBonus(models.ClassMage, p.Stats, models.SpellArea)
	for _, nid := range []int{near, alsoNear} {
		if got := w.npcs[nid].HP; got != 1000-wantDmg {
			t.Fatalf("npc %d hp = %d, want %d", nid, got, 1000-wantDmg)
		}
	}
	if got := w.npcs[outside].HP; got != 1000 {
		t.Fatalf("npc outside radius took damage: %d", got)
	}
}

func TestHealCapsAtMax(t *testing.T) {
	w, _, _ := newTestWorld(t)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.HP = 80 // max 90
	p.MP = 110

	w.Cast(pid, 4, 0, 0) // Minor Heal, amount 35
	if p.HP != 90 {
		t.Fatalf("hp = %v, want capped at 90", p.HP)
	}
}

func TestKillCreditGoesToLethalHitter(t *testing.T) {
	w, _, _ := newTestWorld(t)
	pidA, pA := addSession(w, "Alice", models.ClassWarrior, 8220, 8220)
	pidB, pB := addSession(w, "Bob", models.ClassRogue, 8260, 8220)
	nid := addNPC(w, &models.NPC{X: 8240, Y: 8220, Name: "Wolf", HP: 30, MaxHP: 30, Hostile: true})

	w.mu.Lock()
	n := w.npcs[nid]
	w.hitNPCLocked(nid, n, pidA, 10)
	stillThere := w.npcs[nid] != nil
	w.hitNPCLocked(nid, n, pidB, 25)
	gone := w.npcs[nid] == nil
	w.mu.Unlock()

	if !stillThere {
		t.Fatalf("npc died from a non-lethal hit")
	}
	if !gone {
		t.Fatalf("npc survived a lethal hit")
	}
	if pA.XP != 0 || pA.Gold != 0 {
		t.Fatalf("non-lethal hitter was credited: xp=%d gold=%d", pA.XP, pA.Gold)
	}
	if pB.XP < 12 || pB.XP > 22 {
		t.Fatalf("lethal hitter xp = %d, want 12..22", pB.XP)
	}
	if pB.Gold < 1 || pB.Gold > 3 {
		t.Fatalf("lethal hitter gold = %d, want 1..3", pB.Gold)
	}
}
