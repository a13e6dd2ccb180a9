package services

import (
	"testing"
	"time"

	"embervale/server/models"
)

func TestProjectileFliesAndHits(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.MP = 110
	nid := addNPC(w, &models.NPC{X: 8320, Y: 8220, Name: "Goblin", HP: 1000, MaxHP: 1000, Hostile: true, Speed: 0})

	w.Cast(pid, 1, 8320, 8220) // Fireball east, speed 6.8
	if len(w.projs) != 1 {
		t.Fatalf("no projectile after cast")
	}

	wantDmg := 26 + models.StatBonus(models.ClassMage, p.Stats, models.SpellProjectile)
	hit := false
	for i := 0; i < 40; i++ {
		clock.advance(50 * time.Millisecond)
		w.Tick()
		if w.npcs[nid].HP != 1000 {
			hit = true
			break
		}
	}
	if !hit {
		t.Fatalf("projectile never reached the npc")
	}
	if got := w.npcs[nid].HP; got != 1000-wantDmg {
		t.Fatalf("npc hp = %d, want %d", got, 1000-wantDmg)
	}
	if len(w.projs) != 0 {
		t.Fatalf("projectile should be consumed on hit")
	}
}

func TestProjectileExpires(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.MP = 110

	w.Cast(pid, 1, 8220, 8320) // south, nothing to hit
	for i := 0; i < 50 && len(w.projs) > 0; i++ {
		clock.advance(50 * time.Millisecond)
		w.Tick()
	}
	if len(w.projs) != 0 {
		t.Fatalf("projectile outlived its ttl")
	}
}

func TestProjectileStopsOnTerrain(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	// wall across the flight path
	for ty := 200; ty < 220; ty++ {
		w.chunks.SetOverride(208, ty, models.TileMountain)
	}
	pid, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.MP = 110
	nid := addNPC(w, &models.NPC{X: 8500, Y: 8220, Name: "Goblin", HP: 1000, MaxHP: 1000, Hostile: true, Speed: 0})

	w.Cast(pid, 1, 8500, 8220)
	for i := 0; i < 40 && len(w.projs) > 0; i++ {
		clock.advance(50 * time.Millisecond)
		w.Tick()
	}
	if got := w.npcs[nid].HP; got != 1000 {
		t.Fatalf("projectile passed through a wall: npc hp %d", got)
	}
}

func TestNPCMeleeRespectsCooldown(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	_, p := addSession(w, "Tess", models.ClassWarrior, 8220, 8220)
	addNPC(w, &models.NPC{X: 8240, Y: 8220, Name: "Wolf", HP: 50, MaxHP: 50, Hostile: true, Speed: 0, Dmg: 10})

	startHP := p.HP
	clock.advance(50 * time.Millisecond)
	w.Tick()
	afterFirst := p.HP
	if afterFirst >= startHP {
		t.Fatalf("npc in melee range did not attack")
	}

	// inside the 1.2s attack cooldown: regen only, no second hit
	clock.advance(50 * time.Millisecond)
	w.Tick()
	if p.HP < afterFirst {
		t.Fatalf("npc attacked again inside its cooldown")
	}

	clock.advance(1200 * time.Millisecond)
	w.Tick()
	if p.HP >= afterFirst {
		t.Fatalf("npc did not attack after its cooldown elapsed")
	}
}

func TestPlayerDeathAndRespawn(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	_, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	addNPC(w, &models.NPC{X: 8240, Y: 8220, Name: "Bear", HP: 90, MaxHP: 90, Hostile: true, Speed: 0, Dmg: 10000})

	clock.advance(50 * time.Millisecond)
	w.Tick()
	if !p.Dead {
		t.Fatalf("lethal melee did not kill the player")
	}

	// before the respawn delay the player stays down
	clock.advance(time.Second)
	w.Tick()
	if !p.Dead {
		t.Fatalf("player respawned early")
	}

	clock.advance(4 * time.Second)
	w.Tick()
	if p.Dead {
		t.Fatalf("player did not respawn")
	}
	if p.HP != p.MaxHP || p.MP != p.MaxMP {
		t.Fatalf("respawn should refill pools, got %v/%v", p.HP, p.MP)
	}
}

func TestRegenHealsLivingPlayers(t *testing.T) {
	w, _, clock := newTestWorld(t)
	carveArena(w, 200, 200, 20)
	_, p := addSession(w, "Tess", models.ClassMage, 8220, 8220)
	p.HP = 50
	p.MP = 10

	clock.advance(50 * time.Millisecond)
	w.Tick()
	if p.HP != 50.5 || p.MP != 10.5 {
		t.Fatalf("regen = %v/%v, want 50.5/10.5", p.HP, p.MP)
	}
}
