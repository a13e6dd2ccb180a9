package models

import "testing"

func TestGrantXPGoldExactThresholdLevelsOnce(t *testing.T) {
	p := NewPlayer("Tess", 0, 0)
	p.HP = 40
	p.MP = 10

	leveled := p.GrantXPGold(100, 3)
	if !leveled {
		t.Fatalf("expected a level-up at exactly next_xp")
	}
	if p.Level != 2 {
		t.Fatalf("level = %d, want 2", p.Level)
	}
	if p.XP != 0 {
		t.Fatalf("xp = %d, want 0 after consuming the threshold", p.XP)
	}
	if p.NextXP != 150 {
		t.Fatalf("next_xp = %d, want 150", p.NextXP)
	}
	if p.MaxHP != 110 || p.MaxMP != 65 {
		t.Fatalf("pools = %v/%v, want 110/65", p.MaxHP, p.MaxMP)
	}
	if p.HP != p.MaxHP || p.MP != p.MaxMP {
		t.Fatalf("level-up should refill hp/mp, got %v/%v", p.HP, p.MP)
	}
	if p.StatPoints != 5 {
		t.Fatalf("stat_points = %d, want 5", p.StatPoints)
	}
	if p.Gold != 3 {
		t.Fatalf("gold = %d, want 3", p.Gold)
	}
}

func TestGrantXPGoldChainsLevels(t *testing.T) {
	p := NewPlayer("Tess", 0, 0)
	// 100 + 150 = two full thresholds
	if !p.GrantXPGold(250, 0) {
		t.Fatalf("expected level-ups")
	}
	if p.Level != 3 {
		t.Fatalf("level = %d, want 3", p.Level)
	}
	if p.XP != 0 {
		t.Fatalf("xp = %d, want 0", p.XP)
	}
	if p.NextXP != 337 { // int(int(100*1.5)*1.5)
		t.Fatalf("next_xp = %d, want 337", p.NextXP)
	}
}

func TestApplyEquipmentAggregatesBonuses(t *testing.T) {
	p := NewPlayer("Tess", 0, 0)
	p.Class = ClassWarrior
	p.Equipment["weapon"] = &Item{ID: 1, Name: "Light Axe", Type: ItemTypeWeapon, Power: 8}
	p.Equipment["chest"] = &Item{ID: 2, Name: "Mail", Type: "chest", Power: 6}
	p.Equipment["ring1"] = &Item{ID: 3, Name: "Band", Type: ItemTypeRing, Power: 9}
	p.Equipment["offhand"] = &Item{ID: 4, Name: "Buckler", Type: ItemTypeShield, Power: 4}
	p.ApplyEquipment()

	if p.WeaponBonus != 8 || p.WeaponName != "Light Axe" {
		t.Fatalf("weapon bonus = %d %q, want 8 %q", p.WeaponBonus, p.WeaponName, "Light Axe")
	}
	// base 5 + weapon 8 (warrior) + ring 9/3
	if p.GearStats.Str != 5+8+3 {
		t.Fatalf("str = %d, want %d", p.GearStats.Str, 16)
	}
	// base 5 + chest 6/2 + shield 4/2
	if p.GearStats.Sta != 5+3+2 {
		t.Fatalf("sta = %d, want %d", p.GearStats.Sta, 10)
	}
	if p.GearStats.Int != 5+3 || p.GearStats.Agi != 5+3 {
		t.Fatalf("int/agi = %d/%d, want 8/8", p.GearStats.Int, p.GearStats.Agi)
	}
}

func TestApplyEquipmentResetsAfterUnequip(t *testing.T) {
	p := NewPlayer("Tess", 0, 0)
	p.Class = ClassMage
	p.Equipment["weapon"] = &Item{ID: 1, Name: "Staff", Type: ItemTypeWeapon, Power: 10}
	p.ApplyEquipment()
	if p.GearStats.Int != 15 {
		t.Fatalf("int with staff = %d, want 15", p.GearStats.Int)
	}

	p.Equipment["weapon"] = nil
	p.ApplyEquipment()
	if p.WeaponBonus != 0 || p.WeaponName != "" {
		t.Fatalf("weapon bonus should reset, got %d %q", p.WeaponBonus, p.WeaponName)
	}
	if p.GearStats != p.Stats {
		t.Fatalf("gear stats should equal base stats after unequip, got %+v", p.GearStats)
	}
}

func TestStatBonusCoefficients(t *testing.T) {
	stats := Stats{Str: 10, Int: 10, Agi: 10}
	cases := []struct {
		class, kind string
		want        int
	}{
		{ClassWarrior, SpellProjectile, 6},
		{ClassWarrior, SpellCone, 5},
		{ClassWarrior, SpellArea, 4},
		{ClassMage, SpellProjectile, 6},
		{ClassMage, SpellCone, 4},
		{ClassMage, SpellArea, 6},
		{ClassRogue, SpellProjectile, 6},
		{ClassRogue, SpellCone, 4},
		{ClassRogue, SpellArea, 3},
		{ClassAdventurer, SpellProjectile, 0},
	}
	for _, c := range cases {
		if got := StatBonus(c.class, stats, c.kind); got != c.want {
			t.Fatalf("StatBonus(%s, %s) = %d, want %d", c.class, c.kind, got, c.want)
		}
	}
}
