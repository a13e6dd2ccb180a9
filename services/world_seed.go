package services

import "embervale/server/models"

// EnsureStartingVillage carves the village around the world origin:
// a sand plaza, cardinal roads and four walled houses. Carving is
// override-based, so it survives restarts once saved.
func EnsureStartingVillage(cm *ChunkManager) {
	const tx0, ty0, w, h = -16, -12, 34, 26
	cm.CarveRect(tx0, ty0, w, h, models.TileSand)
	for x := tx0; x < tx0+w; x++ {
		cm.SetOverride(x, 0, models.TileRoad)
		cm.SetOverride(x, -1, models.TileRoad)
	}
	for y := ty0; y < ty0+h; y++ {
		cm.SetOverride(0, y, models.TileRoad)
		cm.SetOverride(1, y, models.TileRoad)
	}
	for _, house := range [][2]int{{-12, -8}, {10, -6}, {-6, 6}, {8, 8}} {
		bx, by := house[0], house[1]
		for x := bx; x < bx+6; x++ {
			cm.SetOverride(x, by, models.TileMountain)
			cm.SetOverride(x, by+4, models.TileMountain)
		}
		for y := by; y < by+5; y++ {
			cm.SetOverride(bx, y, models.TileMountain)
			cm.SetOverride(bx+5, y, models.TileMountain)
		}
	}
}

// EnsureTowerEntrance paves the small plaza at the origin that hosts
// the tower guardian.
func EnsureTowerEntrance(cm *ChunkManager) {
	cm.CarveRect(-4, -4, 8, 8, models.TileRoad)
}
