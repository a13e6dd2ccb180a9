package services

import (
	"log"

	"embervale/server/messages"
	"embervale/server/models"
)

// The tower lives in a dedicated tile region far from the explorable
// origin. Each floor is a walled room carved with overrides, offset
// horizontally by its floor number.
const (
	towerBaseTX   = 2000
	towerBaseTY   = 2000
	towerFloorW   = 32
	towerFloorH   = 24
	towerMaxFloor = 100
)

var towerThemes = []string{"slime", "gob", "wolf", "orc", "bear"}

func floorTheme(floor int) string {
	return towerThemes[((floor-1)/10)%len(towerThemes)]
}

func towerFloorOrigin(floor int) (int, int) {
	return towerBaseTX + floor*(towerFloorW+8), towerBaseTY
}

// ensureFloorAreaLocked carves and populates a tower floor the first
// time it is visited: themed mobs at the floor's level, a boss on
// every fifth floor, and the stairs to the next one.
func (w *WorldService) ensureFloorAreaLocked(floor int) {
	if w.floorsBuilt[floor] {
		return
	}
	w.floorsBuilt[floor] = true

	theme := floorTheme(floor)
	tx0, ty0 := towerFloorOrigin(floor)
	base := models.TileGrass
	if theme == "gob" || theme == "orc" {
		base = models.TileSand
	}
	w.chunks.CarveRect(tx0, ty0, towerFloorW, towerFloorH, base)
	for x := tx0; x < tx0+towerFloorW; x++ {
		w.chunks.SetOverride(x, ty0, models.TileMountain)
		w.chunks.SetOverride(x, ty0+towerFloorH-1, models.TileMountain)
	}
	for y := ty0; y < ty0+towerFloorH; y++ {
		w.chunks.SetOverride(tx0, y, models.TileMountain)
		w.chunks.SetOverride(tx0+towerFloorW-1, y, models.TileMountain)
	}
	if err := w.chunks.SaveOverrides(); err != nil {
		log.Printf("save overrides: %v", err)
	}

	centerX := float64((tx0+towerFloorW/2)*models.TileSize + models.TileSize/2)
	centerY := float64((ty0+towerFloorH/2)*models.TileSize + models.TileSize/2)
	for i := 0; i < 8; i++ {
		sx := float64((tx0+2+w.rng.Intn(towerFloorW-3))*models.TileSize + models.TileSize/2)
		sy := float64((ty0+2+w.rng.Intn(towerFloorH-3))*models.TileSize + models.TileSize/2)
		w.spawnMobAtLocked(sx, sy, floor, theme)
	}
	switch {
	case floor%10 == 0:
		w.spawnBossAtLocked(centerX, centerY, floor+2, true, theme)
	case floor%5 == 0:
		w.spawnBossAtLocked(centerX, centerY, floor+1, false, theme)
	}

	w.placeGroundItemLocked(&models.GroundItem{
		X:     float64((tx0 + towerFloorW - 3) * models.TileSize),
		Y:     float64((ty0 + 2) * models.TileSize),
		Name:  "Stairs",
		Type:  models.ItemTypeStairs,
		Floor: floor + 1,
	})
}

// EnterTowerFloor teleports a player onto a tower floor, building it
// on first visit, and pushes the surrounding chunk window so the
// client is never staring at empty terrain.
func (w *WorldService) EnterTowerFloor(pid, floor int) {
	if floor < 1 {
		floor = 1
	}
	if floor > towerMaxFloor {
		floor = towerMaxFloor
	}

	var (
		chunksMsg *messages.ChunksMessage
		snap      *messages.StateMessage
		dirtyUser string
	)

	w.mu.Lock()
	w.ensureFloorAreaLocked(floor)
	p := w.players[pid]
	if p != nil {
		tx0, ty0 := towerFloorOrigin(floor)
		p.X = float64((tx0+2)*models.TileSize + models.TileSize/2)
		p.Y = float64((ty0+towerFloorH-3)*models.TileSize + models.TileSize/2)
		p.TowerFloor = floor
		dirtyUser = w.identities[pid].Username

		cx0 := floorDiv(tx0+towerFloorW/2, models.ChunkTiles)
		cy0 := floorDiv(ty0+towerFloorH/2, models.ChunkTiles)
		list := make([]messages.ChunkPayload, 0, 9)
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				list = append(list, messages.ChunkPayload{
					CX: cx0 + dx, CY: cy0 + dy,
					Tiles: w.chunks.ChunkWithOverrides(cx0+dx, cy0+dy),
				})
			}
		}
		chunksMsg = &messages.ChunksMessage{Type: messages.MessageTypeChunks, List: list}
		snap = w.maybeSnapshotLocked()
	}
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	if chunksMsg != nil {
		w.send(pid, chunksMsg)
	}
	if snap != nil {
		w.broadcast(snap)
	}
}
