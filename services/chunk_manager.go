package services

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"embervale/server/models"
	"embervale/server/persistence"
)

// TileCoord identifies one tile on the infinite grid.
type TileCoord struct {
	TX, TY int
}

// ChunkCoord identifies one 64x64 chunk.
type ChunkCoord struct {
	CX, CY int
}

// ChunkManager generates terrain chunks deterministically from the world
// seed, caches them, and layers persisted tile overrides on top. It has
// its own lock so chunk reads never contend with the simulation lock.
type ChunkManager struct {
	mu   sync.RWMutex
	seed int64

	cache     map[ChunkCoord][][]int
	overrides map[TileCoord]int
	byChunk   map[ChunkCoord]map[TileCoord]struct{}

	store persistence.Storage
}

func NewChunkManager(seed int64, store persistence.Storage) *ChunkManager {
	return &ChunkManager{
		seed:      seed,
		cache:     make(map[ChunkCoord][][]int),
		overrides: make(map[TileCoord]int),
		byChunk:   make(map[ChunkCoord]map[TileCoord]struct{}),
		store:     store,
	}
}

// LoadOverrides restores persisted tile edits from storage.
func (cm *ChunkManager) LoadOverrides() error {
	raw, err := cm.store.LoadOverrides()
	if err != nil {
		return err
	}
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.overrides = make(map[TileCoord]int, len(raw))
	for key, t := range raw {
		var tx, ty int
		if _, err := fmt.Sscanf(key, "%d,%d", &tx, &ty); err != nil {
			continue
		}
		cm.overrides[TileCoord{tx, ty}] = t
	}
	cm.rebuildIndexLocked()
	return nil
}

// SaveOverrides writes the current override set to storage.
func (cm *ChunkManager) SaveOverrides() error {
	return cm.store.SaveOverrides(cm.snapshotOverrides())
}

func (cm *ChunkManager) snapshotOverrides() map[string]int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	raw := make(map[string]int, len(cm.overrides))
	for tc, t := range cm.overrides {
		raw[fmt.Sprintf("%d,%d", tc.TX, tc.TY)] = t
	}
	return raw
}

func (cm *ChunkManager) rebuildIndexLocked() {
	cm.byChunk = make(map[ChunkCoord]map[TileCoord]struct{})
	for tc := range cm.overrides {
		cc := ChunkCoord{floorDiv(tc.TX, models.ChunkTiles), floorDiv(tc.TY, models.ChunkTiles)}
		set := cm.byChunk[cc]
		if set == nil {
			set = make(map[TileCoord]struct{})
			cm.byChunk[cc] = set
		}
		set[tc] = struct{}{}
	}
}

func (cm *ChunkManager) chunkRand(cx, cy int) *rand.Rand {
	seed := int64(cx)*73856093 ^ int64(cy)*19349663 ^ cm.seed*83492791
	return rand.New(rand.NewSource(seed & 0xFFFFFFFF))
}

// Generate builds the raw terrain for one chunk. Pure in (seed, cx, cy):
// the same coordinates always yield the same tiles.
func (cm *ChunkManager) Generate(cx, cy int) [][]int {
	r := cm.chunkRand(cx, cy)
	tiles := make([][]int, models.ChunkTiles)
	for i := range tiles {
		tiles[i] = make([]int, models.ChunkTiles)
	}
	baseX := cx * models.ChunkTiles
	baseY := cy * models.ChunkTiles
	riverX := int(20 * math.Sin(float64(baseY)*0.01))
	riverY := int(20 * math.Cos(float64(baseX)*0.01))
	for ty := 0; ty < models.ChunkTiles; ty++ {
		for tx := 0; tx < models.ChunkTiles; tx++ {
			gx := baseX + tx
			gy := baseY + ty
			v := (math.Sin(float64(gx)*0.04) + math.Cos(float64(gy)*0.04)) * 0.5
			n := r.Float64() + 0.5*v
			t := models.TileGrass
			switch {
			case abs(pmod(gx-riverX, 64)-32) < 2 || abs(pmod(gy-riverY, 96)-48) < 2:
				t = models.TileWater
			case abs(pmod(gx-riverX, 64)-32) < 3 || abs(pmod(gy-riverY, 96)-48) < 3:
				t = models.TileSand
			case n > 1.25:
				t = models.TileMountain
			}
			tiles[ty][tx] = t
		}
	}
	// roads and bridges through the chunks around the world origin
	if abs(cx) <= 1 {
		mid := models.ChunkTiles / 2
		for x := 6; x < models.ChunkTiles-6; x++ {
			tiles[mid][x] = models.TileRoad
			tiles[mid-1][x] = models.TileRoad
		}
	}
	if abs(cy) <= 1 {
		mid := models.ChunkTiles / 2
		for y := 6; y < models.ChunkTiles-6; y++ {
			tiles[y][mid] = models.TileRoad
			tiles[y][mid-1] = models.TileRoad
		}
	}
	// occasional village: sand plaza plus one or two walled houses
	if r.Float64() < 0.07 {
		vx := randInt(r, 8, models.ChunkTiles-16)
		vy := randInt(r, 8, models.ChunkTiles-16)
		vw := randInt(r, 8, 14)
		vh := randInt(r, 8, 14)
		for y := vy; y < vy+vh; y++ {
			for x := vx; x < vx+vw; x++ {
				if y >= 0 && y < models.ChunkTiles && x >= 0 && x < models.ChunkTiles {
					tiles[y][x] = models.TileSand
				}
			}
		}
		houses := randInt(r, 1, 2)
		for i := 0; i < houses; i++ {
			hx := vx + randInt(r, 1, max(1, vw-6))
			hy := vy + randInt(r, 1, max(1, vh-6))
			hw := randInt(r, 4, min(7, vw-2))
			hh := randInt(r, 4, min(7, vh-2))
			for x := hx; x < hx+hw; x++ {
				if hy >= 0 && hy < models.ChunkTiles && x >= 0 && x < models.ChunkTiles {
					tiles[hy][x] = models.TileMountain
				}
				if hy+hh-1 >= 0 && hy+hh-1 < models.ChunkTiles && x >= 0 && x < models.ChunkTiles {
					tiles[hy+hh-1][x] = models.TileMountain
				}
			}
			for y := hy; y < hy+hh; y++ {
				if y >= 0 && y < models.ChunkTiles && hx >= 0 && hx < models.ChunkTiles {
					tiles[y][hx] = models.TileMountain
				}
				if y >= 0 && y < models.ChunkTiles && hx+hw-1 >= 0 && hx+hw-1 < models.ChunkTiles {
					tiles[y][hx+hw-1] = models.TileMountain
				}
			}
		}
	}
	return tiles
}

func (cm *ChunkManager) chunk(cx, cy int) [][]int {
	cc := ChunkCoord{cx, cy}
	cm.mu.RLock()
	ch, ok := cm.cache[cc]
	cm.mu.RUnlock()
	if ok {
		return ch
	}
	ch = cm.Generate(cx, cy)
	cm.mu.Lock()
	if cached, ok := cm.cache[cc]; ok {
		ch = cached
	} else {
		cm.cache[cc] = ch
	}
	cm.mu.Unlock()
	return ch
}

// TileAt returns the effective tile at a global tile coordinate,
// override first, generated terrain otherwise.
func (cm *ChunkManager) TileAt(tx, ty int) int {
	cm.mu.RLock()
	ov, ok := cm.overrides[TileCoord{tx, ty}]
	cm.mu.RUnlock()
	if ok {
		return ov
	}
	cx := floorDiv(tx, models.ChunkTiles)
	cy := floorDiv(ty, models.ChunkTiles)
	tiles := cm.chunk(cx, cy)
	lx := tx - cx*models.ChunkTiles
	ly := ty - cy*models.ChunkTiles
	return tiles[ly][lx]
}

// ChunkWithOverrides returns a copy of the chunk tiles with all
// overrides in that chunk applied. The copy is safe to hand to callers.
func (cm *ChunkManager) ChunkWithOverrides(cx, cy int) [][]int {
	src := cm.chunk(cx, cy)
	tiles := make([][]int, len(src))
	for i, row := range src {
		tiles[i] = append([]int(nil), row...)
	}
	cm.mu.RLock()
	for tc := range cm.byChunk[ChunkCoord{cx, cy}] {
		lx := tc.TX - cx*models.ChunkTiles
		ly := tc.TY - cy*models.ChunkTiles
		if ly >= 0 && ly < models.ChunkTiles && lx >= 0 && lx < models.ChunkTiles {
			tiles[ly][lx] = cm.overrides[tc]
		}
	}
	cm.mu.RUnlock()
	return tiles
}

// SetOverride records a single tile edit. Callers persist with
// SaveOverrides when they want it flushed.
func (cm *ChunkManager) SetOverride(tx, ty, tile int) {
	cm.mu.Lock()
	tc := TileCoord{tx, ty}
	cm.overrides[tc] = tile
	cc := ChunkCoord{floorDiv(tx, models.ChunkTiles), floorDiv(ty, models.ChunkTiles)}
	set := cm.byChunk[cc]
	if set == nil {
		set = make(map[TileCoord]struct{})
		cm.byChunk[cc] = set
	}
	set[tc] = struct{}{}
	cm.mu.Unlock()
}

// CarveRect overrides a w x h tile rectangle with one tile value.
func (cm *ChunkManager) CarveRect(tx0, ty0, w, h, tile int) {
	for ty := ty0; ty < ty0+h; ty++ {
		for tx := tx0; tx < tx0+w; tx++ {
			cm.SetOverride(tx, ty, tile)
		}
	}
}

// CollidesRect reports whether an entity rectangle centered at (cx, cy)
// overlaps any blocking tile.
func (cm *ChunkManager) CollidesRect(cx, cy, w, h float64) bool {
	x0 := int(math.Floor((cx - w/2) / models.TileSize))
	y0 := int(math.Floor((cy - h/2) / models.TileSize))
	x1 := int(math.Floor((cx + w/2) / models.TileSize))
	y1 := int(math.Floor((cy + h/2) / models.TileSize))
	for ty := y0; ty <= y1; ty++ {
		for tx := x0; tx <= x1; tx++ {
			if models.IsBlockingTile(cm.TileAt(tx, ty)) {
				return true
			}
		}
	}
	return false
}

// MoveWithCollisions slides an entity by (dx, dy), resolving each axis
// independently so walls cancel only the blocked component.
func (cm *ChunkManager) MoveWithCollisions(cx, cy, dx, dy, size float64) (float64, float64) {
	nx, ny := cx+dx, cy
	if cm.CollidesRect(nx, ny, size, size) {
		nx = cx
	}
	ny += dy
	if cm.CollidesRect(nx, ny, size, size) {
		ny = cy
	}
	return nx, ny
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func pmod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func randInt(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
