package models

// World geometry constants. Positions are in pixels, tiles are
// TileSize pixels square, chunks are ChunkTiles tiles square.
const (
	TileSize   = 40
	ChunkTiles = 64

	PlayerSize = 20
	NPCSize    = 22
	ItemSize   = 16

	// Legacy grid metadata still sent in the welcome payload.
	GridW = 800
	GridH = 800

	// The world is generated on demand in every direction; these are
	// just the hard bounds projectiles are culled against.
	WorldW = 1_000_000_000
	WorldH = 1_000_000_000
)

// Tile types represented as integers for memory efficiency
const (
	TileGrass = iota
	TileMountain
	TileWater
	TileSand
	TileRoad
)

// IsBlockingTile reports whether entities collide with the tile.
// Only mountains/walls and water block; sand and roads are walkable.
func IsBlockingTile(t int) bool {
	return t == TileMountain || t == TileWater
}
