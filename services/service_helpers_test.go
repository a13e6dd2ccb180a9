package services

import (
	"sync"
	"testing"
	"time"

	"embervale/server/catalogs"
	"embervale/server/models"
	"embervale/server/persistence"
)

// fakeClock makes time a test input; the services only read time
// through their now hook.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWorld(t *testing.T) (*WorldService, *PlayerService, *fakeClock) {
	t.Helper()
	store, err := persistence.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	return newTestWorldWithStore(t, store)
}

func newTestWorldWithStore(t *testing.T, store persistence.Storage) (*WorldService, *PlayerService, *fakeClock) {
	t.Helper()
	cat, err := catalogs.Load(t.TempDir())
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	w := NewWorldService(NewChunkManager(1337, store), cat, 20, 42)
	clock := newFakeClock()
	w.now = clock.now
	ps, err := NewPlayerService(w, store, time.Second)
	if err != nil {
		t.Fatalf("player service: %v", err)
	}
	return w, ps, clock
}

// carveArena flattens a square of terrain to grass so tests do not
// depend on generated rivers or mountains.
func carveArena(w *WorldService, tx0, ty0, size int) {
	w.chunks.CarveRect(tx0, ty0, size, size, models.TileGrass)
}

// addSession registers a live player directly, bypassing the account
// flow, for tests that only exercise world operations.
func addSession(w *WorldService, name, class string, x, y float64) (int, *models.Player) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := models.NewPlayer(name, x, y)
	p.Class = class
	hp, mp := models.ClassBase(class)
	p.MaxHP, p.MaxMP, p.HP, p.MP = hp, mp, hp, mp
	pid := w.nextPID
	w.nextPID++
	w.players[pid] = p
	w.inventories[pid] = nil
	w.cooldowns[pid] = make(map[int]time.Time)
	return pid, p
}

func addNPC(w *WorldService, n *models.NPC) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	nid := w.nextNPCID
	w.nextNPCID++
	w.npcs[nid] = n
	return nid
}

func giveItem(w *WorldService, pid int, it *models.Item) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.inventories[pid] = append(w.inventories[pid], it)
}

// recorder captures fan-out for assertion.
type recorder struct {
	mu         sync.Mutex
	broadcasts []any
	sends      map[int][]any
}

func newRecorder() *recorder {
	return &recorder{sends: make(map[int][]any)}
}

func (r *recorder) BroadcastAll(msg any) {
	r.mu.Lock()
	r.broadcasts = append(r.broadcasts, msg)
	r.mu.Unlock()
}

func (r *recorder) SendTo(pid int, msg any) {
	r.mu.Lock()
	r.sends[pid] = append(r.sends[pid], msg)
	r.mu.Unlock()
}
