package services

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/sasha-s/go-deadlock"

	"embervale/server/catalogs"
	"embervale/server/messages"
	"embervale/server/models"
)

// Broadcaster delivers outbound messages to connected sessions. The
// handlers package implements it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastAll(msg any)
	SendTo(pid int, msg any)
}

type identity struct {
	Username string
	CharID   string
}

// WorldService owns every live simulation collection behind a single
// mutex. All game-state mutation goes through this lock; exported
// methods acquire it, lowercase helpers assume it is held. Network
// writes always happen after the lock is released, from a snapshot
// taken under it.
type WorldService struct {
	mu deadlock.Mutex

	chunks   *ChunkManager
	catalogs *catalogs.Catalogs
	accounts *PlayerService

	players     map[int]*models.Player
	npcs        map[int]*models.NPC
	items       map[int]*models.GroundItem
	projs       map[int]*models.Projectile
	inventories map[int][]*models.Item
	cooldowns   map[int]map[int]time.Time
	identities  map[int]identity

	nextPID    int
	nextNPCID  int
	nextItemID int
	nextProjID int

	floorsBuilt map[int]bool

	rng         *rand.Rand
	now         func() time.Time
	broadcaster Broadcaster

	tickHz        int
	lastBroadcast time.Time
}

func NewWorldService(cm *ChunkManager, cat *catalogs.Catalogs, tickHz int, seed int64) *WorldService {
	return &WorldService{
		chunks:      cm,
		catalogs:    cat,
		players:     make(map[int]*models.Player),
		npcs:        make(map[int]*models.NPC),
		items:       make(map[int]*models.GroundItem),
		projs:       make(map[int]*models.Projectile),
		inventories: make(map[int][]*models.Item),
		cooldowns:   make(map[int]map[int]time.Time),
		identities:  make(map[int]identity),
		nextPID:     1,
		nextNPCID:   1,
		nextItemID:  1,
		nextProjID:  1,
		floorsBuilt: make(map[int]bool),
		rng:         rand.New(rand.NewSource(seed)),
		now:         time.Now,
		tickHz:      tickHz,
	}
}

func (w *WorldService) SetBroadcaster(b Broadcaster) {
	w.broadcaster = b
}

// Chunks exposes the terrain layer for read paths that do not need the
// simulation lock.
// Counts reports the live player and NPC population, for the status
// endpoint.
func (w *WorldService) Counts() (players, npcs int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.players), len(w.npcs)
}

func (w *WorldService) Chunks() *ChunkManager {
	return w.chunks
}

func (w *WorldService) broadcast(msg any) {
	if w.broadcaster != nil {
		w.broadcaster.BroadcastAll(msg)
	}
}

func (w *WorldService) send(pid int, msg any) {
	if w.broadcaster != nil {
		w.broadcaster.SendTo(pid, msg)
	}
}

// ---- state snapshots ----

func copyPlayer(p *models.Player) models.Player {
	v := *p
	eq := make(map[string]*models.Item, len(p.Equipment))
	for slot, it := range p.Equipment {
		eq[slot] = it
	}
	v.Equipment = eq
	return v
}

func (w *WorldService) snapshotLocked() *messages.StateMessage {
	st := &messages.StateMessage{
		Type:    messages.MessageTypeState,
		Players: make(map[int]models.Player, len(w.players)),
		NPCs:    make(map[int]models.NPC, len(w.npcs)),
		Items:   make(map[int]models.GroundItem, len(w.items)),
		Projs:   make(map[int]models.Projectile, len(w.projs)),
	}
	for pid, p := range w.players {
		st.Players[pid] = copyPlayer(p)
	}
	for nid, n := range w.npcs {
		st.NPCs[nid] = *n
	}
	for iid, it := range w.items {
		st.Items[iid] = *it
	}
	for prid, pr := range w.projs {
		st.Projs[prid] = *pr
	}
	return st
}

// maybeSnapshotLocked applies the broadcast rate limit and returns nil
// when a broadcast this tick would exceed it.
func (w *WorldService) maybeSnapshotLocked() *messages.StateMessage {
	t := w.now()
	if t.Sub(w.lastBroadcast) < time.Second/time.Duration(w.tickHz) {
		return nil
	}
	w.lastBroadcast = t
	return w.snapshotLocked()
}

// BroadcastState pushes a full state snapshot to every session, rate
// limited to the tick frequency.
func (w *WorldService) BroadcastState() {
	w.mu.Lock()
	snap := w.maybeSnapshotLocked()
	w.mu.Unlock()
	if snap != nil {
		w.broadcast(snap)
	}
}

// ---- spawning ----

type mobTemplate struct {
	Name  string
	HP    int
	Speed float64
	Dmg   int
}

var mobTemplates = []mobTemplate{
	{"Giant Rat", 28, 1.6, 6},
	{"Goblin", 42, 1.9, 7},
	{"Slime", 36, 1.3, 5},
	{"Wolf", 50, 2.3, 8},
	{"Orc", 70, 1.8, 10},
	{"Bear", 90, 1.4, 12},
}

var themedTemplates = map[string]mobTemplate{
	"slime": {"Slime", 36, 1.3, 5},
	"gob":   {"Goblin", 42, 1.9, 7},
	"wolf":  {"Wolf", 50, 2.3, 8},
	"orc":   {"Orc", 70, 1.8, 10},
	"bear":  {"Bear", 90, 1.4, 12},
}

// WorldLevelForPos scales difficulty with distance from the origin:
// one level per thirty tiles.
func WorldLevelForPos(x, y float64) int {
	d := math.Hypot(x, y)
	lvl := int(d/(models.TileSize*30)) + 1
	if lvl < 1 {
		lvl = 1
	}
	return lvl
}

func (w *WorldService) mobForLevel(level int, theme string) *models.NPC {
	t := mobTemplates[w.rng.Intn(len(mobTemplates))]
	if themed, ok := themedTemplates[theme]; ok {
		t = themed
	}
	extra := level - 1
	if extra < 0 {
		extra = 0
	}
	hp := int(float64(t.HP) * (1.0 + float64(extra)*0.18))
	dmg := int(float64(t.Dmg) * (0.7 + float64(extra)*0.12))
	return &models.NPC{
		Name: t.Name, HP: hp, MaxHP: hp,
		Hostile: true, Speed: t.Speed, Dmg: dmg, Level: level,
	}
}

func (w *WorldService) spawnMobAtLocked(x, y float64, level int, theme string) int {
	if level <= 0 {
		level = WorldLevelForPos(x, y)
	}
	n := w.mobForLevel(level, theme)
	n.X, n.Y = x, y
	nid := w.nextNPCID
	w.nextNPCID++
	w.npcs[nid] = n
	return nid
}

func (w *WorldService) spawnBossAtLocked(x, y float64, level int, big bool, theme string) int {
	base := w.mobForLevel(level, theme)
	hpScale, dmgScale, prefix := 2.2, 1.4, "Champion "
	if big {
		hpScale, dmgScale, prefix = 4.0, 2.0, "Lord "
	}
	hp := int(float64(base.MaxHP) * hpScale)
	n := &models.NPC{
		X: x, Y: y,
		Name: prefix + base.Name,
		HP:   hp, MaxHP: hp,
		Hostile: true, Speed: base.Speed,
		Dmg: int(float64(base.Dmg) * dmgScale), Level: level,
		IsBoss: true, BossBig: big,
		BossNext: w.now().Add(3 * time.Second),
	}
	nid := w.nextNPCID
	w.nextNPCID++
	w.npcs[nid] = n
	return nid
}

func (w *WorldService) spawnVillagerLocked(x, y float64, name string) int {
	if name == "" {
		name = "Villager"
	}
	nid := w.nextNPCID
	w.nextNPCID++
	w.npcs[nid] = &models.NPC{
		X: x, Y: y, Name: name,
		HP: 1000000, MaxHP: 1000000,
		Hostile: false, Level: 1,
	}
	return nid
}

// SpawnMerchant places a pacifist merchant NPC bound to a catalog entry.
func (w *WorldService) SpawnMerchant(x, y float64, merchantID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	name := "Merchant"
	if m, ok := w.catalogs.Merchants[merchantID]; ok {
		name = m.Name
	}
	nid := w.spawnVillagerLocked(x, y, name)
	w.npcs[nid].MerchantID = merchantID
	return nid
}

// SpawnQuestGiver places a pacifist NPC offering the given quests.
func (w *WorldService) SpawnQuestGiver(x, y float64, questIDs []string, name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	nid := w.spawnVillagerLocked(x, y, name)
	w.npcs[nid].QuestIDs = append([]string(nil), questIDs...)
	return nid
}

// SpawnTowerGuardian places the NPC that teleports players to floor 1.
func (w *WorldService) SpawnTowerGuardian(x, y float64, name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	nid := w.spawnVillagerLocked(x, y, name)
	w.npcs[nid].TowerEntrance = true
	return nid
}

func (w *WorldService) randomFreePosLocked(centerX, centerY float64, radiusTiles int) (float64, float64) {
	for i := 0; i < 200; i++ {
		tx := int(math.Floor(centerX/models.TileSize)) + w.rng.Intn(2*radiusTiles+1) - radiusTiles
		ty := int(math.Floor(centerY/models.TileSize)) + w.rng.Intn(2*radiusTiles+1) - radiusTiles
		x := float64(tx*models.TileSize + models.TileSize/2)
		y := float64(ty*models.TileSize + models.TileSize/2)
		if !w.chunks.CollidesRect(x, y, models.PlayerSize, models.PlayerSize) {
			return x, y
		}
	}
	if centerX != 0 || centerY != 0 {
		return centerX, centerY
	}
	return models.TileSize * 4, models.TileSize * 4
}

// RandomFreePos searches for a spawnable tile center near a point.
func (w *WorldService) RandomFreePos(centerX, centerY float64, radiusTiles int) (float64, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.randomFreePosLocked(centerX, centerY, radiusTiles)
}

var lootTable = []struct {
	Name     string
	Type     string
	Power    int
	P        float64
	GoldRoll bool
}{
	{"Small Potion", models.ItemTypePotion, 30, 0.5, false},
	{"Minor Scroll", models.ItemTypeScroll, 20, 0.3, false},
	{"Chipped Dagger", models.ItemTypeWeapon, 6, 0.25, false},
	{"Gold Coin", models.ItemTypeGold, 0, 0.8, true},
}

func (w *WorldService) dropLootAtLocked(x, y float64) {
	for _, entry := range lootTable {
		if w.rng.Float64() >= entry.P {
			continue
		}
		power := entry.Power
		if entry.GoldRoll {
			power = 1 + w.rng.Intn(5)
		}
		iid := w.nextItemID
		w.nextItemID++
		w.items[iid] = &models.GroundItem{X: x, Y: y, Name: entry.Name, Type: entry.Type, Power: power}
	}
}

func (w *WorldService) placeGroundItemLocked(it *models.GroundItem) int {
	iid := w.nextItemID
	w.nextItemID++
	w.items[iid] = it
	return iid
}

// ---- in-world operations ----

// Move applies a movement delta with collision sliding. Dead players
// do not move.
func (w *WorldService) Move(pid int, dx, dy float64) {
	w.mu.Lock()
	p := w.players[pid]
	if p != nil && !p.Dead {
		p.X, p.Y = w.chunks.MoveWithCollisions(p.X, p.Y, dx, dy, models.PlayerSize)
	}
	w.mu.Unlock()
}

const (
	pickupRadius   = 40.0
	interactRadius = 48.0
)

// Pickup collects the nearest ground item within reach. Gold credits
// the purse, stairs teleport to a tower floor, everything else joins
// the inventory under a fresh id.
func (w *WorldService) Pickup(pid int) {
	var (
		invMsg     *messages.InventoryMessage
		chatMsg    *messages.ChatMessage
		gotoFloor  = 0
		dirtyUser  string
		snap       *messages.StateMessage
	)

	w.mu.Lock()
	p := w.players[pid]
	if p != nil && !p.Dead {
		targetID := 0
		found := false
		bestD2 := math.MaxFloat64
		for iid, it := range w.items {
			d2 := (it.X-p.X)*(it.X-p.X) + (it.Y-p.Y)*(it.Y-p.Y)
			if d2 < bestD2 && d2 <= pickupRadius*pickupRadius {
				bestD2, targetID, found = d2, iid, true
			}
		}
		if found {
			it := w.items[targetID]
			delete(w.items, targetID)
			switch it.Type {
			case models.ItemTypeGold:
				amount := it.Power
				if amount <= 0 {
					amount = 1
				}
				p.Gold += amount
				m := messages.SystemChat(fmt.Sprintf("%s +%d gold", p.Name, amount))
				chatMsg = &m
				dirtyUser = w.identities[pid].Username
			case models.ItemTypeStairs:
				gotoFloor = it.Floor
				if gotoFloor < 1 {
					gotoFloor = 1
				}
			default:
				inv := append(w.inventories[pid], &models.Item{
					ID:   models.GroundItemIDBase + targetID,
					Name: it.Name, Type: it.Type, Power: it.Power,
				})
				w.inventories[pid] = inv
				invMsg = w.inventoryMessageLocked(pid)
				dirtyUser = w.identities[pid].Username
			}
			snap = w.maybeSnapshotLocked()
		}
	}
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	if invMsg != nil {
		w.send(pid, invMsg)
	}
	if chatMsg != nil {
		w.broadcast(chatMsg)
	}
	if snap != nil {
		w.broadcast(snap)
	}
	if gotoFloor > 0 {
		w.EnterTowerFloor(pid, gotoFloor)
	}
}

func (w *WorldService) inventoryMessageLocked(pid int) *messages.InventoryMessage {
	inv := append([]*models.Item(nil), w.inventories[pid]...)
	return &messages.InventoryMessage{Type: messages.MessageTypeInventory, Inventory: inv}
}

// SendInventory pushes the session's current inventory.
func (w *WorldService) SendInventory(pid int) {
	w.mu.Lock()
	msg := w.inventoryMessageLocked(pid)
	w.mu.Unlock()
	w.send(pid, msg)
}

func removeItemByID(inv []*models.Item, id int) ([]*models.Item, *models.Item) {
	for i, it := range inv {
		if it.ID == id {
			return append(inv[:i:i], inv[i+1:]...), it
		}
	}
	return inv, nil
}

// UseItem consumes an inventory item: potions heal, scrolls restore
// mana, weapons self-equip into a free weapon slot, anything else is
// pawned for one gold.
func (w *WorldService) UseItem(pid, itemID int) {
	var dirtyUser string

	w.mu.Lock()
	inv, obj := removeItemByID(w.inventories[pid], itemID)
	if obj != nil {
		w.inventories[pid] = inv
		if p := w.players[pid]; p != nil {
			power := obj.Power
			switch obj.Type {
			case models.ItemTypePotion:
				if power == 0 {
					power = 30
				}
				p.HP = math.Min(p.MaxHP, p.HP+float64(power))
			case models.ItemTypeScroll:
				if power == 0 {
					power = 20
				}
				p.MP = math.Min(p.MaxMP, p.MP+float64(power))
			case models.ItemTypeWeapon:
				if p.Equipment["weapon"] == nil {
					p.Equipment["weapon"] = obj
					p.ApplyEquipment()
				} else {
					if power == 0 {
						power = 5
					}
					if power > p.WeaponBonus {
						p.WeaponBonus = power
						p.WeaponName = obj.Name
					}
				}
			default:
				p.Gold++
			}
			dirtyUser = w.identities[pid].Username
		}
	}
	msg := w.inventoryMessageLocked(pid)
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	w.send(pid, msg)
}

// Drop places an inventory item on the ground beside the player,
// minting a fresh ground id for it.
func (w *WorldService) Drop(pid, itemID int, dx, dy float64) {
	var dirtyUser string

	w.mu.Lock()
	inv, obj := removeItemByID(w.inventories[pid], itemID)
	if obj != nil {
		w.inventories[pid] = inv
		if p := w.players[pid]; p != nil {
			ix, iy := w.chunks.MoveWithCollisions(p.X, p.Y, dx, dy, models.ItemSize)
			w.placeGroundItemLocked(&models.GroundItem{
				X: ix, Y: iy, Name: obj.Name, Type: obj.Type, Power: obj.Power,
			})
			dirtyUser = w.identities[pid].Username
		}
	}
	msg := w.inventoryMessageLocked(pid)
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	w.send(pid, msg)
}

// EquipItem moves an inventory item into an equipment slot, swapping
// out whatever occupied it.
func (w *WorldService) EquipItem(pid, itemID int, slot string) {
	var (
		dirtyUser string
		feedback  *messages.ChatMessage
	)

	w.mu.Lock()
	p := w.players[pid]
	if p != nil {
		accepted := models.SlotAccepts[slot]
		idx := -1
		for i, it := range w.inventories[pid] {
			if it.ID == itemID {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			m := messages.SystemChat("Item not found in inventory.")
			feedback = &m
		case accepted == nil || !accepted[w.inventories[pid][idx].Type]:
			m := messages.SystemChat("Item type does not fit that slot.")
			feedback = &m
		default:
			inv := w.inventories[pid]
			obj := inv[idx]
			inv = append(inv[:idx:idx], inv[idx+1:]...)
			prev := p.Equipment[slot]
			p.Equipment[slot] = obj
			p.ApplyEquipment()
			if prev != nil {
				inv = append(inv, prev)
			}
			w.inventories[pid] = inv
			dirtyUser = w.identities[pid].Username
		}
	}
	msg := w.inventoryMessageLocked(pid)
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	if feedback != nil {
		w.send(pid, feedback)
	}
	w.send(pid, msg)
}

// UnequipSlot returns an equipped item to the inventory.
func (w *WorldService) UnequipSlot(pid int, slot string) {
	var dirtyUser string

	w.mu.Lock()
	p := w.players[pid]
	if p != nil {
		if obj := p.Equipment[slot]; obj != nil {
			w.inventories[pid] = append(w.inventories[pid], obj)
			p.Equipment[slot] = nil
			p.ApplyEquipment()
			dirtyUser = w.identities[pid].Username
		}
	}
	msg := w.inventoryMessageLocked(pid)
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	w.send(pid, msg)
}

// Chat relays a player-authored chat line to everyone.
func (w *WorldService) Chat(pid int, text string) {
	if text == "" {
		return
	}
	w.mu.Lock()
	author := "???"
	if p := w.players[pid]; p != nil {
		author = p.Name
	}
	w.mu.Unlock()
	w.broadcast(messages.ChatMessage{Type: messages.MessageTypeChat, From: author, Msg: text})
}

// Interact engages the nearest pacifist NPC in reach: merchants open
// their shop, quest givers their log, the tower guardian teleports to
// floor 1.
func (w *WorldService) Interact(pid int) {
	var (
		merchantMsg *messages.MerchantOpenMessage
		questMsg    *messages.QuestOpenMessage
		enterTower  bool
	)

	w.mu.Lock()
	p := w.players[pid]
	if p != nil {
		var target *models.NPC
		best := interactRadius * interactRadius
		for _, n := range w.npcs {
			if n.Hostile {
				continue
			}
			d2 := (n.X-p.X)*(n.X-p.X) + (n.Y-p.Y)*(n.Y-p.Y)
			if d2 <= best {
				best, target = d2, n
			}
		}
		switch {
		case target == nil:
		case target.MerchantID != "":
			name, stock := "Merchant", []*models.Item(nil)
			if m, ok := w.catalogs.Merchants[target.MerchantID]; ok {
				name, stock = m.Name, m.Stock
			}
			merchantMsg = &messages.MerchantOpenMessage{
				Type:       messages.MessageTypeMerchantOpen,
				MerchantID: target.MerchantID,
				Name:       name,
				Stock:      stock,
				Gold:       p.Gold,
			}
		case len(target.QuestIDs) > 0:
			var states map[string]*models.QuestState
			if w.accounts != nil {
				states = w.accounts.charQuestsLocked(pid)
			}
			list := make([]messages.QuestEntry, 0, len(target.QuestIDs))
			for _, qid := range target.QuestIDs {
				q := w.catalogs.Quests[qid]
				if q == nil {
					continue
				}
				entry := messages.QuestEntry{
					ID: qid, Title: q.Title, Desc: q.Desc,
					Status:   "available",
					Progress: map[string]int{},
				}
				if st := states[qid]; st != nil {
					entry.Status = st.Status
					for k, v := range st.Progress {
						entry.Progress[k] = v
					}
				}
				list = append(list, entry)
			}
			questMsg = &messages.QuestOpenMessage{Type: messages.MessageTypeQuestOpen, List: list}
		case target.TowerEntrance:
			enterTower = true
		}
	}
	w.mu.Unlock()

	if merchantMsg != nil {
		w.send(pid, merchantMsg)
	}
	if questMsg != nil {
		w.send(pid, questMsg)
	}
	if enterTower {
		w.EnterTowerFloor(pid, 1)
	}
}

// MerchantBuy purchases a stock line by index, gold permitting.
func (w *WorldService) MerchantBuy(pid int, merchantID string, index int) {
	var (
		result    *messages.MerchantResultMessage
		invMsg    *messages.InventoryMessage
		dirtyUser string
	)

	w.mu.Lock()
	m := w.catalogs.Merchants[merchantID]
	p := w.players[pid]
	if m != nil && p != nil && index >= 0 && index < len(m.Stock) {
		entry := m.Stock[index]
		price := entry.Price
		if price < 1 {
			price = 1
		}
		if p.Gold >= price {
			p.Gold -= price
			invID := models.GroundItemIDBase + w.nextItemID
			w.nextItemID++
			w.inventories[pid] = append(w.inventories[pid], &models.Item{
				ID: invID, Name: entry.Name, Type: entry.Type, Power: entry.Power,
			})
			dirtyUser = w.identities[pid].Username
			result = &messages.MerchantResultMessage{Type: messages.MessageTypeMerchantResult, OK: true, Gold: p.Gold}
			invMsg = w.inventoryMessageLocked(pid)
		} else {
			result = &messages.MerchantResultMessage{Type: messages.MessageTypeMerchantResult, OK: false, Msg: "Not enough gold."}
		}
	}
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	if result != nil {
		w.send(pid, result)
	}
	if invMsg != nil {
		w.send(pid, invMsg)
	}
}

// MerchantSell pawns an inventory item at the fixed resale formula.
func (w *WorldService) MerchantSell(pid, inventoryID int) {
	var (
		result    *messages.MerchantResultMessage
		invMsg    *messages.InventoryMessage
		dirtyUser string
	)

	w.mu.Lock()
	inv, obj := removeItemByID(w.inventories[pid], inventoryID)
	if obj != nil {
		if p := w.players[pid]; p != nil {
			w.inventories[pid] = inv
			p.Gold += catalogs.SellPrice(obj)
			dirtyUser = w.identities[pid].Username
			result = &messages.MerchantResultMessage{Type: messages.MessageTypeMerchantResult, OK: true, Gold: p.Gold}
			invMsg = w.inventoryMessageLocked(pid)
		}
	}
	w.mu.Unlock()

	if dirtyUser != "" && w.accounts != nil {
		w.accounts.MarkDirty(dirtyUser)
	}
	if result != nil {
		w.send(pid, result)
	}
	if invMsg != nil {
		w.send(pid, invMsg)
	}
}

// GetChunks answers a chunk window request. Terrain reads bypass the
// simulation lock entirely.
func (w *WorldService) GetChunks(pid int, coords []messages.ChunkCoord) {
	list := make([]messages.ChunkPayload, 0, len(coords))
	for _, c := range coords {
		list = append(list, messages.ChunkPayload{
			CX: c.CX, CY: c.CY,
			Tiles: w.chunks.ChunkWithOverrides(c.CX, c.CY),
		})
	}
	w.send(pid, &messages.ChunksMessage{Type: messages.MessageTypeChunks, List: list})
}

// PaintTile applies a single tile override, persists the override set
// and echoes the affected chunk back for immediate feedback.
func (w *WorldService) PaintTile(pid, tx, ty, tile int) {
	w.chunks.SetOverride(tx, ty, tile)
	if err := w.chunks.SaveOverrides(); err != nil {
		log.Printf("save overrides: %v", err)
	}
	cx := floorDiv(tx, models.ChunkTiles)
	cy := floorDiv(ty, models.ChunkTiles)
	w.send(pid, &messages.ChunksMessage{
		Type: messages.MessageTypeChunks,
		List: []messages.ChunkPayload{{CX: cx, CY: cy, Tiles: w.chunks.ChunkWithOverrides(cx, cy)}},
	})
}

// RemoveSession tears down all live state for a departed session and
// returns the player's name, empty if the session was not in world.
func (w *WorldService) RemoveSession(pid int) string {
	w.mu.Lock()
	name := ""
	if p := w.players[pid]; p != nil {
		name = p.Name
	}
	delete(w.players, pid)
	delete(w.inventories, pid)
	delete(w.cooldowns, pid)
	delete(w.identities, pid)
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.broadcast(snap)
	if name != "" {
		w.broadcast(messages.SystemChat(fmt.Sprintf("%s disconnected.", name)))
	}
	return name
}
