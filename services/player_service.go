package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"embervale/server/messages"
	"embervale/server/models"
	"embervale/server/persistence"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrAlreadyActive  = errors.New("account already connected")
	ErrAccountExists  = errors.New("account already exists")
	ErrMissingFields  = errors.New("username and password required")
	ErrNoAccount      = errors.New("unknown account")
	ErrNoCharacter    = errors.New("character not found")
)

const passwordSalt = "embervale_salt"

// HashPassword is the account password digest. Accounts store only
// the hex digest, never the password.
func HashPassword(pw string) string {
	sum := sha256.Sum256([]byte(passwordSalt + "::" + pw))
	return hex.EncodeToString(sum[:])
}

// PlayerService owns accounts, characters and quest progress, and the
// session lifecycle from login to disconnect persistence. Account data
// shares the world lock; the dirty set has its own small mutex so kill
// credit can mark accounts while the world lock is held.
type PlayerService struct {
	world *WorldService
	store persistence.Storage

	accounts map[string]*models.Account
	active   map[string]bool

	dirtyMu sync.Mutex
	dirty   map[string]bool

	flushEvery time.Duration
}

func NewPlayerService(w *WorldService, store persistence.Storage, flushEvery time.Duration) (*PlayerService, error) {
	accts, err := store.LoadAccounts()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	if accts == nil {
		accts = make(map[string]*models.Account)
	}
	ps := &PlayerService{
		world:      w,
		store:      store,
		accounts:   accts,
		active:     make(map[string]bool),
		dirty:      make(map[string]bool),
		flushEvery: flushEvery,
	}
	w.accounts = ps
	return ps, nil
}

// Register creates an account and logs it in. The account is written
// through immediately; in-memory state is authoritative, so a failed
// write is logged and retried on the next flush cycle.
func (ps *PlayerService) Register(username, password string) ([]models.CharacterSummary, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}
	ps.world.mu.Lock()
	if _, exists := ps.accounts[username]; exists {
		ps.world.mu.Unlock()
		return nil, ErrAccountExists
	}
	acct := &models.Account{
		Password:   HashPassword(password),
		Characters: make(map[string]*models.Character),
		NextCharID: 1,
	}
	ps.accounts[username] = acct
	ps.active[username] = true
	err := ps.store.SaveAccount(username, acct)
	ps.world.mu.Unlock()
	if err != nil {
		log.Printf("save account %s: %v", username, err)
		ps.MarkDirty(username)
	}
	return []models.CharacterSummary{}, nil
}

// Login authenticates an account and claims its single active
// session slot.
func (ps *PlayerService) Login(username, password string) ([]models.CharacterSummary, error) {
	ps.world.mu.Lock()
	defer ps.world.mu.Unlock()
	acct := ps.accounts[username]
	if acct == nil || acct.Password != HashPassword(password) {
		return nil, ErrBadCredentials
	}
	if ps.active[username] {
		return nil, ErrAlreadyActive
	}
	ps.active[username] = true
	return acct.Summaries(), nil
}

// Release frees the account's active-session slot on disconnect.
func (ps *PlayerService) Release(username string) {
	if username == "" {
		return
	}
	ps.world.mu.Lock()
	delete(ps.active, username)
	ps.world.mu.Unlock()
}

// Characters lists the account's characters.
func (ps *PlayerService) Characters(username string) []models.CharacterSummary {
	ps.world.mu.Lock()
	defer ps.world.mu.Unlock()
	acct := ps.accounts[username]
	if acct == nil {
		return nil
	}
	return acct.Summaries()
}

// CreateCharacter adds a character to the account: class base pools,
// default stats and a starter potion whose id is derived from the
// character id so it never collides with world-minted item ids.
func (ps *PlayerService) CreateCharacter(username, name, class, race string) ([]models.CharacterSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Hero"
	}
	if class == "" {
		class = models.ClassAdventurer
	}
	if race == "" {
		race = "Human"
	}

	ps.world.mu.Lock()
	acct := ps.accounts[username]
	if acct == nil {
		ps.world.mu.Unlock()
		return nil, ErrNoAccount
	}
	cid := acct.NextCharID
	acct.NextCharID++
	maxHP, maxMP := models.ClassBase(class)
	ch := &models.Character{
		ID:   strconv.Itoa(cid),
		Name: name, Class: class, Race: race,
		Level: 1, XP: 0, NextXP: 100,
		HP: maxHP, MaxHP: maxHP,
		MP: maxMP, MaxMP: maxMP,
		Stats: &models.Stats{Str: 5, Int: 5, Agi: 5, Sta: 5},
		Inventory: []*models.Item{
			{ID: 100000 + cid*10 + 1, Name: "Small Potion", Type: models.ItemTypePotion, Power: 30},
		},
	}
	if acct.Characters == nil {
		acct.Characters = make(map[string]*models.Character)
	}
	acct.Characters[ch.ID] = ch
	err := ps.store.SaveAccount(username, acct)
	summaries := acct.Summaries()
	ps.world.mu.Unlock()

	if err != nil {
		log.Printf("save account %s: %v", username, err)
		ps.MarkDirty(username)
	}
	return summaries, nil
}

// EnterWorld promotes a character to a live session: restores or rolls
// a position, registers the session collections, bumps the item id
// counter past any persisted inventory id, and announces the join.
// Returns the session pid and the welcome payload for the new client.
func (ps *PlayerService) EnterWorld(username, charID string) (int, *messages.WelcomeMessage, error) {
	w := ps.world

	w.mu.Lock()
	acct := ps.accounts[username]
	if acct == nil {
		w.mu.Unlock()
		return 0, nil, ErrNoAccount
	}
	ch := acct.Characters[charID]
	if ch == nil {
		w.mu.Unlock()
		return 0, nil, ErrNoCharacter
	}

	var x, y float64
	if ch.X == nil || ch.Y == nil {
		x, y = w.randomFreePosLocked(0, 0, 64)
	} else {
		x, y = *ch.X, *ch.Y
	}

	pid := w.nextPID
	w.nextPID++
	p := models.PlayerFromCharacter(ch, x, y)
	w.players[pid] = p
	w.inventories[pid] = append([]*models.Item(nil), ch.Inventory...)
	w.cooldowns[pid] = make(map[int]time.Time)
	w.identities[pid] = identity{Username: username, CharID: charID}

	maxInvID := 0
	for _, it := range w.inventories[pid] {
		if it.ID > maxInvID {
			maxInvID = it.ID
		}
	}
	if maxInvID >= w.nextItemID {
		w.nextItemID = maxInvID + 1
	}

	spells := models.SpellsByClass[p.Class]
	if spells == nil {
		spells = map[int]models.Spell{}
	}
	// the payload is serialized after the lock is released, so it gets
	// a copy of the player, not the live pointer
	you := copyPlayer(p)
	welcome := &messages.WelcomeMessage{
		Type:      messages.MessageTypeWelcome,
		YourID:    pid,
		Tile:      models.TileSize,
		GridW:     models.GridW,
		GridH:     models.GridH,
		Map:       []any{},
		Inventory: append([]*models.Item(nil), w.inventories[pid]...),
		You:       &you,
		Spells:    spells,
	}
	w.mu.Unlock()

	return pid, welcome, nil
}

// AnnounceJoin broadcasts the join to everyone and seeds a couple of
// mobs near the entry point so there is something to fight. Call after
// the new session's connection is registered for fan-out.
func (ps *PlayerService) AnnounceJoin(pid int) {
	w := ps.world

	w.mu.Lock()
	p := w.players[pid]
	if p == nil {
		w.mu.Unlock()
		return
	}
	for i := 0; i < 2; i++ {
		mx, my := w.randomFreePosLocked(p.X, p.Y, 8)
		w.spawnMobAtLocked(mx, my, 0, "")
	}
	joined := messages.SystemChat(fmt.Sprintf("%s joined the game.", p.Name))
	snap := w.snapshotLocked()
	w.mu.Unlock()

	w.broadcast(snap)
	w.broadcast(joined)
}

// persistLocked copies the live player state back into its character
// snapshot. Caller holds the world lock.
func (ps *PlayerService) persistLocked(pid int) {
	ident, ok := ps.world.identities[pid]
	if !ok {
		return
	}
	acct := ps.accounts[ident.Username]
	if acct == nil {
		return
	}
	ch := acct.Characters[ident.CharID]
	if ch == nil {
		return
	}
	p := ps.world.players[pid]
	if p == nil {
		return
	}
	x, y := p.X, p.Y
	ch.Name = p.Name
	ch.Level = p.Level
	ch.XP = p.XP
	ch.NextXP = p.NextXP
	ch.Gold = p.Gold
	ch.WeaponBonus = p.WeaponBonus
	ch.WeaponName = p.WeaponName
	ch.HP = p.HP
	ch.MaxHP = p.MaxHP
	ch.MP = p.MP
	ch.MaxMP = p.MaxMP
	ch.X = &x
	ch.Y = &y
	stats := p.Stats
	ch.Stats = &stats
	ch.StatPoints = p.StatPoints
	ch.Inventory = append([]*models.Item(nil), ps.world.inventories[pid]...)
	ch.Equipment = p.Equipment
	ps.MarkDirty(ident.Username)
}

// PersistSnapshot flushes a session's live state into its character.
func (ps *PlayerService) PersistSnapshot(pid int) {
	ps.world.mu.Lock()
	ps.persistLocked(pid)
	ps.world.mu.Unlock()
}

// Disconnect persists the session, removes it from the world, and
// writes the dirty set through to storage so the final state survives
// a crash before the next flush tick.
func (ps *PlayerService) Disconnect(pid int) {
	ps.PersistSnapshot(pid)
	ps.world.RemoveSession(pid)
	ps.FlushNow()
}

// MarkDirty queues an account for the next flush. Safe under the
// world lock.
func (ps *PlayerService) MarkDirty(username string) {
	ps.dirtyMu.Lock()
	ps.dirty[username] = true
	ps.dirtyMu.Unlock()
}

// FlushNow writes every dirty account through to storage.
func (ps *PlayerService) FlushNow() {
	ps.dirtyMu.Lock()
	pending := ps.dirty
	ps.dirty = make(map[string]bool)
	ps.dirtyMu.Unlock()

	for username := range pending {
		ps.world.mu.Lock()
		acct := ps.accounts[username]
		var err error
		if acct != nil {
			err = ps.store.SaveAccount(username, acct)
		}
		ps.world.mu.Unlock()
		if err != nil {
			log.Printf("flush account %s: %v", username, err)
			ps.MarkDirty(username)
		}
	}
}

// FlushLoop periodically flushes dirty accounts until canceled, with a
// final flush on the way out.
func (ps *PlayerService) FlushLoop(ctx context.Context) {
	ticker := time.NewTicker(ps.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ps.FlushNow()
			return
		case <-ticker.C:
			ps.FlushNow()
		}
	}
}

// Backup writes a compressed archive of all accounts and tile
// overrides, then prunes old archives.
func (ps *PlayerService) Backup(dataDir string, keep int) error {
	ps.world.mu.Lock()
	path, err := persistence.WriteBackup(dataDir, ps.accounts, ps.world.chunks.snapshotOverrides())
	ps.world.mu.Unlock()
	if err != nil {
		return err
	}
	log.Printf("backup written: %s", path)
	return persistence.PruneBackups(dataDir, keep)
}

// ---- quests ----

// charQuestsLocked returns the session's quest-state map, creating it
// on first access. Caller holds the world lock.
func (ps *PlayerService) charQuestsLocked(pid int) map[string]*models.QuestState {
	ident, ok := ps.world.identities[pid]
	if !ok {
		return nil
	}
	acct := ps.accounts[ident.Username]
	if acct == nil {
		return nil
	}
	ch := acct.Characters[ident.CharID]
	if ch == nil {
		return nil
	}
	if ch.Quests == nil {
		ch.Quests = make(map[string]*models.QuestState)
	}
	return ch.Quests
}

// AcceptQuest marks a catalog quest active for the character.
func (ps *PlayerService) AcceptQuest(pid int, questID string) {
	w := ps.world

	w.mu.Lock()
	if _, known := w.catalogs.Quests[questID]; known {
		if qs := ps.charQuestsLocked(pid); qs != nil {
			if _, seen := qs[questID]; !seen {
				qs[questID] = &models.QuestState{Status: "active", Progress: make(map[string]int)}
				ps.MarkDirty(w.identities[pid].Username)
			}
		}
	}
	w.mu.Unlock()

	w.send(pid, messages.QuestUpdatedMessage{Type: messages.MessageTypeQuestUpdated})
}

// incQuestKillLocked credits a kill toward every active quest whose
// target name appears in the mob's name. Progress is capped at the
// requirement. Caller holds the world lock.
func (ps *PlayerService) incQuestKillLocked(pid int, mobName string) {
	qs := ps.charQuestsLocked(pid)
	if qs == nil {
		return
	}
	for qid, st := range qs {
		if st.Status != "active" {
			continue
		}
		q := ps.world.catalogs.Quests[qid]
		if q == nil {
			continue
		}
		for target, need := range q.Requirements.Kill {
			if !strings.Contains(mobName, target) {
				continue
			}
			if st.Progress == nil {
				st.Progress = make(map[string]int)
			}
			cur := st.Progress[target]
			if cur < need {
				st.Progress[target] = cur + 1
			}
			ps.MarkDirty(ps.world.identities[pid].Username)
		}
	}
}

// TurninQuest completes an active quest whose objectives are met and
// grants its rewards.
func (ps *PlayerService) TurninQuest(pid int, questID string) {
	w := ps.world
	ok, msg := false, ""

	w.mu.Lock()
	q := w.catalogs.Quests[questID]
	qs := ps.charQuestsLocked(pid)
	p := w.players[pid]
	switch {
	case q == nil:
		msg = "Unknown quest."
	case qs == nil || qs[questID] == nil || qs[questID].Status != "active":
		msg = "Quest not active."
	case p == nil:
		msg = "Invalid session."
	default:
		done := true
		for target, need := range q.Requirements.Kill {
			if qs[questID].Progress[target] < need {
				done = false
				break
			}
		}
		if !done {
			msg = "Objectives not met."
			break
		}
		p.GrantXPGold(q.Rewards.XP, q.Rewards.Gold)
		if q.Rewards.Item != nil {
			reward := *q.Rewards.Item
			reward.ID = models.GroundItemIDBase + w.nextItemID
			w.nextItemID++
			w.inventories[pid] = append(w.inventories[pid], &reward)
		}
		qs[questID].Status = "done"
		ps.MarkDirty(w.identities[pid].Username)
		ok, msg = true, "Quest complete!"
	}
	w.mu.Unlock()

	w.send(pid, messages.QuestResultMessage{Type: messages.MessageTypeQuestResult, OK: ok, Msg: msg})
}
