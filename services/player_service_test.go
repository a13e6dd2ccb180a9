package services

import (
	"errors"
	"testing"

	"embervale/server/messages"
	"embervale/server/models"
	"embervale/server/persistence"
)

func TestRegisterLoginLifecycle(t *testing.T) {
	_, ps, _ := newTestWorld(t)

	if _, err := ps.Register("", "pw"); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("blank username: %v", err)
	}
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ps.Register("alice", "other"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("duplicate register: %v", err)
	}

	// register claims the session slot, so a second login must wait
	if _, err := ps.Login("alice", "secret"); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("login while active: %v", err)
	}
	ps.Release("alice")
	if _, err := ps.Login("alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("bad password: %v", err)
	}
	if _, err := ps.Login("alice", "secret"); err != nil {
		t.Fatalf("login after release: %v", err)
	}
	if _, err := ps.Login("nosuch", "secret"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestCreateCharacterDefaults(t *testing.T) {
	_, ps, _ := newTestWorld(t)
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	sums, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf")
	if err != nil {
		t.Fatalf("create character: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("summaries = %d, want 1", len(sums))
	}

	ch := ps.accounts["alice"].Characters["1"]
	if ch == nil {
		t.Fatalf("character 1 missing")
	}
	if ch.MaxHP != 140 || ch.MaxMP != 40 {
		t.Fatalf("warrior pools = %v/%v, want 140/40", ch.MaxHP, ch.MaxMP)
	}
	if len(ch.Inventory) != 1 || ch.Inventory[0].ID != 100011 {
		t.Fatalf("starter potion id = %+v, want 100011", ch.Inventory)
	}
	if ch.Stats == nil || *ch.Stats != (models.Stats{Str: 5, Int: 5, Agi: 5, Sta: 5}) {
		t.Fatalf("starting stats = %+v", ch.Stats)
	}
}

func TestEnterWorldWelcome(t *testing.T) {
	w, ps, _ := newTestWorld(t)
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf"); err != nil {
		t.Fatalf("create character: %v", err)
	}

	pid, welcome, err := ps.EnterWorld("alice", "1")
	if err != nil {
		t.Fatalf("enter world: %v", err)
	}
	if welcome.YourID != pid {
		t.Fatalf("welcome id = %d, session id = %d", welcome.YourID, pid)
	}
	if welcome.You == nil || welcome.You.Name != "Brann" || welcome.You.Class != models.ClassWarrior {
		t.Fatalf("welcome player = %+v", welcome.You)
	}
	if len(welcome.Spells) == 0 {
		t.Fatalf("warrior should come with spells")
	}
	if len(welcome.Inventory) != 1 || welcome.Inventory[0].ID != 100011 {
		t.Fatalf("welcome inventory = %+v", welcome.Inventory)
	}
	// item id counter must clear the restored inventory ids
	if w.nextItemID != 100012 {
		t.Fatalf("nextItemID = %d, want 100012", w.nextItemID)
	}

	if _, _, err := ps.EnterWorld("alice", "99"); !errors.Is(err, ErrNoCharacter) {
		t.Fatalf("unknown character: %v", err)
	}
	if _, _, err := ps.EnterWorld("nosuch", "1"); !errors.Is(err, ErrNoAccount) {
		t.Fatalf("unknown account: %v", err)
	}
}

func TestDisconnectPersistsAndRestores(t *testing.T) {
	dir := t.TempDir()
	store, err := persistence.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	w, ps, _ := newTestWorldWithStore(t, store)
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf"); err != nil {
		t.Fatalf("create character: %v", err)
	}

	pid, _, err := ps.EnterWorld("alice", "1")
	if err != nil {
		t.Fatalf("enter world: %v", err)
	}
	p := w.players[pid]
	p.Gold = 15
	p.HP = 40
	x, y := p.X, p.Y

	ps.Disconnect(pid)
	if len(w.players) != 0 {
		t.Fatalf("session still live after disconnect")
	}
	ps.Release("alice")

	// disconnect flushes synchronously, so a fresh store over the same
	// data directory must already see the final state
	fresh, err := persistence.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	accts, err := fresh.LoadAccounts()
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	saved := accts["alice"].Characters["1"]
	if saved.Gold != 15 || saved.HP != 40 {
		t.Fatalf("stored snapshot = gold %d hp %v", saved.Gold, saved.HP)
	}

	if _, err := ps.Login("alice", "secret"); err != nil {
		t.Fatalf("re-login: %v", err)
	}
	pid2, welcome, err := ps.EnterWorld("alice", "1")
	if err != nil {
		t.Fatalf("re-enter: %v", err)
	}
	if pid2 == pid {
		t.Fatalf("session ids must not be reused")
	}
	back := welcome.You
	if back.Gold != 15 || back.HP != 40 {
		t.Fatalf("restored player = gold %d hp %v", back.Gold, back.HP)
	}
	if back.X != x || back.Y != y {
		t.Fatalf("restored position = (%v,%v), want (%v,%v)", back.X, back.Y, x, y)
	}
	if len(welcome.Inventory) != 1 || welcome.Inventory[0].Name != "Small Potion" {
		t.Fatalf("restored inventory = %+v", welcome.Inventory)
	}
}

// flakyStore fails the next SaveAccount, then recovers.
type flakyStore struct {
	persistence.Storage
	fail bool
}

func (s *flakyStore) SaveAccount(username string, acct *models.Account) error {
	if s.fail {
		s.fail = false
		return errors.New("disk full")
	}
	return s.Storage.SaveAccount(username, acct)
}

func TestTransientSaveFailureDoesNotWedgeAccount(t *testing.T) {
	dir := t.TempDir()
	inner, err := persistence.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("json store: %v", err)
	}
	store := &flakyStore{Storage: inner, fail: true}
	_, ps, _ := newTestWorldWithStore(t, store)

	// the write fails but in-memory state stays authoritative
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register with failing store: %v", err)
	}
	if _, err := ps.Register("alice", "other"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("re-register: %v", err)
	}
	ps.Release("alice")
	if _, err := ps.Login("alice", "secret"); err != nil {
		t.Fatalf("login after transient save error: %v", err)
	}

	// the failed write was queued and lands on the next flush
	ps.FlushNow()
	fresh, err := persistence.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	accts, err := fresh.LoadAccounts()
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	if accts["alice"] == nil {
		t.Fatalf("account missing from storage after retry flush")
	}

	store.fail = true
	if _, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf"); err != nil {
		t.Fatalf("create character with failing store: %v", err)
	}
	if ps.accounts["alice"].Characters["1"] == nil {
		t.Fatalf("character lost on save failure")
	}
	ps.FlushNow()
	fresh, err = persistence.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	accts, err = fresh.LoadAccounts()
	if err != nil {
		t.Fatalf("load accounts: %v", err)
	}
	if accts["alice"] == nil || accts["alice"].Characters["1"] == nil {
		t.Fatalf("character missing from storage after retry flush")
	}
}

func TestQuestAcceptProgressTurnin(t *testing.T) {
	w, ps, _ := newTestWorld(t)
	rec := newRecorder()
	w.SetBroadcaster(rec)
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf"); err != nil {
		t.Fatalf("create character: %v", err)
	}
	pid, _, err := ps.EnterWorld("alice", "1")
	if err != nil {
		t.Fatalf("enter world: %v", err)
	}

	ps.AcceptQuest(pid, "q_slimes_5")
	st := ps.accounts["alice"].Characters["1"].Quests["q_slimes_5"]
	if st == nil || st.Status != "active" {
		t.Fatalf("quest state = %+v", st)
	}

	ps.TurninQuest(pid, "q_slimes_5")
	if st.Status != "active" {
		t.Fatalf("turn-in without kills completed the quest")
	}

	// one kill beyond the requirement; progress stays capped
	w.mu.Lock()
	for i := 0; i < 6; i++ {
		ps.incQuestKillLocked(pid, "Slime")
	}
	w.mu.Unlock()
	if got := st.Progress["Slime"]; got != 5 {
		t.Fatalf("progress = %d, want 5", got)
	}

	p := w.players[pid]
	goldBefore, xpBefore := p.Gold, p.XP
	ps.TurninQuest(pid, "q_slimes_5")
	if st.Status != "done" {
		t.Fatalf("quest not completed")
	}
	if p.Gold != goldBefore+20 || p.XP != xpBefore+60 {
		t.Fatalf("rewards: gold %d->%d xp %d->%d", goldBefore, p.Gold, xpBefore, p.XP)
	}

	sent := rec.sends[pid]
	last, okCast := sent[len(sent)-1].(messages.QuestResultMessage)
	if !okCast || !last.OK || last.Msg != "Quest complete!" {
		t.Fatalf("quest result = %+v", sent[len(sent)-1])
	}

	// a second turn-in finds the quest no longer active
	ps.TurninQuest(pid, "q_slimes_5")
	sent = rec.sends[pid]
	again := sent[len(sent)-1].(messages.QuestResultMessage)
	if again.OK || again.Msg != "Quest not active." {
		t.Fatalf("repeat turn-in = %+v", again)
	}
}

func TestQuestKillNameMatchesSubstring(t *testing.T) {
	w, ps, _ := newTestWorld(t)
	if _, err := ps.Register("alice", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := ps.CreateCharacter("alice", "Brann", models.ClassWarrior, "Dwarf"); err != nil {
		t.Fatalf("create character: %v", err)
	}
	pid, _, err := ps.EnterWorld("alice", "1")
	if err != nil {
		t.Fatalf("enter world: %v", err)
	}
	ps.AcceptQuest(pid, "q_slimes_5")

	w.mu.Lock()
	ps.incQuestKillLocked(pid, "Slime Champion")
	ps.incQuestKillLocked(pid, "Wolf")
	w.mu.Unlock()

	st := ps.accounts["alice"].Characters["1"].Quests["q_slimes_5"]
	if got := st.Progress["Slime"]; got != 1 {
		t.Fatalf("progress = %d, want 1 (boss variant counts, wolf does not)", got)
	}
}
