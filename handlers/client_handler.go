package handlers

import (
	"errors"
	"log"

	"embervale/server/messages"
	"embervale/server/network"
	"embervale/server/services"
)

// ClientHandler drives one connection through the session phases:
// unauthenticated, character select, in world. Each connection has one
// read loop, so the phase fields need no locking; all game state goes
// through the services.
type ClientHandler struct {
	manager *ClientManager
	world   *services.WorldService
	players *services.PlayerService

	username string
	pid      int
	inWorld  bool
	done     bool
}

func NewClientHandler(manager *ClientManager, world *services.WorldService, players *services.PlayerService) *ClientHandler {
	return &ClientHandler{manager: manager, world: world, players: players}
}

// HandleMessage dispatches one decoded frame according to the session
// phase. Malformed frames are dropped silently, out-of-phase messages
// get an error reply.
func (h *ClientHandler) HandleMessage(conn network.Conn, frame []byte) {
	env, err := messages.DecodeEnvelope(frame)
	if err != nil {
		return
	}

	if h.username == "" {
		h.handleAuth(conn, env)
		return
	}
	if !h.inWorld {
		h.handleCharSelect(conn, env)
		return
	}
	h.handleInWorld(conn, env)
}

func loginError(conn network.Conn, msg string) {
	conn.Send(messages.LoginErrorMessage{Type: messages.MessageTypeLoginError, Msg: msg})
}

func (h *ClientHandler) handleAuth(conn network.Conn, env messages.Envelope) {
	switch env.Type {
	case messages.MessageTypeLogin:
		var m messages.LoginMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		chars, err := h.players.Login(m.Username, m.Password)
		switch {
		case errors.Is(err, services.ErrBadCredentials):
			loginError(conn, "Invalid credentials.")
		case errors.Is(err, services.ErrAlreadyActive):
			loginError(conn, "Account already connected.")
		case err != nil:
			loginError(conn, "Login failed.")
		default:
			h.username = m.Username
			conn.Send(messages.LoginOKMessage{Type: messages.MessageTypeLoginOK, Characters: chars})
		}

	case messages.MessageTypeRegister:
		var m messages.RegisterMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		chars, err := h.players.Register(m.Username, m.Password)
		switch {
		case errors.Is(err, services.ErrMissingFields):
			loginError(conn, "Username and password required.")
		case errors.Is(err, services.ErrAccountExists):
			loginError(conn, "User already exists.")
		case err != nil:
			log.Printf("register %s: %v", m.Username, err)
			loginError(conn, "Registration failed.")
		default:
			h.username = m.Username
			conn.Send(messages.LoginOKMessage{Type: messages.MessageTypeLoginOK, Characters: chars})
		}

	default:
		loginError(conn, "Please authenticate.")
	}
}

func (h *ClientHandler) handleCharSelect(conn network.Conn, env messages.Envelope) {
	switch env.Type {
	case messages.MessageTypeRequestCharacters:
		conn.Send(messages.CharactersMessage{
			Type:       messages.MessageTypeCharacters,
			Characters: h.players.Characters(h.username),
		})

	case messages.MessageTypeCreateCharacter:
		var m messages.CreateCharacterMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		chars, err := h.players.CreateCharacter(h.username, m.Name, m.Class, m.Race)
		if err != nil {
			log.Printf("create character for %s: %v", h.username, err)
			conn.Send(messages.ErrorMessage{Type: messages.MessageTypeCreateError, Msg: "Could not create character."})
			return
		}
		conn.Send(messages.CharactersMessage{Type: messages.MessageTypeCharacters, Characters: chars})

	case messages.MessageTypeEnterWorld:
		var m messages.EnterWorldMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		pid, welcome, err := h.players.EnterWorld(h.username, m.CharID)
		if err != nil {
			conn.Send(messages.ErrorMessage{Type: messages.MessageTypeEnterError, Msg: "Character not found."})
			return
		}
		h.pid = pid
		h.inWorld = true
		// Registered for fan-out before the welcome is sent, so a state
		// snapshot can reach the client first. Clients tolerate state
		// frames ahead of welcome.
		h.manager.Register(pid, conn)
		conn.Send(welcome)
		h.players.AnnounceJoin(pid)

	default:
		conn.Send(messages.ErrorMessage{Type: messages.MessageTypeError, Msg: "Action not valid before entering the world."})
	}
}

func (h *ClientHandler) handleInWorld(conn network.Conn, env messages.Envelope) {
	switch env.Type {
	case messages.MessageTypeMove:
		var m messages.MoveMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.Move(h.pid, m.DX, m.DY)

	case messages.MessageTypePickup:
		h.world.Pickup(h.pid)

	case messages.MessageTypeUseItem:
		var m messages.UseItemMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.UseItem(h.pid, m.ID)

	case messages.MessageTypeDrop:
		var m messages.DropMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.Drop(h.pid, m.ID, m.DX, m.DY)

	case messages.MessageTypeCast:
		var m messages.CastMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.Cast(h.pid, m.Slot, m.TX, m.TY)

	case messages.MessageTypeEquipItem:
		var m messages.EquipItemMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.EquipItem(h.pid, m.ID, m.Slot)

	case messages.MessageTypeUnequipSlot:
		var m messages.UnequipSlotMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.UnequipSlot(h.pid, m.Slot)

	case messages.MessageTypeChat:
		var m messages.ChatInMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.Chat(h.pid, m.Msg)

	case messages.MessageTypeRequestInventory:
		h.world.SendInventory(h.pid)

	case messages.MessageTypeGetChunks:
		var m messages.GetChunksMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.GetChunks(h.pid, m.Chunks)

	case messages.MessageTypeInteract:
		h.world.Interact(h.pid)

	case messages.MessageTypeMerchantBuy:
		var m messages.MerchantBuyMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.MerchantBuy(h.pid, m.MerchantID, m.Index)

	case messages.MessageTypeMerchantSell:
		var m messages.MerchantSellMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.MerchantSell(h.pid, m.InventoryID)

	case messages.MessageTypeQuestAccept:
		var m messages.QuestAcceptMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.players.AcceptQuest(h.pid, m.QuestID)

	case messages.MessageTypeQuestTurnin:
		var m messages.QuestTurninMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.players.TurninQuest(h.pid, m.QuestID)

	case messages.MessageTypePaintTile:
		var m messages.PaintTileMessage
		if err := env.Decode(&m); err != nil {
			return
		}
		h.world.PaintTile(h.pid, m.TX, m.TY, m.Value)
	}

	h.world.BroadcastState()
}

// Disconnect runs the teardown path after the read loop exits:
// persist, remove from the world, release the account. Idempotent.
func (h *ClientHandler) Disconnect() {
	if h.done {
		return
	}
	h.done = true

	if h.inWorld {
		h.manager.Unregister(h.pid)
		h.players.Disconnect(h.pid)
	}
	if h.username != "" {
		h.players.Release(h.username)
	}
}
