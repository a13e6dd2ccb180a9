package messages

import (
	"encoding/json"

	"embervale/server/models"
)

// MessageType defines the type of message being sent
type MessageType string

// Client → server message kinds.
const (
	MessageTypeLogin             MessageType = "login"
	MessageTypeRegister          MessageType = "register"
	MessageTypeRequestCharacters MessageType = "request_characters"
	MessageTypeCreateCharacter   MessageType = "create_character"
	MessageTypeEnterWorld        MessageType = "enter_world"
	MessageTypeMove              MessageType = "move"
	MessageTypePickup            MessageType = "pickup"
	MessageTypeUseItem           MessageType = "use_item"
	MessageTypeDrop              MessageType = "drop"
	MessageTypeCast              MessageType = "cast"
	MessageTypeEquipItem         MessageType = "equip_item"
	MessageTypeUnequipSlot       MessageType = "unequip_slot"
	MessageTypeChat              MessageType = "chat"
	MessageTypeRequestInventory  MessageType = "request_inventory"
	MessageTypeGetChunks         MessageType = "get_chunks"
	MessageTypeInteract          MessageType = "interact"
	MessageTypeMerchantBuy       MessageType = "merchant_buy"
	MessageTypeMerchantSell      MessageType = "merchant_sell"
	MessageTypeQuestAccept       MessageType = "quest_accept"
	MessageTypeQuestTurnin       MessageType = "quest_turnin"
	MessageTypePaintTile         MessageType = "paint_tile"
)

// Server → client message kinds.
const (
	MessageTypeLoginOK        MessageType = "login_ok"
	MessageTypeLoginError     MessageType = "login_error"
	MessageTypeCharacters     MessageType = "characters"
	MessageTypeCreateError    MessageType = "create_error"
	MessageTypeEnterError     MessageType = "enter_error"
	MessageTypeWelcome        MessageType = "welcome"
	MessageTypeState          MessageType = "state"
	MessageTypeChunks         MessageType = "chunks"
	MessageTypeInventory      MessageType = "inventory"
	MessageTypeFX             MessageType = "fx"
	MessageTypeMerchantOpen   MessageType = "merchant_open"
	MessageTypeMerchantResult MessageType = "merchant_result"
	MessageTypeQuestOpen      MessageType = "quest_open"
	MessageTypeQuestResult    MessageType = "quest_result"
	MessageTypeQuestUpdated   MessageType = "quest_updated"
	MessageTypeError          MessageType = "error"
)

// Envelope is the minimal decode of an incoming frame: the type
// discriminator plus the raw bytes for a second, typed unmarshal. The
// wire format is flat: payload fields sit beside "type".
type Envelope struct {
	Type MessageType `json:"type"`
	Raw  json.RawMessage
}

// DecodeEnvelope peels the type tag off one frame.
func DecodeEnvelope(frame []byte) (Envelope, error) {
	var head struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(frame, &head); err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: head.Type, Raw: frame}, nil
}

// Decode unmarshals the full frame into a concrete payload struct.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Raw, v)
}

// ---- client → server payloads ----

// LoginMessage represents a login request
type LoginMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterMessage represents an account registration request
type RegisterMessage struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateCharacterMessage struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Race  string `json:"race"`
}

type EnterWorldMessage struct {
	CharID string `json:"char_id"`
}

// MoveMessage represents a player movement request
type MoveMessage struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type UseItemMessage struct {
	ID int `json:"id"`
}

type DropMessage struct {
	ID int     `json:"id"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type CastMessage struct {
	Slot int     `json:"slot"`
	TX   float64 `json:"tx"`
	TY   float64 `json:"ty"`
}

type EquipItemMessage struct {
	ID   int    `json:"id"`
	Slot string `json:"slot"`
}

type UnequipSlotMessage struct {
	Slot string `json:"slot"`
}

type ChatInMessage struct {
	Msg string `json:"msg"`
}

type ChunkCoord struct {
	CX int `json:"cx"`
	CY int `json:"cy"`
}

type GetChunksMessage struct {
	Chunks []ChunkCoord `json:"chunks"`
}

type MerchantBuyMessage struct {
	MerchantID string `json:"merchant_id"`
	Index      int    `json:"index"`
}

type MerchantSellMessage struct {
	InventoryID int `json:"inventory_id"`
}

type QuestAcceptMessage struct {
	QuestID string `json:"quest_id"`
}

type QuestTurninMessage struct {
	QuestID string `json:"quest_id"`
}

type PaintTileMessage struct {
	TX    int `json:"tx"`
	TY    int `json:"ty"`
	Value int `json:"value"`
}

// ---- server → client payloads ----

type LoginOKMessage struct {
	Type       MessageType               `json:"type"`
	Characters []models.CharacterSummary `json:"characters"`
}

type LoginErrorMessage struct {
	Type MessageType `json:"type"`
	Msg  string      `json:"msg"`
}

type CharactersMessage struct {
	Type       MessageType               `json:"type"`
	Characters []models.CharacterSummary `json:"characters"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	Type MessageType `json:"type"`
	Msg  string      `json:"msg"`
}

type WelcomeMessage struct {
	Type      MessageType          `json:"type"`
	YourID    int                  `json:"your_id"`
	Tile      int                  `json:"tile"`
	GridW     int                  `json:"grid_w"`
	GridH     int                  `json:"grid_h"`
	Map       []any                `json:"map"`
	Inventory []*models.Item       `json:"inventory"`
	You       *models.Player       `json:"you"`
	Spells    map[int]models.Spell `json:"spells"`
}

// StateMessage is always a full snapshot of every live collection,
// never a delta. Collections hold value copies so a snapshot taken
// under the world lock stays consistent while it is serialized and
// sent outside it.
type StateMessage struct {
	Type    MessageType               `json:"type"`
	Players map[int]models.Player     `json:"players"`
	NPCs    map[int]models.NPC        `json:"npcs"`
	Items   map[int]models.GroundItem `json:"items"`
	Projs   map[int]models.Projectile `json:"projs"`
}

type ChunkPayload struct {
	CX    int     `json:"cx"`
	CY    int     `json:"cy"`
	Tiles [][]int `json:"tiles"`
}

type ChunksMessage struct {
	Type MessageType    `json:"type"`
	List []ChunkPayload `json:"list"`
}

type InventoryMessage struct {
	Type      MessageType    `json:"type"`
	Inventory []*models.Item `json:"inventory"`
}

// ChatMessage represents a chat line, player-authored or SYSTEM.
type ChatMessage struct {
	Type MessageType `json:"type"`
	From string      `json:"from"`
	Msg  string      `json:"msg"`
}

type FXMessage struct {
	Type     MessageType `json:"type"`
	FX       string      `json:"fx"`
	Slot     int         `json:"slot"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	TX       float64     `json:"tx"`
	TY       float64     `json:"ty"`
	Duration float64     `json:"duration"`
}

type MerchantOpenMessage struct {
	Type       MessageType    `json:"type"`
	MerchantID string         `json:"merchant_id"`
	Name       string         `json:"name"`
	Stock      []*models.Item `json:"stock"`
	Gold       int            `json:"gold"`
}

type MerchantResultMessage struct {
	Type MessageType `json:"type"`
	OK   bool        `json:"ok"`
	Gold int         `json:"gold,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

type QuestEntry struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Desc     string         `json:"desc"`
	Status   string         `json:"status"`
	Progress map[string]int `json:"progress"`
}

type QuestOpenMessage struct {
	Type MessageType  `json:"type"`
	List []QuestEntry `json:"list"`
}

type QuestResultMessage struct {
	Type MessageType `json:"type"`
	OK   bool        `json:"ok"`
	Msg  string      `json:"msg"`
}

type QuestUpdatedMessage struct {
	Type MessageType `json:"type"`
}

// SystemChat builds the SYSTEM-authored chat line used for join/leave
// and action feedback notices.
func SystemChat(msg string) ChatMessage {
	return ChatMessage{Type: MessageTypeChat, From: "SYSTEM", Msg: msg}
}
