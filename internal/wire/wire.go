// Package wire defines the JSON packets exchanged with clients over the
// websocket. Tags mirror the lobby protocol: a small set of envelope
// types plus a game_action envelope whose Action field selects the
// in-game operation.
package wire

import "encoding/json"

// Envelope types (client → server).
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeStartGame  = "start_game"
	TypeGameAction = "game_action"
)

// Game action tags carried inside a game_action envelope.
const (
	ActRollDice         = "roll_dice"
	ActBuyProperty      = "buy_property"
	ActUpgradeProperty  = "upgrade_property"
	ActAttemptRobbery   = "attempt_robbery"
	ActCloseModal       = "close_modal"
	ActOpenModal        = "open_modal"
	ActAuctionCancel    = "auction_cancel"
	ActAuctionStartSel  = "auction_start_selection"
	ActAuctionSelect    = "auction_select_property"
	ActAuctionBid       = "auction_place_bid"
	ActAuctionFold      = "auction_fold"
	ActContestInit      = "contest_init"
	ActContestJoin      = "contest_join"
	ActContestWithdraw  = "contest_withdraw"
	ActContestStart     = "contest_start"
	ActContestRoll      = "contest_roll"
	ActContestClose     = "contest_close"
	ActClaimPot         = "claim_pot"
	ActStatePatch       = "update_state"
	ActTakeLoan         = "take_loan"
	ActRepayLoan        = "repay_loan"
	ActProposeDeal      = "propose_deal"
	ActRespondDeal      = "respond_deal"
	ActEndTurn          = "end_turn"
)

// Envelope types (server → client).
const (
	TypeRoomCreated    = "room_created"
	TypeRoomJoined     = "joined_room"
	TypeRosterUpdated  = "players_updated"
	TypeGameStarted    = "game_started"
	TypeStateSnapshot  = "state_update"
	TypeFloatingAmount = "floating_amount"
	TypeDealOffer      = "deal_offer"
	TypeDealResult     = "deal_result"
	TypeRoomClosed     = "room_closed"
	TypeActionError    = "error"
)

// ClientPacket is any inbound message. Fields beyond Type are set
// depending on the envelope type.
type ClientPacket struct {
	Type    string          `json:"type"`
	Name    string          `json:"name,omitempty"`
	Avatar  string          `json:"avatar,omitempty"`
	Code    string          `json:"roomCode,omitempty"`
	Action  string          `json:"action,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Action payloads.

type TilePayload struct {
	TileIndex int `json:"tileIndex"`
	Price     int `json:"price,omitempty"`
}

type BidPayload struct {
	Amount int `json:"amount"`
}

type ContestInitPayload struct {
	Mode string `json:"mode,omitempty"` // "" selects automatically
}

type ContestStartPayload struct {
	AvailableTiles []int `json:"availableTiles,omitempty"`
}

type OpenModalPayload struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type LoanPayload struct {
	Amount int `json:"amount"`
}

// StatePatchPayload carries the presentation-only fields the host or
// the current player may overwrite directly.
type StatePatchPayload struct {
	Modal         json.RawMessage `json:"modal,omitempty"`
	HoppingSeat   *int            `json:"hoppingPlayer,omitempty"`
	ClearModal    bool            `json:"clearModal,omitempty"`
}

// DealPayload describes a proposed swap between two seats.
type DealPayload struct {
	ToSeat     int   `json:"toSeat"`
	OfferCash  int   `json:"offerCash"`
	OfferTiles []int `json:"offerTiles,omitempty"`
	WantCash   int   `json:"wantCash"`
	WantTiles  []int `json:"wantTiles,omitempty"`
}

type DealResponsePayload struct {
	Accepted bool        `json:"accepted"`
	Deal     DealPayload `json:"deal"`
}

// ServerPacket is any outbound message. GameState and Players are
// opaque to this package; the room layer fills them with its snapshot
// types.
type ServerPacket struct {
	Type      string `json:"type"`
	Code      string `json:"roomCode,omitempty"`
	Seat      *int   `json:"playerIndex,omitempty"`
	GameState any    `json:"gameState,omitempty"`
	Players   any    `json:"players,omitempty"`
	Message   string `json:"message,omitempty"`

	// floating_amount fields
	TileIndex *int `json:"tileIndex,omitempty"`
	Amount    *int `json:"amount,omitempty"`
	Positive  bool `json:"positive,omitempty"`

	// deal traffic
	Deal     *DealPayload `json:"deal,omitempty"`
	FromSeat *int         `json:"fromSeat,omitempty"`
	Accepted *bool        `json:"accepted,omitempty"`
}

// IntPtr is a small helper for optional numeric packet fields.
func IntPtr(v int) *int { return &v }

// BoolPtr mirrors IntPtr for optional booleans.
func BoolPtr(v bool) *bool { return &v }
