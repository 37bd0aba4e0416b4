// Package game implements the authoritative game state and its
// transition functions: the turn engine, the auction and contest
// sub-machines, loans, cards and the economy. All mutation goes
// through Engine methods; callers are expected to serialize access
// (one room, one goroutine).
package game

import (
	"math/rand"
	"time"

	"github.com/park285/tycoon-rooms/internal/board"
	"github.com/park285/tycoon-rooms/internal/msgcat"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrNotStarted     = staticErr("game not started")
	ErrAlreadyStarted = staticErr("game already started")
	ErrNotYourTurn    = staticErr("not your turn")
	ErrRollInFlight   = staticErr("roll already in flight")
	ErrTurnNotDone    = staticErr("turn not finished")
	ErrSubMachineBusy = staticErr("auction or contest in progress")
	ErrBadSeat        = staticErr("unknown seat")
	ErrBadTile        = staticErr("invalid tile")
	ErrBadPayload     = staticErr("malformed payload")
)

// Stage is the coarse room lifecycle.
type Stage string

const (
	StageLobby   Stage = "lobby"
	StagePlaying Stage = "playing"
	StageOver    Stage = "over"
)

// Modal tells every client what overlay to show, if any.
type Modal struct {
	Kind string         `json:"kind"`
	Tile int            `json:"tileIndex,omitempty"`
	Data map[string]any `json:"data,omitempty"`
}

// Loan is the single outstanding loan a seat may carry.
type Loan struct {
	Principal int `json:"principal"`
	Due       int `json:"due"`
	LapsLeft  int `json:"lapsLeft"`
	MarkTile  int `json:"markTile"`
}

// Deal is a proposed swap between two seats, pending until the target
// responds.
type Deal struct {
	FromSeat   int   `json:"fromSeat"`
	ToSeat     int   `json:"toSeat"`
	OfferCash  int   `json:"offerCash"`
	OfferTiles []int `json:"offerTiles,omitempty"`
	WantCash   int   `json:"wantCash"`
	WantTiles  []int `json:"wantTiles,omitempty"`
}

// State is the authoritative mutable record for one room. JSON tags
// match what clients render; maps keyed by tile index marshal with
// string keys.
type State struct {
	Stage        Stage          `json:"gameStage"`
	CurrentSeat  int            `json:"currentPlayer"`
	DiceValues   [2]int         `json:"diceValues"`
	TurnFinished bool           `json:"turnFinished"`
	Processing   bool           `json:"isProcessingTurn"`
	HoppingSeat  *int           `json:"hoppingPlayer"`
	Positions    []int          `json:"playerPositions"`
	Balances     []int          `json:"playerMoney"`
	Ownership    map[int]int    `json:"propertyOwnership"`
	Levels       map[int]int    `json:"propertyLevels"`
	History      []string       `json:"history"`
	Modal        *Modal         `json:"modal,omitempty"`
	Auction      Auction        `json:"auction"`
	Contest      Contest        `json:"contest"`
	Loans        map[int]*Loan  `json:"loans"`
	Bankrupt     []bool         `json:"bankrupt"`
	JailedTurns  []int          `json:"jailedTurns"`
	SkipTurns    []int          `json:"skipTurns"`
	Inventory    []map[string]int `json:"inventory"`
	Discount50   []bool         `json:"discount50"`
	CashStack    int            `json:"cashStack"`
	BattlePot    int            `json:"battlePot"`
	PendingDeal  *Deal          `json:"pendingDeal,omitempty"`
	WinnerSeat   *int           `json:"winnerSeat,omitempty"`
}

// Rules are the tunable numeric parameters of a game.
type Rules struct {
	TrackLength     int
	StartingBalance int
	PassStartBonus  int
	HistoryLimit    int
	CashStackTax    int
	AuditTax        int
	JailSkips       int
	AuctionFee      int
	BidIncrement    int
	AuctionFloor    int
	ContestFeeProp  int
	ContestFeeCash  int
	LoanLaps        int
	RobberyMin      int
	RobberyMax      int
}

// DefaultRules returns the standard parameter set for a 36-tile track.
func DefaultRules() Rules {
	return Rules{
		TrackLength:     board.TrackLength,
		StartingBalance: 12500,
		PassStartBonus:  1000,
		HistoryLimit:    10,
		CashStackTax:    300,
		AuditTax:        500,
		JailSkips:       2,
		AuctionFee:      100,
		BidIncrement:    10,
		AuctionFloor:    10,
		ContestFeeProp:  500,
		ContestFeeCash:  1000,
		LoanLaps:        3,
		RobberyMin:      1000,
		RobberyMax:      10000,
	}
}

// Roller produces one die value in [1,6].
type Roller func() int

// TimerKind names a deferred continuation the caller must schedule.
// The Fire method re-validates phase before mutating, so firing a
// stale timer is a no-op.
type TimerKind string

const (
	TimerFinishRoll      TimerKind = "finish_roll"
	TimerAuctionActivate TimerKind = "auction_activate"
	TimerAuctionSettle   TimerKind = "auction_settle"
	TimerContestProgress TimerKind = "contest_progress"
	TimerContestReveal   TimerKind = "contest_reveal"
	TimerContestTie      TimerKind = "contest_tie"
)

// EventKind classifies side effects an action produced beyond the
// state snapshot itself.
type EventKind string

const (
	EvSchedule   EventKind = "schedule"
	EvFloating   EventKind = "floating"
	EvDealOffer  EventKind = "deal_offer"
	EvDealResult EventKind = "deal_result"
)

// Event is drained by the room layer after each handled action.
type Event struct {
	Kind     EventKind
	Timer    TimerKind
	Tile     int
	Amount   int
	Positive bool
	Seat     int
	Deal     *Deal
	Accepted bool
}

// Engine owns one State plus the injected randomness and message
// catalog. Not safe for concurrent use.
type Engine struct {
	st    *State
	rules Rules
	names []string
	dice  Roller
	rng   *rand.Rand
	cat   *msgcat.Catalog

	events []Event
}

// NewEngine creates an engine in the lobby stage. cat may be nil, in
// which case history falls back to template keys.
func NewEngine(rules Rules, cat *msgcat.Catalog) *Engine {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	e := &Engine{
		rules: rules,
		rng:   rng,
		cat:   cat,
	}
	e.dice = func() int { return e.rng.Intn(6) + 1 }
	e.st = &State{
		Stage:     StageLobby,
		Ownership: make(map[int]int),
		Levels:    make(map[int]int),
		Loans:     make(map[int]*Loan),
		History:   []string{},
	}
	e.st.Auction.Phase = AuctionIdle
	e.st.Contest.Phase = ContestIdle
	return e
}

// SetRoller overrides the die source, used for deterministic rolls.
func (e *Engine) SetRoller(r Roller) { e.dice = r }

// SetRand overrides the general-purpose RNG (tile picks, cards,
// robbery rewards).
func (e *Engine) SetRand(r *rand.Rand) { e.rng = r }

// State exposes the snapshot for broadcasting. Callers must not
// mutate it.
func (e *Engine) State() *State { return e.st }

// Rules exposes the active parameter set.
func (e *Engine) Rules() Rules { return e.rules }

// Stage reports the coarse lifecycle stage.
func (e *Engine) Stage() Stage { return e.st.Stage }

// SubMachineActive reports whether the auction or contest currently
// owns input.
func (e *Engine) SubMachineActive() bool {
	return e.st.Auction.Phase != AuctionIdle || e.st.Contest.Phase != ContestIdle
}

// Start moves the room from lobby to playing and seats the given
// players.
func (e *Engine) Start(names []string) error {
	if e.st.Stage != StageLobby {
		return ErrAlreadyStarted
	}
	n := len(names)
	e.names = append([]string(nil), names...)
	e.st.Stage = StagePlaying
	e.st.CurrentSeat = 0
	e.st.DiceValues = [2]int{1, 1}
	e.st.Positions = make([]int, n)
	e.st.Balances = make([]int, n)
	e.st.Bankrupt = make([]bool, n)
	e.st.JailedTurns = make([]int, n)
	e.st.SkipTurns = make([]int, n)
	e.st.Inventory = make([]map[string]int, n)
	e.st.Discount50 = make([]bool, n)
	for i := range e.st.Balances {
		e.st.Balances[i] = e.rules.StartingBalance
		e.st.Inventory[i] = make(map[string]int)
	}
	e.pushHistory("Game started!")
	return nil
}

// Seats returns the number of seated players after Start.
func (e *Engine) Seats() int { return len(e.st.Positions) }

// DrainEvents returns and clears the pending side effects.
func (e *Engine) DrainEvents() []Event {
	out := e.events
	e.events = nil
	return out
}

func (e *Engine) emit(ev Event) { e.events = append(e.events, ev) }

func (e *Engine) schedule(t TimerKind) { e.emit(Event{Kind: EvSchedule, Timer: t}) }

func (e *Engine) floating(tile, amount int, positive bool) {
	e.emit(Event{Kind: EvFloating, Tile: tile, Amount: amount, Positive: positive})
}

// Fire runs the deferred continuation for a timer. Every branch
// re-validates the phase it was scheduled under; a mismatch means a
// player action reset the sub-state while the timer was pending, and
// the continuation is dropped.
func (e *Engine) Fire(t TimerKind) bool {
	switch t {
	case TimerFinishRoll:
		return e.finishRoll()
	case TimerAuctionActivate:
		return e.auctionActivate()
	case TimerAuctionSettle:
		return e.auctionReset()
	case TimerContestProgress:
		return e.contestPickTile()
	case TimerContestReveal:
		return e.contestBeginRolls()
	case TimerContestTie:
		return e.contestTieReroll()
	}
	return false
}

func (e *Engine) validSeat(seat int) bool {
	return seat >= 0 && seat < len(e.st.Positions)
}

func (e *Engine) name(seat int) string {
	if seat >= 0 && seat < len(e.names) {
		return e.names[seat]
	}
	return "Player"
}

// Notice appends a room-level line (joins, leaves, host changes) to
// the shared history feed.
func (e *Engine) Notice(line string) { e.pushHistory(line) }

// pushHistory prepends a line and trims to the configured cap.
func (e *Engine) pushHistory(line string) {
	e.st.History = append([]string{line}, e.st.History...)
	if len(e.st.History) > e.rules.HistoryLimit {
		e.st.History = e.st.History[:e.rules.HistoryLimit]
	}
}

func (e *Engine) hist(key string, data map[string]any) {
	if e.cat == nil {
		e.pushHistory(key)
		return
	}
	e.pushHistory(e.cat.MustRender(key, data))
}

// credit adds to a balance; debit subtracts and flags bankruptcy when
// the balance drops below zero.
func (e *Engine) credit(seat, amount int) {
	e.st.Balances[seat] += amount
}

func (e *Engine) debit(seat, amount int) {
	e.st.Balances[seat] -= amount
	if e.st.Balances[seat] < 0 && !e.st.Bankrupt[seat] {
		e.st.Bankrupt[seat] = true
		e.hist("history.bankrupt", map[string]any{"Name": e.name(seat)})
		e.pruneBankrupt(seat)
		e.checkGameOver()
	}
}

// pruneBankrupt removes a freshly bankrupt seat from any active
// sub-machine.
func (e *Engine) pruneBankrupt(seat int) {
	if e.st.Auction.Phase == AuctionActive || e.st.Auction.Phase == AuctionAnnouncing {
		e.auctionRemove(seat)
		e.pruneAndCheckWinner()
	}
	if e.st.Contest.Phase != ContestIdle && e.st.Contest.Phase != ContestResult {
		e.contestRemove(seat)
	}
}

// checkGameOver marks the winner when a single solvent seat remains.
func (e *Engine) checkGameOver() {
	alive := -1
	count := 0
	for s := range e.st.Bankrupt {
		if !e.st.Bankrupt[s] {
			alive = s
			count++
		}
	}
	if count == 1 {
		e.st.Stage = StageOver
		e.st.WinnerSeat = &alive
		e.hist("history.winner", map[string]any{"Name": e.name(alive)})
	}
}

// hasMonopoly reports whether seat owns every property in the tile's
// color group.
func (e *Engine) hasMonopoly(tile, seat int) bool {
	t, ok := board.TileAt(tile)
	if !ok || t.Kind != board.KindProperty {
		return false
	}
	for _, idx := range board.GroupIndexes(t.Group) {
		if owner, owned := e.st.Ownership[idx]; !owned || owner != seat {
			return false
		}
	}
	return true
}

func (e *Engine) trainsOwned(seat int) int {
	n := 0
	for _, idx := range board.TrainIndexes {
		if owner, ok := e.st.Ownership[idx]; ok && owner == seat {
			n++
		}
	}
	return n
}

// unownedProperties returns every purchasable tile without an owner.
func (e *Engine) unownedProperties() []int {
	var out []int
	for _, idx := range board.PurchasableIndexes() {
		if _, owned := e.st.Ownership[idx]; !owned {
			out = append(out, idx)
		}
	}
	return out
}
