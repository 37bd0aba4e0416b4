package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/board"
	"github.com/park285/tycoon-rooms/internal/obslog"
)

// ContestPhase is the tagged phase of the property-war sub-machine.
type ContestPhase string

const (
	ContestIdle     ContestPhase = "idle"
	ContestJoining  ContestPhase = "join"
	ContestProgress ContestPhase = "progress"
	ContestReveal   ContestPhase = "reveal"
	ContestRolling  ContestPhase = "roll"
	ContestTie      ContestPhase = "tie"
	ContestResult   ContestPhase = "result"
)

// Contest modes: the stake is either a randomly chosen unowned tile or
// the whole shared pot.
const (
	ContestModeProperty = "property"
	ContestModeCash     = "cash"
)

// Contest is the property-war sub-state. Participants roll in joining
// order; ties restart a roll round restricted to the tied seats.
type Contest struct {
	Phase        ContestPhase `json:"phase"`
	Mode         string       `json:"mode"`
	Initiator    int          `json:"initiator"`
	Participants []int        `json:"participants"`
	Rolls        map[int]int  `json:"rolls"`
	RollerPos    int          `json:"rollerPos"`
	Tile         int          `json:"tileIndex"`
	Candidates   []int        `json:"-"`
	WinnerSeat   int          `json:"winnerSeat"`
	TiedSeats    []int        `json:"tiedSeats,omitempty"`
}

func (c *Contest) reset() {
	*c = Contest{Phase: ContestIdle, Tile: -1, WinnerSeat: -1}
}

func (e *Engine) contestFee() int {
	if e.st.Contest.Mode == ContestModeCash {
		return e.rules.ContestFeeCash
	}
	return e.rules.ContestFeeProp
}

// ContestInit opens the joining window. The mode is chosen from the
// board unless the caller forces one: property stakes while unowned
// tiles remain, cash stakes otherwise.
func (e *Engine) ContestInit(seat int, mode string) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	if e.SubMachineActive() {
		return ErrSubMachineBusy
	}
	c := &e.st.Contest
	c.reset()
	if mode != ContestModeProperty && mode != ContestModeCash {
		if len(e.unownedProperties()) > 0 {
			mode = ContestModeProperty
		} else {
			mode = ContestModeCash
		}
	}
	c.Phase = ContestJoining
	c.Mode = mode
	c.Initiator = seat
	c.Rolls = make(map[int]int)
	e.st.Modal = &Modal{Kind: "property_war_join", Data: map[string]any{"mode": mode}}
	e.hist("contest.started", map[string]any{"Name": e.name(seat), "Tile": board.Name(board.PropertyWarIndex)})
	return nil
}

// ContestJoin seats a participant after charging the mode fee into the
// shared pot. Double-joins and unaffordable fees are dropped.
func (e *Engine) ContestJoin(seat int) error {
	c := &e.st.Contest
	if c.Phase != ContestJoining {
		return nil
	}
	if !e.validSeat(seat) || e.st.Bankrupt[seat] {
		return ErrBadSeat
	}
	for _, p := range c.Participants {
		if p == seat {
			return nil
		}
	}
	fee := e.contestFee()
	if e.st.Balances[seat] < fee {
		obslog.L().Debug("contest_fee_unaffordable", zap.Int("seat", seat))
		return nil
	}
	e.debit(seat, fee)
	e.st.BattlePot += fee
	c.Participants = append(c.Participants, seat)
	e.hist("contest.joined", map[string]any{"Name": e.name(seat)})
	return nil
}

// ContestWithdraw refunds the fee in full while the window is still
// open.
func (e *Engine) ContestWithdraw(seat int) error {
	c := &e.st.Contest
	if c.Phase != ContestJoining {
		return nil
	}
	if !e.contestRemove(seat) {
		return nil
	}
	fee := e.contestFee()
	e.st.BattlePot -= fee
	e.credit(seat, fee)
	return nil
}

func (e *Engine) contestRemove(seat int) bool {
	c := &e.st.Contest
	for i, p := range c.Participants {
		if p != seat {
			continue
		}
		c.Participants = append(c.Participants[:i], c.Participants[i+1:]...)
		delete(c.Rolls, seat)
		if i < c.RollerPos {
			c.RollerPos--
		}
		if len(c.Participants) > 0 && c.RollerPos >= len(c.Participants) {
			c.RollerPos = 0
		}
		return true
	}
	return false
}

// ContestStart closes the joining window. Property mode goes through
// the progress delay before a tile is drawn; cash mode reveals
// immediately. Needs at least two participants.
func (e *Engine) ContestStart(seat int, availableTiles []int) error {
	c := &e.st.Contest
	if c.Phase != ContestJoining {
		return nil
	}
	if seat != c.Initiator {
		return nil
	}
	if len(c.Participants) < 2 {
		return nil
	}
	if c.Mode == ContestModeProperty {
		c.Candidates = append([]int(nil), availableTiles...)
		c.Phase = ContestProgress
		e.schedule(TimerContestProgress)
		return nil
	}
	c.Phase = ContestReveal
	e.schedule(TimerContestReveal)
	return nil
}

// contestPickTile is the progress continuation: select one unowned
// tile uniformly at random, falling back to a full-board scan when the
// caller supplied no candidates, and skipping straight to rolling when
// no unowned tile exists at all.
func (e *Engine) contestPickTile() bool {
	c := &e.st.Contest
	if c.Phase != ContestProgress {
		return false
	}
	pool := c.Candidates
	if len(pool) == 0 {
		pool = e.unownedProperties()
	} else {
		filtered := pool[:0]
		for _, idx := range pool {
			t, ok := board.TileAt(idx)
			if !ok || !t.Purchasable() {
				continue
			}
			if _, owned := e.st.Ownership[idx]; owned {
				continue
			}
			filtered = append(filtered, idx)
		}
		pool = filtered
		if len(pool) == 0 {
			pool = e.unownedProperties()
		}
	}
	if len(pool) == 0 {
		e.contestStartRollRound(c.Participants)
		return true
	}
	c.Tile = pool[e.rng.Intn(len(pool))]
	c.Phase = ContestReveal
	e.st.Modal = &Modal{Kind: "property_war_reveal", Tile: c.Tile}
	e.schedule(TimerContestReveal)
	return true
}

// contestBeginRolls is the reveal continuation.
func (e *Engine) contestBeginRolls() bool {
	c := &e.st.Contest
	if c.Phase != ContestReveal {
		return false
	}
	e.contestStartRollRound(c.Participants)
	return true
}

// contestStartRollRound clears prior rolls and fixes the rolling order
// to the given seats, re-sorted by joining order.
func (e *Engine) contestStartRollRound(seats []int) {
	c := &e.st.Contest
	order := append([]int(nil), seats...)
	sort.Ints(order)
	c.Participants = order
	c.Rolls = make(map[int]int)
	c.RollerPos = 0
	c.TiedSeats = nil
	c.Phase = ContestRolling
	e.st.Modal = &Modal{Kind: "property_war_roll", Tile: c.Tile}
}

// ContestRoll records the designated roller's total. forcedTotal > 0
// substitutes a deterministic total. When every participant has
// rolled, a unique maximum wins; a shared maximum enters the tie
// phase.
func (e *Engine) ContestRoll(seat, forcedTotal int) error {
	c := &e.st.Contest
	if c.Phase != ContestRolling {
		return nil
	}
	if len(c.Participants) == 0 || c.Participants[c.RollerPos] != seat {
		obslog.L().Debug("contest_roll_out_of_turn", zap.Int("seat", seat))
		return nil
	}
	total := forcedTotal
	if total <= 0 {
		total = e.dice() + e.dice()
	}
	c.Rolls[seat] = total
	c.RollerPos++
	if c.RollerPos < len(c.Participants) {
		return nil
	}

	max := 0
	for _, v := range c.Rolls {
		if v > max {
			max = v
		}
	}
	var top []int
	for _, p := range c.Participants {
		if c.Rolls[p] == max {
			top = append(top, p)
		}
	}
	if len(top) > 1 {
		c.Phase = ContestTie
		c.TiedSeats = top
		e.hist("contest.tie", nil)
		e.schedule(TimerContestTie)
		return nil
	}
	e.contestFinalize(top[0])
	return nil
}

// contestTieReroll is the tie-delay continuation: a fresh roll round
// restricted to exactly the tied seats.
func (e *Engine) contestTieReroll() bool {
	c := &e.st.Contest
	if c.Phase != ContestTie {
		return false
	}
	e.contestStartRollRound(c.TiedSeats)
	return true
}

// contestFinalize applies the stakes: property mode transfers the
// chosen tile for free, cash mode pays out the whole pot.
func (e *Engine) contestFinalize(winner int) {
	c := &e.st.Contest
	c.WinnerSeat = winner
	c.Phase = ContestResult

	prize := ""
	if c.Mode == ContestModeProperty && c.Tile >= 0 {
		e.st.Ownership[c.Tile] = winner
		prize = board.Name(c.Tile)
	} else {
		amount := e.st.BattlePot
		e.st.BattlePot = 0
		e.credit(winner, amount)
		prize = "the pot"
		e.floating(board.PropertyWarIndex, amount, true)
	}
	e.st.Modal = &Modal{Kind: "property_war_result", Tile: c.Tile, Data: map[string]any{
		"winner": winner,
	}}
	e.hist("contest.won", map[string]any{"Name": e.name(winner), "Prize": prize})
	obslog.L().Info("contest_settled", zap.Int("winner", winner), zap.String("mode", c.Mode))
}

// ContestClose resets the sub-state and returns control to the turn
// engine, which advances the turn.
func (e *Engine) ContestClose(seat int) error {
	c := &e.st.Contest
	if c.Phase == ContestIdle {
		return nil
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	fromResult := c.Phase == ContestResult
	c.reset()
	e.st.Modal = nil
	if fromResult {
		e.advanceTurn()
	}
	return nil
}
