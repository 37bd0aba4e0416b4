package game

import (
	"github.com/park285/tycoon-rooms/internal/board"
)

// drawCard picks an applicable card, applies it and raises the card
// modal. Repairs cards are skipped for players with no buildings and
// debt cards for players with no loan, so a draw is never a dead
// no-op.
func (e *Engine) drawCard(seat int, deck []board.Card, kind string) {
	pool := make([]board.Card, 0, len(deck))
	for _, c := range deck {
		if e.cardApplies(seat, c) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return
	}
	card := pool[e.rng.Intn(len(pool))]
	e.applyCard(seat, card)
	e.st.Modal = &Modal{Kind: kind, Data: map[string]any{
		"cardId": card.ID,
		"text":   card.Text,
	}}
	e.hist("history.card", map[string]any{"Name": e.name(seat), "Text": card.Text})
}

func (e *Engine) cardApplies(seat int, c board.Card) bool {
	switch c.Action {
	case board.ActionRepairs:
		return e.buildingCounts(seat, false) > 0 || e.buildingCounts(seat, true) > 0
	case board.ActionClearDebtFull, board.ActionClearDebtPartial:
		_, has := e.st.Loans[seat]
		return has
	default:
		return true
	}
}

// buildingCounts tallies houses (levels 1..4) or hotels (level 5)
// across the seat's properties.
func (e *Engine) buildingCounts(seat int, hotels bool) int {
	n := 0
	for tile, owner := range e.st.Ownership {
		if owner != seat {
			continue
		}
		level := e.st.Levels[tile]
		if hotels {
			if level == board.MaxLevel {
				n++
			}
		} else if level > 0 && level < board.MaxLevel {
			n += level
		}
	}
	return n
}

func (e *Engine) applyCard(seat int, c board.Card) {
	switch c.Action {
	case board.ActionMoneyAdd:
		e.credit(seat, c.Amount)
		e.floating(e.st.Positions[seat], c.Amount, true)
	case board.ActionMoneySubtract:
		e.debit(seat, c.Amount)
		e.floating(e.st.Positions[seat], c.Amount, false)
	case board.ActionCollectFromAll:
		total := 0
		for s := range e.st.Balances {
			if s == seat || e.st.Bankrupt[s] {
				continue
			}
			e.debit(s, c.Amount)
			total += c.Amount
		}
		e.credit(seat, total)
	case board.ActionRepairs:
		cost := e.buildingCounts(seat, false)*c.HouseCost + e.buildingCounts(seat, true)*c.HotelCost
		if cost > 0 {
			e.debit(seat, cost)
			e.floating(e.st.Positions[seat], cost, false)
		}
	case board.ActionMoveTo:
		e.moveDirect(seat, c.Target, true)
	case board.ActionGoToJail:
		e.sendToJail(seat)
	case board.ActionMoveToRandom:
		e.moveDirect(seat, e.rng.Intn(e.rules.TrackLength), true)
	case board.ActionMoveBackwardRand:
		steps := e.rng.Intn(10) + 1
		e.moveSteps(seat, -steps)
	case board.ActionMoveForwardRand:
		steps := e.rng.Intn(10) + 1
		e.moveSteps(seat, steps)
	case board.ActionMoveSteps:
		e.moveSteps(seat, c.Steps)
	case board.ActionAddInventory:
		e.st.Inventory[seat][c.Item]++
	case board.ActionAddEffect:
		if c.Item == board.EffectDiscount50 {
			e.st.Discount50[seat] = true
		}
	case board.ActionClearDebtFull:
		e.clearDebt(seat, 1)
	case board.ActionClearDebtPartial:
		e.clearDebt(seat, c.Fraction)
	}
}

// moveDirect teleports the seat. Forward teleports that land on or
// past START pay the lap bonus when awardBonus is set.
func (e *Engine) moveDirect(seat, target int, awardBonus bool) {
	old := e.st.Positions[seat]
	e.st.Positions[seat] = target
	if awardBonus && (target == board.StartIndex || target < old) {
		e.credit(seat, e.rules.PassStartBonus)
		e.hist("history.pass_start", map[string]any{"Name": e.name(seat), "Bonus": e.rules.PassStartBonus})
	}
	e.dispatchAfterCardMove(seat, target)
}

// moveSteps walks the seat forward or backward. Backward moves never
// pay the lap bonus.
func (e *Engine) moveSteps(seat, steps int) {
	old := e.st.Positions[seat]
	pos := (old + steps%e.rules.TrackLength + e.rules.TrackLength) % e.rules.TrackLength
	e.st.Positions[seat] = pos
	if steps > 0 && pos < old {
		e.credit(seat, e.rules.PassStartBonus)
		e.hist("history.pass_start", map[string]any{"Name": e.name(seat), "Bonus": e.rules.PassStartBonus})
	}
	e.dispatchAfterCardMove(seat, pos)
}

// dispatchAfterCardMove re-dispatches rent and taxes at the new tile
// but never chains another draw, keeping card resolution finite.
func (e *Engine) dispatchAfterCardMove(seat, pos int) {
	t, ok := board.TileAt(pos)
	if !ok {
		return
	}
	switch t.Kind {
	case board.KindProperty, board.KindTrain:
		if owner, owned := e.st.Ownership[pos]; owned && owner != seat {
			e.chargeRent(seat, owner, pos, t)
		}
	case board.KindAudit:
		e.audit(seat)
	case board.KindJail:
		e.sendToJail(seat)
	}
}
