package game

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/board"
	"github.com/park285/tycoon-rooms/internal/obslog"
)

// RollDice moves the current seat. forcedTotal > 0 substitutes a
// deterministic total split as evenly as possible between the two
// dice; zero means a real roll. Doubles grant another roll instead of
// finishing the turn.
func (e *Engine) RollDice(seat, forcedTotal int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	if e.st.Processing || e.st.TurnFinished {
		return ErrRollInFlight
	}
	if e.SubMachineActive() {
		return ErrSubMachineBusy
	}

	var d1, d2 int
	if forcedTotal > 0 {
		d1 = forcedTotal / 2
		d2 = forcedTotal - d1
	} else {
		d1, d2 = e.dice(), e.dice()
	}
	total := d1 + d2
	e.st.DiceValues = [2]int{d1, d2}
	e.st.Processing = true
	e.st.HoppingSeat = &seat

	old := e.st.Positions[seat]
	pos := (old + total) % e.rules.TrackLength
	e.st.Positions[seat] = pos

	if pos < old {
		e.credit(seat, e.rules.PassStartBonus)
		e.hist("history.pass_start", map[string]any{"Name": e.name(seat), "Bonus": e.rules.PassStartBonus})
	}
	e.hist("history.roll", map[string]any{"Name": e.name(seat), "D1": d1, "D2": d2})
	e.checkLoanLap(seat, old, total)

	if d1 == d2 {
		e.hist("history.doubles", map[string]any{"Name": e.name(seat)})
	} else {
		e.st.TurnFinished = true
	}

	e.dispatchTile(seat, pos)
	e.schedule(TimerFinishRoll)
	obslog.L().Debug("dice_roll",
		zap.Int("seat", seat), zap.Int("d1", d1), zap.Int("d2", d2), zap.Int("pos", pos))
	return nil
}

// finishRoll clears the animation hint and the re-entrancy guard.
func (e *Engine) finishRoll() bool {
	if !e.st.Processing {
		return false
	}
	e.st.Processing = false
	e.st.HoppingSeat = nil
	return true
}

// dispatchTile routes a landing to exactly one tile effect.
func (e *Engine) dispatchTile(seat, pos int) {
	t, ok := board.TileAt(pos)
	if !ok {
		return
	}
	switch t.Kind {
	case board.KindProperty, board.KindTrain:
		owner, owned := e.st.Ownership[pos]
		switch {
		case !owned:
			e.st.Modal = &Modal{Kind: "buy_offer", Tile: pos, Data: map[string]any{
				"price": e.effectivePrice(seat, t.Price),
			}}
		case owner != seat:
			e.chargeRent(seat, owner, pos, t)
		}
	case board.KindCashStack:
		e.cashStackGamble(seat)
	case board.KindAudit:
		e.audit(seat)
	case board.KindRobBank:
		e.st.Modal = &Modal{Kind: "rob_bank", Tile: pos}
	case board.KindJail:
		e.sendToJail(seat)
	case board.KindParking:
		e.st.SkipTurns[seat]++
		e.hist("history.parking", map[string]any{"Name": e.name(seat)})
	case board.KindChance:
		e.drawCard(seat, board.ChanceCards, "chance")
	case board.KindChest:
		e.drawCard(seat, board.ChestCards, "chest")
	case board.KindForcedAuction:
		e.st.Modal = &Modal{Kind: "forced_auction", Tile: pos}
	case board.KindPropertyWar:
		e.st.Modal = &Modal{Kind: "property_war", Tile: pos}
	}
}

// chargeRent transfers rent to the owner. Jailed owners collect
// nothing.
func (e *Engine) chargeRent(seat, owner, pos int, t board.Tile) {
	if e.st.JailedTurns[owner] > 0 {
		return
	}
	var rent int
	if t.Kind == board.KindTrain {
		rent = board.TrainRentFor(e.trainsOwned(owner))
	} else {
		rent = board.RentAt(pos, e.st.Levels[pos], e.hasMonopoly(pos, owner))
	}
	if rent <= 0 {
		return
	}
	e.debit(seat, rent)
	e.credit(owner, rent)
	e.floating(pos, rent, false)
	e.hist("history.rent", map[string]any{
		"Name": e.name(seat), "Amount": rent, "Owner": e.name(owner), "Tile": t.Name,
	})
}

// cashStackGamble taxes the seat into the shared stack, then rolls a
// single die. A six grants the claim via the modal; claim_pot cashes
// it out.
func (e *Engine) cashStackGamble(seat int) {
	tax := e.rules.CashStackTax
	e.debit(seat, tax)
	e.st.CashStack += tax
	e.floating(board.CashStackIndex, tax, false)
	e.hist("history.stack_pay", map[string]any{"Name": e.name(seat), "Amount": tax})

	die := e.dice()
	won := die == 6
	e.st.Modal = &Modal{Kind: "cash_stack", Data: map[string]any{
		"die":   die,
		"won":   won,
		"stack": e.st.CashStack,
	}}
}

// ClaimPot pays the shared cash stack out to the seat the modal
// granted it to.
func (e *Engine) ClaimPot(seat int) error {
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	m := e.st.Modal
	if m == nil || m.Kind != "cash_stack" || seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	if won, _ := m.Data["won"].(bool); !won {
		return ErrBadPayload
	}
	amount := e.st.CashStack
	e.st.CashStack = 0
	e.credit(seat, amount)
	e.st.Modal = nil
	e.hist("history.stack_win", map[string]any{"Name": e.name(seat), "Amount": amount})
	return nil
}

func (e *Engine) audit(seat int) {
	if e.st.Inventory[seat][board.ItemTaxImmunity] > 0 {
		e.st.Inventory[seat][board.ItemTaxImmunity]--
		e.hist("history.tax_immune", map[string]any{"Name": e.name(seat)})
		return
	}
	tax := e.rules.AuditTax
	e.debit(seat, tax)
	e.st.CashStack += tax
	e.floating(board.AuditIndex, tax, false)
	e.hist("history.tax", map[string]any{"Name": e.name(seat), "Amount": tax})
}

func (e *Engine) sendToJail(seat int) {
	if e.st.Inventory[seat][board.ItemJailCard] > 0 {
		e.st.Inventory[seat][board.ItemJailCard]--
		e.hist("history.jail_card", map[string]any{"Name": e.name(seat)})
		return
	}
	e.st.Positions[seat] = board.JailIndex
	e.st.JailedTurns[seat] = e.rules.JailSkips
	e.hist("history.jail", map[string]any{"Name": e.name(seat)})
}

// effectivePrice applies and consumes a one-shot 50% discount.
func (e *Engine) effectivePrice(seat, price int) int {
	if e.st.Discount50[seat] {
		return price / 2
	}
	return price
}

// BuyProperty sells the tile to the seat at the quoted price.
// Insufficient funds is an ignored action.
func (e *Engine) BuyProperty(seat, tile int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	t, ok := board.TileAt(tile)
	if !ok || !t.Purchasable() {
		return ErrBadTile
	}
	if _, owned := e.st.Ownership[tile]; owned {
		return ErrBadTile
	}
	price := e.effectivePrice(seat, t.Price)
	if e.st.Balances[seat] < price {
		obslog.L().Debug("buy_rejected_funds", zap.Int("seat", seat), zap.Int("tile", tile))
		return nil
	}
	if e.st.Discount50[seat] {
		e.st.Discount50[seat] = false
	}
	e.debit(seat, price)
	e.st.Ownership[tile] = seat
	e.st.Modal = nil
	e.floating(tile, price, false)
	e.hist("history.buy", map[string]any{"Name": e.name(seat), "Tile": t.Name, "Price": price})
	return nil
}

// UpgradeProperty raises the tile one level; the hotel at the top
// level costs double the house cost.
func (e *Engine) UpgradeProperty(seat, tile int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	t, ok := board.TileAt(tile)
	if !ok || t.Kind != board.KindProperty {
		return ErrBadTile
	}
	if owner, owned := e.st.Ownership[tile]; !owned || owner != seat {
		return ErrBadTile
	}
	level := e.st.Levels[tile]
	if level >= board.MaxLevel {
		return ErrBadTile
	}
	cost := board.UpgradeCostAt(tile, level+1)
	if e.st.Balances[seat] < cost {
		obslog.L().Debug("upgrade_rejected_funds", zap.Int("seat", seat), zap.Int("tile", tile))
		return nil
	}
	e.debit(seat, cost)
	e.st.Levels[tile] = level + 1
	e.floating(tile, cost, false)
	e.hist("history.upgrade", map[string]any{"Name": e.name(seat), "Tile": t.Name, "Level": level + 1})
	return nil
}

// AttemptRobbery is the rob-bank 50/50: success pays a random reward
// rounded to the nearest hundred, failure sends the seat to jail
// unless a robbery immunity absorbs it.
func (e *Engine) AttemptRobbery(seat int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	e.st.Modal = nil
	if e.rng.Intn(2) == 0 {
		span := e.rules.RobberyMax - e.rules.RobberyMin + 1
		reward := e.rng.Intn(span) + e.rules.RobberyMin
		reward = (reward + 50) / 100 * 100
		e.credit(seat, reward)
		e.floating(board.RobBankIndex, reward, true)
		e.hist("history.rob_success", map[string]any{"Name": e.name(seat), "Amount": reward})
		return nil
	}
	if e.st.Inventory[seat][board.ItemRobberyImmunity] > 0 {
		e.st.Inventory[seat][board.ItemRobberyImmunity]--
		return nil
	}
	e.st.Positions[seat] = board.JailIndex
	e.st.JailedTurns[seat] = e.rules.JailSkips
	e.hist("history.rob_fail", map[string]any{"Name": e.name(seat)})
	return nil
}

// EndTurn advances to the next playable seat, skipping bankrupt seats
// and consuming jail or parking skips, bounded to avoid spinning when
// nobody else can play.
func (e *Engine) EndTurn(seat int) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	if e.SubMachineActive() {
		return ErrSubMachineBusy
	}
	e.advanceTurn()
	return nil
}

func (e *Engine) advanceTurn() {
	n := len(e.st.Positions)
	e.st.TurnFinished = false
	e.st.HoppingSeat = nil
	e.st.Modal = nil

	// Two laps is enough to burn every seat's skip budget once.
	cur := e.st.CurrentSeat
	for step := 1; step <= 2*n; step++ {
		cand := (cur + step) % n
		if cand == e.st.CurrentSeat && e.allOthersBankrupt(cand) {
			return
		}
		if e.st.Bankrupt[cand] {
			continue
		}
		if e.st.JailedTurns[cand] > 0 {
			e.st.JailedTurns[cand]--
			e.hist("history.jail", map[string]any{"Name": e.name(cand)})
			continue
		}
		if e.st.SkipTurns[cand] > 0 {
			e.st.SkipTurns[cand]--
			e.hist("history.parking", map[string]any{"Name": e.name(cand)})
			continue
		}
		e.st.CurrentSeat = cand
		return
	}
}

// allOthersBankrupt reports whether every seat except the given one is
// out.
func (e *Engine) allOthersBankrupt(seat int) bool {
	for s := range e.st.Bankrupt {
		if s != seat && !e.st.Bankrupt[s] {
			return false
		}
	}
	return true
}

// CloseModal clears the shared modal intent. Allowed from the current
// seat or the modal's own subject.
func (e *Engine) CloseModal(seat int) error {
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	e.st.Modal = nil
	return nil
}

// OpenModal sets a presentation-only overlay.
func (e *Engine) OpenModal(seat int, kind string, payload json.RawMessage) error {
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if kind == "" {
		return ErrBadPayload
	}
	m := &Modal{Kind: kind}
	if len(payload) > 0 {
		var data map[string]any
		if err := json.Unmarshal(payload, &data); err != nil {
			return ErrBadPayload
		}
		m.Data = data
	}
	e.st.Modal = m
	return nil
}

// ApplyStatePatch lets the host or the current seat overwrite a
// whitelisted set of presentation fields. Balances, ownership and
// positions are never patchable.
func (e *Engine) ApplyStatePatch(seat int, isHost bool, modal json.RawMessage, hopping *int, clearModal bool) error {
	if !e.validSeat(seat) {
		return ErrBadSeat
	}
	if !isHost && seat != e.st.CurrentSeat {
		return ErrNotYourTurn
	}
	if clearModal {
		e.st.Modal = nil
	} else if len(modal) > 0 {
		var m Modal
		if err := json.Unmarshal(modal, &m); err != nil {
			return ErrBadPayload
		}
		e.st.Modal = &m
	}
	if hopping != nil {
		if !e.validSeat(*hopping) {
			return ErrBadPayload
		}
		e.st.HoppingSeat = hopping
	}
	return nil
}
