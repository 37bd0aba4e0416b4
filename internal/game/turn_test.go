package game

import (
	"math/rand"
	"testing"
)

func newTestEngine(t *testing.T, seats int) *Engine {
	t.Helper()
	e := NewEngine(DefaultRules(), nil)
	e.SetRand(rand.New(rand.NewSource(1)))
	names := []string{"alice", "bob", "carol", "dave"}[:seats]
	if err := e.Start(names); err != nil {
		t.Fatalf("start: %v", err)
	}
	return e
}

func drainTimers(t *testing.T, e *Engine) []TimerKind {
	t.Helper()
	var out []TimerKind
	for _, ev := range e.DrainEvents() {
		if ev.Kind == EvSchedule {
			out = append(out, ev.Timer)
		}
	}
	return out
}

func TestRollDiceMovesAndOffersPurchase(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.RollDice(0, 5); err != nil {
		t.Fatalf("roll: %v", err)
	}
	st := e.State()
	if st.Positions[0] != 5 {
		t.Fatalf("position = %d, want 5", st.Positions[0])
	}
	if st.DiceValues != [2]int{2, 3} {
		t.Fatalf("dice = %v, want [2 3]", st.DiceValues)
	}
	if !st.TurnFinished {
		t.Fatal("turn should be finished after a non-doubles roll")
	}
	if st.Modal == nil || st.Modal.Kind != "buy_offer" {
		t.Fatalf("modal = %+v, want buy_offer", st.Modal)
	}
}

func TestRollDiceDoublesGrantAnotherRoll(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.RollDice(0, 4); err != nil {
		t.Fatalf("roll: %v", err)
	}
	st := e.State()
	if st.DiceValues != [2]int{2, 2} {
		t.Fatalf("dice = %v, want doubles", st.DiceValues)
	}
	if st.TurnFinished {
		t.Fatal("doubles must not finish the turn")
	}
}

func TestRollDiceRejectsOutOfTurnAndReentry(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.RollDice(1, 5); err != ErrNotYourTurn {
		t.Fatalf("err = %v, want ErrNotYourTurn", err)
	}
	if err := e.RollDice(0, 5); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if err := e.RollDice(0, 5); err != ErrRollInFlight {
		t.Fatalf("err = %v, want ErrRollInFlight", err)
	}
	if !e.Fire(TimerFinishRoll) {
		t.Fatal("finish-roll timer should apply")
	}
	if e.State().Processing {
		t.Fatal("processing guard not cleared")
	}
}

func TestWrapAroundAwardsBonus(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Positions[0] = 33
	before := e.State().Balances[0]
	if err := e.RollDice(0, 5); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := e.State().Positions[0]; got != 2 {
		t.Fatalf("position = %d, want 2", got)
	}
	if got := e.State().Balances[0]; got != before+e.Rules().PassStartBonus {
		t.Fatalf("balance = %d, want bonus applied", got)
	}
}

func TestRentTransferAndJailedOwnerCollectsNothing(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Ownership[1] = 1
	b0, b1 := e.State().Balances[0], e.State().Balances[1]
	if err := e.RollDice(0, 1); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := e.State().Balances[0]; got != b0-40 {
		t.Fatalf("payer balance = %d, want %d", got, b0-40)
	}
	if got := e.State().Balances[1]; got != b1+40 {
		t.Fatalf("owner balance = %d, want %d", got, b1+40)
	}

	// Jailed owners collect no rent.
	e2 := newTestEngine(t, 2)
	e2.State().Ownership[1] = 1
	e2.State().JailedTurns[1] = 1
	b0 = e2.State().Balances[0]
	if err := e2.RollDice(0, 1); err != nil {
		t.Fatalf("roll: %v", err)
	}
	if got := e2.State().Balances[0]; got != b0 {
		t.Fatalf("payer balance = %d, want unchanged %d", got, b0)
	}
}

func TestBuyAndUpgradeProperty(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.RollDice(0, 1); err != nil {
		t.Fatalf("roll: %v", err)
	}
	before := e.State().Balances[0]
	if err := e.BuyProperty(0, 1); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if owner := e.State().Ownership[1]; owner != 0 {
		t.Fatalf("owner = %d, want 0", owner)
	}
	if got := e.State().Balances[0]; got != before-400 {
		t.Fatalf("balance = %d, want %d", got, before-400)
	}

	before = e.State().Balances[0]
	if err := e.UpgradeProperty(0, 1); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if lvl := e.State().Levels[1]; lvl != 1 {
		t.Fatalf("level = %d, want 1", lvl)
	}
	if got := e.State().Balances[0]; got != before-200 {
		t.Fatalf("balance = %d, want %d", got, before-200)
	}

	// Upgrading someone else's tile is rejected without mutation.
	if err := e.UpgradeProperty(1, 1); err != ErrBadTile {
		t.Fatalf("err = %v, want ErrBadTile", err)
	}
}

func TestEndTurnSkipsBankruptSeats(t *testing.T) {
	e := newTestEngine(t, 3)
	e.State().Bankrupt[1] = true
	if err := e.EndTurn(0); err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if got := e.State().CurrentSeat; got != 2 {
		t.Fatalf("current = %d, want 2", got)
	}
}

func TestEndTurnRetainsSeatWhenAllOthersBankrupt(t *testing.T) {
	e := newTestEngine(t, 3)
	e.State().Bankrupt[1] = true
	e.State().Bankrupt[2] = true
	if err := e.EndTurn(0); err != nil {
		t.Fatalf("end turn: %v", err)
	}
	if got := e.State().CurrentSeat; got != 0 {
		t.Fatalf("current = %d, want retained 0", got)
	}
}

func TestEndTurnConsumesJailAndParkingSkips(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().JailedTurns[1] = 2
	if err := e.EndTurn(0); err != nil {
		t.Fatalf("end turn: %v", err)
	}
	// Seat 1 skips, play returns to seat 0 with one jail turn burned.
	if got := e.State().CurrentSeat; got != 0 {
		t.Fatalf("current = %d, want 0", got)
	}
	if got := e.State().JailedTurns[1]; got != 1 {
		t.Fatalf("jailed turns = %d, want 1", got)
	}
}

func TestCashStackGambleAndClaim(t *testing.T) {
	e := newTestEngine(t, 2)
	e.SetRoller(func() int { return 6 })
	if err := e.RollDice(0, 3); err != nil {
		t.Fatalf("roll: %v", err)
	}
	st := e.State()
	if st.Positions[0] != 3 {
		t.Fatalf("position = %d, want cash stack", st.Positions[0])
	}
	if st.CashStack != e.Rules().CashStackTax {
		t.Fatalf("cash stack = %d, want %d", st.CashStack, e.Rules().CashStackTax)
	}
	if st.Modal == nil || st.Modal.Kind != "cash_stack" {
		t.Fatalf("modal = %+v, want cash_stack", st.Modal)
	}
	if won, _ := st.Modal.Data["won"].(bool); !won {
		t.Fatal("six must win the stack")
	}
	before := st.Balances[0]
	stack := st.CashStack
	if err := e.ClaimPot(0); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := e.State().Balances[0]; got != before+stack {
		t.Fatalf("balance = %d, want %d", got, before+stack)
	}
	if e.State().CashStack != 0 {
		t.Fatal("stack not emptied")
	}
}

func TestLoanAutoDebitAfterLaps(t *testing.T) {
	e := newTestEngine(t, 2)
	before := e.State().Balances[0]
	if err := e.TakeLoan(0, 1000); err != nil {
		t.Fatalf("loan: %v", err)
	}
	if got := e.State().Balances[0]; got != before+1000 {
		t.Fatalf("balance = %d, want %d", got, before+1000)
	}
	loan := e.State().Loans[0]
	if loan == nil || loan.Due != 1500 {
		t.Fatalf("loan = %+v, want due 1500", loan)
	}
	// A second loan while one is outstanding is silently dropped.
	if err := e.TakeLoan(0, 500); err != nil {
		t.Fatalf("second loan: %v", err)
	}
	if e.State().Loans[0].Principal != 1000 {
		t.Fatal("outstanding loan must not be replaced")
	}

	for lap := 0; lap < e.Rules().LoanLaps; lap++ {
		e.checkLoanLap(0, 30, 10) // crosses the mark tile at 0
	}
	if _, has := e.State().Loans[0]; has {
		t.Fatal("loan should be auto-debited after final lap")
	}
	if got := e.State().Balances[0]; got != before+1000-1500 {
		t.Fatalf("balance = %d, want %d", got, before+1000-1500)
	}
}

func TestBankruptcyMarksSeatAndDeclaresWinner(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Balances[1] = 10
	e.debit(1, 100)
	if !e.State().Bankrupt[1] {
		t.Fatal("seat 1 should be bankrupt")
	}
	if e.Stage() != StageOver {
		t.Fatalf("stage = %s, want over", e.Stage())
	}
	if e.State().WinnerSeat == nil || *e.State().WinnerSeat != 0 {
		t.Fatalf("winner = %v, want 0", e.State().WinnerSeat)
	}
}

func TestDealAcceptSwapsAtomically(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Ownership[1] = 0
	e.State().Ownership[2] = 1
	if err := e.ProposeDeal(0, Deal{ToSeat: 1, OfferCash: 100, OfferTiles: []int{1}, WantTiles: []int{2}}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	b0, b1 := e.State().Balances[0], e.State().Balances[1]
	if err := e.RespondDeal(1, true); err != nil {
		t.Fatalf("respond: %v", err)
	}
	st := e.State()
	if st.Ownership[1] != 1 || st.Ownership[2] != 0 {
		t.Fatalf("ownership after swap = %v", st.Ownership)
	}
	if st.Balances[0] != b0-100 || st.Balances[1] != b1+100 {
		t.Fatalf("balances after swap = %d/%d", st.Balances[0], st.Balances[1])
	}
	if st.PendingDeal != nil {
		t.Fatal("pending deal not cleared")
	}
}
