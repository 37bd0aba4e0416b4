package game

import "testing"

// startAuction brings the engine to the active bidding phase for the
// given tile, owned by owner and targeted by the current seat.
func startAuction(t *testing.T, e *Engine, tile, owner int) {
	t.Helper()
	e.State().Ownership[tile] = owner
	if err := e.AuctionStartSelection(e.State().CurrentSeat); err != nil {
		t.Fatalf("start selection: %v", err)
	}
	if err := e.AuctionSelect(e.State().CurrentSeat, tile); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := e.State().Auction.Phase; got != AuctionAnnouncing {
		t.Fatalf("phase = %s, want announcing", got)
	}
	if !e.Fire(TimerAuctionActivate) {
		t.Fatal("activate timer should apply")
	}
}

func TestAuctionFloorPriceAppliesOnImmediateFold(t *testing.T) {
	e := newTestEngine(t, 2)
	startAuction(t, e, 25, 1) // $2000 tile owned by seat 1

	if err := e.AuctionBid(0, 10); err != nil {
		t.Fatalf("bid: %v", err)
	}
	ownerBefore := e.State().Balances[1]
	winnerBefore := e.State().Balances[0]
	if err := e.AuctionFold(1); err != nil {
		t.Fatalf("fold: %v", err)
	}

	a := e.State().Auction
	if a.Phase != AuctionComplete {
		t.Fatalf("phase = %s, want complete", a.Phase)
	}
	if a.WinnerSeat != 0 || a.FinalPrice != 10 {
		t.Fatalf("winner/price = %d/%d, want 0/10", a.WinnerSeat, a.FinalPrice)
	}
	if owner := e.State().Ownership[25]; owner != 0 {
		t.Fatalf("ownership = %d, want transferred to 0", owner)
	}
	if got := e.State().Balances[1]; got != ownerBefore+10 {
		t.Fatalf("owner balance = %d, want paid %d", got, ownerBefore+10)
	}
	if got := e.State().Balances[0]; got != winnerBefore-10 {
		t.Fatalf("winner balance = %d, want charged %d", got, winnerBefore-10)
	}

	if !e.Fire(TimerAuctionSettle) {
		t.Fatal("settle timer should apply")
	}
	if e.State().Auction.Phase != AuctionIdle {
		t.Fatal("auction not reset after settle delay")
	}
}

func TestAuctionDefendedPaysIntoPot(t *testing.T) {
	e := newTestEngine(t, 2)
	startAuction(t, e, 25, 1)
	potAfterFee := e.State().BattlePot

	if err := e.AuctionBid(0, 10); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if err := e.AuctionBid(1, 50); err != nil {
		t.Fatalf("counter bid: %v", err)
	}
	if err := e.AuctionFold(0); err != nil {
		t.Fatalf("fold: %v", err)
	}

	a := e.State().Auction
	if a.WinnerSeat != 1 || !a.Defended {
		t.Fatalf("winner/defended = %d/%v, want 1/true", a.WinnerSeat, a.Defended)
	}
	if owner := e.State().Ownership[25]; owner != 1 {
		t.Fatalf("ownership = %d, want unchanged 1", owner)
	}
	if got := e.State().BattlePot; got != potAfterFee+50 {
		t.Fatalf("pot = %d, want %d", got, potAfterFee+50)
	}
}

func TestAuctionDropsInvalidBids(t *testing.T) {
	e := newTestEngine(t, 3)
	startAuction(t, e, 25, 1)
	if err := e.AuctionBid(0, 100); err != nil {
		t.Fatalf("bid: %v", err)
	}

	// Out of turn and under-minimum bids leave the state untouched.
	if err := e.AuctionBid(2, 500); err != nil {
		t.Fatalf("out-of-turn bid: %v", err)
	}
	if err := e.AuctionBid(1, 105); err != nil {
		t.Fatalf("under-minimum bid: %v", err)
	}
	a := e.State().Auction
	if a.HighBid != 100 || a.HighBidder != 0 {
		t.Fatalf("high bid = %d by %d, want 100 by 0", a.HighBid, a.HighBidder)
	}
	if a.Participants[a.BidderPos] != 1 {
		t.Fatalf("designated bidder = %d, want 1", a.Participants[a.BidderPos])
	}
}

func TestAuctionPrunesUnaffordableParticipants(t *testing.T) {
	e := newTestEngine(t, 3)
	e.State().Ownership[25] = 1
	e.State().Balances[2] = 5 // cannot cover the floor
	if err := e.AuctionStartSelection(0); err != nil {
		t.Fatalf("start selection: %v", err)
	}
	if err := e.AuctionSelect(0, 25); err != nil {
		t.Fatalf("select: %v", err)
	}
	if !e.Fire(TimerAuctionActivate) {
		t.Fatal("activate timer should apply")
	}
	for _, p := range e.State().Auction.Participants {
		if p == 2 {
			t.Fatal("insolvent seat not pruned before bidding")
		}
	}
}

func TestAuctionUnaffordableFeeIsSilentNoop(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Ownership[25] = 1
	e.State().Balances[0] = e.Rules().AuctionFee - 1
	if err := e.AuctionStartSelection(0); err != nil {
		t.Fatalf("start selection: %v", err)
	}
	if err := e.AuctionSelect(0, 25); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := e.State().Auction.Phase; got != AuctionThinking {
		t.Fatalf("phase = %s, want still thinking", got)
	}
	if e.State().BattlePot != 0 {
		t.Fatal("pot must be untouched")
	}
}

func TestAuctionCancelMakesPendingActivateStale(t *testing.T) {
	e := newTestEngine(t, 2)
	e.State().Ownership[25] = 1
	if err := e.AuctionStartSelection(0); err != nil {
		t.Fatalf("start selection: %v", err)
	}
	if err := e.AuctionCancel(0); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if e.Fire(TimerAuctionActivate) {
		t.Fatal("stale activate timer must be dropped")
	}
	if got := e.State().Auction.Phase; got != AuctionIdle {
		t.Fatalf("phase = %s, want idle", got)
	}
}

func TestTurnEngineRejectsActionsWhileAuctionActive(t *testing.T) {
	e := newTestEngine(t, 2)
	startAuction(t, e, 25, 1)
	if err := e.RollDice(0, 5); err != ErrSubMachineBusy {
		t.Fatalf("roll err = %v, want ErrSubMachineBusy", err)
	}
	if err := e.EndTurn(0); err != ErrSubMachineBusy {
		t.Fatalf("end turn err = %v, want ErrSubMachineBusy", err)
	}
}
