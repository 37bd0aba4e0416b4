package game

import (
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/board"
	"github.com/park285/tycoon-rooms/internal/obslog"
)

// AuctionPhase is the tagged phase of the auction sub-machine.
type AuctionPhase string

const (
	AuctionIdle       AuctionPhase = "idle"
	AuctionThinking   AuctionPhase = "thinking"
	AuctionAnnouncing AuctionPhase = "announcing"
	AuctionActive     AuctionPhase = "active"
	AuctionComplete   AuctionPhase = "complete"
)

// Bid is one accepted bid, newest first in the Bids slice.
type Bid struct {
	Seat   int `json:"seat"`
	Amount int `json:"amount"`
}

// Auction is the forced-auction sub-state. Participants shrink as
// seats fold or become unable to cover the next minimum bid.
type Auction struct {
	Phase         AuctionPhase `json:"phase"`
	Tile          int          `json:"tileIndex"`
	Initiator     int          `json:"initiator"`
	OriginalOwner int          `json:"originalOwner"`
	Participants  []int        `json:"participants"`
	BidderPos     int          `json:"bidderPos"`
	HighBid       int          `json:"highBid"`
	HighBidder    int          `json:"highBidder"`
	Bids          []Bid        `json:"bids"`
	WinnerSeat    int          `json:"winnerSeat"`
	FinalPrice    int          `json:"finalPrice"`
	Defended      bool         `json:"defended"`
}

func (a *Auction) reset() {
	*a = Auction{Phase: AuctionIdle, HighBidder: -1, WinnerSeat: -1}
}

// AuctionStartSelection opens the tile picker for the seat that landed
// on the forced-auction tile.
func (e *Engine) AuctionStartSelection(seat int) error {
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
	e.st.Auction.reset()
	e.st.Auction.Phase = AuctionThinking
	e.st.Auction.Initiator = seat
	e.st.Modal = &Modal{Kind: "auction_select"}
	return nil
}

// AuctionCancel abandons the tile picker before a target is chosen.
func (e *Engine) AuctionCancel(seat int) error {
	if e.st.Auction.Phase != AuctionThinking {
		return nil
	}
	if seat != e.st.Auction.Initiator {
		return nil
	}
	e.st.Auction.reset()
	e.st.Modal = nil
	return nil
}

// AuctionSelect fixes the target tile, charges the initiation fee into
// the shared pot and moves to announcing. An unaffordable fee is a
// silent no-op.
func (e *Engine) AuctionSelect(seat, tile int) error {
	a := &e.st.Auction
	if a.Phase != AuctionThinking || seat != a.Initiator {
		return nil
	}
	t, ok := board.TileAt(tile)
	if !ok || !t.Purchasable() {
		return ErrBadTile
	}
	owner, owned := e.st.Ownership[tile]
	if !owned || owner == seat {
		return ErrBadTile
	}
	if e.st.Balances[seat] < e.rules.AuctionFee {
		obslog.L().Debug("auction_fee_unaffordable", zap.Int("seat", seat))
		return nil
	}
	e.debit(seat, e.rules.AuctionFee)
	e.st.BattlePot += e.rules.AuctionFee

	a.Phase = AuctionAnnouncing
	a.Tile = tile
	a.OriginalOwner = owner
	a.Participants = a.Participants[:0]
	for s := 0; s < len(e.st.Positions); s++ {
		p := (seat + s) % len(e.st.Positions)
		if !e.st.Bankrupt[p] {
			a.Participants = append(a.Participants, p)
		}
	}
	a.BidderPos = 0
	a.HighBid = 0
	a.HighBidder = -1
	e.st.Modal = &Modal{Kind: "auction", Tile: tile}
	e.hist("auction.started", map[string]any{"Name": e.name(seat), "Tile": t.Name})
	e.schedule(TimerAuctionActivate)
	return nil
}

// auctionActivate is the announcing→active continuation. Unaffordable
// participants are pruned before the first bidder's turn.
func (e *Engine) auctionActivate() bool {
	a := &e.st.Auction
	if a.Phase != AuctionAnnouncing {
		return false
	}
	a.Phase = AuctionActive
	e.pruneAndCheckWinner()
	return true
}

// minNextBid is what the next bidder must be able to cover.
func (e *Engine) minNextBid() int {
	a := &e.st.Auction
	if a.HighBid == 0 {
		return e.rules.AuctionFloor
	}
	return a.HighBid + e.rules.BidIncrement
}

// AuctionBid accepts a bid from the designated bidder. Wrong-seat and
// under-minimum bids are dropped silently.
func (e *Engine) AuctionBid(seat, amount int) error {
	a := &e.st.Auction
	if a.Phase != AuctionActive {
		return nil
	}
	if len(a.Participants) == 0 || a.Participants[a.BidderPos] != seat {
		obslog.L().Debug("auction_bid_out_of_turn", zap.Int("seat", seat))
		return nil
	}
	if amount < e.minNextBid() || e.st.Balances[seat] < amount {
		obslog.L().Debug("auction_bid_rejected",
			zap.Int("seat", seat), zap.Int("amount", amount), zap.Int("min", e.minNextBid()))
		return nil
	}
	a.HighBid = amount
	a.HighBidder = seat
	a.Bids = append([]Bid{{Seat: seat, Amount: amount}}, a.Bids...)
	if t, ok := board.TileAt(a.Tile); ok {
		e.hist("auction.bid", map[string]any{"Name": e.name(seat), "Amount": amount, "Tile": t.Name})
	}
	e.advanceBidder()
	e.pruneAndCheckWinner()
	return nil
}

// AuctionFold removes the seat from participation. Folding out of turn
// is allowed; folding when not a participant is a no-op.
func (e *Engine) AuctionFold(seat int) error {
	a := &e.st.Auction
	if a.Phase != AuctionActive {
		return nil
	}
	if !e.auctionRemove(seat) {
		return nil
	}
	e.hist("auction.fold", map[string]any{"Name": e.name(seat)})
	e.pruneAndCheckWinner()
	return nil
}

// auctionRemove deletes a seat from the participant list, keeping the
// bidder pointer at the same relative position.
func (e *Engine) auctionRemove(seat int) bool {
	a := &e.st.Auction
	for i, p := range a.Participants {
		if p != seat {
			continue
		}
		a.Participants = append(a.Participants[:i], a.Participants[i+1:]...)
		if len(a.Participants) == 0 {
			return true
		}
		if i < a.BidderPos {
			a.BidderPos--
		}
		if a.BidderPos >= len(a.Participants) {
			a.BidderPos = 0
		}
		return true
	}
	return false
}

func (e *Engine) advanceBidder() {
	a := &e.st.Auction
	if len(a.Participants) == 0 {
		return
	}
	a.BidderPos = (a.BidderPos + 1) % len(a.Participants)
}

// pruneAndCheckWinner is the single finalization step: drop every
// participant who cannot cover the next minimum bid (the high bidder
// always survives), then settle if at most one remains.
func (e *Engine) pruneAndCheckWinner() {
	a := &e.st.Auction
	if a.Phase != AuctionActive {
		return
	}
	min := e.minNextBid()
	for i := 0; i < len(a.Participants); {
		p := a.Participants[i]
		if p != a.HighBidder && e.st.Balances[p] < min {
			e.auctionRemove(p)
			continue
		}
		i++
	}
	switch len(a.Participants) {
	case 0:
		// Folding emptied the set with no winner.
		e.hist("auction.passed", map[string]any{"Tile": board.Name(a.Tile)})
		a.reset()
		e.st.Modal = nil
	case 1:
		e.auctionFinalize(a.Participants[0])
	}
}

// auctionFinalize settles the sale. The winner pays at least the floor
// even with zero bids; a defending owner pays into the shared pot,
// while a takeover pays the original owner and transfers the tile.
func (e *Engine) auctionFinalize(winner int) {
	a := &e.st.Auction
	price := a.HighBid
	if price < e.rules.AuctionFloor {
		price = e.rules.AuctionFloor
	}
	a.WinnerSeat = winner
	a.FinalPrice = price
	a.Defended = winner == a.OriginalOwner
	a.Phase = AuctionComplete

	e.debit(winner, price)
	tName := board.Name(a.Tile)
	if a.Defended {
		e.st.BattlePot += price
		e.hist("auction.defended", map[string]any{"Name": e.name(winner), "Tile": tName, "Amount": price})
	} else {
		e.credit(a.OriginalOwner, price)
		e.st.Ownership[a.Tile] = winner
		e.hist("auction.won", map[string]any{"Name": e.name(winner), "Tile": tName, "Amount": price})
	}
	obslog.L().Info("auction_settled",
		zap.Int("winner", winner), zap.Int("price", price), zap.Bool("defended", a.Defended))
	e.schedule(TimerAuctionSettle)
}

// auctionReset is the settle-delay continuation back to idle.
func (e *Engine) auctionReset() bool {
	if e.st.Auction.Phase != AuctionComplete {
		return false
	}
	e.st.Auction.reset()
	e.st.Modal = nil
	return true
}
