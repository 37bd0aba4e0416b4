package game

import (
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/obslog"
)

// ProposeDeal forwards a swap offer to the target seat. Only one deal
// may be pending per room.
func (e *Engine) ProposeDeal(seat int, d Deal) error {
	if e.st.Stage != StagePlaying {
		return ErrNotStarted
	}
	if !e.validSeat(seat) || !e.validSeat(d.ToSeat) || d.ToSeat == seat {
		return ErrBadPayload
	}
	if e.st.PendingDeal != nil {
		return ErrBadPayload
	}
	d.FromSeat = seat
	if !e.dealHalfValid(seat, d.OfferCash, d.OfferTiles) ||
		!e.dealHalfValid(d.ToSeat, d.WantCash, d.WantTiles) {
		return ErrBadPayload
	}
	e.st.PendingDeal = &d
	e.emit(Event{Kind: EvDealOffer, Seat: d.ToSeat, Deal: &d})
	return nil
}

// dealHalfValid checks one side of a swap: cash within balance, tiles
// owned by that side.
func (e *Engine) dealHalfValid(seat, cash int, tiles []int) bool {
	if cash < 0 || cash > e.st.Balances[seat] {
		return false
	}
	for _, tile := range tiles {
		if owner, owned := e.st.Ownership[tile]; !owned || owner != seat {
			return false
		}
	}
	return true
}

// RespondDeal resolves the pending deal. Acceptance applies the swap
// atomically; validation runs again because balances may have moved
// since the offer.
func (e *Engine) RespondDeal(seat int, accepted bool) error {
	d := e.st.PendingDeal
	if d == nil || seat != d.ToSeat {
		return nil
	}
	e.st.PendingDeal = nil
	if accepted {
		if !e.dealHalfValid(d.FromSeat, d.OfferCash, d.OfferTiles) ||
			!e.dealHalfValid(d.ToSeat, d.WantCash, d.WantTiles) {
			obslog.L().Debug("deal_stale", zap.Int("from", d.FromSeat), zap.Int("to", d.ToSeat))
			accepted = false
		} else {
			e.debit(d.FromSeat, d.OfferCash)
			e.credit(d.ToSeat, d.OfferCash)
			e.debit(d.ToSeat, d.WantCash)
			e.credit(d.FromSeat, d.WantCash)
			for _, tile := range d.OfferTiles {
				e.st.Ownership[tile] = d.ToSeat
			}
			for _, tile := range d.WantTiles {
				e.st.Ownership[tile] = d.FromSeat
			}
		}
	}
	e.emit(Event{Kind: EvDealResult, Seat: d.FromSeat, Deal: d, Accepted: accepted})
	e.emit(Event{Kind: EvDealResult, Seat: d.ToSeat, Deal: d, Accepted: accepted})
	return nil
}
