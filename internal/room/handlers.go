package room

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/game"
	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/wire"
)

// HandleStartGame begins play; host only.
func (r *Room) HandleStartGame(connID string) {
	r.post("start_game", func(r *Room) bool {
		p := r.playerByConn(connID)
		if p == nil {
			return false
		}
		if !p.IsHost {
			r.requestError(p, ErrNotHost)
			return false
		}
		names := make([]string, len(r.players))
		for i, pl := range r.players {
			names[i] = pl.Name
		}
		if err := r.engine.Start(names); err != nil {
			r.requestError(p, err)
			return false
		}
		r.startedAt = time.Now()
		obslog.L().Info("game_start", zap.String("code", r.Code), zap.Int("players", len(names)))
		r.broadcast(wire.ServerPacket{
			Type:      wire.TypeGameStarted,
			GameState: r.stateRaw(),
			Players:   r.playersRaw(),
		})
		return false
	})
}

// HandleGameAction routes one in-game action envelope to the engine.
func (r *Room) HandleGameAction(connID string, action string, payload json.RawMessage) {
	r.post(action, func(r *Room) bool {
		p := r.playerByConn(connID)
		if p == nil {
			return false
		}
		err := r.dispatch(p, action, payload)
		if err != nil {
			r.requestError(p, err)
			return false
		}
		return true
	})
}

// dispatch maps an action tag to the engine call. Engine methods
// return nil for silently-ignored actions; those still broadcast the
// (unchanged) snapshot, which is harmless and keeps the client code
// simple.
func (r *Room) dispatch(p *Player, action string, payload json.RawMessage) error {
	seat := p.Seat
	e := r.engine
	switch action {
	case wire.ActRollDice:
		return e.RollDice(seat, 0)
	case wire.ActEndTurn:
		return e.EndTurn(seat)
	case wire.ActBuyProperty:
		var tp wire.TilePayload
		if err := json.Unmarshal(payload, &tp); err != nil {
			return game.ErrBadPayload
		}
		return e.BuyProperty(seat, tp.TileIndex)
	case wire.ActUpgradeProperty:
		var tp wire.TilePayload
		if err := json.Unmarshal(payload, &tp); err != nil {
			return game.ErrBadPayload
		}
		return e.UpgradeProperty(seat, tp.TileIndex)
	case wire.ActAttemptRobbery:
		return e.AttemptRobbery(seat)
	case wire.ActClaimPot:
		return e.ClaimPot(seat)
	case wire.ActCloseModal:
		return e.CloseModal(seat)
	case wire.ActOpenModal:
		var om wire.OpenModalPayload
		if err := json.Unmarshal(payload, &om); err != nil {
			return game.ErrBadPayload
		}
		return e.OpenModal(seat, om.Kind, om.Payload)
	case wire.ActStatePatch:
		var sp wire.StatePatchPayload
		if err := json.Unmarshal(payload, &sp); err != nil {
			return game.ErrBadPayload
		}
		return e.ApplyStatePatch(seat, p.IsHost, sp.Modal, sp.HoppingSeat, sp.ClearModal)

	case wire.ActAuctionStartSel:
		return e.AuctionStartSelection(seat)
	case wire.ActAuctionCancel:
		return e.AuctionCancel(seat)
	case wire.ActAuctionSelect:
		var tp wire.TilePayload
		if err := json.Unmarshal(payload, &tp); err != nil {
			return game.ErrBadPayload
		}
		return e.AuctionSelect(seat, tp.TileIndex)
	case wire.ActAuctionBid:
		var bp wire.BidPayload
		if err := json.Unmarshal(payload, &bp); err != nil {
			return game.ErrBadPayload
		}
		return e.AuctionBid(seat, bp.Amount)
	case wire.ActAuctionFold:
		return e.AuctionFold(seat)

	case wire.ActContestInit:
		var cp wire.ContestInitPayload
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &cp); err != nil {
				return game.ErrBadPayload
			}
		}
		return e.ContestInit(seat, cp.Mode)
	case wire.ActContestJoin:
		return e.ContestJoin(seat)
	case wire.ActContestWithdraw:
		return e.ContestWithdraw(seat)
	case wire.ActContestStart:
		var cs wire.ContestStartPayload
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &cs); err != nil {
				return game.ErrBadPayload
			}
		}
		return e.ContestStart(seat, cs.AvailableTiles)
	case wire.ActContestRoll:
		return e.ContestRoll(seat, 0)
	case wire.ActContestClose:
		return e.ContestClose(seat)

	case wire.ActTakeLoan:
		var lp wire.LoanPayload
		if err := json.Unmarshal(payload, &lp); err != nil {
			return game.ErrBadPayload
		}
		return e.TakeLoan(seat, lp.Amount)
	case wire.ActRepayLoan:
		return e.RepayLoan(seat)

	case wire.ActProposeDeal:
		var dp wire.DealPayload
		if err := json.Unmarshal(payload, &dp); err != nil {
			return game.ErrBadPayload
		}
		return e.ProposeDeal(seat, game.Deal{
			ToSeat:     dp.ToSeat,
			OfferCash:  dp.OfferCash,
			OfferTiles: dp.OfferTiles,
			WantCash:   dp.WantCash,
			WantTiles:  dp.WantTiles,
		})
	case wire.ActRespondDeal:
		var rp wire.DealResponsePayload
		if err := json.Unmarshal(payload, &rp); err != nil {
			return game.ErrBadPayload
		}
		return e.RespondDeal(seat, rp.Accepted)
	}
	obslog.L().Debug("action_unknown", zap.String("code", r.Code), zap.String("action", action))
	return game.ErrBadPayload
}

// requestError reports a failure to the requester only; the room
// state is untouched by definition.
func (r *Room) requestError(p *Player, err error) {
	obslog.L().Debug("action_rejected",
		zap.String("code", r.Code), zap.Int("seat", p.Seat), zap.Error(err))
	if p.conn == nil {
		return
	}
	p.conn.Send(wire.ServerPacket{Type: wire.TypeActionError, Message: err.Error()})
}
