package room

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/game"
	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/results"
	"github.com/park285/tycoon-rooms/internal/wire"
)

const (
	inboxSize       = 64
	rollSettleDelay = 500 * time.Millisecond
	persistTimeout  = 5 * time.Second
)

// task is one unit of work for the room goroutine. The return value
// is the dirty signal: true triggers a state broadcast.
type task struct {
	name string
	fn   func(*Room) bool
}

// Room is one game session. All fields below the inbox are owned by
// the run goroutine; outside callers interact via post.
type Room struct {
	Code string

	reg  *Registry
	cfg  roomTimings
	cat  catalog
	sink *results.Store

	inbox     chan task
	done      chan struct{}
	closeOnce sync.Once

	graceMu sync.Mutex
	grace   *time.Timer

	// run-goroutine owned
	engine    *game.Engine
	players   []*Player
	maxSeats  int
	createdAt time.Time
	startedAt time.Time
	resultSaved bool
}

// roomTimings is the subset of config a room needs, copied so tests
// can shrink the delays.
type roomTimings struct {
	hostGrace       time.Duration
	auctionStart    time.Duration
	auctionSettle   time.Duration
	contestProgress time.Duration
	contestReveal   time.Duration
	contestTie      time.Duration
}

type catalog interface {
	MustRender(key string, data any) string
}

func newRoom(code string, g *Registry, id Identity, conn Conn) *Room {
	rules := game.DefaultRules()
	rules.TrackLength = g.cfg.TrackLength
	rules.StartingBalance = g.cfg.StartingBalance
	rules.PassStartBonus = g.cfg.PassStartBonus
	rules.HistoryLimit = g.cfg.HistoryLimit

	var cat catalog
	if g.cat != nil {
		cat = g.cat
	}
	r := &Room{
		Code: code,
		reg:  g,
		cfg: roomTimings{
			hostGrace:       g.cfg.HostGracePeriod,
			auctionStart:    g.cfg.AuctionStart,
			auctionSettle:   g.cfg.AuctionSettle,
			contestProgress: g.cfg.ContestProgress,
			contestReveal:   g.cfg.ContestReveal,
			contestTie:      g.cfg.ContestTieDelay,
		},
		cat:       cat,
		sink:      g.sink,
		inbox:     make(chan task, inboxSize),
		done:      make(chan struct{}),
		engine:    newEngine(rules, g),
		maxSeats:  g.cfg.MaxSeats,
		createdAt: time.Now(),
	}
	host := &Player{Seat: 0, Name: id.Name, Avatar: id.Avatar, IsHost: true, Connected: true, conn: conn}
	r.players = append(r.players, host)

	// The creator's confirmation goes out before the loop starts, so
	// it always precedes any broadcast.
	conn.Send(wire.ServerPacket{
		Type:      wire.TypeRoomCreated,
		Code:      code,
		Seat:      wire.IntPtr(0),
		GameState: r.stateRaw(),
		Players:   r.playersRaw(),
	})

	go r.run()
	return r
}

func newEngine(rules game.Rules, g *Registry) *game.Engine {
	return game.NewEngine(rules, g.cat)
}

func (r *Room) run() {
	for {
		select {
		case <-r.done:
			return
		case t := <-r.inbox:
			dirty := t.fn(r)
			r.applyEvents()
			if dirty {
				r.broadcastState()
			}
		}
	}
}

// post hands a task to the room goroutine; false means the room is
// already closed.
func (r *Room) post(name string, fn func(*Room) bool) bool {
	select {
	case <-r.done:
		return false
	default:
	}
	select {
	case r.inbox <- task{name: name, fn: fn}:
		return true
	case <-r.done:
		return false
	}
}

// applyEvents drains the engine's side effects: timer scheduling,
// floating amounts and deal traffic.
func (r *Room) applyEvents() {
	for _, ev := range r.engine.DrainEvents() {
		switch ev.Kind {
		case game.EvSchedule:
			r.scheduleTimer(ev.Timer)
		case game.EvFloating:
			r.broadcast(wire.ServerPacket{
				Type:      wire.TypeFloatingAmount,
				TileIndex: wire.IntPtr(ev.Tile),
				Amount:    wire.IntPtr(ev.Amount),
				Positive:  ev.Positive,
			})
		case game.EvDealOffer:
			if p := r.playerBySeat(ev.Seat); p != nil && p.conn != nil {
				p.conn.Send(wire.ServerPacket{
					Type:     wire.TypeDealOffer,
					FromSeat: wire.IntPtr(ev.Deal.FromSeat),
					Deal:     dealToWire(ev.Deal),
				})
			}
		case game.EvDealResult:
			if p := r.playerBySeat(ev.Seat); p != nil && p.conn != nil {
				p.conn.Send(wire.ServerPacket{
					Type:     wire.TypeDealResult,
					Deal:     dealToWire(ev.Deal),
					Accepted: wire.BoolPtr(ev.Accepted),
				})
			}
		}
	}
	if r.engine.Stage() == game.StageOver {
		r.persistResult()
	}
}

func dealToWire(d *game.Deal) *wire.DealPayload {
	if d == nil {
		return nil
	}
	return &wire.DealPayload{
		ToSeat:     d.ToSeat,
		OfferCash:  d.OfferCash,
		OfferTiles: d.OfferTiles,
		WantCash:   d.WantCash,
		WantTiles:  d.WantTiles,
	}
}

func (r *Room) delayFor(k game.TimerKind) time.Duration {
	switch k {
	case game.TimerFinishRoll:
		return rollSettleDelay
	case game.TimerAuctionActivate:
		return r.cfg.auctionStart
	case game.TimerAuctionSettle:
		return r.cfg.auctionSettle
	case game.TimerContestProgress:
		return r.cfg.contestProgress
	case game.TimerContestReveal:
		return r.cfg.contestReveal
	case game.TimerContestTie:
		return r.cfg.contestTie
	}
	return rollSettleDelay
}

// scheduleTimer arms a deferred continuation. The continuation runs on
// the room goroutine and Fire re-validates the phase it was scheduled
// under, so a stale timer is a silent no-op.
func (r *Room) scheduleTimer(k game.TimerKind) {
	time.AfterFunc(r.delayFor(k), func() {
		r.post(string(k), func(r *Room) bool {
			return r.engine.Fire(k)
		})
	})
}

// join is the synchronous entry used by the registry: the decision
// happens on the room goroutine, the caller waits for it.
func (r *Room) join(id Identity, conn Conn) (int, error) {
	type reply struct {
		seat int
		err  error
	}
	ch := make(chan reply, 1)
	ok := r.post("join", func(r *Room) bool {
		seat, err := r.reconcile(id, conn)
		ch <- reply{seat: seat, err: err}
		return err == nil
	})
	if !ok {
		return 0, ErrRoomClosed
	}
	select {
	case res := <-ch:
		return res.seat, res.err
	case <-r.done:
		return 0, ErrRoomClosed
	}
}

// Disconnect unbinds whatever seat the connection held. Host
// disconnects arm the grace timer; everyone else just drops from the
// roster.
func (r *Room) Disconnect(connID string) {
	r.post("disconnect", func(r *Room) bool {
		p := r.playerByConn(connID)
		if p == nil {
			return false
		}
		p.Connected = false
		p.conn = nil
		obslog.L().Info("room_disconnect",
			zap.String("code", r.Code), zap.Int("seat", p.Seat), zap.Bool("host", p.IsHost))
		if p.IsHost {
			r.notice("notice.host_left", map[string]any{"Seconds": int(r.cfg.hostGrace.Seconds())})
			r.startGrace()
		} else {
			r.notice("notice.player_left", map[string]any{"Name": p.Name})
		}
		r.broadcastRoster()
		return true
	})
}

// startGrace arms the host-failover timer once; a pending timer is
// left running.
func (r *Room) startGrace() {
	r.graceMu.Lock()
	defer r.graceMu.Unlock()
	if r.grace != nil {
		return
	}
	r.grace = time.AfterFunc(r.cfg.hostGrace, func() {
		r.post("host_grace_expired", func(r *Room) bool {
			host := r.playerBySeat(0)
			if host == nil || host.Connected {
				return false
			}
			obslog.L().Warn("room_host_timeout", zap.String("code", r.Code))
			r.teardown("Host left the game")
			return false
		})
	})
}

// cancelGrace stops a pending failover timer. Canceling twice, or
// canceling after the timer fired, is a no-op; the return value says
// whether this call actually disarmed it.
func (r *Room) cancelGrace() bool {
	r.graceMu.Lock()
	defer r.graceMu.Unlock()
	if r.grace == nil {
		return false
	}
	stopped := r.grace.Stop()
	r.grace = nil
	return stopped
}

// Shutdown tears the room down from outside the loop (process
// shutdown).
func (r *Room) Shutdown(reason string) {
	if !r.post("shutdown", func(r *Room) bool {
		r.teardown(reason)
		return false
	}) {
		return
	}
}

// teardown is a FatalRoomEvent: notify every client, persist the
// result of a started game, then remove the room. Runs on the room
// goroutine.
func (r *Room) teardown(reason string) {
	r.closeOnce.Do(func() {
		r.cancelGrace()
		r.persistResult()
		pkt := wire.ServerPacket{Type: wire.TypeRoomClosed, Message: reason}
		for _, p := range r.players {
			if p.conn != nil {
				p.conn.Send(pkt)
				p.conn.Close(reason)
			}
		}
		r.reg.remove(r.Code)
		close(r.done)
	})
}

// persistResult writes the finished-game summary once. Never restores
// anything: results are write-only from the room's perspective.
func (r *Room) persistResult() {
	if r.resultSaved || r.sink == nil || r.startedAt.IsZero() {
		return
	}
	r.resultSaved = true
	st := r.engine.State()
	sum := results.Summary{
		Code:      r.Code,
		Players:   make([]string, len(r.players)),
		Balances:  append([]int(nil), st.Balances...),
		StartedAt: r.startedAt,
		EndedAt:   time.Now(),
	}
	for i, p := range r.players {
		sum.Players[i] = p.Name
	}
	if st.WinnerSeat != nil {
		seat := *st.WinnerSeat
		sum.WinnerSeat = &seat
		if p := r.playerBySeat(seat); p != nil {
			sum.WinnerName = p.Name
		}
	}
	sink := r.sink
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		sink.Save(ctx, sum)
	}()
}

func (r *Room) playerBySeat(seat int) *Player {
	for _, p := range r.players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConn(connID string) *Player {
	for _, p := range r.players {
		if p.conn != nil && p.conn.ID() == connID {
			return p
		}
	}
	return nil
}

func (r *Room) notice(key string, data map[string]any) {
	if r.cat == nil {
		r.engine.Notice(key)
		return
	}
	r.engine.Notice(r.cat.MustRender(key, data))
}

// stateRaw snapshots the game state as JSON on the room goroutine, so
// transport queues never see a mutating object.
func (r *Room) stateRaw() json.RawMessage {
	raw, err := json.Marshal(r.engine.State())
	if err != nil {
		obslog.L().Error("state_marshal_failed", zap.String("code", r.Code), zap.Error(err))
		return json.RawMessage("{}")
	}
	return raw
}

func (r *Room) playersRaw() json.RawMessage {
	raw, err := json.Marshal(r.players)
	if err != nil {
		return json.RawMessage("[]")
	}
	return raw
}

func (r *Room) broadcast(pkt wire.ServerPacket) {
	for _, p := range r.players {
		if p.conn != nil {
			p.conn.Send(pkt)
		}
	}
}

func (r *Room) broadcastState() {
	r.broadcast(wire.ServerPacket{
		Type:      wire.TypeStateSnapshot,
		GameState: r.stateRaw(),
		Players:   r.playersRaw(),
	})
}

func (r *Room) broadcastRoster() {
	r.broadcast(wire.ServerPacket{
		Type:    wire.TypeRosterUpdated,
		Players: r.playersRaw(),
	})
}
