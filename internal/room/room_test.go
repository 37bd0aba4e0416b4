package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/park285/tycoon-rooms/internal/config"
	"github.com/park285/tycoon-rooms/internal/game"
	"github.com/park285/tycoon-rooms/internal/wire"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		TrackLength:     36,
		MaxSeats:        4,
		StartingBalance: 12500,
		PassStartBonus:  1000,
		HistoryLimit:    10,
		HostGracePeriod: 40 * time.Millisecond,
		AuctionStart:    time.Millisecond,
		AuctionSettle:   time.Millisecond,
		ContestProgress: time.Millisecond,
		ContestReveal:   time.Millisecond,
		ContestTieDelay: time.Millisecond,
	}
}

type fakeConn struct {
	id string

	mu     sync.Mutex
	pkts   []wire.ServerPacket
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(pkt wire.ServerPacket) {
	c.mu.Lock()
	c.pkts = append(c.pkts, pkt)
	c.mu.Unlock()
}

func (c *fakeConn) Close(string) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// lastOfType returns the newest packet with the given type.
func (c *fakeConn) lastOfType(typ string) (wire.ServerPacket, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.pkts) - 1; i >= 0; i-- {
		if c.pkts[i].Type == typ {
			return c.pkts[i], true
		}
	}
	return wire.ServerPacket{}, false
}

func (c *fakeConn) countOfType(typ string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.pkts {
		if p.Type == typ {
			n++
		}
	}
	return n
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func decodeState(t *testing.T, pkt wire.ServerPacket) *game.State {
	t.Helper()
	raw, ok := pkt.GameState.(json.RawMessage)
	if !ok {
		t.Fatalf("gameState is %T, want json.RawMessage", pkt.GameState)
	}
	var st game.State
	if err := json.Unmarshal(raw, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return &st
}

func decodeRoster(t *testing.T, pkt wire.ServerPacket) []Player {
	t.Helper()
	raw, ok := pkt.Players.(json.RawMessage)
	if !ok {
		t.Fatalf("players is %T, want json.RawMessage", pkt.Players)
	}
	var ps []Player
	if err := json.Unmarshal(raw, &ps); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	return ps
}

func newTestRoom(t *testing.T) (*Registry, *Room, *fakeConn) {
	t.Helper()
	reg := NewRegistry(testConfig(), nil, nil)
	host := newFakeConn("host-conn")
	r, err := reg.Create(Identity{Name: "alice", Avatar: "blue"}, host)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll("test over") })
	return reg, r, host
}

func TestCreateAllocatesWellFormedCode(t *testing.T) {
	_, r, host := newTestRoom(t)
	if len(r.Code) != codeLength {
		t.Fatalf("code %q, want %d chars", r.Code, codeLength)
	}
	for _, c := range r.Code {
		found := false
		for _, a := range codeAlphabet {
			if c == a {
				found = true
			}
		}
		if !found {
			t.Fatalf("code %q uses %q outside the unambiguous alphabet", r.Code, c)
		}
	}
	pkt, ok := host.lastOfType(wire.TypeRoomCreated)
	if !ok {
		t.Fatal("creator never got room_created")
	}
	if pkt.Seat == nil || *pkt.Seat != 0 {
		t.Fatalf("creator seat = %v, want 0", pkt.Seat)
	}
}

func TestJoinIdentityOutcomes(t *testing.T) {
	reg, r, _ := newTestRoom(t)

	// Connected exact match collides.
	if _, _, err := reg.Join(r.Code, Identity{Name: "alice", Avatar: "blue"}, newFakeConn("c1")); err != ErrIdentityCollision {
		t.Fatalf("err = %v, want ErrIdentityCollision", err)
	}
	// Partial match (name or avatar) is taken.
	if _, _, err := reg.Join(r.Code, Identity{Name: "alice", Avatar: "red"}, newFakeConn("c2")); err != ErrIdentityTaken {
		t.Fatalf("err = %v, want ErrIdentityTaken", err)
	}
	if _, _, err := reg.Join(r.Code, Identity{Name: "mallory", Avatar: "blue"}, newFakeConn("c3")); err != ErrIdentityTaken {
		t.Fatalf("err = %v, want ErrIdentityTaken", err)
	}
	// Unknown code.
	if _, _, err := reg.Join("ZZZZ", Identity{Name: "bob", Avatar: "red"}, newFakeConn("c4")); err != ErrRoomNotFound {
		t.Fatalf("err = %v, want ErrRoomNotFound", err)
	}

	// Fill the remaining seats, then overflow.
	for i := 0; i < 3; i++ {
		id := Identity{Name: fmt.Sprintf("p%d", i), Avatar: fmt.Sprintf("a%d", i)}
		if _, seat, err := reg.Join(r.Code, id, newFakeConn(fmt.Sprintf("fill%d", i))); err != nil || seat != i+1 {
			t.Fatalf("join %d = seat %d, err %v", i, seat, err)
		}
	}
	if _, _, err := reg.Join(r.Code, Identity{Name: "late", Avatar: "grey"}, newFakeConn("c5")); err != ErrRoomFull {
		t.Fatalf("err = %v, want ErrRoomFull", err)
	}
}

func TestReconnectPreservesSeatAndGameState(t *testing.T) {
	reg, r, host := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	_, seat, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob)
	if err != nil || seat != 1 {
		t.Fatalf("join = %d/%v", seat, err)
	}

	r.HandleStartGame("host-conn")
	waitFor(t, time.Second, "game start", func() bool {
		return bob.countOfType(wire.TypeGameStarted) > 0
	})

	// A loan is a deterministic mutation touching balance and loans.
	r.HandleGameAction("bob-conn", wire.ActTakeLoan, json.RawMessage(`{"amount":777}`))
	waitFor(t, time.Second, "loan snapshot", func() bool {
		pkt, ok := bob.lastOfType(wire.TypeStateSnapshot)
		return ok && decodeState(t, pkt).Loans[1] != nil
	})

	r.Disconnect("bob-conn")
	waitFor(t, time.Second, "roster update", func() bool {
		pkt, ok := host.lastOfType(wire.TypeRosterUpdated)
		if !ok {
			return false
		}
		return !decodeRoster(t, pkt)[1].Connected
	})

	bob2 := newFakeConn("bob-conn-2")
	_, seat2, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob2)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if seat2 != 1 {
		t.Fatalf("rejoin seat = %d, want original 1", seat2)
	}
	pkt, ok := bob2.lastOfType(wire.TypeRoomJoined)
	if !ok {
		t.Fatal("rejoin never got joined_room")
	}
	st := decodeState(t, pkt)
	if st.Balances[1] != 12500+777 {
		t.Fatalf("balance = %d, want preserved %d", st.Balances[1], 12500+777)
	}
	loan := st.Loans[1]
	if loan == nil || loan.Principal != 777 {
		t.Fatalf("loan = %+v, want preserved principal 777", loan)
	}
}

func TestHostGraceExpiryDestroysRoom(t *testing.T) {
	reg, r, _ := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	if _, _, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob); err != nil {
		t.Fatalf("join: %v", err)
	}

	r.Disconnect("host-conn")
	waitFor(t, time.Second, "room teardown", func() bool {
		return reg.Count() == 0
	})
	if _, ok := bob.lastOfType(wire.TypeRoomClosed); !ok {
		t.Fatal("remaining player never notified of room_closed")
	}
	if !bob.isClosed() {
		t.Fatal("remaining connection not closed")
	}
}

func TestHostReconnectCancelsGraceIdempotently(t *testing.T) {
	reg, r, _ := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	if _, _, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob); err != nil {
		t.Fatalf("join: %v", err)
	}

	r.Disconnect("host-conn")
	host2 := newFakeConn("host-conn-2")
	_, seat, err := reg.Join(r.Code, Identity{Name: "alice", Avatar: "blue"}, host2)
	if err != nil || seat != 0 {
		t.Fatalf("host rejoin = %d/%v", seat, err)
	}

	// Canceling the already-cancelled timer is a no-op.
	if r.cancelGrace() {
		t.Fatal("second cancel should report nothing to disarm")
	}

	// The grace period passes and the room survives.
	time.Sleep(3 * testConfig().HostGracePeriod)
	if reg.Count() != 1 {
		t.Fatal("room destroyed despite host reconnect")
	}

	// Exactly one host-reconnect notice reached the history.
	pkt, ok := bob.lastOfType(wire.TypeStateSnapshot)
	if !ok {
		t.Fatal("no snapshot after host reconnect")
	}
	st := decodeState(t, pkt)
	seen := 0
	for _, line := range st.History {
		if line == "notice.host_back" {
			seen++
		}
	}
	if seen != 1 {
		t.Fatalf("host_back notices = %d, want exactly 1", seen)
	}
}

func TestStartGameIsHostOnly(t *testing.T) {
	reg, r, host := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	if _, _, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob); err != nil {
		t.Fatalf("join: %v", err)
	}

	r.HandleStartGame("bob-conn")
	waitFor(t, time.Second, "host-only rejection", func() bool {
		return bob.countOfType(wire.TypeActionError) > 0
	})
	if host.countOfType(wire.TypeGameStarted) != 0 {
		t.Fatal("game must not start for a non-host")
	}

	r.HandleStartGame("host-conn")
	waitFor(t, time.Second, "game start", func() bool {
		return host.countOfType(wire.TypeGameStarted) == 1 && bob.countOfType(wire.TypeGameStarted) == 1
	})
}

func TestNewSeatsRejectedAfterStart(t *testing.T) {
	reg, r, _ := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	if _, _, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	r.HandleStartGame("host-conn")
	waitFor(t, time.Second, "game start", func() bool {
		return bob.countOfType(wire.TypeGameStarted) > 0
	})
	if _, _, err := reg.Join(r.Code, Identity{Name: "carol", Avatar: "green"}, newFakeConn("c")); err != ErrGameInProgress {
		t.Fatalf("err = %v, want ErrGameInProgress", err)
	}
}

func TestActionErrorGoesToRequesterOnly(t *testing.T) {
	reg, r, host := newTestRoom(t)
	bob := newFakeConn("bob-conn")
	if _, _, err := reg.Join(r.Code, Identity{Name: "bob", Avatar: "red"}, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	r.HandleStartGame("host-conn")
	waitFor(t, time.Second, "game start", func() bool {
		return bob.countOfType(wire.TypeGameStarted) > 0
	})

	// Seat 1 rolling out of turn is a RequestError for bob alone.
	r.HandleGameAction("bob-conn", wire.ActRollDice, nil)
	waitFor(t, time.Second, "not-your-turn error", func() bool {
		return bob.countOfType(wire.TypeActionError) == 1
	})
	if host.countOfType(wire.TypeActionError) != 0 {
		t.Fatal("request error leaked to another client")
	}
}
