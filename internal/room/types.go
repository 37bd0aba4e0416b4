// Package room implements the session registry, the per-room actor
// loop and identity reconciliation. Each Room owns its GameState
// exclusively: every mutation runs on the room's single goroutine, and
// a full snapshot is broadcast after each handled message.
package room

import (
	"github.com/park285/tycoon-rooms/internal/wire"
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

const (
	ErrRoomNotFound      = staticErr("room not found")
	ErrRoomFull          = staticErr("room is full")
	ErrIdentityCollision = staticErr("name and avatar already connected")
	ErrIdentityTaken     = staticErr("name or avatar already taken")
	ErrGameInProgress    = staticErr("game already in progress")
	ErrRoomClosed        = staticErr("room closed")
	ErrNotHost           = staticErr("host only")
	ErrCodeExhausted     = staticErr("could not allocate room code")
)

// Identity is what a client presents when creating or joining: the
// name+avatar pair is the reconnect key.
type Identity struct {
	Name   string
	Avatar string
}

// Conn is the transport handle bound to a seat. Send must not block
// the caller; implementations queue and drop on overflow.
type Conn interface {
	ID() string
	Send(pkt wire.ServerPacket)
	Close(reason string)
}

// Player is one seat in a room. The transport handle is rebound on
// reconnect; Seat never changes once assigned.
type Player struct {
	Seat      int    `json:"id"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`

	conn Conn
}
