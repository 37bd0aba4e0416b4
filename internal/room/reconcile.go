package room

import (
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/game"
	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/wire"
)

// reconcile decides what a join request means: a reconnect of an
// existing seat, an identity error, or a fresh seat. Runs on the room
// goroutine. Failures leave the room untouched and are reported to
// the requester only.
func (r *Room) reconcile(id Identity, conn Conn) (int, error) {
	for _, p := range r.players {
		if p.Name == id.Name && p.Avatar == id.Avatar {
			if p.Connected {
				return 0, ErrIdentityCollision
			}
			return r.rebind(p, conn), nil
		}
		if p.Name == id.Name || p.Avatar == id.Avatar {
			return 0, ErrIdentityTaken
		}
	}
	if r.engine.Stage() != game.StageLobby {
		return 0, ErrGameInProgress
	}
	if len(r.players) >= r.maxSeats {
		return 0, ErrRoomFull
	}

	seat := len(r.players)
	p := &Player{Seat: seat, Name: id.Name, Avatar: id.Avatar, Connected: true, conn: conn}
	r.players = append(r.players, p)
	r.notice("notice.player_joined", map[string]any{"Name": p.Name})
	obslog.L().Info("room_join", zap.String("code", r.Code), zap.Int("seat", seat), zap.String("name", id.Name))

	r.sendJoined(p)
	r.broadcastRoster()
	return seat, nil
}

// rebind is the reconnect path: the seat keeps its index and all game
// state, only the transport handle changes. A reconnecting host
// disarms the failover timer; the notice goes out only when this
// reconnect actually disarmed it, so a double cancel stays silent.
func (r *Room) rebind(p *Player, conn Conn) int {
	p.conn = conn
	p.Connected = true
	obslog.L().Info("room_reconnect",
		zap.String("code", r.Code), zap.Int("seat", p.Seat), zap.Bool("host", p.IsHost))

	if p.IsHost {
		if r.cancelGrace() {
			r.notice("notice.host_back", nil)
		}
	} else {
		r.notice("notice.player_back", map[string]any{"Name": p.Name})
	}
	r.sendJoined(p)
	r.broadcastRoster()
	return p.Seat
}

func (r *Room) sendJoined(p *Player) {
	p.conn.Send(wire.ServerPacket{
		Type:      wire.TypeRoomJoined,
		Code:      r.Code,
		Seat:      wire.IntPtr(p.Seat),
		GameState: r.stateRaw(),
		Players:   r.playersRaw(),
	})
}
