// Package ws is the websocket front door: it upgrades connections,
// decodes client envelopes and routes them to the room registry. One
// session per connection; a session binds to at most one room.
package ws

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/room"
	"github.com/park285/tycoon-rooms/internal/wire"
)

type Handler struct {
	reg     *room.Registry
	origins []string
}

func NewHandler(reg *room.Registry, allowedOrigins []string) *Handler {
	return &Handler{reg: reg, origins: allowedOrigins}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	}
	if len(h.origins) == 0 {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.origins
	}
	conn, err := websocket.Accept(w, req, opts)
	if err != nil {
		obslog.L().Debug("ws_accept_failed", zap.Error(err))
		return
	}

	s := newSession(conn)
	obslog.L().Info("ws_connect", zap.String("session", s.id), zap.String("remote", req.RemoteAddr))

	s.wg.Add(1)
	go s.writeLoop()

	h.readLoop(req.Context(), s)

	s.stop(websocket.StatusGoingAway, "connection done")
	s.wg.Wait()
	if r := s.attached(); r != nil {
		r.Disconnect(s.id)
	}
	obslog.L().Info("ws_disconnect", zap.String("session", s.id))
}

func (h *Handler) readLoop(ctx context.Context, s *session) {
	for {
		var pkt wire.ClientPacket
		if err := wsjson.Read(ctx, s.conn, &pkt); err != nil {
			if !s.isStopping() {
				obslog.L().Debug("ws_read_closed", zap.String("session", s.id), zap.Error(err))
			}
			return
		}
		h.route(s, &pkt)
	}
}

func (h *Handler) route(s *session, pkt *wire.ClientPacket) {
	switch pkt.Type {
	case wire.TypeCreateRoom:
		if s.attached() != nil {
			s.Send(errPacket("already in a room"))
			return
		}
		r, err := h.reg.Create(room.Identity{Name: pkt.Name, Avatar: pkt.Avatar}, s)
		if err != nil {
			s.Send(errPacket(err.Error()))
			return
		}
		s.attach(r)

	case wire.TypeJoinRoom:
		if s.attached() != nil {
			s.Send(errPacket("already in a room"))
			return
		}
		r, _, err := h.reg.Join(pkt.Code, room.Identity{Name: pkt.Name, Avatar: pkt.Avatar}, s)
		if err != nil {
			s.Send(errPacket(err.Error()))
			return
		}
		s.attach(r)

	case wire.TypeStartGame:
		if r := s.attached(); r != nil {
			r.HandleStartGame(s.id)
		}

	case wire.TypeGameAction:
		if r := s.attached(); r != nil {
			r.HandleGameAction(s.id, pkt.Action, pkt.Payload)
		}

	default:
		obslog.L().Debug("ws_unknown_type", zap.String("session", s.id), zap.String("type", pkt.Type))
	}
}

func errPacket(msg string) wire.ServerPacket {
	return wire.ServerPacket{Type: wire.TypeActionError, Message: msg}
}
