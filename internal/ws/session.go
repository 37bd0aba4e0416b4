package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/room"
	"github.com/park285/tycoon-rooms/internal/wire"
)

const (
	egressBuffer = 32
	writeTimeout = 5 * time.Second
)

// session is one client connection. It implements room.Conn: the room
// goroutine hands packets to Send, the write loop drains them, and the
// two sides never share the underlying conn directly.
type session struct {
	id   string
	conn *websocket.Conn

	out      chan wire.ServerPacket
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu   sync.Mutex
	room *room.Room
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		id:     uuid.NewString(),
		conn:   conn,
		out:    make(chan wire.ServerPacket, egressBuffer),
		stopCh: make(chan struct{}),
	}
}

func (s *session) ID() string { return s.id }

// Send queues a packet for the write loop. It never blocks the room
// goroutine: a full queue drops the packet, and the next snapshot
// broadcast puts the client back in sync.
func (s *session) Send(pkt wire.ServerPacket) {
	select {
	case <-s.stopCh:
	case s.out <- pkt:
	default:
		obslog.L().Warn("ws_egress_drop",
			zap.String("session", s.id), zap.String("type", pkt.Type))
	}
}

// Close asks the session to shut down. Safe from any goroutine,
// including the room loop.
func (s *session) Close(reason string) {
	s.stop(websocket.StatusNormalClosure, reason)
}

func (s *session) stop(code websocket.StatusCode, reason string) {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		_ = s.conn.Close(code, reason)
	})
}

func (s *session) attach(r *room.Room) {
	s.mu.Lock()
	s.room = r
	s.mu.Unlock()
}

func (s *session) attached() *room.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *session) writeLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case pkt := <-s.out:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := wsjson.Write(ctx, s.conn, pkt)
			cancel()
			if err != nil {
				if !s.isStopping() {
					obslog.L().Debug("ws_write_failed", zap.String("session", s.id), zap.Error(err))
					s.stop(websocket.StatusGoingAway, "write failure")
				}
				return
			}
		}
	}
}

func (s *session) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}
