package room

import (
	"crypto/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/config"
	"github.com/park285/tycoon-rooms/internal/msgcat"
	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/results"
)

// Room codes avoid glyphs that read ambiguously (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength   = 4
	codeAttempts = 32
)

// Registry is the code→Room map. Entries are only ever inserted and
// removed whole; all per-room state lives behind the room's own
// goroutine.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg  *config.AppConfig
	cat  *msgcat.Catalog
	sink *results.Store
}

// NewRegistry wires the registry. cat and sink may be nil.
func NewRegistry(cfg *config.AppConfig, cat *msgcat.Catalog, sink *results.Store) *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		cat:   cat,
		sink:  sink,
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// Create allocates a fresh room with the creator seated as host and
// announces room_created on the creator's connection.
func (g *Registry) Create(id Identity, conn Conn) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var code string
	for i := 0; i < codeAttempts; i++ {
		c, err := randomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := g.rooms[c]; !taken {
			code = c
			break
		}
	}
	if code == "" {
		return nil, ErrCodeExhausted
	}

	r := newRoom(code, g, id, conn)
	g.rooms[code] = r
	obslog.L().Info("room_create", zap.String("code", code), zap.String("host", id.Name))
	return r, nil
}

// Join routes a join request to the room's own goroutine; all
// reconciliation outcomes (reconnect, collision, full) are decided
// there.
func (g *Registry) Join(code string, id Identity, conn Conn) (*Room, int, error) {
	r, ok := g.Get(code)
	if !ok {
		return nil, 0, ErrRoomNotFound
	}
	seat, err := r.join(id, conn)
	if err != nil {
		return nil, 0, err
	}
	return r, seat, nil
}

func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[code]
	return r, ok
}

// Count reports the number of live rooms.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) remove(code string) {
	g.mu.Lock()
	delete(g.rooms, code)
	g.mu.Unlock()
	obslog.L().Info("room_remove", zap.String("code", code))
}

// CloseAll tears down every room, used on shutdown.
func (g *Registry) CloseAll(reason string) {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		rooms = append(rooms, r)
	}
	g.mu.RUnlock()
	for _, r := range rooms {
		r.Shutdown(reason)
	}
}
