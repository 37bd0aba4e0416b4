package joinqr

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/park285/tycoon-rooms/internal/config"
	"github.com/park285/tycoon-rooms/internal/room"
	"github.com/park285/tycoon-rooms/internal/wire"
)

type nopConn struct{ id string }

func (c nopConn) ID() string             { return c.id }
func (c nopConn) Send(wire.ServerPacket) {}
func (c nopConn) Close(string)           {}

func newTestRegistry(t *testing.T) (*room.Registry, string) {
	t.Helper()
	cfg := &config.AppConfig{
		TrackLength:     36,
		MaxSeats:        4,
		StartingBalance: 12500,
		PassStartBonus:  1000,
		HistoryLimit:    10,
		HostGracePeriod: time.Minute,
	}
	reg := room.NewRegistry(cfg, nil, nil)
	r, err := reg.Create(room.Identity{Name: "alice", Avatar: "blue"}, nopConn{id: "c1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll("test over") })
	return reg, r.Code
}

func TestServesPNGForLiveRoom(t *testing.T) {
	reg, code := newTestRegistry(t)
	h := NewHandler(reg, "https://play.example.com")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/join/"+code+"/qr", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "\x89PNG") {
		t.Fatal("body is not a PNG")
	}
}

func TestLowercaseCodeIsNormalized(t *testing.T) {
	reg, code := newTestRegistry(t)
	h := NewHandler(reg, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/join/"+strings.ToLower(code)+"/qr", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestUnknownRoomIs404(t *testing.T) {
	reg, _ := newTestRegistry(t)
	h := NewHandler(reg, "")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/join/ZZZZ/qr", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/join//qr", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("bad path status = %d, want 404", rec.Code)
	}
}
