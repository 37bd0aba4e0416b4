// Package joinqr serves QR codes that deep-link into a room's join
// page, so a host can put the code on screen and let players scan in.
package joinqr

import (
	"fmt"
	"net/http"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/park285/tycoon-rooms/internal/obslog"
	"github.com/park285/tycoon-rooms/internal/room"
)

const pngSize = 256

type Handler struct {
	reg     *room.Registry
	baseURL string
}

// NewHandler serves GET /join/{code}/qr. baseURL is the public origin
// the QR should point at; empty falls back to the request host.
func NewHandler(reg *room.Registry, baseURL string) *Handler {
	return &Handler{reg: reg, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	code, ok := parsePath(req.URL.Path)
	if !ok {
		http.NotFound(w, req)
		return
	}
	code = strings.ToUpper(code)
	if _, live := h.reg.Get(code); !live {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	base := h.baseURL
	if base == "" {
		base = "http://" + req.Host
	}
	target := fmt.Sprintf("%s/join/%s", base, code)

	png, err := qrcode.Encode(target, qrcode.Medium, pngSize)
	if err != nil {
		obslog.L().Error("qr_encode_failed", zap.String("code", code), zap.Error(err))
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

// parsePath extracts the room code from /join/{code}/qr.
func parsePath(p string) (string, bool) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) != 3 || parts[0] != "join" || parts[2] != "qr" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
