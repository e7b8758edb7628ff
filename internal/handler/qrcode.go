package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/sakif/event-registration/internal/service"
)

const (
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// QRHandler renders the check-in QR code of a participant. The code links to
// the door page of the admin client.
type QRHandler struct {
	participants *service.ParticipantService
	baseURL      string
	logger       *slog.Logger
}

func NewQRHandler(participants *service.ParticipantService, publicBaseURL string, logger *slog.Logger) *QRHandler {
	return &QRHandler{
		participants: participants,
		baseURL:      strings.TrimRight(publicBaseURL, "/"),
		logger:       logger,
	}
}

// ParticipantURL is what the QR code encodes.
func (h *QRHandler) ParticipantURL(userID string) string {
	return h.baseURL + "/participant/" + userID
}

// HTTP: GET /api/participants/{id}/qr.png?size=256
func (h *QRHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	p, err := h.participants.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	png, err := qrcode.Encode(h.ParticipantURL(p.UserID), qrcode.Medium, qrSize(r.URL.Query().Get("size")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="qr-`+p.UserID+`.png"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func qrSize(raw string) int {
	size, err := strconv.Atoi(raw)
	if err != nil {
		return defaultQRSize
	}
	return min(max(size, minQRSize), maxQRSize)
}
