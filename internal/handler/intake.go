package handler

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/service"
)

// IntakeHandler receives the form builder's webhook.
type IntakeHandler struct {
	intake *service.IntakeService
	key    string
	logger *slog.Logger
}

// NewIntakeHandler creates the webhook handler. With a non-empty key the
// request must carry ?key=<key>.
func NewIntakeHandler(intake *service.IntakeService, key string, logger *slog.Logger) *IntakeHandler {
	return &IntakeHandler{intake: intake, key: key, logger: logger}
}

// HandleTilda accepts JSON or form-encoded submissions.
//
// HTTP: POST /api/intake/tilda
func (h *IntakeHandler) HandleTilda(w http.ResponseWriter, r *http.Request) {
	if h.key != "" && subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("key")), []byte(h.key)) != 1 {
		writeError(w, r, h.logger, apperror.Unauthorized("invalid intake key"))
		return
	}

	raw, err := h.readPayload(w, r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	sub := service.DecodeTilda(raw)
	if sub.Test {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}

	p, created, err := h.intake.Submit(r.Context(), sub)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

func (h *IntakeHandler) readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "application/json" {
		raw := map[string]any{}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, apperror.ValidationFailed("", "invalid JSON body")
		}
		return raw, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxJSONBody)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, apperror.ValidationFailed("", "invalid form body")
	}

	raw := make(map[string]any, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}
	return raw, nil
}
