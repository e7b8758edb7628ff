package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/event-registration/internal/auth"
	"github.com/sakif/event-registration/internal/service"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authService, logger: logger}
}

type loginRequest struct {
	Login    string `json:"login"    validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// HTTP: POST /api/auth/login → {"token": "...", "expires_at": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

// HandleValidate answers whether a token is still good. The token may come
// in the body or as a bearer header.
//
// HTTP: POST /api/auth/validate → {"valid": true}
func (h *AuthHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateTokenRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.Token == "" {
		req.Token = auth.TokenFromRequest(r)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": h.auth.Validate(r.Context(), req.Token)})
}

// HTTP: POST /api/auth/logout (behind RequireAuth)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context(), auth.TokenFromRequest(r)); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
