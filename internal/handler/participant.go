package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/service"
)

// ParticipantHandler serves /api/participants.
type ParticipantHandler struct {
	participants *service.ParticipantService
	logger       *slog.Logger
}

func NewParticipantHandler(participants *service.ParticipantService, logger *slog.Logger) *ParticipantHandler {
	return &ParticipantHandler{participants: participants, logger: logger}
}

// participantRequest is the body of create and update.
type participantRequest struct {
	UserName      string `json:"user_name"      validate:"required,max=200"`
	UserPhone     string `json:"user_phone"     validate:"required,max=50"`
	Email         string `json:"email"          validate:"omitempty,email,max=200"`
	City          string `json:"city"           validate:"max=200"`
	Church        string `json:"church"         validate:"max=200"`
	BirthDate     string `json:"birth_date"`
	FirstTime     bool   `json:"first_time"`
	Paid          bool   `json:"paid"`
	PaymentAmount int64  `json:"payment_amount" validate:"gte=0"`
	PromoCode     string `json:"promo_code"     validate:"max=200"`
	PromoDiscount int64  `json:"promo_discount" validate:"gte=0"`
	PaymentDate   string `json:"payment_date"`
	LetterDate    string `json:"letter_date"`
}

func (req participantRequest) fields() model.ParticipantFields {
	return model.ParticipantFields{
		UserName:      req.UserName,
		UserPhone:     req.UserPhone,
		Email:         req.Email,
		City:          req.City,
		Church:        req.Church,
		BirthDate:     req.BirthDate,
		FirstTime:     req.FirstTime,
		Paid:          req.Paid,
		PaymentAmount: req.PaymentAmount,
		PromoCode:     req.PromoCode,
		PromoDiscount: req.PromoDiscount,
		PaymentDate:   req.PaymentDate,
		LetterDate:    req.LetterDate,
	}
}

type listResponse struct {
	Participants []model.Participant `json:"participants"`
}

// HandleList returns the participant table.
//
// HTTP: GET /api/participants?q=<name substring>&sort=default|alphabet|price
func (h *ParticipantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := service.ParseQuery(r.URL.Query().Get("q"), r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	participants, err := h.participants.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Participants: participants})
}

// HandleStats returns the statistics page aggregates.
//
// HTTP: GET /api/participants/stats
func (h *ParticipantHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.participants.Statistics(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HTTP: GET /api/participants/{id}
func (h *ParticipantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.participants.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: POST /api/participants
func (h *ParticipantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.participants.Create(r.Context(), req.fields())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Location", "/api/participants/"+p.UserID)
	writeJSON(w, http.StatusCreated, p)
}

// HTTP: PUT /api/participants/{id}
func (h *ParticipantHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req participantRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.participants.Update(r.Context(), chi.URLParam(r, "id"), req.fields())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type paymentRequest struct {
	Paid          *bool   `json:"paid"           validate:"required"`
	PaymentAmount *int64  `json:"payment_amount" validate:"omitempty,gte=0"`
	PaymentDate   *string `json:"payment_date"`
}

// HTTP: PUT /api/participants/{id}/payment
func (h *ParticipantHandler) HandleSetPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := validateRequest(req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.participants.SetPayment(r.Context(), chi.URLParam(r, "id"), service.Payment{
		Paid:   *req.Paid,
		Amount: req.PaymentAmount,
		Date:   req.PaymentDate,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// admitRequest distinguishes a missing datetime (admit now) from an empty
// one (clear the admission).
type admitRequest struct {
	Datetime *string `json:"datetime"`
}

// HTTP: PUT /api/participants/{id}/admit
func (h *ParticipantHandler) HandleAdmit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.participants.Admit(r.Context(), chi.URLParam(r, "id"), req.Datetime)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HTTP: DELETE /api/participants/{id}
func (h *ParticipantHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.participants.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
