// Package service holds the business rules of the registration desk.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, normalises, orchestrates
//	Repository      → reads/writes participants
//
// Services take repository.ParticipantRepository and storage.Store
// interfaces, so tests run against in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/dates"
	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/repository"
	"github.com/sakif/event-registration/internal/storage"
)

const (
	MaxNameLength  = 200
	MaxPhoneLength = 50
	MaxTextLength  = 200
)

// ParticipantService implements the participant operations of the API.
type ParticipantService struct {
	repo     repository.ParticipantRepository
	receipts storage.Store
	logger   *slog.Logger
	now      func() time.Time
}

func NewParticipantService(repo repository.ParticipantRepository, receipts storage.Store, logger *slog.Logger) *ParticipantService {
	return &ParticipantService{
		repo:     repo,
		receipts: receipts,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns the participants matching q in q's order.
func (s *ParticipantService) List(ctx context.Context, q Query) ([]model.Participant, error) {
	participants, err := s.repo.List(ctx, repository.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("listing participants: %w", err)
	}
	return q.Apply(participants), nil
}

// Get returns one participant. Unknown ids wrap apperror.ErrNotFound.
func (s *ParticipantService) Get(ctx context.Context, userID string) (*model.Participant, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("user_id", "participant id is required")
	}
	return s.repo.GetByUserID(ctx, userID)
}

// Create registers a new participant. The store assigns the id and number.
func (s *ParticipantService) Create(ctx context.Context, f model.ParticipantFields) (*model.Participant, error) {
	f, err := normalizeFields(f)
	if err != nil {
		return nil, err
	}

	p := &model.Participant{}
	f.Apply(p)

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create participant",
			slog.String("user_name", p.UserName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating participant: %w", err)
	}

	s.logger.Info("participant created",
		slog.String("user_id", p.UserID),
		slog.Int64("number", p.ParticipantNumber),
	)
	return p, nil
}

// Update replaces the editable fields of a participant. Admission, receipt
// and creation time are kept.
func (s *ParticipantService) Update(ctx context.Context, userID string, f model.ParticipantFields) (*model.Participant, error) {
	f, err := normalizeFields(f)
	if err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	f.Apply(p)

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("updating participant: %w", err)
	}

	s.logger.Info("participant updated", slog.String("user_id", p.UserID))
	return p, nil
}

// Payment is a partial update of the payment fields. Nil pointers keep the
// stored value.
type Payment struct {
	Paid   bool
	Amount *int64
	Date   *string
}

// SetPayment marks a participant paid or unpaid.
func (s *ParticipantService) SetPayment(ctx context.Context, userID string, pay Payment) (*model.Participant, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	p.Paid = pay.Paid
	if pay.Amount != nil {
		if *pay.Amount < 0 {
			return nil, apperror.ValidationFailed("payment_amount", "payment amount must not be negative")
		}
		p.PaymentAmount = *pay.Amount
	}
	if pay.Date != nil {
		d, err := dates.NormalizeDateOrTimestamp(*pay.Date)
		if err != nil {
			return nil, apperror.ValidationFailed("payment_date", "payment date is not a valid date")
		}
		p.PaymentDate = d
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("setting payment: %w", err)
	}

	s.logger.Info("participant payment set",
		slog.String("user_id", p.UserID),
		slog.Bool("paid", p.Paid),
		slog.Int64("amount", p.PaymentAmount),
	)
	return p, nil
}

// Admit records the check-in time. A nil datetime means now, an empty one
// clears the admission, anything else must parse as a timestamp.
func (s *ParticipantService) Admit(ctx context.Context, userID string, datetime *string) (*model.Participant, error) {
	var enter string
	switch {
	case datetime == nil:
		enter = s.now().UTC().Format(time.RFC3339)
	default:
		var err error
		enter, err = dates.NormalizeTimestamp(*datetime)
		if err != nil {
			return nil, apperror.ValidationFailed("datetime", "datetime is not a valid timestamp")
		}
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.EnterDate = enter

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("admitting participant: %w", err)
	}

	if enter == "" {
		s.logger.Info("participant admission cleared", slog.String("user_id", p.UserID))
	} else {
		s.logger.Info("participant admitted",
			slog.String("user_id", p.UserID),
			slog.String("enter_date", enter),
		)
	}
	return p, nil
}

// Delete removes a participant, then tries to remove its receipt. A receipt
// that cannot be removed is logged and otherwise ignored.
func (s *ParticipantService) Delete(ctx context.Context, userID string) error {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, p.UserID); err != nil {
		return fmt.Errorf("deleting participant: %w", err)
	}
	s.logger.Info("participant deleted", slog.String("user_id", p.UserID))

	if p.BillFile != "" && s.receipts != nil {
		err := s.receipts.Delete(ctx, p.BillFile)
		if err != nil && !errors.Is(err, storage.ErrNotExist) {
			s.logger.Warn("failed to delete receipt of deleted participant",
				slog.String("user_id", p.UserID),
				slog.String("bill_file", p.BillFile),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// normalizeFields trims text, checks required fields and converts the birth
// date to YYYY-MM-DD. Payment and letter dates keep a time part if they have one.
func normalizeFields(f model.ParticipantFields) (model.ParticipantFields, error) {
	f.UserName = strings.Join(strings.Fields(f.UserName), " ")
	f.UserPhone = strings.TrimSpace(f.UserPhone)
	f.Email = strings.TrimSpace(f.Email)
	f.City = strings.TrimSpace(f.City)
	f.Church = strings.TrimSpace(f.Church)
	f.PromoCode = strings.TrimSpace(f.PromoCode)

	if f.UserName == "" {
		return f, apperror.ValidationFailed("user_name", "user_name is required")
	}
	if len(f.UserName) > MaxNameLength {
		return f, apperror.ValidationFailed("user_name",
			fmt.Sprintf("user_name must be %d characters or less", MaxNameLength))
	}
	if f.UserPhone == "" {
		return f, apperror.ValidationFailed("user_phone", "user_phone is required")
	}
	if len(f.UserPhone) > MaxPhoneLength {
		return f, apperror.ValidationFailed("user_phone",
			fmt.Sprintf("user_phone must be %d characters or less", MaxPhoneLength))
	}
	for field, v := range map[string]string{"email": f.Email, "city": f.City, "church": f.Church, "promo_code": f.PromoCode} {
		if len(v) > MaxTextLength {
			return f, apperror.ValidationFailed(field,
				fmt.Sprintf("%s must be %d characters or less", field, MaxTextLength))
		}
	}
	if f.PaymentAmount < 0 {
		return f, apperror.ValidationFailed("payment_amount", "payment amount must not be negative")
	}
	if f.PromoDiscount < 0 {
		return f, apperror.ValidationFailed("promo_discount", "promo discount must not be negative")
	}

	var err error
	if f.BirthDate, err = dates.NormalizeCalendarDate(f.BirthDate); err != nil {
		return f, apperror.ValidationFailed("birth_date", "birth date must be YYYY-MM-DD or DD-MM-YYYY")
	}
	if f.PaymentDate, err = dates.NormalizeDateOrTimestamp(f.PaymentDate); err != nil {
		return f, apperror.ValidationFailed("payment_date", "payment date is not a valid date")
	}
	if f.LetterDate, err = dates.NormalizeDateOrTimestamp(f.LetterDate); err != nil {
		return f, apperror.ValidationFailed("letter_date", "letter date is not a valid date")
	}
	return f, nil
}
