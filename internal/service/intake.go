package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/repository"
)

// DefaultStaleAfter is how old an unpaid registration must be before a
// repeated submission reuses it instead of creating a new one.
const DefaultStaleAfter = 72 * time.Hour

// TildaSubmission is one form-builder webhook call after decoding.
type TildaSubmission struct {
	Test bool // the builder's connectivity check, nothing to store

	Name      string
	Surname   string
	Phone     string
	Email     string
	BirthDate string
	City      string
	Church    string
	FirstTime bool

	PaymentAmount int64
	PromoCode     string
	PromoDiscount int64
}

// Field keys the form actually sends. The form editor has a habit of
// producing a Cyrillic "С" at the start of City/Church, so both spellings
// are looked up; keys are compared case-insensitively.
var tildaKeys = map[string][]string{
	"name":    {"name"},
	"surname": {"surname"},
	"phone":   {"phone"},
	"email":   {"email"},
	"date":    {"date"},
	"city":    {"city", "сity"},
	"church":  {"church", "сhurch"},
	"first":   {"first"},
	"payment": {"payment"},
	"test":    {"test"},
}

// DecodeTilda builds a submission from the raw payload. JSON bodies give
// arbitrary values; form bodies give strings. Malformed payment data
// degrades to an empty payment.
func DecodeTilda(raw map[string]any) TildaSubmission {
	lower := make(map[string]any, len(raw))
	for k, v := range raw {
		lower[strings.ToLower(strings.TrimSpace(k))] = v
	}
	get := func(field string) any {
		for _, k := range tildaKeys[field] {
			if v, ok := lower[k]; ok {
				return v
			}
		}
		return nil
	}
	str := func(field string) string {
		return strings.TrimSpace(toString(get(field)))
	}

	sub := TildaSubmission{
		Test:      strings.EqualFold(str("test"), "test"),
		Name:      str("name"),
		Surname:   str("surname"),
		Phone:     str("phone"),
		Email:     str("email"),
		BirthDate: str("date"),
		City:      str("city"),
		Church:    str("church"),
		FirstTime: parseFirstTime(str("first")),
	}

	pay := decodePayment(get("payment"))
	sub.PaymentAmount = toInt64(pay["amount"])
	sub.PromoCode = strings.TrimSpace(toString(pay["promocode"]))
	sub.PromoDiscount = toInt64(pay["discount"])
	return sub
}

// UserName is "Name Surname" with missing parts dropped.
func (s TildaSubmission) UserName() string {
	return strings.Join(strings.Fields(s.Name+" "+s.Surname), " ")
}

func (s TildaSubmission) fields() model.ParticipantFields {
	return model.ParticipantFields{
		UserName:      s.UserName(),
		UserPhone:     s.Phone,
		Email:         s.Email,
		City:          s.City,
		Church:        s.Church,
		BirthDate:     s.BirthDate,
		FirstTime:     s.FirstTime,
		PaymentAmount: s.PaymentAmount,
		PromoCode:     s.PromoCode,
		PromoDiscount: s.PromoDiscount,
	}
}

func parseFirstTime(v string) bool {
	switch strings.ToLower(v) {
	case "нет", "no", "false", "0":
		return false
	}
	return true
}

// decodePayment accepts an object or a JSON string, possibly HTML-escaped
// (&quot;...&quot;).
func decodePayment(v any) map[string]any {
	switch p := v.(type) {
	case map[string]any:
		return p
	case string:
		var out map[string]any
		if err := json.Unmarshal([]byte(html.UnescapeString(p)), &out); err != nil {
			return map[string]any{}
		}
		return out
	}
	return map[string]any{}
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

// toInt64 reads an amount given as a number or numeric string. Anything
// else, including negative values, is 0.
func toInt64(v any) int64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		f, _ = t.Float64()
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 || f > math.MaxInt64/2 {
		return 0
	}
	return int64(f)
}

// IntakeService turns form submissions into participants.
type IntakeService struct {
	repo       repository.ParticipantRepository
	logger     *slog.Logger
	staleAfter time.Duration
	now        func() time.Time
}

func NewIntakeService(repo repository.ParticipantRepository, staleAfter time.Duration, logger *slog.Logger) *IntakeService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &IntakeService{
		repo:       repo,
		logger:     logger,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Submit stores a submission. People often fill the form again when they
// did not get to pay the first time; an unpaid, stale registration with the
// same name and phone is then refreshed in place (keeping its id and number)
// instead of adding a duplicate. The bool reports whether a new record was
// created.
func (s *IntakeService) Submit(ctx context.Context, sub TildaSubmission) (*model.Participant, bool, error) {
	f := sub.fields()
	if f.UserName == "" {
		return nil, false, apperror.ValidationFailed("Name", "name is required")
	}

	existing, err := s.repo.List(ctx, repository.ListOptions{
		UserName:  f.UserName,
		UserPhone: f.UserPhone,
	})
	if err != nil {
		return nil, false, fmt.Errorf("looking up previous registrations: %w", err)
	}

	now := s.now().UTC()
	if p := s.reusable(existing, now); p != nil {
		f.Apply(p)
		p.Paid = false
		p.PaymentDate = ""
		p.EnterDate = ""
		p.CreatedAt = &now

		if err := s.repo.Update(ctx, p); err != nil {
			return nil, false, fmt.Errorf("refreshing registration: %w", err)
		}
		s.logger.Info("intake refreshed stale registration",
			slog.String("user_id", p.UserID),
			slog.Int64("number", p.ParticipantNumber),
		)
		return p, false, nil
	}

	p := &model.Participant{}
	f.Apply(p)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, false, fmt.Errorf("creating registration: %w", err)
	}
	s.logger.Info("intake created participant",
		slog.String("user_id", p.UserID),
		slog.Int64("number", p.ParticipantNumber),
	)
	return p, true, nil
}

// reusable picks the lowest-numbered candidate that was never paid for and
// is older than staleAfter. Rows without a creation time predate its
// tracking and count as old.
func (s *IntakeService) reusable(candidates []model.Participant, now time.Time) *model.Participant {
	var best *model.Participant
	for i := range candidates {
		c := &candidates[i]
		if c.Paid || c.PaymentDate != "" {
			continue
		}
		if c.CreatedAt != nil && now.Sub(*c.CreatedAt) <= s.staleAfter {
			continue
		}
		if best == nil || c.ParticipantNumber < best.ParticipantNumber {
			best = c
		}
	}
	return best
}
