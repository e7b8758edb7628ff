// Package model defines the core data structures of the registration desk.
package model

import "time"

// Participant is one registrant of the event.
//
// The JSON names follow the admin client's wire format (snake_case, plus the
// historical "billFile"). The db tags are the column names used by
// repository/sqldb.
//
// Empty strings stand for "unset" on the optional text columns:
//   - EnterDate ""   → not admitted yet
//   - BillFile ""    → no receipt uploaded
//   - BirthDate ""   → unknown age
type Participant struct {
	ID     int64  `json:"-"       db:"id"`      // internal row id, never exposed
	UserID string `json:"user_id" db:"user_id"` // public/QR-facing key, immutable

	UserName  string `json:"user_name"  db:"user_name"`
	UserPhone string `json:"user_phone" db:"user_phone"`
	Email     string `json:"email"      db:"email"`
	City      string `json:"city"       db:"city"`
	Church    string `json:"church"     db:"church"`
	BirthDate string `json:"birth_date" db:"birth_date"` // YYYY-MM-DD
	FirstTime bool   `json:"first_time" db:"first_time"`

	Paid          bool   `json:"paid"           db:"paid"`
	PaymentAmount int64  `json:"payment_amount" db:"payment_amount"`
	PromoCode     string `json:"promo_code"     db:"promo_code"`
	PromoDiscount int64  `json:"promo_discount" db:"promo_discount"`
	PaymentDate   string `json:"payment_date"   db:"payment_date"`
	LetterDate    string `json:"letter_date"    db:"letter_date"`

	EnterDate string `json:"enter_date" db:"enter_date"` // RFC 3339, UTC
	BillFile  string `json:"billFile"   db:"bill_file"`

	ParticipantNumber int64      `json:"participant_number" db:"participant_number"`
	CreatedAt         *time.Time `json:"created_at"         db:"created_at"` // nil on legacy rows
	UpdatedAt         time.Time  `json:"updated_at"         db:"updated_at"`
}

// ParticipantFields is the editable part of a participant: what an organizer
// can change through the edit form and what the intake adapter fills in.
type ParticipantFields struct {
	UserName      string
	UserPhone     string
	Email         string
	City          string
	Church        string
	BirthDate     string
	FirstTime     bool
	Paid          bool
	PaymentAmount int64
	PromoCode     string
	PromoDiscount int64
	PaymentDate   string
	LetterDate    string
}

// Apply overwrites the editable fields of p with f.
func (f ParticipantFields) Apply(p *Participant) {
	p.UserName = f.UserName
	p.UserPhone = f.UserPhone
	p.Email = f.Email
	p.City = f.City
	p.Church = f.Church
	p.BirthDate = f.BirthDate
	p.FirstTime = f.FirstTime
	p.Paid = f.Paid
	p.PaymentAmount = f.PaymentAmount
	p.PromoCode = f.PromoCode
	p.PromoDiscount = f.PromoDiscount
	p.PaymentDate = f.PaymentDate
	p.LetterDate = f.LetterDate
}

// Admitted reports whether the participant has been checked in at the door.
func (p *Participant) Admitted() bool {
	return p.EnterDate != ""
}
