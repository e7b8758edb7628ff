package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/xid"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/dates"
	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/repository"
)

// compile-time check that *DB implements repository.ParticipantRepository
var _ repository.ParticipantRepository = (*DB)(nil)

// selectParticipants reads every column the model knows about.
// Rows written by older releases may hold NULLs in columns that are NOT NULL
// today, so the optional ones are coalesced.
const selectParticipants = `
	SELECT id, user_id,
	       COALESCE(user_name, '')         AS user_name,
	       COALESCE(user_phone, '')        AS user_phone,
	       COALESCE(email, '')             AS email,
	       COALESCE(city, '')              AS city,
	       COALESCE(church, '')            AS church,
	       COALESCE(birth_date, '')        AS birth_date,
	       first_time, paid,
	       COALESCE(payment_amount, 0)     AS payment_amount,
	       COALESCE(promo_code, '')        AS promo_code,
	       COALESCE(promo_discount, 0)     AS promo_discount,
	       COALESCE(payment_date, '')      AS payment_date,
	       COALESCE(letter_date, '')       AS letter_date,
	       COALESCE(enter_date, '')        AS enter_date,
	       COALESCE(bill_file, '')         AS bill_file,
	       COALESCE(participant_number, 0) AS participant_number,
	       created_at, updated_at
	FROM participants`

const insertParticipant = `
	INSERT INTO participants (
		user_id, user_name, user_phone, email, city, church, birth_date,
		first_time, paid, payment_amount, promo_code, promo_discount,
		payment_date, letter_date, enter_date, bill_file,
		participant_number, created_at, updated_at
	) VALUES (
		:user_id, :user_name, :user_phone, :email, :city, :church, :birth_date,
		:first_time, :paid, :payment_amount, :promo_code, :promo_discount,
		:payment_date, :letter_date, :enter_date, :bill_file,
		:participant_number, :created_at, :updated_at
	)`

const updateParticipant = `
	UPDATE participants SET
		user_name = :user_name,
		user_phone = :user_phone,
		email = :email,
		city = :city,
		church = :church,
		birth_date = :birth_date,
		first_time = :first_time,
		paid = :paid,
		payment_amount = :payment_amount,
		promo_code = :promo_code,
		promo_discount = :promo_discount,
		payment_date = :payment_date,
		letter_date = :letter_date,
		enter_date = :enter_date,
		bill_file = :bill_file,
		created_at = :created_at,
		updated_at = :updated_at
	WHERE user_id = :user_id`

// Create inserts a new participant.
//
// The user ID is an xid (20 chars, URL-safe). It ends up inside QR codes, so
// it must never be the sequential row id. The participant number comes from
// the sequences table inside the same transaction as the INSERT.
func (db *DB) Create(ctx context.Context, p *model.Participant) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: beginning create transaction: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	number, err := db.nextParticipantNumber(ctx, tx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.UserID = xid.New().String()
	p.ParticipantNumber = number
	p.CreatedAt = &now
	p.UpdatedAt = now
	p.BirthDate = dates.NormalizeLenient(p.BirthDate)

	if _, err := tx.NamedExecContext(ctx, insertParticipant, p); err != nil {
		return fmt.Errorf("sqldb: inserting participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: committing participant: %w", err)
	}
	return nil
}

// nextParticipantNumber returns max(last issued, max existing) + 1 and
// records it as issued, so numbers are never handed out twice even after the
// highest-numbered participant is deleted.
func (db *DB) nextParticipantNumber(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, tx.Rebind(db.dialect.nextNumber), seqParticipantNumber); err != nil {
		return 0, fmt.Errorf("sqldb: bumping participant number: %w", err)
	}

	var number int64
	err := tx.GetContext(ctx, &number,
		tx.Rebind(`SELECT value FROM sequences WHERE name = ?`),
		seqParticipantNumber,
	)
	if err != nil {
		return 0, fmt.Errorf("sqldb: reading participant number: %w", err)
	}
	return number, nil
}

// GetByUserID retrieves a participant by its public user ID.
// Returns apperror.ErrNotFound if no participant has that ID.
func (db *DB) GetByUserID(ctx context.Context, userID string) (*model.Participant, error) {
	var p model.Participant

	err := db.conn.GetContext(ctx, &p,
		db.conn.Rebind(selectParticipants+` WHERE user_id = ?`),
		userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("participant", userID)
		}
		return nil, fmt.Errorf("sqldb: getting participant %s: %w", userID, err)
	}

	normalizeRead(&p)
	return &p, nil
}

// List returns participants ordered by participant number.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Participant, error) {
	query := selectParticipants
	var args []any

	// A pair filter: one empty side still constrains that column to "".
	if opts.UserName != "" || opts.UserPhone != "" {
		query += ` WHERE user_name = ? AND user_phone = ?`
		args = append(args, opts.UserName, opts.UserPhone)
	}
	query += ` ORDER BY participant_number, id`

	participants := []model.Participant{}
	if err := db.conn.SelectContext(ctx, &participants, db.conn.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("sqldb: listing participants: %w", err)
	}

	for i := range participants {
		normalizeRead(&participants[i])
	}
	return participants, nil
}

// Update overwrites the mutable columns of an existing participant.
// UserID and ParticipantNumber are never changed.
func (db *DB) Update(ctx context.Context, p *model.Participant) error {
	p.UpdatedAt = time.Now().UTC()
	p.BirthDate = dates.NormalizeLenient(p.BirthDate)

	result, err := db.conn.NamedExecContext(ctx, updateParticipant, p)
	if err != nil {
		return fmt.Errorf("sqldb: updating participant %s: %w", p.UserID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("participant", p.UserID)
	}

	return nil
}

// Delete removes a participant row. Receipt files are not touched here.
func (db *DB) Delete(ctx context.Context, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`DELETE FROM participants WHERE user_id = ?`),
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqldb: deleting participant %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqldb: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("participant", userID)
	}

	return nil
}

// normalizeRead converts legacy DD-MM-YYYY birth dates to the stored ISO form.
func normalizeRead(p *model.Participant) {
	p.BirthDate = dates.NormalizeLenient(p.BirthDate)
	if p.CreatedAt != nil {
		t := p.CreatedAt.UTC()
		p.CreatedAt = &t
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
}
