package sqldb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/model"
	"github.com/sakif/event-registration/internal/repository"
)

// newTestDB opens a fresh in-memory database; it disappears when the test
// finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(DriverSQLite, ":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestParticipant(t *testing.T, db *DB, name, phone string) *model.Participant {
	t.Helper()
	p := &model.Participant{UserName: name, UserPhone: phone}
	require.NoError(t, db.Create(context.Background(), p), "failed to create test participant")
	return p
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreate_AssignsIDAndFirstNumber(t *testing.T) {
	db := newTestDB(t)

	p := &model.Participant{
		UserName:      "Ivan Petrov",
		UserPhone:     "+79001234567",
		BirthDate:     "08-11-2005",
		FirstTime:     true,
		PaymentAmount: 1500,
	}
	require.NoError(t, db.Create(context.Background(), p))

	assert.NotEmpty(t, p.UserID)
	assert.Equal(t, int64(1), p.ParticipantNumber)
	require.NotNil(t, p.CreatedAt)
	assert.False(t, p.UpdatedAt.IsZero())
	assert.Equal(t, "2005-11-08", p.BirthDate, "birth date is normalised on write")
}

func TestCreate_VerifyPersistence(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	original := &model.Participant{
		UserName:      "Anna",
		UserPhone:     "+79990000000",
		Email:         "anna@example.com",
		City:          "Irkutsk",
		Church:        "Grace",
		BirthDate:     "2001-02-03",
		FirstTime:     true,
		Paid:          true,
		PaymentAmount: 2000,
		PromoCode:     "MHL50",
		PromoDiscount: 500,
		PaymentDate:   "2025-06-01",
		LetterDate:    "2025-06-02",
	}
	require.NoError(t, db.Create(ctx, original))

	found, err := db.GetByUserID(ctx, original.UserID)
	require.NoError(t, err)

	assert.Equal(t, original.UserName, found.UserName)
	assert.Equal(t, original.UserPhone, found.UserPhone)
	assert.Equal(t, original.Email, found.Email)
	assert.Equal(t, original.City, found.City)
	assert.Equal(t, original.Church, found.Church)
	assert.Equal(t, original.BirthDate, found.BirthDate)
	assert.True(t, found.FirstTime)
	assert.True(t, found.Paid)
	assert.Equal(t, int64(2000), found.PaymentAmount)
	assert.Equal(t, "MHL50", found.PromoCode)
	assert.Equal(t, int64(500), found.PromoDiscount)
	assert.Equal(t, "2025-06-01", found.PaymentDate)
	assert.Equal(t, "2025-06-02", found.LetterDate)
	assert.Empty(t, found.EnterDate)
	assert.Empty(t, found.BillFile)
	require.NotNil(t, found.CreatedAt)
	assert.WithinDuration(t, *original.CreatedAt, *found.CreatedAt, time.Second)
}

func TestCreate_UniqueIDsAndSequentialNumbers(t *testing.T) {
	db := newTestDB(t)

	seen := map[string]bool{}
	for i := 1; i <= 5; i++ {
		p := createTestParticipant(t, db, "p", "1")
		assert.False(t, seen[p.UserID], "duplicate user_id %s", p.UserID)
		seen[p.UserID] = true
		assert.Equal(t, int64(i), p.ParticipantNumber)
	}
}

func TestCreate_NumbersNotReusedAfterDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	createTestParticipant(t, db, "one", "1")
	second := createTestParticipant(t, db, "two", "2")
	require.NoError(t, db.Delete(ctx, second.UserID))

	third := createTestParticipant(t, db, "three", "3")
	assert.Equal(t, int64(3), third.ParticipantNumber, "number 2 must not be handed out again")
}

func TestCreate_NumberFollowsImportedRows(t *testing.T) {
	db := newTestDB(t)

	// Rows imported by hand (or by an older release) carry their own numbers.
	_, err := db.conn.Exec(`INSERT INTO participants (user_id, user_name, participant_number) VALUES ('legacy', 'Old', 41)`)
	require.NoError(t, err)

	p := createTestParticipant(t, db, "new", "1")
	assert.Equal(t, int64(42), p.ParticipantNumber)
}

// =========================================================================
// GET / LIST
// =========================================================================

func TestGetByUserID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByUserID(context.Background(), "nonexistent-id")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

func TestGetByUserID_LegacyRow(t *testing.T) {
	db := newTestDB(t)

	_, err := db.conn.Exec(`
		INSERT INTO participants (user_id, user_name, user_phone, birth_date, participant_number, created_at)
		VALUES ('legacy-1', 'Old Timer', '+7000', '08-11-1990', 7, NULL)`)
	require.NoError(t, err)

	p, err := db.GetByUserID(context.Background(), "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, "1990-11-08", p.BirthDate, "legacy birth dates are read back as ISO")
	assert.Nil(t, p.CreatedAt)
	assert.Equal(t, int64(7), p.ParticipantNumber)
}

func TestList_Empty(t *testing.T) {
	db := newTestDB(t)

	participants, err := db.List(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, participants)
	assert.Len(t, participants, 0)
}

func TestList_ReturnsAll(t *testing.T) {
	db := newTestDB(t)
	createTestParticipant(t, db, "a", "1")
	createTestParticipant(t, db, "b", "2")
	createTestParticipant(t, db, "c", "3")

	participants, err := db.List(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, participants, 3)
	assert.Equal(t, "a", participants[0].UserName)
	assert.Equal(t, "c", participants[2].UserName)
}

func TestList_FilterByNameAndPhone(t *testing.T) {
	db := newTestDB(t)
	match := createTestParticipant(t, db, "Ivan Petrov", "+7900")
	createTestParticipant(t, db, "Ivan Petrov", "+7911")
	createTestParticipant(t, db, "Petr Ivanov", "+7900")

	participants, err := db.List(context.Background(), repository.ListOptions{
		UserName:  "Ivan Petrov",
		UserPhone: "+7900",
	})
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, match.UserID, participants[0].UserID)
}

func TestList_FilterWithOneSideEmpty(t *testing.T) {
	db := newTestDB(t)
	noPhone := createTestParticipant(t, db, "Anna", "")
	createTestParticipant(t, db, "Anna", "+7900")

	participants, err := db.List(context.Background(), repository.ListOptions{UserName: "Anna"})
	require.NoError(t, err)
	require.Len(t, participants, 1, "an empty phone only matches an empty column")
	assert.Equal(t, noPhone.UserID, participants[0].UserID)
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestParticipant(t, db, "before", "1")

	p.UserName = "after"
	p.Paid = true
	p.PaymentAmount = 1500
	p.EnterDate = "2025-07-01T10:00:00Z"
	p.BillFile = "bill_x_1.pdf"
	require.NoError(t, db.Update(ctx, p))

	found, err := db.GetByUserID(ctx, p.UserID)
	require.NoError(t, err)
	assert.Equal(t, "after", found.UserName)
	assert.True(t, found.Paid)
	assert.Equal(t, int64(1500), found.PaymentAmount)
	assert.Equal(t, "2025-07-01T10:00:00Z", found.EnterDate)
	assert.Equal(t, "bill_x_1.pdf", found.BillFile)
	assert.Equal(t, p.ParticipantNumber, found.ParticipantNumber, "number is immutable")
}

func TestUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Update(context.Background(), &model.Participant{UserID: "ghost"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

// =========================================================================
// DELETE
// =========================================================================

func TestDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := createTestParticipant(t, db, "doomed", "1")

	require.NoError(t, db.Delete(ctx, p.UserID))

	_, err := db.GetByUserID(ctx, p.UserID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Delete(context.Background(), "ghost")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "error = %v, want ErrNotFound", err)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New("oracle", "whatever")
	assert.Error(t, err)
}
