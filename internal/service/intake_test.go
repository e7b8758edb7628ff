package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/event-registration/internal/apperror"
	"github.com/sakif/event-registration/internal/model"
)

// =========================================================================
// DECODE TESTS
// =========================================================================

func TestDecodeTilda_FormValues(t *testing.T) {
	sub := DecodeTilda(map[string]any{
		"Name":    "Ivan",
		"Surname": "Petrov",
		"Phone":   "+7 900 123-45-67",
		"Email":   "ivan@example.com",
		"Date":    "08-11-2005",
		"Сity":    "Irkutsk", // Cyrillic С
		"Сhurch":  "Grace",
		"First":   "Нет",
		"payment": `{&quot;amount&quot;:&quot;1500&quot;,&quot;promocode&quot;:&quot;MHL&quot;,&quot;discount&quot;:500}`,
	})

	assert.False(t, sub.Test)
	assert.Equal(t, "Ivan Petrov", sub.UserName())
	assert.Equal(t, "+7 900 123-45-67", sub.Phone)
	assert.Equal(t, "ivan@example.com", sub.Email)
	assert.Equal(t, "08-11-2005", sub.BirthDate)
	assert.Equal(t, "Irkutsk", sub.City)
	assert.Equal(t, "Grace", sub.Church)
	assert.False(t, sub.FirstTime)
	assert.Equal(t, int64(1500), sub.PaymentAmount)
	assert.Equal(t, "MHL", sub.PromoCode)
	assert.Equal(t, int64(500), sub.PromoDiscount)
}

func TestDecodeTilda_JSONBody(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{
		"Name": "Anna", "Phone": "1", "City": "Angarsk", "First": "Да",
		"payment": {"amount": 2000, "promocode": "", "discount": 0}
	}`), &raw))

	sub := DecodeTilda(raw)
	assert.Equal(t, "Anna", sub.UserName())
	assert.Equal(t, "Angarsk", sub.City)
	assert.True(t, sub.FirstTime)
	assert.Equal(t, int64(2000), sub.PaymentAmount)
}

func TestDecodeTilda_BadPaymentDegrades(t *testing.T) {
	for _, payment := range []any{"{not json", 42.0, nil, []any{"x"}} {
		sub := DecodeTilda(map[string]any{"Name": "A", "payment": payment})
		assert.Zero(t, sub.PaymentAmount)
		assert.Empty(t, sub.PromoCode)
		assert.Zero(t, sub.PromoDiscount)
	}
}

func TestDecodeTilda_TestPing(t *testing.T) {
	assert.True(t, DecodeTilda(map[string]any{"test": "test"}).Test)
}

func TestDecodeTilda_FirstTimeDefaultsToTrue(t *testing.T) {
	assert.True(t, DecodeTilda(map[string]any{"Name": "A"}).FirstTime)
	assert.False(t, DecodeTilda(map[string]any{"Name": "A", "First": "no"}).FirstTime)
}

// =========================================================================
// RECONCILIATION TESTS
// =========================================================================

var intakeNow = time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

func newTestIntake(t *testing.T) (*IntakeService, *mockParticipantRepo) {
	t.Helper()
	repo := newMockRepo()
	repo.now = func() time.Time { return intakeNow }
	svc := NewIntakeService(repo, DefaultStaleAfter, testLogger())
	svc.now = func() time.Time { return intakeNow }
	return svc, repo
}

func submission() TildaSubmission {
	return TildaSubmission{
		Name:          "Ivan",
		Surname:       "Petrov",
		Phone:         "+79001234567",
		City:          "Irkutsk",
		FirstTime:     true,
		PaymentAmount: 1500,
	}
}

func ago(d time.Duration) *time.Time {
	t := intakeNow.Add(-d)
	return &t
}

func TestSubmit_CreatesNew(t *testing.T) {
	svc, repo := newTestIntake(t)

	p, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "Ivan Petrov", p.UserName)
	assert.Equal(t, int64(1500), p.PaymentAmount)
	assert.False(t, p.Paid)
	assert.Empty(t, p.EnterDate)
	assert.Len(t, repo.participants, 1)
}

func TestSubmit_ReusesStaleUnpaid(t *testing.T) {
	svc, repo := newTestIntake(t)
	repo.insert(model.Participant{
		UserID: "old", UserName: "Ivan Petrov", UserPhone: "+79001234567",
		City: "Somewhere", ParticipantNumber: 5, CreatedAt: ago(4 * 24 * time.Hour),
	})

	p, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "old", p.UserID, "id is kept")
	assert.Equal(t, int64(5), p.ParticipantNumber, "number is kept")
	assert.Equal(t, "Irkutsk", p.City, "fields are refreshed")
	require.NotNil(t, p.CreatedAt)
	assert.True(t, p.CreatedAt.Equal(intakeNow), "created_at is refreshed")
	assert.Len(t, repo.participants, 1)
}

func TestSubmit_RecentRegistrationIsNotReused(t *testing.T) {
	svc, repo := newTestIntake(t)
	repo.insert(model.Participant{
		UserID: "recent", UserName: "Ivan Petrov", UserPhone: "+79001234567",
		ParticipantNumber: 5, CreatedAt: ago(24 * time.Hour),
	})

	p, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, "recent", p.UserID)
	assert.Equal(t, int64(6), p.ParticipantNumber)
	assert.Len(t, repo.participants, 2)
}

func TestSubmit_PaidOrPaymentDatedIsNotReused(t *testing.T) {
	svc, repo := newTestIntake(t)
	repo.insert(model.Participant{
		UserID: "paid", UserName: "Ivan Petrov", UserPhone: "+79001234567",
		Paid: true, ParticipantNumber: 1, CreatedAt: ago(30 * 24 * time.Hour),
	})
	repo.insert(model.Participant{
		UserID: "dated", UserName: "Ivan Petrov", UserPhone: "+79001234567",
		PaymentDate: "2025-06-01", ParticipantNumber: 2, CreatedAt: ago(30 * 24 * time.Hour),
	})

	_, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, repo.participants, 3)
}

func TestSubmit_LegacyRowWithoutCreatedAtIsStale(t *testing.T) {
	svc, repo := newTestIntake(t)
	repo.insert(model.Participant{
		UserID: "legacy", UserName: "Ivan Petrov", UserPhone: "+79001234567",
		ParticipantNumber: 3,
	})

	p, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "legacy", p.UserID)
}

func TestSubmit_PicksLowestNumber(t *testing.T) {
	svc, repo := newTestIntake(t)
	for _, n := range []int64{9, 4, 7} {
		repo.insert(model.Participant{
			UserName: "Ivan Petrov", UserPhone: "+79001234567",
			ParticipantNumber: n, CreatedAt: ago(5 * 24 * time.Hour),
		})
	}

	p, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(4), p.ParticipantNumber)
}

func TestSubmit_DifferentPhoneIsNewPerson(t *testing.T) {
	svc, repo := newTestIntake(t)
	repo.insert(model.Participant{
		UserName: "Ivan Petrov", UserPhone: "+70000000000",
		ParticipantNumber: 1, CreatedAt: ago(5 * 24 * time.Hour),
	})

	_, created, err := svc.Submit(context.Background(), submission())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSubmit_RequiresName(t *testing.T) {
	svc, _ := newTestIntake(t)

	_, _, err := svc.Submit(context.Background(), TildaSubmission{Phone: "1"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
