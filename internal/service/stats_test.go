package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/event-registration/internal/dates"
	"github.com/sakif/event-registration/internal/model"
)

func bracket(st Statistics, name string) int {
	for _, c := range st.AgeBrackets {
		if c.Name == name {
			return c.Count
		}
	}
	return -1
}

func TestComputeStatistics(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	participants := []model.Participant{
		{City: "Irkutsk", Church: "Grace", BirthDate: "2010-01-01", Paid: true, PaymentAmount: 1500, FirstTime: true},
		{City: "Irkutsk", Church: "Hope", BirthDate: "1989-07-02", Paid: true, PaymentAmount: 2000, EnterDate: "2025-07-01T10:00:00Z"},
		{City: "Angarsk", Church: "Grace", BirthDate: "1960-05-05", PaymentAmount: 999},
		{City: "Irkutsk", BirthDate: "not a date"},
		{Church: "Grace"},
	}

	st := ComputeStatistics(participants, now)

	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 2, st.Paid)
	assert.Equal(t, int64(3500), st.PaidAmount, "unpaid amounts are not counted")
	assert.Equal(t, 1, st.Admitted)
	assert.Equal(t, 1, st.FirstTime)
	assert.Equal(t, 2, st.UniqueCities)
	assert.Equal(t, 2, st.UniqueChurches)

	assert.Equal(t, []Count{{"Irkutsk", 3}, {"Angarsk", 1}}, st.ByCity)
	assert.Equal(t, []Count{{"Grace", 3}, {"Hope", 1}}, st.ByChurch)

	require.Len(t, st.AgeBrackets, len(dates.Brackets))
	assert.Equal(t, 1, bracket(st, dates.BracketChild))
	assert.Equal(t, 0, bracket(st, dates.BracketYoung))
	assert.Equal(t, 1, bracket(st, dates.BracketAdult), "35 until the 2nd of July")
	assert.Equal(t, 0, bracket(st, dates.BracketMiddle))
	assert.Equal(t, 1, bracket(st, dates.BracketSenior))
	assert.Equal(t, 2, bracket(st, dates.BracketUnknown))
}

func TestComputeStatistics_BirthdayToday(t *testing.T) {
	now := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)
	st := ComputeStatistics([]model.Participant{{BirthDate: "1989-07-02"}}, now)
	assert.Equal(t, 1, bracket(st, dates.BracketMiddle), "turns 36 today")
}

func TestComputeStatistics_Empty(t *testing.T) {
	st := ComputeStatistics(nil, time.Now())

	assert.Zero(t, st.Total)
	assert.NotNil(t, st.ByCity)
	assert.NotNil(t, st.ByChurch)
	for _, c := range st.AgeBrackets {
		assert.Zero(t, c.Count)
	}
}

func TestStatistics_ReflectsPayment(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	before, err := svc.Statistics(ctx)
	require.NoError(t, err)

	p, err := svc.Create(ctx, validFields())
	require.NoError(t, err)
	amount := int64(1500)
	_, err = svc.SetPayment(ctx, p.UserID, Payment{Paid: true, Amount: &amount})
	require.NoError(t, err)

	after, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Total+1, after.Total)
	assert.Equal(t, before.PaidAmount+1500, after.PaidAmount)
}
