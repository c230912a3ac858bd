package model_test

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"carrental/internal/domains/reservation/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dateRange(start, end string) model.DateRange {
	s, _ := model.ParseDate(start)
	e, _ := model.ParseDate(end)

	return model.NewDateRange(s, e)
}

func TestDateRange_Overlaps(t *testing.T) {
	booked := dateRange("2024-06-10", "2024-06-15")

	tests := []struct {
		name      string
		candidate model.DateRange
		expected  bool
	}{
		{name: "overlaps the tail", candidate: dateRange("2024-06-14", "2024-06-18"), expected: true},
		{name: "starts the day after return", candidate: dateRange("2024-06-16", "2024-06-20"), expected: false},
		{name: "pickup on return day", candidate: dateRange("2024-06-15", "2024-06-17"), expected: true},
		{name: "return on pickup day", candidate: dateRange("2024-06-08", "2024-06-10"), expected: true},
		{name: "ends the day before pickup", candidate: dateRange("2024-06-01", "2024-06-09"), expected: false},
		{name: "contained", candidate: dateRange("2024-06-11", "2024-06-12"), expected: true},
		{name: "containing", candidate: dateRange("2024-06-01", "2024-06-30"), expected: true},
		{name: "identical", candidate: booked, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, booked.Overlaps(tt.candidate))
			assert.Equal(t, tt.expected, tt.candidate.Overlaps(booked))
		})
	}
}

func TestDateRange_OverlapsMatchesDayByDayCheck(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 42))
	origin := model.NewDate(2024, time.January, 1)

	randomRange := func() model.DateRange {
		start := origin.AddDays(rng.IntN(60))

		return model.NewDateRange(start, start.AddDays(rng.IntN(10)))
	}

	sharesADay := func(a, b model.DateRange) bool {
		for d := a.Start; !d.After(a.End); d = d.AddDays(1) {
			if b.Contains(d) {
				return true
			}
		}

		return false
	}

	for range 2000 {
		a, b := randomRange(), randomRange()

		require.Equal(t, sharesADay(a, b), a.Overlaps(b), "a=%s b=%s", a, b)
		require.Equal(t, a.Overlaps(b), b.Overlaps(a), "overlap must be symmetric a=%s b=%s", a, b)
	}
}

func TestDateRange_Days(t *testing.T) {
	assert.Equal(t, 6, dateRange("2024-06-10", "2024-06-15").Days())
	assert.Equal(t, 1, dateRange("2024-06-10", "2024-06-10").Days())
	assert.Equal(t, 3, dateRange("2024-02-28", "2024-03-01").Days())
	assert.Equal(t, 0, dateRange("2024-06-15", "2024-06-10").Days())
}

func TestDateRange_Valid(t *testing.T) {
	assert.True(t, dateRange("2024-06-10", "2024-06-10").Valid())
	assert.False(t, dateRange("2024-06-11", "2024-06-10").Valid())
}

func TestDateOf(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	instant := time.Date(2024, time.June, 10, 23, 30, 0, 0, jakarta)

	assert.Equal(t, "2024-06-10", model.DateOf(instant).String())
	assert.Equal(t, time.UTC, model.DateOf(instant).Location())
}

func TestDate_ScanValueJSON(t *testing.T) {
	var d model.Date

	require.NoError(t, d.Scan(time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-06-10", d.String())

	require.NoError(t, d.Scan([]byte("2024-06-11")))
	assert.Equal(t, "2024-06-11", d.String())

	require.NoError(t, d.Scan("2024-06-12T00:00:00Z"))
	assert.Equal(t, "2024-06-12", d.String())

	assert.Error(t, d.Scan(42))

	value, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", value)

	raw, err := json.Marshal(model.NewDateRange(d, d.AddDays(2)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-06-12","end":"2024-06-14"}`, string(raw))

	var decoded model.DateRange
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.True(t, decoded.Start.Equal(d))

	_, err = model.ParseDate("10/06/2024")
	assert.Error(t, err)
}

func TestConflicting(t *testing.T) {
	reservations := []model.Reservation{
		{ID: "confirmed", PickupDate: model.NewDate(2024, time.June, 10), ReturnDate: model.NewDate(2024, time.June, 15), Status: model.StatusConfirmed},
		{ID: "cancelled", PickupDate: model.NewDate(2024, time.June, 14), ReturnDate: model.NewDate(2024, time.June, 16), Status: model.StatusCancelled},
		{ID: "completed", PickupDate: model.NewDate(2024, time.June, 1), ReturnDate: model.NewDate(2024, time.June, 20), Status: model.StatusCompleted},
		{ID: "pending", PickupDate: model.NewDate(2024, time.June, 18), ReturnDate: model.NewDate(2024, time.June, 19), Status: model.StatusPending},
	}

	conflicts := model.Conflicting(reservations, dateRange("2024-06-14", "2024-06-18"), "")
	require.Len(t, conflicts, 2)
	assert.Equal(t, "confirmed", conflicts[0].ID)
	assert.Equal(t, "pending", conflicts[1].ID)

	conflicts = model.Conflicting(reservations, dateRange("2024-06-14", "2024-06-18"), "confirmed")
	require.Len(t, conflicts, 1)
	assert.Equal(t, "pending", conflicts[0].ID)

	assert.Empty(t, model.Conflicting(reservations, dateRange("2024-06-16", "2024-06-17"), ""))
}

func TestActor(t *testing.T) {
	reservation := model.Reservation{CustomerID: "user-1"}

	assert.True(t, model.Actor{ID: "user-1", Role: "user"}.Owns(reservation))
	assert.False(t, model.Actor{ID: "user-2", Role: "user"}.Owns(reservation))
	assert.False(t, model.Actor{Role: "user"}.Owns(model.Reservation{}))
	assert.True(t, model.Actor{ID: "ops", Role: "admin"}.IsAdmin())
	assert.True(t, model.SystemActor().IsAdmin())
	assert.False(t, model.Actor{ID: "user-1", Role: "user"}.IsAdmin())
}
