package student

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolp(b bool) *bool { return &b }

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-2")
	require.NoError(t, err)
	assert.Equal(t, "2025-02", m.String())
	assert.Equal(t, 28, m.Days())

	m, err = ParseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, 29, m.Days())

	for _, bad := range []string{"", "2025", "2025-13", "abcd-01", "2025-01-01"} {
		_, err := ParseMonth(bad)
		assert.Error(t, err, bad)
	}
}

func TestSessionSummaryCountsRecordedDays(t *testing.T) {
	s := Student{ID: "s1", Name: "A", Mobile: "9999999999"}
	for _, d := range []string{"2025-01-05", "2025-01-06", "2025-01-20"} {
		require.NoError(t, s.MarkEntry(d, "09:00"))
	}
	require.NoError(t, s.MarkEntry("2025-02-01", "09:00"))

	m, _ := ParseMonth("2025-01")
	sum := SessionSummary(&s, m)
	assert.Equal(t, 3, sum.PresentCount)
	assert.Equal(t, 31-3, sum.AbsentCount)
	assert.Len(t, sum.AttendanceDetails, 3)
}

func TestFlagSummaryCountsExplicitPresence(t *testing.T) {
	s := Student{Attendance: []AttendanceDay{
		{Date: "2025-01-05", Sessions: []Session{{EntryTime: "09:00"}}},
		{Date: "2025-01-06", Present: boolp(true)},
		{Date: "2025-01-07", Present: boolp(false)},
		{Date: "2024-01-08", Present: boolp(true)},
	}}
	m, _ := ParseMonth("2025-01")

	flag := FlagSummary(&s, m)
	assert.Equal(t, 1, flag.PresentCount)
	assert.Equal(t, 30, flag.AbsentCount)

	session := SessionSummary(&s, m)
	assert.Equal(t, 3, session.PresentCount, "the two modes are not equivalent")
}

func TestUpsertFee(t *testing.T) {
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	var s Student

	rec, err := s.UpsertFee(FeeInput{Month: "2025-03", Status: "Paid", Amount: 500}, now)
	require.NoError(t, err)
	assert.Equal(t, FeePaid, rec.Status)
	require.NotNil(t, rec.PaidOn)
	assert.Equal(t, now, *rec.PaidOn)

	rec, err = s.UpsertFee(FeeInput{Month: "2025-03", Status: "unpaid", Amount: 500}, now)
	require.NoError(t, err)
	assert.Nil(t, rec.PaidOn)
	assert.Len(t, s.Fees, 1, "one record per month")

	_, err = s.UpsertFee(FeeInput{Month: "2025-03", Status: "waived"}, now)
	assert.Error(t, err)
}

func TestSeatMap(t *testing.T) {
	students := []Student{
		{SeatNo: 1, ShiftNo: ShiftList{1, 3}, Status: StatusEnabled},
		{SeatNo: 2, ShiftNo: ShiftList{2}, Status: StatusDisabled},
		{Mobile: "3", ShiftNo: ShiftList{2}, Status: StatusEnabled},
	}
	seats := SeatMap(students, 3, 3)
	require.Len(t, seats, 3)
	assert.Equal(t, []string{SeatFull, SeatEmpty, SeatFull}, seats[0].Shifts)
	assert.Equal(t, []string{SeatEmpty, SeatEmpty, SeatEmpty}, seats[1].Shifts)
	assert.Equal(t, []string{SeatEmpty, SeatFull, SeatEmpty}, seats[2].Shifts, "mobile stands in for seat number")

	b, err := seats[0].MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"seatNo":1,"shift1":"full","shift2":"empty","shift3":"full"}`, string(b))
}
