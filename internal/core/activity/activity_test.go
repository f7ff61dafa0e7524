package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/letter"
)

func at(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 9, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func fixture(t *testing.T) []*letter.Letter {
	t.Helper()
	tree, err := disposition.Build("U1", []disposition.Spec{
		{ID: "D1", CreatorID: "U1", Recipients: []disposition.Recipient{{ID: "R1", UserID: "U2"}}, CreatedAt: at(time.March, 2)},
		{ID: "D2", ParentID: "D1", CreatorID: "U2", Recipients: []disposition.Recipient{{ID: "R2", UserID: "U3"}}, CreatedAt: at(time.March, 3)},
	})
	require.NoError(t, err)

	march := &letter.Letter{
		ID: "L1", Number: "001", Subject: "Budget", AddresseeID: "U1", Tree: tree,
		Participants: map[string]letter.ParticipantStatus{
			"U1": {UserID: "U1", CreatedAt: at(time.March, 1), ReadAt: ptr(at(time.March, 2))},
			"U2": {UserID: "U2", CreatedAt: at(time.March, 2), ReadAt: ptr(at(time.March, 3))},
			"U3": {UserID: "U3", CreatedAt: at(time.March, 3), ReadAt: ptr(at(time.April, 1)), ExecutedAt: ptr(at(time.April, 2))},
		},
	}
	april := &letter.Letter{
		ID: "L2", Number: "002", Subject: "Audit", AddresseeID: "U2",
		Participants: map[string]letter.ParticipantStatus{
			"U2": {UserID: "U2", CreatedAt: at(time.April, 5)},
		},
	}
	return []*letter.Letter{march, april}
}

func TestReport_Year(t *testing.T) {
	events, err := Report("U2", fixture(t), Period{Year: 2024})
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, KindReceived, events[0].Kind)
	// Read and disposed share a timestamp and keep collection order.
	assert.Equal(t, KindRead, events[1].Kind)
	assert.Equal(t, KindDisposed, events[2].Kind)
	assert.Equal(t, "D2", events[2].DispositionID)
	assert.Equal(t, "L2", events[3].LetterID)

	counts := Count(events)
	assert.Equal(t, 2, counts[KindReceived])
	assert.Equal(t, 1, counts[KindDisposed])
	assert.Equal(t, 0, counts[KindExecuted])
}

func TestReport_Month(t *testing.T) {
	events, err := Report("U3", fixture(t), Period{Year: 2024, Month: time.April})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, KindRead, events[0].Kind)
	assert.Equal(t, KindExecuted, events[1].Kind)
}

func TestReport_OtherYearIsEmpty(t *testing.T) {
	events, err := Report("U2", fixture(t), Period{Year: 2023})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestReport_InvalidPeriod(t *testing.T) {
	for _, p := range []Period{{Year: 0}, {Year: 2024, Month: 13}, {Year: 2024, Month: -1}} {
		_, err := Report("U1", nil, p)
		assert.ErrorIs(t, err, ErrInvalidPeriod, p.String())
	}
}

func TestReport_MissingSnapshot(t *testing.T) {
	_, err := Report("U1", []*letter.Letter{nil}, Period{Year: 2024})
	assert.ErrorIs(t, err, letter.ErrMissingSnapshot)
}

func TestLevels(t *testing.T) {
	letters := fixture(t)
	events, err := Report("U2", letters, Period{Year: 2024})
	require.NoError(t, err)

	assert.Equal(t, map[string]disposition.Level{"D2": disposition.Level2}, Levels(letters, events))
}

func TestPeriodString(t *testing.T) {
	assert.Equal(t, "2024", Period{Year: 2024}.String())
	assert.Equal(t, "2024-03", Period{Year: 2024, Month: time.March}.String())
}
