// Package status derives participant read/execution state.
// This is part of the Functional Core - no I/O, only pure functions.
//
// Status is a flat check on the participant record. It never walks the
// disposition tree: the tree decides who may act, the participant record
// decides what a user has done.
package status

import (
	"github.com/example/dispo/internal/core/letter"
)

// Status is the derived state of a letter for one user.
type Status string

const (
	StatusNoRecord Status = "no_record"
	StatusUnread   Status = "unread"
	StatusRead     Status = "read"
	StatusExecuted Status = "executed"
)

// rank orders statuses for monotonicity checks.
var rank = map[Status]int{
	StatusNoRecord: 0,
	StatusUnread:   1,
	StatusRead:     2,
	StatusExecuted: 3,
}

// Derive returns the status of the letter for userID.
func Derive(l *letter.Letter, userID string) (Status, error) {
	if l == nil {
		return "", letter.ErrMissingSnapshot
	}
	p, ok := l.Participant(userID)
	if !ok {
		return StatusNoRecord, nil
	}
	return FromParticipant(p), nil
}

// FromParticipant derives a status from a participant record.
// Execution wins even when ReadAt is missing or later than ExecutedAt.
func FromParticipant(p letter.ParticipantStatus) Status {
	switch {
	case p.ExecutedAt != nil:
		return StatusExecuted
	case p.ReadAt != nil:
		return StatusRead
	default:
		return StatusUnread
	}
}

// AtLeast reports whether s is as far along as other.
func (s Status) AtLeast(other Status) bool {
	return rank[s] >= rank[other]
}

// Summary counts participant statuses for a letter.
type Summary struct {
	Participants int
	Unread       int
	Read         int
	Executed     int
}

// Summarize counts the statuses of all participants.
func Summarize(l *letter.Letter) (Summary, error) {
	if l == nil {
		return Summary{}, letter.ErrMissingSnapshot
	}
	var s Summary
	for _, p := range l.Participants {
		s.Participants++
		switch FromParticipant(p) {
		case StatusExecuted:
			s.Executed++
		case StatusRead:
			s.Read++
		default:
			s.Unread++
		}
	}
	return s, nil
}

// ExecutionPercent returns the share of participants that executed, 0-100.
func (s Summary) ExecutionPercent() int {
	if s.Participants == 0 {
		return 0
	}
	return s.Executed * 100 / s.Participants
}
