// Package activity builds per-user activity reports across letters.
// This is part of the Functional Core - no I/O, only pure functions.
package activity

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/letter"
)

// ErrInvalidPeriod is returned for a period that cannot be reported on.
var ErrInvalidPeriod = errors.New("invalid period")

// Kind identifies the user's action.
type Kind string

const (
	KindReceived Kind = "received"
	KindRead     Kind = "read"
	KindExecuted Kind = "executed"
	KindDisposed Kind = "disposed"
)

// Period selects a calendar year, or a month of it when Month is non-zero.
type Period struct {
	Year  int
	Month time.Month
}

// Validate checks the period bounds.
func (p Period) Validate() error {
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, p.Year)
	}
	if p.Month < 0 || p.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, int(p.Month))
	}
	return nil
}

// Contains reports whether t falls in the period (UTC calendar).
func (p Period) Contains(t time.Time) bool {
	u := t.UTC()
	if u.Year() != p.Year {
		return false
	}
	return p.Month == 0 || u.Month() == p.Month
}

func (p Period) String() string {
	if p.Month == 0 {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Event is one action of the user on a letter.
type Event struct {
	Kind          Kind
	At            time.Time
	LetterID      string
	LetterNumber  string
	Subject       string
	DispositionID string // set for disposed events
}

// Report collects the actions of userID across letters within the period,
// ordered by time. Events sharing a timestamp keep letter order.
func Report(userID string, letters []*letter.Letter, p Period) ([]Event, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var events []Event
	add := func(l *letter.Letter, kind Kind, at time.Time, dispositionID string) {
		if !p.Contains(at) {
			return
		}
		events = append(events, Event{
			Kind:          kind,
			At:            at,
			LetterID:      l.ID,
			LetterNumber:  l.Number,
			Subject:       l.Subject,
			DispositionID: dispositionID,
		})
	}

	for i, l := range letters {
		if l == nil {
			return nil, fmt.Errorf("letter %d: %w", i, letter.ErrMissingSnapshot)
		}
		if ps, ok := l.Participant(userID); ok {
			add(l, KindReceived, ps.CreatedAt, "")
			if ps.ReadAt != nil {
				add(l, KindRead, *ps.ReadAt, "")
			}
			if ps.ExecutedAt != nil {
				add(l, KindExecuted, *ps.ExecutedAt, "")
			}
		}
		for _, n := range l.Tree.FindByCreator(userID) {
			add(l, KindDisposed, n.CreatedAt, n.ID)
		}
	}

	slices.SortStableFunc(events, func(a, b Event) int {
		return a.At.Compare(b.At)
	})
	return events, nil
}

// Count returns the number of events per kind.
func Count(events []Event) map[Kind]int {
	counts := make(map[Kind]int, 4)
	for _, e := range events {
		counts[e.Kind]++
	}
	return counts
}

// Levels returns the disposition level of each disposed event, keyed by disposition id.
func Levels(letters []*letter.Letter, events []Event) map[string]disposition.Level {
	byLetter := make(map[string]*letter.Letter, len(letters))
	for _, l := range letters {
		if l != nil {
			byLetter[l.ID] = l
		}
	}
	levels := make(map[string]disposition.Level)
	for _, e := range events {
		if e.Kind != KindDisposed {
			continue
		}
		l, ok := byLetter[e.LetterID]
		if !ok {
			continue
		}
		if n, ok := l.Tree.Node(e.DispositionID); ok {
			levels[e.DispositionID] = n.Level()
		}
	}
	return levels
}
