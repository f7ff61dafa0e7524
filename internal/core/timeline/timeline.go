// Package timeline reconstructs the chronological audit history of a letter.
// This is part of the Functional Core - no I/O, only pure functions.
package timeline

import (
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/letter"
)

// Kind identifies what happened.
type Kind string

const (
	KindCreated  Kind = "created"
	KindDisposed Kind = "disposed"
	KindRead     Kind = "read"
	KindExecuted Kind = "executed"
)

// Entry is one line of the audit history.
type Entry struct {
	Kind        Kind
	At          time.Time
	LevelLabel  string // empty for non-disposition entries
	Description string
	ActorID     string
	Recipients  []string
	// SourceNodeID is the disposition behind a disposed entry.
	SourceNodeID string
}

// HasRecipient reports whether userID is among the entry's recipients.
func (e Entry) HasRecipient(userID string) bool {
	return slices.Contains(e.Recipients, userID)
}

type options struct {
	participantEvents bool
}

// Option configures Build.
type Option func(*options)

// WithParticipantEvents adds read and executed entries from participant records.
func WithParticipantEvents() Option {
	return func(o *options) { o.participantEvents = true }
}

// Timeline is an ordered, immutable list of entries.
type Timeline struct {
	entries []Entry
}

// Build reconstructs the history of l: the creation entry, then one entry per
// disposition in pre-order, stable-sorted by timestamp. Entries sharing a
// timestamp keep traversal order, so a parent always precedes its children.
func Build(l *letter.Letter, opts ...Option) (Timeline, error) {
	if l == nil {
		return Timeline{}, letter.ErrMissingSnapshot
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	entries := make([]Entry, 0, 1+l.Tree.Len())
	entries = append(entries, Entry{
		Kind:        KindCreated,
		At:          l.CreatedAt,
		Description: fmt.Sprintf("Letter %s received from %s", l.Number, l.Sender),
		ActorID:     l.CreatorID,
		Recipients:  []string{l.AddresseeID},
	})

	l.Tree.Walk(func(n *disposition.Node) bool {
		entries = append(entries, Entry{
			Kind:         KindDisposed,
			At:           n.CreatedAt,
			LevelLabel:   n.Level().Label(),
			Description:  describeDisposition(l, n),
			ActorID:      n.CreatorID,
			Recipients:   n.RecipientIDs(),
			SourceNodeID: n.ID,
		})
		return true
	})

	if o.participantEvents {
		for _, id := range l.ParticipantIDs() {
			p := l.Participants[id]
			if p.ReadAt != nil {
				entries = append(entries, Entry{
					Kind:        KindRead,
					At:          *p.ReadAt,
					Description: fmt.Sprintf("Read by %s", l.Name(id)),
					ActorID:     id,
					Recipients:  []string{id},
				})
			}
			if p.ExecutedAt != nil {
				entries = append(entries, Entry{
					Kind:        KindExecuted,
					At:          *p.ExecutedAt,
					Description: fmt.Sprintf("Executed by %s", l.Name(id)),
					ActorID:     id,
					Recipients:  []string{id},
				})
			}
		}
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return a.At.Compare(b.At)
	})
	return Timeline{entries: entries}, nil
}

func describeDisposition(l *letter.Letter, n *disposition.Node) string {
	count := len(n.Recipients)
	noun := "recipients"
	if count == 1 {
		noun = "recipient"
	}
	return fmt.Sprintf("%s disposed to %d %s", l.Name(n.CreatorID), count, noun)
}

// Len returns the number of entries.
func (t Timeline) Len() int { return len(t.entries) }

// Entries returns a copy of the entries.
func (t Timeline) Entries() []Entry {
	return slices.Clone(t.entries)
}

// All iterates the entries in order. The sequence may be ranged over any
// number of times.
func (t Timeline) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range t.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// ByParticipant keeps the entries whose recipients include userID, in order.
func (t Timeline) ByParticipant(userID string) Timeline {
	var kept []Entry
	for e := range t.All() {
		if e.HasRecipient(userID) {
			kept = append(kept, e)
		}
	}
	return Timeline{entries: kept}
}
