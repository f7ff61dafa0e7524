// Package letter contains the routed document snapshot consumed by the engines.
// This is part of the Functional Core - no I/O, only pure functions.
package letter

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/dispo/internal/core/disposition"
	"github.com/example/dispo/internal/core/identity"
)

// ErrMissingSnapshot means the letter has not been loaded yet. It is a
// transient state: callers re-fetch instead of deriving anything.
var ErrMissingSnapshot = errors.New("letter snapshot not loaded")

// Classification is the handling class of a letter.
type Classification string

const (
	ClassificationOrdinary     Classification = "ordinary"
	ClassificationUrgent       Classification = "urgent"
	ClassificationConfidential Classification = "confidential"
)

var legacyClassifications = map[string]Classification{
	"biasa":   ClassificationOrdinary,
	"segera":  ClassificationUrgent,
	"rahasia": ClassificationConfidential,
}

// ParseClassification parses a classification, accepting legacy labels.
func ParseClassification(s string) (Classification, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	switch Classification(normalized) {
	case ClassificationOrdinary, ClassificationUrgent, ClassificationConfidential:
		return Classification(normalized), nil
	}
	if c, ok := legacyClassifications[normalized]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown classification %q (expected ordinary, urgent or confidential)", s)
}

// ParticipantStatus is the per (user, letter) read/execution state.
type ParticipantStatus struct {
	UserID     string
	ReadAt     *time.Time
	ExecutedAt *time.Time
	CreatedAt  time.Time // when the letter first reached the user
}

// Letter is an immutable snapshot of a routed letter.
type Letter struct {
	ID             string
	Number         string
	Classification Classification
	Subject        string
	Sender         string
	CreatorID      string
	AddresseeID    string
	FileRef        string
	LetterDate     time.Time
	CreatedAt      time.Time

	// Tree is nil or empty until the addressee disposes the letter.
	Tree *disposition.Tree

	Participants map[string]ParticipantStatus
	People       map[string]identity.User
}

// Participant returns the status record for userID, if the letter reached them.
func (l *Letter) Participant(userID string) (ParticipantStatus, bool) {
	if l == nil {
		return ParticipantStatus{}, false
	}
	p, ok := l.Participants[userID]
	return p, ok
}

// ParticipantIDs returns the ids of all participants in sorted order.
func (l *Letter) ParticipantIDs() []string {
	if l == nil {
		return nil
	}
	ids := make([]string, 0, len(l.Participants))
	for id := range l.Participants {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Name resolves a display name from the people directory.
func (l *Letter) Name(userID string) string {
	if l != nil {
		if u, ok := l.People[userID]; ok {
			return u.DisplayName()
		}
	}
	return userID
}

// Disposed reports whether the letter has a root disposition.
func (l *Letter) Disposed() bool {
	return l != nil && !l.Tree.Empty()
}
