// Package effects defines effect types as data structures representing write intents.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

import "time"

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LogEffect represents a logging operation.
type LogEffect struct {
	Level   string
	Message string
	Fields  map[string]any
}

func (e LogEffect) EffectType() string { return "log" }

// CreateLetterEffect registers a new incoming letter.
type CreateLetterEffect struct {
	LetterID       string
	Number         string
	Classification string
	Subject        string
	Sender         string
	CreatorID      string
	AddresseeID    string
	FileRef        string
	LetterDate     time.Time
	// Arrival is the addressee's participant record.
	Arrival Arrival
	At      time.Time
}

func (e CreateLetterEffect) EffectType() string { return "create_letter" }

// RecipientEntry is one recipient log row of a new disposition.
type RecipientEntry struct {
	ID     string
	UserID string
}

// CreateDispositionEffect appends one node to a letter's disposition tree.
// An empty ParentID creates the root.
type CreateDispositionEffect struct {
	DispositionID string
	LetterID      string
	ParentID      string
	Level         int
	CreatorID     string
	Note          string
	ContentTags   []string
	SignatureRef  string
	Recipients    []RecipientEntry
	// Arrivals lists recipients reached for the first time.
	Arrivals []Arrival
	At       time.Time
}

func (e CreateDispositionEffect) EffectType() string { return "create_disposition" }

// Arrival is the first arrival of a letter at a user. It is written in the
// same transaction as the effect carrying it, and ignored when the user
// already has a participant record.
type Arrival struct {
	ParticipantID string
	UserID        string
}

// MarkReadEffect sets read_at on a participant record.
type MarkReadEffect struct {
	LetterID string
	UserID   string
	At       time.Time
}

func (e MarkReadEffect) EffectType() string { return "mark_read" }

// MarkExecutedEffect sets executed_at on a participant record.
type MarkExecutedEffect struct {
	LetterID string
	UserID   string
	At       time.Time
}

func (e MarkExecutedEffect) EffectType() string { return "mark_executed" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
