// Package secondary defines the secondary ports (driven adapters) for the application.
// These are the interfaces through which the application drives external systems.
package secondary

import (
	"context"
	"errors"
)

// ErrNotFound is returned by repositories for unknown ids.
var ErrNotFound = errors.New("not found")

// LetterRepository defines the secondary port for letter snapshots and the
// writes performed by the effect executor.
type LetterRepository interface {
	// CreateLetter persists a newly registered letter and its addressee's
	// participant record in one transaction.
	CreateLetter(ctx context.Context, letter *LetterRecord, addressee *ParticipantRecord) error

	// GetLetter retrieves a letter row by its ID.
	GetLetter(ctx context.Context, id string) (*LetterRecord, error)

	// ListLetters retrieves letters matching the given filters, newest first.
	ListLetters(ctx context.Context, filters LetterFilters) ([]*LetterRecord, error)

	// GetSnapshot retrieves the full flat object graph of a letter.
	// A nil record with a nil error means the snapshot is not available yet.
	GetSnapshot(ctx context.Context, letterID string) (*LetterSnapshotRecord, error)

	// CreateDisposition persists a disposition node, its recipient log entries
	// and the participant records of newly reached recipients atomically.
	// An arrival for a user that already has a participant record is ignored.
	CreateDisposition(ctx context.Context, disposition *DispositionRecord, arrivals []ParticipantRecord) error

	// MarkRead sets read_at if it is not already set.
	MarkRead(ctx context.Context, letterID, userID, at string) error

	// MarkExecuted sets executed_at if it is not already set.
	MarkExecuted(ctx context.Context, letterID, userID, at string) error

	// ImportSnapshot persists a complete letter graph in one transaction.
	ImportSnapshot(ctx context.Context, snapshot *LetterSnapshotRecord) error
}

// LetterRecord represents a letter as stored in persistence.
type LetterRecord struct {
	ID             string
	Number         string
	Classification string
	Subject        string
	Sender         string
	CreatorID      string
	AddresseeID    string
	FileRef        string // Empty string means null
	LetterDate     string
	CreatedAt      string
}

// LetterFilters contains filter options for querying letters.
type LetterFilters struct {
	// ParticipantID keeps letters the user was reached by or is addressed to.
	ParticipantID string
	Limit         int
}

// DispositionRecord represents a disposition node as stored in persistence.
type DispositionRecord struct {
	ID           string
	LetterID     string
	ParentID     string // Empty string means root
	CreatorID    string
	Note         string
	ContentTags  []string
	SignatureRef string // Empty string means null
	CreatedAt    string
	Recipients   []RecipientRecord
}

// RecipientRecord represents a recipient log entry as stored in persistence.
type RecipientRecord struct {
	ID            string
	DispositionID string
	UserID        string
	CreatedAt     string
}

// ParticipantRecord represents a participant status row as stored in persistence.
type ParticipantRecord struct {
	ID         string
	LetterID   string
	UserID     string
	ReadAt     string // Empty string means null
	ExecutedAt string // Empty string means null
	CreatedAt  string
}

// LetterSnapshotRecord is the flat object graph of one letter as delivered by
// the data gateway.
type LetterSnapshotRecord struct {
	Letter       LetterRecord
	Dispositions []DispositionRecord
	Participants []ParticipantRecord
	People       []UserRecord
}

// UserRepository defines the secondary port for the user directory.
type UserRepository interface {
	// Create persists a new user.
	Create(ctx context.Context, user *UserRecord) error

	// GetByID retrieves a user by its ID.
	GetByID(ctx context.Context, id string) (*UserRecord, error)

	// List retrieves all users ordered by name.
	List(ctx context.Context) ([]*UserRecord, error)
}

// UserRecord represents a directory entry as stored in persistence.
type UserRecord struct {
	ID           string
	Name         string
	Role         string
	SupervisorID string // Empty string means null
	CreatedAt    string
}

// ContentTagRepository defines the secondary port for the content-tag catalogue.
type ContentTagRepository interface {
	// Create persists a new catalogue phrase.
	Create(ctx context.Context, tag *ContentTagRecord) error

	// List retrieves all phrases in display order.
	List(ctx context.Context) ([]*ContentTagRecord, error)
}

// ContentTagRecord represents a predefined disposition instruction.
type ContentTagRecord struct {
	ID        string
	Phrase    string
	SortOrder int
}

// IdentityProvider defines the secondary port for resolving the acting user.
type IdentityProvider interface {
	// CurrentIdentity returns the identity of the acting user.
	CurrentIdentity(ctx context.Context) (*IdentityRecord, error)
}

// IdentityRecord is the acting user as provided by the secondary port.
type IdentityRecord struct {
	UserID       string
	Role         string
	SupervisorID string
}
