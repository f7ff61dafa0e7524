// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the CLI drives the application.
package primary

import "context"

// LetterService defines the primary port for letter operations.
// All operations act on behalf of the identity resolved from the context.
type LetterService interface {
	// CreateLetter registers an incoming letter.
	CreateLetter(ctx context.Context, req CreateLetterRequest) (*CreateLetterResponse, error)

	// GetLetter returns the derived view of a letter for the acting user.
	GetLetter(ctx context.Context, letterID string) (*LetterView, error)

	// ListLetters returns the letters that reached the acting user.
	ListLetters(ctx context.Context) ([]*LetterSummary, error)

	// MarkRead records that the acting user opened the letter.
	MarkRead(ctx context.Context, letterID string) error

	// MarkExecuted records that the acting user carried out the letter.
	MarkExecuted(ctx context.Context, letterID string) error

	// GetTimeline reconstructs the audit history of a letter.
	GetTimeline(ctx context.Context, req TimelineRequest) ([]*TimelineEntry, error)

	// ActivityReport lists a user's actions across letters in a period.
	ActivityReport(ctx context.Context, req ActivityRequest) (*ActivityReport, error)

	// ImportSnapshot persists a complete letter graph after validating it.
	ImportSnapshot(ctx context.Context, snapshot *Snapshot) (string, error)

	// ExportSnapshot returns the complete letter graph.
	ExportSnapshot(ctx context.Context, letterID string) (*Snapshot, error)
}

// DispositionService defines the primary port for disposition operations.
type DispositionService interface {
	// CheckDisposition reports whether the acting user may dispose the letter.
	CheckDisposition(ctx context.Context, letterID string) (*DispositionCheck, error)

	// CreateDisposition forwards the letter to recipients.
	CreateDisposition(ctx context.Context, req CreateDispositionRequest) (*CreateDispositionResponse, error)

	// ListContentTags returns the catalogue of predefined instructions.
	ListContentTags(ctx context.Context) ([]string, error)
}

// UserService defines the primary port for the user directory.
type UserService interface {
	// CreateUser adds a user to the directory.
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]*User, error)
}

// CreateLetterRequest contains parameters for registering a letter.
type CreateLetterRequest struct {
	Number         string
	Classification string
	Subject        string
	Sender         string
	AddresseeID    string
	FileRef        string
	LetterDate     string // YYYY-MM-DD, empty means today
}

// CreateLetterResponse contains the result of registering a letter.
type CreateLetterResponse struct {
	LetterID string
	Letter   *LetterInfo
}

// CreateDispositionRequest contains parameters for disposing a letter.
type CreateDispositionRequest struct {
	LetterID     string
	RecipientIDs []string
	ContentTags  []string
	Note         string
	SignatureRef string
}

// CreateDispositionResponse contains the result of disposing a letter.
type CreateDispositionResponse struct {
	DispositionID string
	Level         int
	LevelLabel    string
	Recipients    []string
}

// CreateUserRequest contains parameters for adding a user.
type CreateUserRequest struct {
	ID           string // empty generates one
	Name         string
	Role         string
	SupervisorID string
}

// TimelineRequest selects the timeline of a letter.
type TimelineRequest struct {
	LetterID string
	// ParticipantID keeps only entries that reached this user.
	ParticipantID string
	// Events adds read and executed entries.
	Events bool
}

// ActivityRequest selects a user's activity.
type ActivityRequest struct {
	UserID string // empty means the acting user
	Year   int
	Month  int // 0 means the whole year
}

// User represents a directory entry at the port boundary.
type User struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Role         string `json:"role" yaml:"role"`
	SupervisorID string `json:"supervisor_id,omitempty" yaml:"supervisor_id,omitempty"`
}

// LetterInfo represents the letter header at the port boundary.
type LetterInfo struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	Classification string `json:"classification"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	CreatorID      string `json:"creator_id"`
	AddresseeID    string `json:"addressee_id"`
	FileRef        string `json:"file_ref,omitempty"`
	LetterDate     string `json:"letter_date"`
	CreatedAt      string `json:"created_at"`
}

// LetterView is everything the presentation sink needs to render a letter
// for one user.
type LetterView struct {
	Letter       LetterInfo         `json:"letter"`
	ViewerID     string             `json:"viewer_id"`
	Status       string             `json:"status"`
	Decision     *DispositionCheck  `json:"decision"`
	CanRead      bool               `json:"can_read"`
	CanExecute   bool               `json:"can_execute"`
	Progress     Progress           `json:"progress"`
	Dispositions []*DispositionNode `json:"dispositions"`
	Participants []*ParticipantView `json:"participants"`
	Timeline     []*TimelineEntry   `json:"timeline"`
}

// DispositionCheck is a serialized permission decision.
type DispositionCheck struct {
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
	ParentID   string `json:"parent_id,omitempty"`
	Level      int    `json:"level,omitempty"`
	LevelLabel string `json:"level_label,omitempty"`
}

// Allowed reports whether the decision permits disposing.
func (c *DispositionCheck) Allowed() bool {
	return c != nil && c.Outcome == "allowed"
}

// Progress summarizes participant statuses.
type Progress struct {
	Participants     int `json:"participants"`
	Unread           int `json:"unread"`
	Read             int `json:"read"`
	Executed         int `json:"executed"`
	ExecutionPercent int `json:"execution_percent"`
}

// DispositionNode is one nested disposition at the port boundary.
type DispositionNode struct {
	ID           string             `json:"id"`
	Level        int                `json:"level"`
	LevelLabel   string             `json:"level_label"`
	CreatorID    string             `json:"creator_id"`
	CreatorName  string             `json:"creator_name"`
	Note         string             `json:"note,omitempty"`
	ContentTags  []string           `json:"content_tags"`
	SignatureRef string             `json:"signature_ref,omitempty"`
	Recipients   []*RecipientView   `json:"recipients"`
	CreatedAt    string             `json:"created_at"`
	Children     []*DispositionNode `json:"children,omitempty"`
}

// RecipientView is one recipient of a disposition with their status.
type RecipientView struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ParticipantView is one participant record at the port boundary.
type ParticipantView struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	ReadAt     string `json:"read_at,omitempty"`
	ExecutedAt string `json:"executed_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TimelineEntry is one line of the audit history.
type TimelineEntry struct {
	Kind         string   `json:"kind"`
	At           string   `json:"at"`
	LevelLabel   string   `json:"level_label,omitempty"`
	Description  string   `json:"description"`
	ActorID      string   `json:"actor_id"`
	Recipients   []string `json:"recipients"`
	SourceNodeID string   `json:"source_node_id,omitempty"`
}

// LetterSummary is one row of the acting user's letter list.
type LetterSummary struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	Classification string `json:"classification"`
	Subject        string `json:"subject"`
	Sender         string `json:"sender"`
	Status         string `json:"status"`
	Disposed       bool   `json:"disposed"`
	CreatedAt      string `json:"created_at"`
	// Invalid marks a letter whose stored disposition tree failed validation.
	// Status and Disposed are unknown then, and Error holds the violation.
	Invalid bool   `json:"invalid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ActivityReport lists a user's actions in a period.
type ActivityReport struct {
	UserID string           `json:"user_id"`
	Period string           `json:"period"`
	Counts map[string]int   `json:"counts"`
	Events []*ActivityEvent `json:"events"`
	// InvalidLetters counts letters left out of Events and Counts because
	// their disposition tree failed validation.
	InvalidLetters   int      `json:"invalid_letters"`
	InvalidLetterIDs []string `json:"invalid_letter_ids,omitempty"`
}

// ActivityEvent is one action of the user.
type ActivityEvent struct {
	Kind          string `json:"kind"`
	At            string `json:"at"`
	LetterID      string `json:"letter_id"`
	LetterNumber  string `json:"letter_number"`
	Subject       string `json:"subject"`
	DispositionID string `json:"disposition_id,omitempty"`
	LevelLabel    string `json:"level_label,omitempty"`
}

// Snapshot is the flat object graph of one letter exchanged by import and export.
type Snapshot struct {
	Letter       LetterInfo
	Dispositions []SnapshotDisposition
	Participants []SnapshotParticipant
	People       []User
}

// SnapshotDisposition is one flat disposition node.
type SnapshotDisposition struct {
	ID           string
	ParentID     string
	CreatorID    string
	Note         string
	ContentTags  []string
	SignatureRef string
	CreatedAt    string
	Recipients   []SnapshotRecipient
}

// SnapshotRecipient is one recipient log entry.
type SnapshotRecipient struct {
	ID        string
	UserID    string
	CreatedAt string
}

// SnapshotParticipant is one participant status record.
type SnapshotParticipant struct {
	ID         string
	UserID     string
	ReadAt     string
	ExecutedAt string
	CreatedAt  string
}
