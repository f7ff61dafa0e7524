// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/dispo/internal/ports/secondary"
)

// LetterRepository implements secondary.LetterRepository with SQLite.
type LetterRepository struct {
	db *sql.DB
}

// NewLetterRepository creates a new SQLite letter repository.
func NewLetterRepository(db *sql.DB) *LetterRepository {
	return &LetterRepository{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateLetter persists a newly registered letter and its addressee's participant record.
func (r *LetterRepository) CreateLetter(ctx context.Context, letter *secondary.LetterRecord, addressee *secondary.ParticipantRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLetter(ctx, tx, letter); err != nil {
		return fmt.Errorf("failed to create letter: %w", err)
	}
	if addressee != nil {
		p := *addressee
		p.LetterID = letter.ID
		if err := reachParticipant(ctx, tx, &p); err != nil {
			return fmt.Errorf("failed to record addressee %s: %w", p.UserID, err)
		}
	}
	return tx.Commit()
}

func insertLetter(ctx context.Context, ex execer, letter *secondary.LetterRecord) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO letters (id, number, classification, subject, sender, creator_id, addressee_id, file_ref, letter_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		letter.ID, letter.Number, letter.Classification, letter.Subject, letter.Sender,
		letter.CreatorID, letter.AddresseeID, nullString(letter.FileRef), letter.LetterDate, letter.CreatedAt,
	)
	return err
}

const letterColumns = "id, number, classification, subject, sender, creator_id, addressee_id, file_ref, letter_date, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLetter(row rowScanner) (*secondary.LetterRecord, error) {
	var fileRef sql.NullString
	record := &secondary.LetterRecord{}
	err := row.Scan(&record.ID, &record.Number, &record.Classification, &record.Subject, &record.Sender,
		&record.CreatorID, &record.AddresseeID, &fileRef, &record.LetterDate, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.FileRef = fileRef.String
	return record, nil
}

// GetLetter retrieves a letter row by its ID.
func (r *LetterRepository) GetLetter(ctx context.Context, id string) (*secondary.LetterRecord, error) {
	record, err := scanLetter(r.db.QueryRowContext(ctx,
		"SELECT "+letterColumns+" FROM letters WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("letter %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get letter: %w", err)
	}
	return record, nil
}

// ListLetters retrieves letters matching the given filters, newest first.
func (r *LetterRepository) ListLetters(ctx context.Context, filters secondary.LetterFilters) ([]*secondary.LetterRecord, error) {
	query := "SELECT " + letterColumns + " FROM letters WHERE 1=1"
	var args []any

	if filters.ParticipantID != "" {
		query += " AND (addressee_id = ? OR id IN (SELECT letter_id FROM participants WHERE user_id = ?))"
		args = append(args, filters.ParticipantID, filters.ParticipantID)
	}

	query += " ORDER BY created_at DESC, id ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list letters: %w", err)
	}
	defer rows.Close()

	var letters []*secondary.LetterRecord
	for rows.Next() {
		record, err := scanLetter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan letter: %w", err)
		}
		letters = append(letters, record)
	}
	return letters, rows.Err()
}

// GetSnapshot retrieves the full flat object graph of a letter.
func (r *LetterRepository) GetSnapshot(ctx context.Context, letterID string) (*secondary.LetterSnapshotRecord, error) {
	letter, err := r.GetLetter(ctx, letterID)
	if err != nil {
		return nil, err
	}

	snapshot := &secondary.LetterSnapshotRecord{Letter: *letter}

	if snapshot.Dispositions, err = r.listDispositions(ctx, letterID); err != nil {
		return nil, err
	}
	if snapshot.Participants, err = r.listParticipants(ctx, letterID); err != nil {
		return nil, err
	}
	if snapshot.People, err = r.listPeople(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *LetterRepository) listDispositions(ctx context.Context, letterID string) ([]secondary.DispositionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, parent_id, creator_id, note, signature_ref, created_at
		 FROM dispositions WHERE letter_id = ? ORDER BY rowid ASC`,
		letterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispositions: %w", err)
	}
	defer rows.Close()

	var dispositions []secondary.DispositionRecord
	index := make(map[string]int)
	for rows.Next() {
		var parentID, signatureRef sql.NullString
		d := secondary.DispositionRecord{LetterID: letterID}
		if err := rows.Scan(&d.ID, &parentID, &d.CreatorID, &d.Note, &signatureRef, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan disposition: %w", err)
		}
		d.ParentID = parentID.String
		d.SignatureRef = signatureRef.String
		index[d.ID] = len(dispositions)
		dispositions = append(dispositions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	tagRows, err := r.db.QueryContext(ctx,
		`SELECT t.disposition_id, t.phrase FROM disposition_tags t
		 JOIN dispositions d ON d.id = t.disposition_id
		 WHERE d.letter_id = ? ORDER BY t.disposition_id, t.position`,
		letterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list disposition tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var dispositionID, phrase string
		if err := tagRows.Scan(&dispositionID, &phrase); err != nil {
			return nil, fmt.Errorf("failed to scan disposition tag: %w", err)
		}
		if i, ok := index[dispositionID]; ok {
			dispositions[i].ContentTags = append(dispositions[i].ContentTags, phrase)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}
	tagRows.Close()

	recipientRows, err := r.db.QueryContext(ctx,
		`SELECT rc.id, rc.disposition_id, rc.user_id, rc.created_at FROM disposition_recipients rc
		 JOIN dispositions d ON d.id = rc.disposition_id
		 WHERE d.letter_id = ? ORDER BY rc.rowid`,
		letterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer recipientRows.Close()
	for recipientRows.Next() {
		var rc secondary.RecipientRecord
		if err := recipientRows.Scan(&rc.ID, &rc.DispositionID, &rc.UserID, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		if i, ok := index[rc.DispositionID]; ok {
			dispositions[i].Recipients = append(dispositions[i].Recipients, rc)
		}
	}
	return dispositions, recipientRows.Err()
}

func (r *LetterRepository) listParticipants(ctx context.Context, letterID string) ([]secondary.ParticipantRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, read_at, executed_at, created_at
		 FROM participants WHERE letter_id = ? ORDER BY created_at ASC, user_id ASC`,
		letterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []secondary.ParticipantRecord
	for rows.Next() {
		var readAt, executedAt sql.NullString
		p := secondary.ParticipantRecord{LetterID: letterID}
		if err := rows.Scan(&p.ID, &p.UserID, &readAt, &executedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		p.ReadAt = readAt.String
		p.ExecutedAt = executedAt.String
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// listPeople loads the directory entries of everyone the snapshot mentions.
func (r *LetterRepository) listPeople(ctx context.Context, snapshot *secondary.LetterSnapshotRecord) ([]secondary.UserRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, role, supervisor_id, created_at FROM users WHERE id IN (
			SELECT creator_id FROM letters WHERE id = ?1
			UNION SELECT addressee_id FROM letters WHERE id = ?1
			UNION SELECT user_id FROM participants WHERE letter_id = ?1
			UNION SELECT creator_id FROM dispositions WHERE letter_id = ?1
			UNION SELECT rc.user_id FROM disposition_recipients rc JOIN dispositions d ON d.id = rc.disposition_id WHERE d.letter_id = ?1
		) ORDER BY id`,
		snapshot.Letter.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	var people []secondary.UserRecord
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		people = append(people, *u)
	}
	return people, rows.Err()
}

// CreateDisposition persists a disposition node, its recipient log entries and
// the participant records of newly reached recipients atomically.
func (r *LetterRepository) CreateDisposition(ctx context.Context, disposition *secondary.DispositionRecord, arrivals []secondary.ParticipantRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertDisposition(ctx, tx, disposition); err != nil {
		return fmt.Errorf("failed to create disposition: %w", err)
	}
	for _, p := range arrivals {
		p.LetterID = disposition.LetterID
		if err := reachParticipant(ctx, tx, &p); err != nil {
			return fmt.Errorf("failed to record participant %s: %w", p.UserID, err)
		}
	}
	return tx.Commit()
}

func insertDisposition(ctx context.Context, ex execer, d *secondary.DispositionRecord) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO dispositions (id, letter_id, parent_id, creator_id, note, signature_ref, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		d.ID, d.LetterID, nullString(d.ParentID), d.CreatorID, d.Note, nullString(d.SignatureRef), d.CreatedAt,
	)
	if err != nil {
		return err
	}
	for i, phrase := range d.ContentTags {
		if _, err := ex.ExecContext(ctx,
			"INSERT INTO disposition_tags (disposition_id, position, phrase) VALUES (?, ?, ?)",
			d.ID, i, phrase,
		); err != nil {
			return fmt.Errorf("content tag %q: %w", phrase, err)
		}
	}
	for _, rc := range d.Recipients {
		createdAt := rc.CreatedAt
		if createdAt == "" {
			createdAt = d.CreatedAt
		}
		if _, err := ex.ExecContext(ctx,
			"INSERT INTO disposition_recipients (id, disposition_id, user_id, created_at) VALUES (?, ?, ?, ?)",
			rc.ID, d.ID, rc.UserID, createdAt,
		); err != nil {
			return fmt.Errorf("recipient %s: %w", rc.UserID, err)
		}
	}
	return nil
}

// reachParticipant inserts a participant record unless the user already has one.
func reachParticipant(ctx context.Context, ex execer, p *secondary.ParticipantRecord) error {
	_, err := ex.ExecContext(ctx,
		"INSERT OR IGNORE INTO participants (id, letter_id, user_id, read_at, executed_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.ID, p.LetterID, p.UserID, nullString(p.ReadAt), nullString(p.ExecutedAt), p.CreatedAt,
	)
	return err
}

// MarkRead sets read_at if it is not already set.
func (r *LetterRepository) MarkRead(ctx context.Context, letterID, userID, at string) error {
	return r.stamp(ctx, "read_at", letterID, userID, at)
}

// MarkExecuted sets executed_at if it is not already set.
func (r *LetterRepository) MarkExecuted(ctx context.Context, letterID, userID, at string) error {
	return r.stamp(ctx, "executed_at", letterID, userID, at)
}

// stamp fills a nullable timestamp column once. column is one of two constants.
func (r *LetterRepository) stamp(ctx context.Context, column, letterID, userID, at string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE letter_id = ? AND user_id = ?",
		letterID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("participant %s on letter %s: %w", userID, letterID, secondary.ErrNotFound)
	}

	_, err = r.db.ExecContext(ctx,
		"UPDATE participants SET "+column+" = ? WHERE letter_id = ? AND user_id = ? AND "+column+" IS NULL",
		at, letterID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

// ImportSnapshot persists a complete letter graph in one transaction.
// Directory entries are upserted; the letter must not exist yet.
func (r *LetterRepository) ImportSnapshot(ctx context.Context, snapshot *secondary.LetterSnapshotRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range snapshot.People {
		u := &snapshot.People[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, role, supervisor_id, created_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role, supervisor_id = excluded.supervisor_id`,
			u.ID, u.Name, u.Role, nullString(u.SupervisorID), u.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to import user %s: %w", u.ID, err)
		}
	}

	if err := insertLetter(ctx, tx, &snapshot.Letter); err != nil {
		return fmt.Errorf("failed to import letter %s: %w", snapshot.Letter.ID, err)
	}

	// Parents before children: the records arrive in pre-order or creation order.
	for _, d := range orderParentsFirst(snapshot.Dispositions) {
		d.LetterID = snapshot.Letter.ID
		if err := insertDisposition(ctx, tx, &d); err != nil {
			return fmt.Errorf("failed to import disposition %s: %w", d.ID, err)
		}
	}

	for _, p := range snapshot.Participants {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO participants (id, letter_id, user_id, read_at, executed_at, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			p.ID, snapshot.Letter.ID, p.UserID, nullString(p.ReadAt), nullString(p.ExecutedAt), p.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to import participant %s: %w", p.UserID, err)
		}
	}

	return tx.Commit()
}

// orderParentsFirst returns the dispositions so that every parent precedes its children.
func orderParentsFirst(in []secondary.DispositionRecord) []secondary.DispositionRecord {
	placed := make(map[string]bool, len(in))
	out := make([]secondary.DispositionRecord, 0, len(in))
	for len(out) < len(in) {
		progressed := false
		for _, d := range in {
			if placed[d.ID] {
				continue
			}
			if d.ParentID == "" || placed[d.ParentID] {
				placed[d.ID] = true
				out = append(out, d)
				progressed = true
			}
		}
		if !progressed {
			// Orphans; let the foreign key reject them.
			for _, d := range in {
				if !placed[d.ID] {
					placed[d.ID] = true
					out = append(out, d)
				}
			}
		}
	}
	return out
}

// Ensure LetterRepository implements the interface.
var _ secondary.LetterRepository = (*LetterRepository)(nil)
