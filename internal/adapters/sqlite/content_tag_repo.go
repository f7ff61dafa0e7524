package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/dispo/internal/ports/secondary"
)

// ContentTagRepository implements secondary.ContentTagRepository with SQLite.
type ContentTagRepository struct {
	db *sql.DB
}

// NewContentTagRepository creates a new SQLite content tag repository.
func NewContentTagRepository(db *sql.DB) *ContentTagRepository {
	return &ContentTagRepository{db: db}
}

// Create persists a new catalogue phrase.
func (r *ContentTagRepository) Create(ctx context.Context, tag *secondary.ContentTagRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO content_tags (id, phrase, sort_order) VALUES (?, ?, ?)",
		tag.ID, tag.Phrase, tag.SortOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to create content tag: %w", err)
	}
	return nil
}

// List retrieves all phrases in display order.
func (r *ContentTagRepository) List(ctx context.Context) ([]*secondary.ContentTagRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, phrase, sort_order FROM content_tags ORDER BY sort_order ASC, phrase ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list content tags: %w", err)
	}
	defer rows.Close()

	var tags []*secondary.ContentTagRecord
	for rows.Next() {
		record := &secondary.ContentTagRecord{}
		if err := rows.Scan(&record.ID, &record.Phrase, &record.SortOrder); err != nil {
			return nil, fmt.Errorf("failed to scan content tag: %w", err)
		}
		tags = append(tags, record)
	}
	return tags, rows.Err()
}

// Ensure ContentTagRepository implements the interface.
var _ secondary.ContentTagRepository = (*ContentTagRepository)(nil)
