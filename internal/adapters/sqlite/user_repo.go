package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/dispo/internal/ports/secondary"
)

// UserRepository implements secondary.UserRepository with SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*secondary.UserRecord, error) {
	var supervisor sql.NullString
	record := &secondary.UserRecord{}
	if err := row.Scan(&record.ID, &record.Name, &record.Role, &supervisor, &record.CreatedAt); err != nil {
		return nil, err
	}
	record.SupervisorID = supervisor.String
	return record, nil
}

// Create persists a new user.
func (r *UserRepository) Create(ctx context.Context, user *secondary.UserRecord) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, name, role, supervisor_id, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Role, nullString(user.SupervisorID), user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*secondary.UserRecord, error) {
	record, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, name, role, supervisor_id, created_at FROM users WHERE id = ?", id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, secondary.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return record, nil
}

// List retrieves all users ordered by name.
func (r *UserRepository) List(ctx context.Context) ([]*secondary.UserRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, role, supervisor_id, created_at FROM users ORDER BY name ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*secondary.UserRecord
	for rows.Next() {
		record, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, record)
	}
	return users, rows.Err()
}

// Ensure UserRepository implements the interface.
var _ secondary.UserRepository = (*UserRepository)(nil)
