package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/dispo/internal/core/identity"
	"github.com/example/dispo/internal/core/permission"
	"github.com/example/dispo/internal/ports/primary"
	"github.com/example/dispo/internal/ports/secondary"
)

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	users    secondary.UserRepository
	identity secondary.IdentityProvider
	opts     Options
}

// NewUserService creates a new UserService with injected dependencies.
func NewUserService(users secondary.UserRepository, identityProvider secondary.IdentityProvider, opts Options) *UserServiceImpl {
	return &UserServiceImpl{
		users:    users,
		identity: identityProvider,
		opts:     opts.withDefaults(),
	}
}

// CreateUser adds a user to the directory. The first user of an empty
// directory may be added by anyone.
func (s *UserServiceImpl) CreateUser(ctx context.Context, req primary.CreateUserRequest) (*primary.User, error) {
	existing, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var actor identity.Identity
	if len(existing) > 0 {
		loader := snapshotLoader{identity: s.identity, opts: s.opts}
		if actor, err = loader.currentIdentity(ctx); err != nil {
			return nil, err
		}
	}
	decision := permission.CanManageUsers(actor, len(existing) == 0)
	recordDecision(s.opts.Metrics, "manage_users", decision)
	if !decision.Allowed() {
		return nil, decision.Err()
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", permission.ErrInvalidRequest)
	}
	role, err := identity.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", permission.ErrInvalidRequest, err)
	}
	if req.SupervisorID != "" {
		supervisor, err := lookupUser(ctx, s.users, req.SupervisorID)
		if err != nil {
			return nil, err
		}
		if supervisor == nil {
			return nil, fmt.Errorf("%w: supervisor %s not found", permission.ErrInvalidRequest, req.SupervisorID)
		}
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = s.opts.NewID()
	}
	record := &secondary.UserRecord{
		ID:           id,
		Name:         name,
		Role:         string(role),
		SupervisorID: req.SupervisorID,
		CreatedAt:    formatTime(s.opts.Clock()),
	}
	if err := s.users.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.opts.Logger.InfoContext(ctx, "user created", "id", id, "role", record.Role)
	return recordToUser(record), nil
}

// ListUsers returns all users ordered by name.
func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*primary.User, error) {
	records, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]*primary.User, len(records))
	for i, r := range records {
		users[i] = recordToUser(r)
	}
	return users, nil
}

func recordToUser(r *secondary.UserRecord) *primary.User {
	return &primary.User{ID: r.ID, Name: r.Name, Role: r.Role, SupervisorID: r.SupervisorID}
}

var _ primary.UserService = (*UserServiceImpl)(nil)
