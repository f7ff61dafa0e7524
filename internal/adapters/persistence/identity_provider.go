// Package persistence contains adapters that resolve application context from stored data.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/ports/secondary"
)

// ErrNoActingUser is returned when neither the context nor the configuration names a user.
var ErrNoActingUser = errors.New("no acting user (set DISPO_USER, the config user, or pass --as)")

// IdentityProviderAdapter resolves the acting user from the context, falling
// back to the configured default, and looks up their role in the directory.
type IdentityProviderAdapter struct {
	users         secondary.UserRepository
	defaultUserID string
}

// NewIdentityProvider creates a new IdentityProviderAdapter.
func NewIdentityProvider(users secondary.UserRepository, defaultUserID string) *IdentityProviderAdapter {
	return &IdentityProviderAdapter{users: users, defaultUserID: defaultUserID}
}

// CurrentIdentity returns the identity of the acting user.
func (p *IdentityProviderAdapter) CurrentIdentity(ctx context.Context) (*secondary.IdentityRecord, error) {
	userID := ctxutil.ActorFromContext(ctx)
	if userID == "" {
		userID = p.defaultUserID
	}
	if userID == "" {
		return nil, ErrNoActingUser
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve acting user: %w", err)
	}

	return &secondary.IdentityRecord{
		UserID:       user.ID,
		Role:         user.Role,
		SupervisorID: user.SupervisorID,
	}, nil
}

// Ensure IdentityProviderAdapter implements the interface
var _ secondary.IdentityProvider = (*IdentityProviderAdapter)(nil)
