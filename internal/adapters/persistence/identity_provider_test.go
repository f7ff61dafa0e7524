package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/ports/secondary"
)

type mockUserRepo struct {
	users map[string]*secondary.UserRecord
}

func (m *mockUserRepo) Create(ctx context.Context, user *secondary.UserRecord) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*secondary.UserRecord, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, secondary.ErrNotFound)
}

func (m *mockUserRepo) List(ctx context.Context) ([]*secondary.UserRecord, error) {
	return nil, nil
}

func TestIdentityProvider(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*secondary.UserRecord{
		"USR-HEAD": {ID: "USR-HEAD", Role: "officer"},
		"USR-SEC1": {ID: "USR-SEC1", Role: "officer", SupervisorID: "USR-HEAD"},
	}}

	t.Run("configured default", func(t *testing.T) {
		p := NewIdentityProvider(repo, "USR-HEAD")
		got, err := p.CurrentIdentity(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "USR-HEAD", got.UserID)
		assert.Equal(t, "officer", got.Role)
	})

	t.Run("context overrides default", func(t *testing.T) {
		p := NewIdentityProvider(repo, "USR-HEAD")
		got, err := p.CurrentIdentity(ctxutil.WithActorID(context.Background(), "USR-SEC1"))
		require.NoError(t, err)
		assert.Equal(t, "USR-SEC1", got.UserID)
		assert.Equal(t, "USR-HEAD", got.SupervisorID)
	})

	t.Run("no user", func(t *testing.T) {
		_, err := NewIdentityProvider(repo, "").CurrentIdentity(context.Background())
		assert.ErrorIs(t, err, ErrNoActingUser)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := NewIdentityProvider(repo, "USR-GHOST").CurrentIdentity(context.Background())
		assert.ErrorIs(t, err, secondary.ErrNotFound)
	})
}
