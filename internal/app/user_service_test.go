package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dispo/internal/core/permission"
	"github.com/example/dispo/internal/ports/primary"
)

func TestUserService_FirstUserOfEmptyDirectory(t *testing.T) {
	h := newHarness(t, "")
	h.users = newMockUserRepository()
	h.identity.users = h.users
	h.rebuild()

	u, err := h.userSvc.CreateUser(context.Background(), primary.CreateUserRequest{
		Name: "Admin",
		Role: "Administrator",
	})
	require.NoError(t, err)

	assert.Equal(t, "ID-1", u.ID)
	assert.Equal(t, "administrator", u.Role)
	assert.Len(t, h.users.users, 1)
}

func TestUserService_CreateUser(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		req     primary.CreateUserRequest
		wantErr error
	}{
		{
			name:  "administrator adds officer",
			actor: "ADMIN",
			req:   primary.CreateUserRequest{ID: "SEC3", Name: "Section Three", Role: "officer", SupervisorID: "HEAD"},
		},
		{
			name:  "legacy role label",
			actor: "ADMIN",
			req:   primary.CreateUserRequest{ID: "OPS2", Name: "Operative Two", Role: "Pelaksana"},
		},
		{
			name:    "officer cannot add users",
			actor:   "HEAD",
			req:     primary.CreateUserRequest{Name: "X", Role: "officer"},
			wantErr: permission.ErrPermissionDenied,
		},
		{
			name:    "unknown role",
			actor:   "ADMIN",
			req:     primary.CreateUserRequest{Name: "X", Role: "janitor"},
			wantErr: permission.ErrInvalidRequest,
		},
		{
			name:    "missing name",
			actor:   "ADMIN",
			req:     primary.CreateUserRequest{Role: "officer"},
			wantErr: permission.ErrInvalidRequest,
		},
		{
			name:    "unknown supervisor",
			actor:   "ADMIN",
			req:     primary.CreateUserRequest{Name: "X", Role: "officer", SupervisorID: "GHOST"},
			wantErr: permission.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.actor)
			before := len(h.users.users)

			u, err := h.userSvc.CreateUser(context.Background(), tt.req)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, h.users.users, before)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.req.ID, u.ID)
			stored, err := h.users.GetByID(context.Background(), u.ID)
			require.NoError(t, err)
			assert.Equal(t, u.Role, stored.Role)
			assert.NotEmpty(t, stored.CreatedAt)
		})
	}
}

func TestUserService_ListUsers(t *testing.T) {
	h := newHarness(t, "HEAD")

	users, err := h.userSvc.ListUsers(context.Background())
	require.NoError(t, err)

	require.Len(t, users, len(directory()))
	assert.Equal(t, "Admin", users[0].Name)
	assert.Equal(t, "Section Two", users[len(users)-1].Name)
}
