package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/example/dispo/internal/ports/primary"
)

// UserAdapter translates CLI operations to UserService calls.
type UserAdapter struct {
	service primary.UserService
	out     io.Writer
	settings
}

// NewUserAdapter creates a new UserAdapter with the given service.
func NewUserAdapter(service primary.UserService, out io.Writer, opts ...Option) *UserAdapter {
	return &UserAdapter{service: service, out: out, settings: newSettings(opts)}
}

// Add creates a user.
func (a *UserAdapter) Add(ctx context.Context, req primary.CreateUserRequest) (*primary.User, error) {
	user, err := a.service.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if a.json {
		return user, writeJSON(a.out, user)
	}
	fmt.Fprintln(a.out, a.printer.Sprintf("User %s created.", user.ID))
	return user, nil
}

// List shows the directory.
func (a *UserAdapter) List(ctx context.Context) ([]*primary.User, error) {
	users, err := a.service.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if a.json {
		return users, writeJSON(a.out, users)
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tSUPERVISOR")
	fmt.Fprintln(w, "--\t----\t----\t----------")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Role, u.SupervisorID)
	}
	w.Flush()
	return users, nil
}
