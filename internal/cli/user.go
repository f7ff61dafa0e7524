package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/ports/primary"
)

// UserCmd returns the user command
func UserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}

	cmd.AddCommand(userAddCmd())
	cmd.AddCommand(userListCmd())

	return cmd
}

func userAddCmd() *cobra.Command {
	var req primary.CreateUserRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user",
		Long: `Add a user to the directory. Only administrators may add users once
the directory is non-empty.

Roles: clerk, officer, operative, administrator, external.

Examples:
  dispo user add --id USR-ADMIN --name "Administrator" --role administrator
  dispo --as USR-ADMIN user add --id USR-SEC1 --name "Dewi" --role officer --supervisor USR-HEAD`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := userAdapter(cmd).Add(actorContext(cmd), req)
			return err
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "User id (generated when empty)")
	cmd.Flags().StringVarP(&req.Name, "name", "n", "", "Display name")
	cmd.Flags().StringVarP(&req.Role, "role", "r", "", "Role")
	cmd.Flags().StringVar(&req.SupervisorID, "supervisor", "", "Supervisor user id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := userAdapter(cmd).List(actorContext(cmd))
			return err
		},
	}
}
