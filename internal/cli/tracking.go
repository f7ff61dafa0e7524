package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/ports/primary"
)

// ReadCmd returns the read command
func ReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read [letter-id]",
		Short: "Mark a letter read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return letterAdapter(cmd).MarkRead(actorContext(cmd), args[0])
		},
	}
}

// ExecuteCmd returns the execute command
func ExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute [letter-id]",
		Short: "Mark a letter executed (operatives only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return letterAdapter(cmd).MarkExecuted(actorContext(cmd), args[0])
		},
	}
}

// TimelineCmd returns the timeline command
func TimelineCmd() *cobra.Command {
	var req primary.TimelineRequest

	cmd := &cobra.Command{
		Use:   "timeline [letter-id]",
		Short: "Show the audit history of a letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.LetterID = args[0]
			_, err := letterAdapter(cmd).Timeline(actorContext(cmd), req)
			return err
		},
	}

	cmd.Flags().BoolVar(&req.Events, "events", false, "Include read and executed events")
	cmd.Flags().StringVar(&req.ParticipantID, "participant", "", "Only entries that reached this user")

	return cmd
}

// ActivityCmd returns the activity command
func ActivityCmd() *cobra.Command {
	var req primary.ActivityRequest

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Report a user's activity in a year or month",
		Long: `Report what a user received, read, executed and disposed in a period.
Supervisors and administrators may report on other users.

Examples:
  dispo activity --year 2024
  dispo --as USR-HEAD activity --user USR-SEC1 --year 2024 --month 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Year == 0 {
				req.Year = time.Now().Year()
			}
			_, err := letterAdapter(cmd).Activity(actorContext(cmd), req)
			return err
		},
	}

	cmd.Flags().StringVarP(&req.UserID, "user", "u", "", "User id (default: you)")
	cmd.Flags().IntVar(&req.Year, "year", 0, "Year (default: current year)")
	cmd.Flags().IntVar(&req.Month, "month", 0, "Month 1-12 (default: whole year)")

	return cmd
}

// TagsCmd returns the tags command
func TagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List the content tag catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Tags(actorContext(cmd))
			return err
		},
	}
}
