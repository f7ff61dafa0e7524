package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/ports/primary"
)

// DisposeCmd returns the dispose command
func DisposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispose",
		Short: "Forward letters down the hierarchy",
	}

	cmd.AddCommand(disposeCheckCmd())
	cmd.AddCommand(disposeCreateCmd())

	return cmd
}

func disposeCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [letter-id]",
		Short: "Check whether you may dispose a letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Check(actorContext(cmd), args[0])
			return err
		},
	}
}

func disposeCreateCmd() *cobra.Command {
	var req primary.CreateDispositionRequest

	cmd := &cobra.Command{
		Use:   "create [letter-id]",
		Short: "Dispose a letter to one or more recipients (officers only)",
		Long: `Dispose a letter to recipients with one or more instructions from the
content tag catalogue (see: dispo tags).

Examples:
  dispo --as USR-HEAD dispose create LTR-001 --to USR-SEC1,USR-SEC2 --tag "Please follow up"
  dispo --as USR-SEC1 dispose create LTR-001 --to USR-OPS1 --tag "Please attend" --note "Room 3"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.LetterID = args[0]
			_, err := letterAdapter(cmd).Dispose(actorContext(cmd), req)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&req.RecipientIDs, "to", nil, "Comma-separated recipient user ids")
	cmd.Flags().StringArrayVarP(&req.ContentTags, "tag", "t", nil, "Instruction phrase (repeatable)")
	cmd.Flags().StringVar(&req.Note, "note", "", "Free-text note")
	cmd.Flags().StringVar(&req.SignatureRef, "signature", "", "Reference to the signature image")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("tag")

	return cmd
}
