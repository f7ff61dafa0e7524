package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/ports/primary"
)

// LetterCmd returns the letter command
func LetterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "letter",
		Short: "Register, inspect and exchange letters",
	}

	cmd.AddCommand(letterCreateCmd())
	cmd.AddCommand(letterListCmd())
	cmd.AddCommand(letterShowCmd())
	cmd.AddCommand(letterImportCmd())
	cmd.AddCommand(letterExportCmd())

	return cmd
}

func letterCreateCmd() *cobra.Command {
	var req primary.CreateLetterRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an incoming letter (clerks only)",
		Long: `Register an incoming letter and deliver it to its addressee.

Classifications: ordinary, urgent, confidential.

Examples:
  dispo --as USR-CLERK letter create --number 045/III/2024 --subject "Budget review" \
      --sender "Ministry of Finance" --to USR-HEAD --class urgent --date 2024-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Create(actorContext(cmd), req)
			return err
		},
	}

	cmd.Flags().StringVar(&req.Number, "number", "", "Letter number")
	cmd.Flags().StringVarP(&req.Subject, "subject", "s", "", "Subject")
	cmd.Flags().StringVar(&req.Sender, "sender", "", "Sending institution")
	cmd.Flags().StringVar(&req.AddresseeID, "to", "", "Addressee user id")
	cmd.Flags().StringVarP(&req.Classification, "class", "c", "ordinary", "Classification")
	cmd.Flags().StringVar(&req.LetterDate, "date", "", "Letter date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&req.FileRef, "file", "", "Reference to the scanned letter")
	_ = cmd.MarkFlagRequired("number")
	_ = cmd.MarkFlagRequired("subject")
	_ = cmd.MarkFlagRequired("sender")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func letterListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the letters that reached you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).List(actorContext(cmd))
			return err
		},
	}
}

func letterShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [letter-id]",
		Short: "Show a letter with its disposition tree and timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Show(actorContext(cmd), args[0])
			return err
		},
	}
}

func letterImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import a letter snapshot (administrators only)",
		Long: `Import a complete letter graph from a .json, .yaml or .yml snapshot.
The disposition tree is validated before anything is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Import(actorContext(cmd), args[0])
			return err
		},
	}
}

func letterExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [letter-id]",
		Short: "Export a letter snapshot",
		Long: `Export the complete letter graph. Without --out the snapshot is printed
as YAML (JSON with --json).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := letterAdapter(cmd).Export(actorContext(cmd), args[0], out)
			return err
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write to this .json/.yaml file")

	return cmd
}
