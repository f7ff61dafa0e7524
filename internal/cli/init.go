package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/dispo/internal/config"
	"github.com/example/dispo/internal/db"
	"github.com/example/dispo/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var user, locale string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a dispo workspace",
		Long: `Initialize a dispo workspace in the current directory.

This command:
1. Writes .dispo/config.yaml (kept if it already exists)
2. Creates the database with the required schema
3. Loads the built-in content tag catalogue

Examples:
  dispo init
  dispo init --user USR-CLERK --locale id`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			path := filepath.Join(dir, config.DirName, "config.yaml")
			_, statErr := os.Stat(path)
			if errors.Is(statErr, fs.ErrNotExist) || user != "" || locale != "" {
				cfg, err := config.Load(dir)
				if err != nil {
					return err
				}
				if user != "" {
					cfg.User = user
				}
				if locale != "" {
					cfg.Locale = locale
				}
				if err := config.Save(dir, cfg); err != nil {
					return err
				}
				wire.Configure(dir, cfg)
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", path)
			}

			if err := wire.Init(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Database ready at %s\n", wire.Config().DatabasePath(dir))

			if err := db.SeedContentTags(wire.DB()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Content tag catalogue loaded")
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "Next steps:")
			fmt.Fprintln(cmd.OutOrStdout(), "  dispo user add --id USR-ADMIN --name \"Administrator\" --role administrator")
			fmt.Fprintln(cmd.OutOrStdout(), "  dispo seed   (development fixtures)")
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Default acting user id")
	cmd.Flags().StringVar(&locale, "locale", "", "Display locale (en or id)")

	return cmd
}

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load development fixtures",
		Long:  `Load an office directory and one routed letter into an empty database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.Init(); err != nil {
				return err
			}
			if err := db.SeedFixtures(wire.DB()); err != nil {
				return fmt.Errorf("failed to seed fixtures (is the database empty?): %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Fixtures loaded (try: dispo --as USR-HEAD letter show LTR-001)")
			return nil
		},
	}
}
