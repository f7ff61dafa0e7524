// Package cli contains the cobra command tree of dispo.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliadapter "github.com/example/dispo/internal/adapters/cli"
	"github.com/example/dispo/internal/config"
	"github.com/example/dispo/internal/ctxutil"
	"github.com/example/dispo/internal/wire"
)

// globalFlags are shared by every command.
var globalFlags struct {
	as          string
	json        bool
	metricsFile string
}

// BindGlobalFlags registers --as, --json and --metrics-file on the root
// command and loads the workspace configuration before any command runs.
func BindGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&globalFlags.as, "as", "", "Act as this user id (overrides DISPO_USER and the config user)")
	root.PersistentFlags().BoolVar(&globalFlags.json, "json", false, "Print results as JSON")
	root.PersistentFlags().StringVar(&globalFlags.metricsFile, "metrics-file", "", "Write prometheus metrics to this textfile on exit")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		dir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		wire.Configure(dir, cfg)
		return nil
	}
}

// Shutdown flushes metrics and closes the database. Call it once after the
// root command returns.
func Shutdown() error {
	return wire.Shutdown(globalFlags.metricsFile)
}

// actorContext returns the command context carrying the --as user, if set.
func actorContext(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if globalFlags.as != "" {
		ctx = ctxutil.WithActorID(ctx, globalFlags.as)
	}
	return ctx
}

func adapterOptions() []cliadapter.Option {
	return []cliadapter.Option{cliadapter.WithJSON(globalFlags.json)}
}

func letterAdapter(cmd *cobra.Command) *cliadapter.LetterAdapter {
	return wire.LetterAdapterWithOutput(cmd.OutOrStdout(), adapterOptions()...)
}

func userAdapter(cmd *cobra.Command) *cliadapter.UserAdapter {
	return wire.UserAdapterWithOutput(cmd.OutOrStdout(), adapterOptions()...)
}
