package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grid/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration and storage",
		Long:  "Create the configuration file if missing, then open the database and apply schema migrations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.Open(cmd.Context(), a.config)
			if err != nil {
				return fmt.Errorf("initializing storage: %w", err)
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("closing storage: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.jsonMode {
				return printJSON(out, map[string]string{
					"backend":  a.config.Backend,
					"data_dir": a.config.DataDir,
				})
			}
			printOK(out, "grid initialized")
			printField(out, "backend", a.config.Backend)
			if a.config.DataDir != "" {
				printField(out, "data dir", a.config.DataDir)
			}
			return nil
		},
	}
}
