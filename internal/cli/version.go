package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/grid"

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/grid/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the grid version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "grid v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
