package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grid/internal/generator"
	"github.com/mesh-intelligence/grid/internal/grid"
	"github.com/mesh-intelligence/grid/internal/sqlite"
	"github.com/mesh-intelligence/grid/pkg/types"
)

func newBulkCmd(a *app) *cobra.Command {
	var (
		userID  string
		tableID string
		count   int
		seed    uint64
	)
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Append generated rows to a table",
		Long: "Append count rows of synthetic data to a table. Without --table the\n" +
			"user's default table is used and created if missing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if tableID == "" && userID == "" {
				return fmt.Errorf("%w: one of --table or --user is required", errUsage)
			}
			ctx := cmd.Context()

			store, err := sqlite.Open(ctx, a.config)
			if err != nil {
				return fmt.Errorf("opening storage: %w", err)
			}
			defer store.Close()

			svc := grid.NewService(store, generator.New(seed), a.config.PageSize)
			if tableID == "" {
				agg, err := svc.GetOrCreateDefaultTable(ctx, userID)
				if err != nil {
					return err
				}
				tableID = agg.TableID
			}

			start := time.Now()
			agg, err := svc.AddBulkRows(ctx, tableID, count)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			out := cmd.OutOrStdout()
			if a.jsonMode {
				return printJSON(out, bulkResult{
					TableID:   tableID,
					Added:     count,
					TotalRows: agg.TotalCount,
					Version:   agg.Version,
					Elapsed:   elapsed.String(),
				})
			}
			printOK(out, "Added %d rows", count)
			printField(out, "table", tableID)
			printField(out, "total", agg.TotalCount)
			printField(out, "elapsed", elapsed.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "owner of the default table")
	cmd.Flags().StringVar(&tableID, "table", "", "target table ID")
	cmd.Flags().IntVar(&count, "count", types.MaxBulkRows, "number of rows to add")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "generator seed (0 picks a random seed)")
	return cmd
}

type bulkResult struct {
	TableID   string `json:"table_id"`
	Added     int    `json:"added"`
	TotalRows int    `json:"total_rows"`
	Version   int64  `json:"version"`
	Elapsed   string `json:"elapsed"`
}
