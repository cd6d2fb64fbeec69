package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grid/internal/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("%w: --user is required", errUsage)
			}
			verifier, err := auth.NewJWTVerifier(a.config.AuthSecret)
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			token, err := verifier.IssueToken(userID, email, ttl)
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}
			if a.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID placed in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime (0 for no expiry)")
	return cmd
}
