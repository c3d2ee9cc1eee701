// File: cmd/token.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vxkeys/puppetry/internal/server"
)

// newTokenCmd creates the `token` command, which mints bearer tokens for the
// HTTP listener from the configured auth secret.
func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mints a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Server.AuthSecret == "" {
				return fmt.Errorf("server.auth_secret is not configured (set PUPPETRY_SERVER_AUTH_SECRET)")
			}

			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be a positive duration")
			}

			token, err := server.NewToken([]byte(cfg.Server.AuthSecret), subject, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	tokenCmd.Flags().String("subject", "cli", "subject claim for the token")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	return tokenCmd
}
