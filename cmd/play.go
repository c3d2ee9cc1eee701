// File: cmd/play.go
package cmd

import (
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/observability"
	"github.com/vxkeys/puppetry/internal/scenario"
)

// newPlayCmd creates and configures the `play` command.
func newPlayCmd() *cobra.Command {
	playCmd := &cobra.Command{
		Use:   "play <scenario>",
		Short: "Replays a stored scenario in a fresh browser session",
		Long: `Play opens a browser session, replays the named scenario (an id or a
name) against it, prints the execution report as JSON on stdout, and closes
the session. The command exits non-zero when the replay finishes with
failures.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			headless, _ := cmd.Flags().GetBool("headless")
			variant, _ := cmd.Flags().GetString("browser")
			overrides, _ := cmd.Flags().GetStringToString("var")
			continueOnError, _ := cmd.Flags().GetBool("continue-on-error")
			pace, _ := cmd.Flags().GetDuration("pace")

			components, err := initializeDaemon(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			sess, err := components.Registry.Open(ctx, schemas.SessionConfig{
				Headless: headless,
				Browser:  variant,
			})
			if err != nil {
				return fmt.Errorf("failed to open browser session: %w", err)
			}

			logger.Info("Replaying scenario.",
				zap.String("scenario", args[0]),
				zap.String("session_id", sess.ID()),
			)

			policy := schemas.DefaultExecPolicy()
			if continueOnError {
				policy = schemas.ExecPolicy{ContinueOnError: true}
			}
			report, err := components.Scenarios.Play(ctx, scenario.PlayRequest{
				Ref:        args[0],
				SessionID:  sess.ID(),
				Overrides:  overrides,
				Policy:     policy,
				PaceMillis: int(pace.Milliseconds()),
			})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode report: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			if !report.Success {
				return fmt.Errorf("scenario %q finished with failures", args[0])
			}
			return nil
		},
	}

	playCmd.Flags().Bool("headless", true, "run the browser headless")
	playCmd.Flags().String("browser", "", "browser variant to launch (defaults to browser.default_variant)")
	playCmd.Flags().StringToString("var", nil, "variable override as name=value; repeatable")
	playCmd.Flags().Bool("continue-on-error", false, "attempt every step even after failures")
	playCmd.Flags().Duration("pace", 0, "minimum delay between steps (e.g. 500ms; overrides playback.pace)")
	return playCmd
}
