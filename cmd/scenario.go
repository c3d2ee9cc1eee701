// File: cmd/scenario.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/observability"
	"github.com/vxkeys/puppetry/internal/scenario"
	"github.com/vxkeys/puppetry/internal/store"
)

// newScenarioCmd groups the stored-scenario management subcommands.
func newScenarioCmd() *cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario",
		Short: "Inspects and manages stored scenarios",
	}
	scenarioCmd.AddCommand(newScenarioListCmd())
	scenarioCmd.AddCommand(newScenarioShowCmd())
	scenarioCmd.AddCommand(newScenarioDeleteCmd())
	return scenarioCmd
}

// scenarioService builds the service over the configured store with playback
// and recording left unwired; the subcommands only read and delete.
func scenarioService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*scenario.Service, store.Repository, error) {
	repo, err := store.New(cfg.Storage, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize scenario store: %w", err)
	}
	svc, err := scenario.NewService(ctx, repo, nil, nil, cfg.Playback, logger)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	return svc, repo, nil
}

func newScenarioListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists stored scenarios, most recently modified first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, repo, err := scenarioService(cmd.Context(), cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			filter, _ := cmd.Flags().GetString("filter")
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			list := svc.List(filter, limit)
			if asJSON {
				out, err := json.MarshalIndent(list, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode scenario list: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scenarios stored.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-24s  %5s  %s\n", "ID", "NAME", "STEPS", "MODIFIED")
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%-36s  %-24s  %5d  %s\n",
					s.ID, s.Name, s.TotalSteps, s.LastModified.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	listCmd.Flags().String("filter", "", "substring match over name and description")
	listCmd.Flags().Int("limit", 0, "maximum entries to print (0 prints all)")
	listCmd.Flags().Bool("json", false, "print the list as JSON")
	return listCmd
}

func newScenarioShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <scenario>",
		Short: "Prints one stored scenario as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, repo, err := scenarioService(cmd.Context(), cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			sc, err := svc.Get(args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(sc, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode scenario: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newScenarioDeleteCmd() *cobra.Command {
	deleteCmd := &cobra.Command{
		Use:   "delete <scenario>",
		Short: "Deletes one stored scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			svc, repo, err := scenarioService(cmd.Context(), cfg, observability.GetLogger())
			if err != nil {
				return err
			}
			defer repo.Close()

			yes, _ := cmd.Flags().GetBool("yes")
			if err := svc.Delete(cmd.Context(), args[0], yes); err != nil {
				if errors.Is(err, schemas.ErrConfirmationNeeded) {
					return fmt.Errorf("refusing to delete %q without --yes", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted scenario %s\n", args[0])
			return nil
		},
	}
	deleteCmd.Flags().Bool("yes", false, "confirm the deletion")
	return deleteCmd
}
