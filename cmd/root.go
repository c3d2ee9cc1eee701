// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/observability"
)

// ctxKey scopes context values owned by this package.
type ctxKey string

// configKey carries the resolved configuration from the root command's
// PersistentPreRunE to every subcommand.
const configKey ctxKey = "config"

// configFromContext fetches the configuration stashed by the root command.
func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration missing from command context")
	}
	return cfg, nil
}

// NewRootCommand builds a fresh command tree. Every invocation returns an
// independent tree so repeated executions do not share flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "puppetry",
		Short: "Puppetry drives real browsers for automation clients.",
		Long: `Puppetry is a browser automation daemon. It opens and manages Chrome
sessions, executes action sequences against them, and records live browsing
into replayable scenarios. Clients speak to it over the Model Context
Protocol on stdio; an optional HTTP listener exposes health, metrics and
read-only state.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Printing the version must work even with a broken config file.
			if cmd.Name() == "version" {
				return nil
			}

			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(v, cfgFile); err != nil {
				return err
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				// Fall back to a minimal logger so the failure is visible.
				observability.Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "puppetry"}, zapcore.Lock(os.Stderr))
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			// Console logs go to stderr: stdout belongs to the MCP transport
			// when serving, and to report output everywhere else.
			observability.Initialize(cfg.Logger, zapcore.Lock(os.Stderr))
			observability.GetLogger().Debug("Configuration loaded.", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./puppetry.yaml)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newPlayCmd())
	rootCmd.AddCommand(newScenarioCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree under the given signal-aware context.
func Execute(ctx context.Context) error {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		logger := observability.GetLogger()
		if errors.Is(err, context.Canceled) {
			logger.Warn("Aborted by signal.")
		} else {
			logger.Error("Command failed.", zap.Error(err))
		}
		return err
	}
	return nil
}

// initializeConfig points viper at the config file and the environment.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.puppetry")
		v.SetConfigName("puppetry")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PUPPETRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and environment cover everything.
	}
	return nil
}
