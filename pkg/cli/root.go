package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-console/pkg/auth"
	"github.com/ekaya-inc/ekaya-console/pkg/config"
	"github.com/ekaya-inc/ekaya-console/pkg/gateway"
)

// options carries the persistent flags and the collaborators every
// subcommand builds from.
type options struct {
	version    string
	configPath string
	logLevel   string

	// newGateway builds the backend client. Tests substitute a fake.
	newGateway func(cfg *config.Config, logger *zap.Logger) gateway.Gateway
}

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return newRootCmd(&options{
		version:    version,
		newGateway: backendGateway,
	}).Execute()
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ekaya-console",
		Short: "Dashboard console for the table analysis backend",
		Long: `ekaya-console serves the project dashboard: it polls the analysis backend for
projects, tables and SQL versions, and applies edits optimistically until the
next refresh confirms them.

Every subcommand except serve performs one operation against the backend and exits.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "config file (missing file falls back to environment)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd(opts.version))
	cmd.AddCommand(newProjectsCmd(opts))
	cmd.AddCommand(newTablesCmd(opts))
	cmd.AddCommand(newVersionsCmd(opts))
	cmd.AddCommand(newChartsCmd(opts))

	return cmd
}

func backendGateway(cfg *config.Config, logger *zap.Logger) gateway.Gateway {
	return gateway.NewClient(gateway.Options{
		BaseURL:    cfg.Backend.BaseURL,
		APIKey:     cfg.Backend.APIKey,
		Timeout:    cfg.Backend.Timeout,
		FetchRetry: cfg.Refresh.RetryConfig(),
	}, auth.NewStaticTokenSource(cfg.Backend.AccessToken, logger), logger)
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ekaya-console %s\n", version)
		},
	}
}
