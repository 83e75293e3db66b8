// Package cmd defines the CLI commands for the catalogcheck executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/retailtools/catalogcheck/internal/config"
	"github.com/retailtools/catalogcheck/internal/logging"
	"github.com/retailtools/catalogcheck/internal/metrics"
	"github.com/retailtools/catalogcheck/internal/session"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogcheck",
		Short: "Checks whether retail product pages carry a usable category breadcrumb.",
		Long: `catalogcheck takes product identifiers (SKUs), finds each product on the
configured retail site and inspects its detail page for a category
breadcrumb. Products whose breadcrumb is missing, single-level or a
generic bucket are reported as NOT cataloged so the taxonomy team can
fix them.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")

	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initRuntime loads .env credentials, configuration and the logger, and
// registers the Prometheus collectors.
func initRuntime() (config.Config, *zap.Logger, error) {
	session.LoadDotenv()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()
	return cfg, logger, nil
}
