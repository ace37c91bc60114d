// Package cli implements the orderline command tree. The CLI works on YAML
// fixtures describing an order, its stored state and a desired line, so
// reconciliation outcomes can be inspected without a running storage
// backend.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/openacq/orderline/internal/config"
	"github.com/openacq/orderline/pkg/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagJSON     bool
)

// NewRootCmd builds the orderline root command.
func NewRootCmd(version, commit, date string) *cobra.Command {
	root := &cobra.Command{
		Use:     "orderline",
		Short:   "Purchase order line reconciliation tooling",
		Long:    "orderline validates and reconciles purchase order lines against their dependent collections:\nsub-objects, pieces, inventory records and fund encumbrances.",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(cmd)
		},
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./orderline.yaml)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "log as JSON instead of console output")

	root.AddCommand(newValidateCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newApplyCmd())
	return root
}

// setupLogging configures the default logger from flags and configuration.
func setupLogging(cmd *cobra.Command) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var logger zerolog.Logger
	if flagJSON {
		logger = logging.NewJSON(os.Stderr)
	} else {
		logger = logging.NewConsole()
	}
	logging.SetDefault(logger.Level(parsed))

	cmd.SetContext(logging.WithLogger(cmd.Context(), logging.Default()))
	return nil
}
