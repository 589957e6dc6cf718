package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/evrange/app"
	"github.com/kilianp07/evrange/config"
	"github.com/kilianp07/evrange/core/history"
	"github.com/kilianp07/evrange/core/metrics"
	"github.com/kilianp07/evrange/infra/logger"
)

// options holds the persistent flags shared by every command.
type options struct {
	cfgPath  string
	logLevel string
}

// NewRootCmd builds the evrange command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "evrange",
		Short:         "EV driving range estimation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.logLevel == "" {
				return nil
			}
			return logger.SetLevel(opts.logLevel)
		},
	}
	root.PersistentFlags().StringVarP(&opts.cfgPath, "config", "c", "", "configuration file (yaml or json)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newEstimateCmd(opts),
		newSweepCmd(opts),
		newHistoryCmd(opts),
		newDefaultsCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	root := NewRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		return err
	}
	return nil
}

// loadConfig reads the configuration and applies the log level.
func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Log.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// localService builds a service for one-shot commands. Metrics are never
// exported and the history is only written when save is set.
func (o *options) localService(save bool) (*app.Service, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	opts := []app.Option{
		app.WithMetricsSink(metrics.NopSink{}),
		app.WithLogger(logger.NewZerologLoggerTo(os.Stderr, "cli")),
	}
	if !save {
		opts = append(opts, app.WithHistory(history.NopStore{}))
	}
	return app.New(cfg, opts...)
}
