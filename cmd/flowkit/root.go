package main

import (
	"context"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "flowkit",
		Short:         "Run and serve declarative node graphs",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default: searched next to the binary)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// setup loads config and starts the app for a command.
func (o *rootOptions) setup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(o.configFile, o.logLevel)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg)
}
