package main

import (
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/voiceorder/internal/config"
)

type rootOptions struct {
	envFile  string
	logLevel string
	logFile  string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "voiceorder",
		Short:         "Voice ordering assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadDotenv(opts.envFile)
			opts.cfg = config.Load()
			if cmd.Flags().Changed("log-level") {
				opts.cfg.LogLevel = opts.logLevel
			}
			if cmd.Flags().Changed("log-file") {
				opts.cfg.LogFile = opts.logFile
			}
			setupLogging(cmd.ErrOrStderr(), opts.cfg.LogLevel, opts.cfg.LogFile)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this rotated file")

	cmd.AddCommand(newServeCmd(opts), newDevicesCmd(), newAskCmd(opts), newHealthCmd(opts))
	return cmd
}
