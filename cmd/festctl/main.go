// Command festctl runs the server's maintenance jobs from a shell: manifest
// rebuilds, media syncs, lineup checks, subscriber CSV transfer and admin
// credentials.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"freakfest/pkg/utils"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg    utils.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "festctl",
	Short:         "FreakFest backend maintenance",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = utils.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = zapcore.DebugLevel.String()
		}
		logger, err = utils.NewLogger(cfg)
		if err != nil {
			return err
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: $FREAKFEST_CONFIG or freakfest.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(manifestCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(artistsCmd)
	rootCmd.AddCommand(subscribersCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
