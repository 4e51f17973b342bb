package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/gogpu/gg"
	"github.com/spf13/cobra"

	"xray-cbt/internal/config"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// loadConfig reads the configuration named by --config, or the defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "xray-cbt",
		Short: "X-ray baggage screening trainer",
		Long: `xray-cbt runs computer-based training for X-ray baggage screeners.

Items scroll past on two belts (top and side views). The trainee pauses the
belt, applies image filters, clicks the suspected threat and names its
category. Sessions are scored, credited and submitted to the training backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(cmd.ErrOrStderr(), opts.logLevel); err != nil {
				return err
			}
			if err := config.LoadDotEnv(".env"); err != nil {
				slog.Warn("Ignoring .env file", "err", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newConsoleCmd(opts))
	cmd.AddCommand(newDevServerCmd(opts))
	cmd.AddCommand(newRegionsCmd(opts))
	cmd.AddCommand(newSummaryCmd(opts))

	return cmd
}

func setupLogging(w io.Writer, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if w == nil {
		w = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	gg.SetLogger(logger)
	return nil
}
