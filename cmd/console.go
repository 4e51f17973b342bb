package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"

	"xray-cbt/internal/devserver"
	"xray-cbt/internal/results"
	"xray-cbt/internal/session"
	"xray-cbt/internal/supplier"
	"xray-cbt/ui/console"
)

func newConsoleCmd(root *rootOptions) *cobra.Command {
	var (
		area     int
		category string
		operator string
		duration time.Duration
		catalog  string
		images   string
	)

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Start a screening session",
		Long: `Opens the screening console and runs one timed session.

Items come from the configured supplier. With --catalog or --images a local
dev supplier is started in-process instead.`,
		Example: `  xray-cbt console --area 2 --operator jdoe
  xray-cbt console --images ./scans --duration 5m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("area") {
				cfg.Session.Area = area
			}
			if flags.Changed("category") {
				cfg.Session.Category = category
			}
			if flags.Changed("operator") {
				cfg.Session.Operator = operator
			}
			if flags.Changed("duration") {
				cfg.Session.Duration = duration
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if catalog != "" || images != "" {
				addr, err := startLocalSupplier(ctx, catalog, images, cfg.Supplier.Token)
				if err != nil {
					return err
				}
				cfg.Supplier.BaseURL = "http://" + addr
			}

			client, err := supplier.NewClient(cfg.Supplier.BaseURL, cfg.Supplier.Token, cfg.Supplier.Timeout)
			if err != nil {
				return err
			}
			store := results.Open(cfg.Results.Dir)

			ctrl := session.New(session.OptionsFromConfig(cfg), client, store)
			runner := session.NewRunner(ctrl, cfg.FrameInterval())
			slog.Info("Starting session",
				"supplier", client.BaseURL(),
				"area", cfg.Session.Area,
				"category", cfg.Session.Category,
				"duration", cfg.Session.Duration)
			return console.Run(ctx, ctrl, runner)
		},
	}

	cmd.Flags().IntVar(&area, "area", 0, "Screening area (overrides config)")
	cmd.Flags().StringVar(&category, "category", "", `Category id or "all" (overrides config)`)
	cmd.Flags().StringVar(&operator, "operator", "", "Trainee name recorded with the result")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Session length (overrides config)")
	cmd.Flags().StringVar(&catalog, "catalog", "", "Serve items from a local YAML catalog")
	cmd.Flags().StringVar(&images, "images", "", "Serve clean items from a local image directory")
	cmd.MarkFlagsMutuallyExclusive("catalog", "images")

	return cmd
}

// startLocalSupplier serves a dev catalog on a loopback port until ctx is
// cancelled and returns its address.
func startLocalSupplier(ctx context.Context, catalog, images, token string) (string, error) {
	cat, err := loadCatalog(catalog, images)
	if err != nil {
		return "", err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to start local supplier: %w", err)
	}
	var opts []devserver.Option
	if token != "" {
		opts = append(opts, devserver.WithToken(token))
	}
	go func() {
		if err := serve(ctx, ln, devserver.New(cat, opts...).Router()); err != nil {
			slog.Error("Local supplier stopped", "err", err)
		}
	}()
	return ln.Addr().String(), nil
}
