package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"xray-cbt/internal/devserver"
)

func newDevServerCmd(root *rootOptions) *cobra.Command {
	var (
		addr    string
		catalog string
		images  string
		token   string
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Serve a local item catalog to the console",
		Long: `Starts a stand-in for the training backend.

Items come from a YAML catalog (--catalog) or from a directory of image
pairs such as bag7_top.png / bag7_side.png (--images). Submitted sessions
are kept in memory and listed at /training/results.`,
		Example: `  # Serve a catalog on the default port
  xray-cbt devserver --catalog items.yaml

  # Serve clean items straight from a folder
  xray-cbt devserver --images ./scans --addr :4000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog(catalog, images)
			if err != nil {
				return err
			}
			if token == "" {
				// Share the console's credential when one is configured.
				if cfg, err := root.loadConfig(); err == nil {
					token = cfg.Supplier.Token
				}
			}
			var opts []devserver.Option
			if token != "" {
				opts = append(opts, devserver.WithToken(token))
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, devserver.WithSeed(seed))
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			slog.Info("Item catalog loaded", "categories", len(cat.Categories), "items", len(cat.Items))
			return serve(cmd.Context(), ln, devserver.New(cat, opts...).Router())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3015", "Address to listen on")
	cmd.Flags().StringVar(&catalog, "catalog", "", "YAML item catalog")
	cmd.Flags().StringVar(&images, "images", "", "Directory of top/side image pairs")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token required for submissions")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for deterministic batches")
	cmd.MarkFlagsMutuallyExclusive("catalog", "images")
	cmd.MarkFlagsOneRequired("catalog", "images")

	return cmd
}

func loadCatalog(catalog, images string) (*devserver.Catalog, error) {
	if catalog != "" {
		return devserver.LoadCatalog(catalog)
	}
	return devserver.ScanDir(images)
}

// serve runs handler on ln until ctx is cancelled, then shuts down
// gracefully.
func serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Dev supplier available", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
