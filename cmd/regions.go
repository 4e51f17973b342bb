package cmd

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"xray-cbt/internal/item"
	"xray-cbt/internal/region"
	"xray-cbt/internal/supplier"
	"xray-cbt/internal/viewport"
)

func newRegionsCmd(root *rootOptions) *cobra.Command {
	var (
		imageRef string
		regionJS string
		viewName string
		out      string
		scale    float64
	)

	cmd := &cobra.Command{
		Use:   "regions",
		Short: "Render an item image with its target region outlined",
		Long: `Draws the authored target region over an item image, mapped exactly as the
console maps clicks, and writes the result as PNG. Use it to check region
data and the side view calibration before publishing items.`,
		Example: `  xray-cbt regions --image bag7_top.png --region '{"x":120,"y":80,"w":60,"h":40}'
  xray-cbt regions --image /images/bag7_side.png --view side \
    --region '{"side":{"x":120,"z":95,"w":60,"h":40}}' --scale 2 --out side.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			view := item.Top
			switch viewName {
			case "top":
			case "side":
				view = item.Side
			default:
				return fmt.Errorf("unknown view %q (want top or side)", viewName)
			}

			regions, err := region.Parse([]byte(regionJS))
			if err != nil {
				return err
			}
			reg := regions.Top
			if view == item.Side {
				reg = regions.Side
			}
			if reg == nil {
				return fmt.Errorf("region has no %s view", view)
			}

			client, err := supplier.NewClient(cfg.Supplier.BaseURL, cfg.Supplier.Token, cfg.Supplier.Timeout)
			if err != nil {
				return err
			}
			img, err := client.Image(cmd.Context(), imageRef)
			if err != nil {
				return err
			}

			opts := viewport.DefaultOptions()
			opts.MinZoom, opts.MaxZoom = cfg.Viewport.MinZoom, cfg.Viewport.MaxZoom
			opts.Width = int(float64(img.Bounds().Dx()) * scale)
			opts.Height = int(float64(img.Bounds().Dy()) * scale)
			if view == item.Side {
				opts.CalibrationY = cfg.Viewport.SideCalibrationY
			}

			r := viewport.New(opts)
			r.SetImage(img)
			r.SetScale(scale)
			r.SetDebugRegion(reg)
			r.Draw()

			if out == "" {
				base := filepath.Base(imageRef)
				out = base[:len(base)-len(filepath.Ext(base))] + "_region.png"
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer f.Close()
			if err := png.Encode(f, r.Snapshot()); err != nil {
				return fmt.Errorf("failed to encode PNG: %w", err)
			}
			slog.Info("Region overlay written", "out", out, "view", view,
				"bounds", reg.Bounds(), "screen", r.ScreenBounds(reg))
			return nil
		},
	}

	cmd.Flags().StringVarP(&imageRef, "image", "i", "", "Image path or URL (relative URLs resolve against the supplier)")
	cmd.Flags().StringVarP(&regionJS, "region", "r", "", "Target region JSON in any supported form")
	cmd.Flags().StringVar(&viewName, "view", "top", "View the image belongs to (top or side)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG (default <image>_region.png)")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Zoom factor to render at")
	_ = cmd.MarkFlagRequired("image")
	_ = cmd.MarkFlagRequired("region")

	return cmd
}
