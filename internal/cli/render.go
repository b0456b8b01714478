package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	bettercover "github.com/menta2k/better-cover"
	"github.com/menta2k/better-cover/internal/utils"
	"github.com/menta2k/better-cover/pkg/processing"
	"github.com/menta2k/better-cover/pkg/source"
)

// renderOpts holds the command-line flags for the render command
type renderOpts struct {
	output   string  // output file, default derived from the input name
	cover    string  // cover zone, X,Y,W,H or W,H
	target   string  // target zone, defaults to the cover zone
	image    string  // image 1x size, defaults to the pixel size
	focus    string  // focus zone in 1x image pixels
	detect   string  // backend used when no focus zone is given
	density  float64 // output pixel density
	format   string  // jpg, png or webp
	quality  int     // jpg/webp quality
	lossless bool    // lossless webp
	debug    bool    // draw target and focus zones
}

// newRenderCmd creates the render command, which writes the part of an image
// visible inside the cover zone
func newRenderCmd() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render <image|url>",
		Short: "Render an image covering a zone",
		Example: `  better-cover render photo.jpg --cover 1200,630 --focus 800,300,600,500
  better-cover render photo.webp --cover 400,400 --target 40,40,320,320 --detect saliency --debug`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if !cmd.Flags().Changed("density") {
				opts.density = cfg.Output.Density
			}
			if opts.format == "" {
				opts.format = cfg.Output.Format
			}
			if !cmd.Flags().Changed("quality") {
				opts.quality = cfg.Output.Quality
			}
			if !cmd.Flags().Changed("lossless") {
				opts.lossless = cfg.Output.Lossless
			}
			return runRender(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <dir>/<name><suffix>.<format> from config)")
	cmd.Flags().StringVar(&opts.cover, "cover", "", "cover zone: X,Y,W,H or W,H (required)")
	cmd.Flags().StringVar(&opts.target, "target", "", "target zone: X,Y,W,H (default: cover zone)")
	cmd.Flags().StringVar(&opts.image, "image", "", "image size at 1x: W,H (default: pixel size)")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "focus zone in 1x image pixels: X,Y,W,H")
	cmd.Flags().StringVar(&opts.detect, "detect", "", "detect the focus zone: saliency, ollama or llamacpp")
	cmd.Flags().Float64Var(&opts.density, "density", 1, "output pixel density")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: jpg, png, webp (default from config)")
	cmd.Flags().IntVar(&opts.quality, "quality", 85, "jpg/webp quality (1-100)")
	cmd.Flags().BoolVar(&opts.lossless, "lossless", false, "lossless webp")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "draw the target zone and focus zone on the output")
	cmd.MarkFlagsMutuallyExclusive("focus", "detect")
	_ = cmd.MarkFlagRequired("cover")

	return cmd
}

func runRender(cmd *cobra.Command, in string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)
	prog := newProgress(logger)

	coverZone, err := parseRect(opts.cover)
	if err != nil {
		return err
	}
	targetZone := coverZone
	if opts.target != "" {
		if targetZone, err = parseRect(opts.target); err != nil {
			return err
		}
	}

	src := source.Source{Src: in}
	if opts.image != "" {
		if src.Size, err = parseSize(opts.image); err != nil {
			return err
		}
	}
	if src.FocusZone, err = optionalRect(opts.focus); err != nil {
		return err
	}

	engineOpts := []bettercover.Option{
		bettercover.WithSearchOptions(cfg.Solver),
		bettercover.WithLogger(logger),
	}
	if opts.detect != "" {
		detector, err := newDetector(cfg, opts.detect, logger)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, bettercover.WithDetector(detector))
	}
	engine := bettercover.New(engineOpts...)

	processor := processing.NewProcessor()
	img, err := processor.LoadImageSmart(in)
	if err != nil {
		return err
	}

	out, err := engine.Render(ctx, img, src, coverZone, targetZone, bettercover.RenderOptions{
		Density: opts.density,
		Debug:   opts.debug,
	})
	if err != nil {
		return err
	}
	if !out.Result.Feasible {
		logger.Warn("focus zone cannot be kept inside target zone, using centered cover")
	}

	path := opts.output
	if path == "" {
		path = utils.OutputPath(in, cfg.Output.Dir, cfg.Output.Suffix, opts.format)
	}
	if err := utils.EnsureParentDir(path); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := processor.SaveImage(out.Image, path, opts.format, opts.quality, opts.lossless); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	logger.Debug("transform",
		"x", out.Result.X,
		"y", out.Result.Y,
		"scale", out.Result.Scale,
		"min_cover_scale", out.Result.MinCoverScale,
		"focus", out.FocusZone)
	prog.done(fmt.Sprintf("Wrote %s (%s)", path, utils.FormatFileSize(size)))
	return nil
}
