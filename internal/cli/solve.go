package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	bettercover "github.com/menta2k/better-cover"
	"github.com/menta2k/better-cover/pkg/types"
)

type solveOpts struct {
	cover  string // cover zone, X,Y,W,H or W,H
	target string // target zone, defaults to the cover zone
	image  string // image 1x size, W,H
	focus  string // focus zone, defaults to the whole image
}

// newSolveCmd creates the solve command, which prints the transform for one
// image as JSON
func newSolveCmd() *cobra.Command {
	var opts solveOpts

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Compute the cover transform for an image",
		Example: `  better-cover solve --cover 400,300 --image 1600,1200 --focus 600,200,400,400
  better-cover solve --cover 390x300 --target 20,20,350,260 --image 1000x1500 --focus 300,200,400,500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coverZone, targetZone, size, focus, err := opts.parse()
			if err != nil {
				return err
			}

			cfg := configFromContext(cmd.Context())
			engine := bettercover.New(
				bettercover.WithSearchOptions(cfg.Solver),
				bettercover.WithLogger(loggerFromContext(cmd.Context())),
			)
			res := engine.Solve(coverZone, targetZone, size, focus)
			if !res.Feasible {
				loggerFromContext(cmd.Context()).Warn("focus zone cannot be kept inside target zone, using centered cover")
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&opts.cover, "cover", "", "cover zone: X,Y,W,H or W,H (required)")
	cmd.Flags().StringVar(&opts.target, "target", "", "target zone: X,Y,W,H (default: cover zone)")
	cmd.Flags().StringVar(&opts.image, "image", "", "image size at 1x: W,H (required)")
	cmd.Flags().StringVar(&opts.focus, "focus", "", "focus zone in image pixels: X,Y,W,H (default: whole image)")
	_ = cmd.MarkFlagRequired("cover")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func (o solveOpts) parse() (coverZone, targetZone types.Rectangle, size types.Size, focus types.Rectangle, err error) {
	if coverZone, err = parseRect(o.cover); err != nil {
		return
	}
	if size, err = parseSize(o.image); err != nil {
		return
	}
	if size.Width <= 0 || size.Height <= 0 {
		err = fmt.Errorf("image size must be positive, got %gx%g", size.Width, size.Height)
		return
	}
	if coverZone.Width <= 0 || coverZone.Height <= 0 {
		err = fmt.Errorf("cover zone size must be positive, got %gx%g", coverZone.Width, coverZone.Height)
		return
	}

	targetZone = coverZone
	if o.target != "" {
		if targetZone, err = parseRect(o.target); err != nil {
			return
		}
	}

	focus = types.Rectangle{Width: size.Width, Height: size.Height}
	if o.focus != "" {
		focus, err = parseRect(o.focus)
	}
	return
}
