package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/menta2k/better-cover/internal/config"
	"github.com/menta2k/better-cover/internal/utils"
	"github.com/menta2k/better-cover/pkg/client"
	"github.com/menta2k/better-cover/pkg/detection"
	"github.com/menta2k/better-cover/pkg/llamacpp"
	"github.com/menta2k/better-cover/pkg/ollama"
	"github.com/menta2k/better-cover/pkg/processing"
	"github.com/menta2k/better-cover/pkg/types"
	"github.com/menta2k/better-cover/pkg/vision"
)

// newDetector builds the focus detector for backend from the vision section
// of cfg
func newDetector(cfg *config.Config, backend string, logger *log.Logger) (detection.FocusDetector, error) {
	var visionClient client.VisionClient

	switch backend {
	case "saliency":
		return vision.NewWithConfig(vision.DetectionConfig{MinSubjectRatio: cfg.Vision.MinSubjectRatio}), nil
	case "ollama":
		c, err := ollama.NewClient(cfg.Vision.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create Ollama client: %w", err)
		}
		visionClient = c
	case "llamacpp":
		visionClient = llamacpp.NewClient(cfg.Vision.URL)
	default:
		return nil, fmt.Errorf("unknown backend: %s (use saliency, ollama or llamacpp)", backend)
	}

	logger.Debug("using vision model", "backend", backend, "url", cfg.Vision.URL, "model", cfg.Vision.Model)
	return detection.NewDetector(visionClient, detection.Options{
		Model:         cfg.Vision.Model,
		SendFormat:    cfg.Vision.SendFormat,
		SendSize:      cfg.Vision.SendSize,
		SendQuality:   cfg.Vision.SendQuality,
		MinConfidence: cfg.Vision.MinConfidence,
	}, logger), nil
}

type detectOpts struct {
	backend string
	image   string // optional 1x size the zone is expressed in
}

// detectionResult is one line of detect output
type detectionResult struct {
	File      string           `json:"file"`
	Size      types.Size       `json:"size"`
	FocusZone *types.Rectangle `json:"focusZone,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// newDetectCmd creates the detect command. Its argument is an image file, a
// URL or a directory of images.
func newDetectCmd() *cobra.Command {
	var opts detectOpts

	cmd := &cobra.Command{
		Use:   "detect <image|url|dir>",
		Short: "Find the focus zone of images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "detector: saliency, ollama or llamacpp (default from config)")
	cmd.Flags().StringVar(&opts.image, "image", "", "report zones for this 1x size W,H (default: pixel size)")

	return cmd
}

func runDetect(cmd *cobra.Command, in string, opts detectOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)

	backend := opts.backend
	if backend == "" {
		backend = cfg.Vision.Backend
	}
	detector, err := newDetector(cfg, backend, logger)
	if err != nil {
		return err
	}

	var size *types.Size
	if opts.image != "" {
		s, err := parseSize(opts.image)
		if err != nil {
			return err
		}
		size = &s
	}

	files := []string{in}
	if utils.DirExists(in) {
		if files, err = utils.ListImageFiles(in); err != nil {
			return fmt.Errorf("failed to list images: %w", err)
		}
		logger.Info("detecting focus zones", "dir", in, "images", len(files))
	}

	processor := processing.NewProcessor()
	enc := json.NewEncoder(cmd.OutOrStdout())
	failed := 0
	for _, file := range files {
		res := detectOne(ctx, processor, detector, file, size)
		if res.Error != "" {
			failed++
			logger.Warn("detection failed", "file", file, "err", res.Error)
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}

	if failed == len(files) && failed > 0 {
		return fmt.Errorf("detection failed for all %d images", failed)
	}
	return nil
}

func detectOne(ctx context.Context, processor *processing.Processor, detector detection.FocusDetector, file string, size *types.Size) detectionResult {
	res := detectionResult{File: file}

	img, err := processor.LoadImageSmart(file)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	if size != nil {
		res.Size = *size
	} else {
		b := img.Bounds()
		res.Size = types.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	}

	zone, err := detector.DetectFocusZone(ctx, img, res.Size)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.FocusZone = &zone
	return res
}
