package client

import (
	"context"

	"github.com/menta2k/better-cover/pkg/types"
)

// VisionClient asks a vision model to locate the main subject of an image
type VisionClient interface {
	AnalyzeImage(ctx context.Context, model, prompt, imgB64 string) (*types.AnalysisResult, error)
}
