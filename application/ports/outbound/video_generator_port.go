package outbound

import "context"

type GenerateVideoRequest struct {
	Prompt          string
	Model           string
	AspectRatio     string
	Resolution      string
	DurationSeconds int
	// ReferenceImageURL, when set, conditions the generation on an image so
	// the clip visually continues from it. Empty means pure text-to-video.
	ReferenceImageURL string
	// ForceMock overrides the client configuration for this call only.
	ForceMock bool
}

type GenerateVideoResponse struct {
	VideoURL             string
	Format               string
	ActualCost           float64
	GenerationTimeMillis int64
}

type VideoGeneratorPort interface {
	Generate(ctx context.Context, req GenerateVideoRequest) (*GenerateVideoResponse, error)
	EstimateCost(model string, durationSeconds int) (float64, error)
	// Healthy reports whether the client can generate (credentials present
	// or mock mode active) without making a network call.
	Healthy() bool
}
