package inbound

import (
	"context"

	"video-sequence-api/domain"
)

// ContinuityPublisherPort extracts the last frame of a completed scene's
// video and publishes it so the next scene can continue from it.
type ContinuityPublisherPort interface {
	PublishLastFrame(ctx context.Context, sequenceID string, scene *domain.Scene) (string, error)
}
