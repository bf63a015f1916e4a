package services

import (
	"context"
	"fmt"
	"strconv"

	"video-sequence-api/application/ports/inbound"
	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/domain"
)

type continuityPublisher struct {
	logger     outbound.LoggerPort
	processor  outbound.VideoProcessorPort
	mediaStore outbound.MediaStorePort
}

func NewContinuityPublisher(logger outbound.LoggerPort, processor outbound.VideoProcessorPort,
	mediaStore outbound.MediaStorePort) inbound.ContinuityPublisherPort {
	return &continuityPublisher{
		logger:     logger,
		processor:  processor,
		mediaStore: mediaStore,
	}
}

func (p *continuityPublisher) PublishLastFrame(ctx context.Context, sequenceID string, scene *domain.Scene) (string, error) {
	if scene.Result == nil || scene.Result.VideoURL == "" {
		return "", &domain.SequenceError{
			Code:         domain.SequenceFrameExtraction,
			Message:      fmt.Sprintf("scene %d has no video to extract a frame from", scene.SceneNumber),
			SceneNumbers: []int{scene.SceneNumber},
		}
	}

	framePath, err := p.processor.ExtractLastFrame(ctx, scene.Result.VideoURL)
	if err != nil {
		return "", &domain.SequenceError{
			Code:         domain.SequenceFrameExtraction,
			Message:      fmt.Sprintf("failed to extract continuity frame for scene %d", scene.SceneNumber),
			SceneNumbers: []int{scene.SceneNumber},
			Cause:        err,
		}
	}

	// The media store removes the local frame file once uploaded.
	uploaded, err := p.mediaStore.Upload(ctx, outbound.UploadMediaRequest{
		LocalPath:   framePath,
		Key:         fmt.Sprintf("frames/%s_scene%d_lastframe.jpg", sequenceID, scene.SceneNumber),
		ContentType: "image/jpeg",
		Metadata: map[string]string{
			"sequence_id":  sequenceID,
			"scene_number": strconv.Itoa(scene.SceneNumber),
		},
	})
	if err != nil {
		return "", &domain.SequenceError{
			Code:         domain.SequenceFrameExtraction,
			Message:      fmt.Sprintf("failed to publish continuity frame for scene %d", scene.SceneNumber),
			SceneNumbers: []int{scene.SceneNumber},
			Cause:        err,
		}
	}

	p.logger.DebugWithFields("Continuity frame published", map[string]interface{}{
		"sequence_id":  sequenceID,
		"scene_number": scene.SceneNumber,
		"frame_url":    uploaded.PublicURL,
	})

	return uploaded.PublicURL, nil
}
