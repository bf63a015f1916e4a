package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video-sequence-api/application/ports/inbound"
	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"
)

type sequenceOrchestrator struct {
	logger     outbound.LoggerPort
	repository outbound.SequenceRepositoryPort
	generator  outbound.VideoGeneratorPort
	processor  outbound.VideoProcessorPort
	mediaStore outbound.MediaStorePort
	continuity inbound.ContinuityPublisherPort
	cfg        *config.SequenceConfig
}

func NewSequenceOrchestrator(logger outbound.LoggerPort, repository outbound.SequenceRepositoryPort,
	generator outbound.VideoGeneratorPort, processor outbound.VideoProcessorPort,
	mediaStore outbound.MediaStorePort, continuity inbound.ContinuityPublisherPort,
	cfg *config.SequenceConfig) inbound.SequenceOrchestratorPort {
	return &sequenceOrchestrator{
		logger:     logger,
		repository: repository,
		generator:  generator,
		processor:  processor,
		mediaStore: mediaStore,
		continuity: continuity,
		cfg:        cfg,
	}
}

func (o *sequenceOrchestrator) GenerateScene(ctx context.Context, sequenceID string, sceneNumber int) (*domain.Sequence, error) {
	sequence, err := o.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	scene := sequence.SceneByNumber(sceneNumber)
	if scene == nil {
		return nil, &domain.SequenceError{
			Code:         domain.SequenceNotFound,
			Message:      fmt.Sprintf("scene %d not found in sequence %s", sceneNumber, sequenceID),
			SceneNumbers: []int{sceneNumber},
		}
	}

	request := outbound.GenerateVideoRequest{
		Prompt:          scene.Prompt,
		Model:           scene.Model,
		AspectRatio:     scene.Config.AspectRatio,
		Resolution:      scene.Config.Resolution,
		DurationSeconds: scene.Config.Duration,
	}
	request.ReferenceImageURL = o.continuityReference(sequence, scene)

	// Persist the generating state before dispatch so a crash mid-call
	// leaves an observable state instead of reverting to pending.
	if _, err := o.patchScene(ctx, sequenceID, sceneNumber, func(s *domain.Scene) {
		s.Status = domain.SceneGenerating
		s.Error = nil
	}); err != nil {
		return nil, err
	}

	response, genErr := o.generator.Generate(ctx, request)
	if genErr != nil {
		if _, saveErr := o.patchScene(ctx, sequenceID, sceneNumber, func(s *domain.Scene) {
			s.Status = domain.SceneFailed
			s.Error = &domain.SceneFailure{
				Code:    generationErrorCode(genErr),
				Message: genErr.Error(),
			}
		}); saveErr != nil {
			o.logger.ErrorWithFields(saveErr, "Failed to record scene failure", map[string]interface{}{
				"sequence_id":  sequenceID,
				"scene_number": sceneNumber,
			})
		}
		return nil, genErr
	}

	scene.Status = domain.SceneCompleted
	scene.Result = &domain.SceneResult{
		VideoURL: response.VideoURL,
		Format:   response.Format,
	}

	// Continuity is a quality enhancement, not a correctness requirement:
	// a frame that cannot be published never fails the scene.
	frameURL, frameErr := o.continuity.PublishLastFrame(ctx, sequenceID, scene)
	if frameErr != nil {
		o.logger.WarnWithFields("Continuity frame unavailable, next scene will generate without it", map[string]interface{}{
			"sequence_id":  sequenceID,
			"scene_number": sceneNumber,
			"error":        frameErr.Error(),
		})
	}

	sequence, err = o.patchScene(ctx, sequenceID, sceneNumber, func(s *domain.Scene) {
		s.Status = domain.SceneCompleted
		s.Result = &domain.SceneResult{
			VideoURL:     response.VideoURL,
			LastFrameURL: frameURL,
			Format:       response.Format,
		}
		s.Cost.Actual = response.ActualCost
		s.Error = nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.InfoWithFields("Scene generated", map[string]interface{}{
		"sequence_id":        sequenceID,
		"scene_number":       sceneNumber,
		"generation_time_ms": response.GenerationTimeMillis,
		"actual_cost":        response.ActualCost,
	})

	return sequence, nil
}

// patchScene applies a mutation to one scene against the freshest stored
// state, so a concurrent write (a cancel flag, a title edit) is never lost.
// A single version conflict is absorbed by reloading and reapplying.
func (o *sequenceOrchestrator) patchScene(ctx context.Context, sequenceID string, sceneNumber int,
	apply func(*domain.Scene)) (*domain.Sequence, error) {
	for attempt := 0; ; attempt++ {
		sequence, err := o.repository.Load(ctx, sequenceID)
		if err != nil {
			return nil, err
		}

		scene := sequence.SceneByNumber(sceneNumber)
		if scene == nil {
			return nil, &domain.SequenceError{
				Code:         domain.SequenceNotFound,
				Message:      fmt.Sprintf("scene %d not found in sequence %s", sceneNumber, sequenceID),
				SceneNumbers: []int{sceneNumber},
			}
		}

		apply(scene)
		sequence.Recalculate()

		err = o.repository.Save(ctx, sequence)
		if err == nil {
			return sequence, nil
		}
		var sequenceErr *domain.SequenceError
		if attempt == 0 && errors.As(err, &sequenceErr) && sequenceErr.Code == domain.SequenceConflict {
			continue
		}
		return nil, err
	}
}

// continuityReference resolves the frame the scene should continue from.
// A missing or unusable prior frame degrades to plain text-to-video.
func (o *sequenceOrchestrator) continuityReference(sequence *domain.Sequence, scene *domain.Scene) string {
	if !scene.Continuity.UsesLastFrame {
		return ""
	}

	previous := sequence.SceneByNumber(scene.Continuity.FromSceneNumber)
	if previous == nil || previous.Status != domain.SceneCompleted ||
		previous.Result == nil || previous.Result.LastFrameURL == "" {
		o.logger.DebugWithFields("No usable continuity frame, proceeding without one", map[string]interface{}{
			"sequence_id":  sequence.ID,
			"scene_number": scene.SceneNumber,
			"from_scene":   scene.Continuity.FromSceneNumber,
		})
		return ""
	}

	return previous.Result.LastFrameURL
}

func (o *sequenceOrchestrator) GenerateAllScenes(ctx context.Context, sequenceID string) (*inbound.BatchResult, error) {
	sequence, err := o.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	if len(sequence.Scenes) < o.cfg.MinScenes {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceValidation,
			Message: fmt.Sprintf("generation needs at least %d scenes, got %d", o.cfg.MinScenes, len(sequence.Scenes)),
		}
	}

	sequence.Status = domain.SequenceGenerating
	if err := o.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}

	var reports []inbound.SceneReport

	// Strictly ascending scene numbers: scene N's continuity frame comes
	// from scene N-1, so the order is a hard data dependency.
	for sceneNumber := 1; ; sceneNumber++ {
		fresh, err := o.repository.Load(ctx, sequenceID)
		if err != nil {
			return nil, err
		}

		if fresh.CancelRequested {
			fresh.Status = domain.SequenceDraft
			fresh.CancelRequested = false
			if err := o.repository.Save(ctx, fresh); err != nil {
				return nil, err
			}
			o.logger.InfoWithFields("Generation cancelled, remaining scenes left pending", map[string]interface{}{
				"sequence_id":     sequenceID,
				"next_scene":      sceneNumber,
				"scenes_reported": len(reports),
			})
			return &inbound.BatchResult{Sequence: fresh, Reports: reports, Cancelled: true}, nil
		}

		if sceneNumber > len(fresh.Scenes) {
			break
		}

		scene := fresh.SceneByNumber(sceneNumber)
		if scene.Status == domain.SceneCompleted {
			reports = append(reports, inbound.SceneReport{
				SceneNumber: sceneNumber,
				Outcome:     inbound.SceneOutcomeSkipped,
			})
			continue
		}

		if _, err := o.GenerateScene(ctx, sequenceID, sceneNumber); err != nil {
			reports = append(reports, inbound.SceneReport{
				SceneNumber: sceneNumber,
				Outcome:     inbound.SceneOutcomeFailed,
				Error:       err.Error(),
			})
			// Stop on first failure; later scenes stay untouched.
			break
		}

		reports = append(reports, inbound.SceneReport{
			SceneNumber: sceneNumber,
			Outcome:     inbound.SceneOutcomeCompleted,
		})
	}

	final, err := o.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if final.Status == domain.SequenceGenerating {
		final.Status = domain.SequenceDraft
		if err := o.repository.Save(ctx, final); err != nil {
			return nil, err
		}
	}

	return &inbound.BatchResult{Sequence: final, Reports: reports}, nil
}

func (o *sequenceOrchestrator) CancelGeneration(ctx context.Context, sequenceID string) (*domain.Sequence, error) {
	sequence, err := o.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	// The current scene's generation has no cancellation hook; the flag is
	// honored between scenes by the batch driver.
	sequence.CancelRequested = true
	if err := o.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}

	return sequence, nil
}

func (o *sequenceOrchestrator) ExportSequence(ctx context.Context, sequenceID string) (*domain.Sequence, error) {
	sequence, err := o.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	if len(sequence.Scenes) == 0 {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceValidation,
			Message: "sequence has no scenes to export",
		}
	}
	if incomplete := sequence.IncompleteSceneNumbers(); len(incomplete) > 0 {
		return nil, &domain.SequenceError{
			Code:         domain.SequenceValidation,
			Message:      "export requires every scene to be completed",
			SceneNumbers: incomplete,
		}
	}

	sequence.Status = domain.SequenceExporting
	sequence.Export = nil
	if err := o.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}

	videoURLs := o.orderedVideoURLs(sequence)

	combinedPath, err := o.processor.CombineVideos(ctx, videoURLs)
	if err != nil {
		return nil, o.failExport(ctx, sequence, err)
	}

	// The store removes the local combined file after the upload, and the
	// deferred cleanup inside Upload covers the failure paths too.
	uploaded, err := o.mediaStore.Upload(ctx, outbound.UploadMediaRequest{
		LocalPath:   combinedPath,
		Key:         fmt.Sprintf("videos/combined_%s.mp4", sequenceID),
		ContentType: "video/mp4",
		Metadata: map[string]string{
			"sequence_id": sequenceID,
		},
	})
	if err != nil {
		return nil, o.failExport(ctx, sequence, err)
	}

	// Declared per-scene durations are authoritative for billing and
	// reporting; the output file is not re-measured.
	sequence.Status = domain.SequenceExported
	sequence.Export = &domain.ExportResult{
		FinalVideoURL:           uploaded.PublicURL,
		CombinedDurationSeconds: sequence.TotalDuration,
		ExportedAt:              time.Now().UTC(),
	}
	if err := o.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}

	o.logger.InfoWithFields("Sequence exported", map[string]interface{}{
		"sequence_id":       sequenceID,
		"final_video_url":   uploaded.PublicURL,
		"combined_duration": sequence.TotalDuration,
		"scenes":            len(sequence.Scenes),
	})

	return sequence, nil
}

// orderedVideoURLs collects scene clips in sceneNumber order even if the
// stored order ever diverges.
func (o *sequenceOrchestrator) orderedVideoURLs(sequence *domain.Sequence) []string {
	urls := make([]string, 0, len(sequence.Scenes))
	for sceneNumber := 1; sceneNumber <= len(sequence.Scenes); sceneNumber++ {
		scene := sequence.SceneByNumber(sceneNumber)
		if scene != nil && scene.Result != nil {
			urls = append(urls, scene.Result.VideoURL)
		}
	}
	return urls
}

func (o *sequenceOrchestrator) failExport(ctx context.Context, sequence *domain.Sequence, cause error) error {
	sequence.Status = domain.SequenceFailed
	sequence.Export = nil
	if err := o.repository.Save(ctx, sequence); err != nil {
		o.logger.ErrorWithFields(err, "Failed to record export failure", map[string]interface{}{
			"sequence_id": sequence.ID,
		})
	}

	return &domain.SequenceError{
		Code:    domain.SequenceExportError,
		Message: "failed to export sequence " + sequence.ID,
		Cause:   cause,
	}
}

func generationErrorCode(err error) string {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return "VALIDATION_ERROR"
	}
	var timeoutErr *domain.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "TIMEOUT"
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return "API_ERROR"
	}
	return "GENERATION_ERROR"
}
