package services

import (
	"context"
	"fmt"
	"time"

	"video-sequence-api/application/ports/inbound"
	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"

	"github.com/google/uuid"
)

type sceneEditor struct {
	logger     outbound.LoggerPort
	repository outbound.SequenceRepositoryPort
	mediaStore outbound.MediaStorePort
	cfg        *config.SequenceConfig
}

func NewSceneEditor(logger outbound.LoggerPort, repository outbound.SequenceRepositoryPort,
	mediaStore outbound.MediaStorePort, cfg *config.SequenceConfig) inbound.SceneEditorPort {
	return &sceneEditor{
		logger:     logger,
		repository: repository,
		mediaStore: mediaStore,
		cfg:        cfg,
	}
}

func (e *sceneEditor) CreateSequence(ctx context.Context, params inbound.CreateSequenceParams) (*domain.Sequence, error) {
	if params.UserID == "" || params.Title == "" {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceValidation,
			Message: "userId and title are required",
		}
	}
	if len(params.Scenes) > e.cfg.MaxScenes {
		return nil, e.sceneCountError(len(params.Scenes))
	}

	for i, sceneParams := range params.Scenes {
		if err := e.validateSceneParams(sceneParams, i+1); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	sequence := &domain.Sequence{
		ID:          uuid.NewString(),
		UserID:      params.UserID,
		Title:       params.Title,
		Description: params.Description,
		Status:      domain.SequenceDraft,
		Scenes:      make([]domain.Scene, 0, len(params.Scenes)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, sceneParams := range params.Scenes {
		sequence.Scenes = append(sequence.Scenes, domain.NewScene(sceneParams.Prompt, sceneParams.Model, sceneParams.Config, i+1))
	}
	sequence.Recalculate()

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}

	e.logger.InfoWithFields("Sequence created", map[string]interface{}{
		"sequence_id": sequence.ID,
		"scenes":      len(sequence.Scenes),
	})

	return sequence, nil
}

func (e *sceneEditor) GetSequence(ctx context.Context, sequenceID string) (*domain.Sequence, error) {
	return e.repository.Load(ctx, sequenceID)
}

func (e *sceneEditor) ListSequences(ctx context.Context, userID string, limit int) ([]domain.Sequence, error) {
	return e.repository.List(ctx, userID, limit)
}

func (e *sceneEditor) UpdateSequence(ctx context.Context, sequenceID string, params inbound.UpdateSequenceParams) (*domain.Sequence, error) {
	sequence, err := e.loadMutable(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		if *params.Title == "" {
			return nil, &domain.SequenceError{
				Code:    domain.SequenceValidation,
				Message: "title must not be empty",
			}
		}
		sequence.Title = *params.Title
	}
	if params.Description != nil {
		sequence.Description = *params.Description
	}

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

func (e *sceneEditor) DeleteSequence(ctx context.Context, sequenceID string) error {
	if _, err := e.repository.Load(ctx, sequenceID); err != nil {
		return err
	}
	if err := e.repository.DeleteAll(ctx, sequenceID); err != nil {
		return err
	}

	// Asset cleanup is best-effort once the record is gone.
	for _, prefix := range []string{"frames/" + sequenceID, "videos/combined_" + sequenceID} {
		deleted, err := e.mediaStore.DeleteByPrefix(ctx, prefix)
		if err != nil {
			e.logger.ErrorWithFields(err, "Failed to delete sequence assets", map[string]interface{}{
				"sequence_id": sequenceID,
				"prefix":      prefix,
			})
			continue
		}
		e.logger.DebugWithFields("Deleted sequence assets", map[string]interface{}{
			"sequence_id": sequenceID,
			"prefix":      prefix,
			"count":       deleted,
		})
	}

	return nil
}

func (e *sceneEditor) AddScene(ctx context.Context, sequenceID string, params inbound.SceneParams) (*domain.Sequence, error) {
	sequence, err := e.loadMutable(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	if len(sequence.Scenes)+1 > e.cfg.MaxScenes {
		return nil, e.sceneCountError(len(sequence.Scenes) + 1)
	}
	if err := e.validateSceneParams(params, len(sequence.Scenes)+1); err != nil {
		return nil, err
	}

	sequence.Scenes = append(sequence.Scenes, domain.NewScene(params.Prompt, params.Model, params.Config, len(sequence.Scenes)+1))
	sequence.Recalculate()

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

func (e *sceneEditor) UpdateScene(ctx context.Context, sequenceID string, sceneNumber int, params inbound.UpdateSceneParams) (*domain.Sequence, error) {
	sequence, err := e.loadMutable(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	scene := sequence.SceneByNumber(sceneNumber)
	if scene == nil {
		return nil, e.sceneNotFoundError(sequenceID, sceneNumber)
	}

	updated := *scene
	if params.Prompt != nil {
		updated.Prompt = *params.Prompt
	}
	if params.Model != nil {
		updated.Model = *params.Model
	}
	if params.Config != nil {
		updated.Config = *params.Config
	}

	violations := domain.ValidateSceneInput(updated.Prompt, updated.Model, updated.Config)
	if len(violations) > 0 {
		return nil, &domain.SequenceError{
			Code:         domain.SequenceValidation,
			Message:      fmt.Sprintf("invalid scene %d: %v", sceneNumber, violations),
			SceneNumbers: []int{sceneNumber},
		}
	}

	*scene = updated
	sequence.Recalculate()

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

func (e *sceneEditor) DeleteScene(ctx context.Context, sequenceID string, sceneNumber int) (*domain.Sequence, error) {
	sequence, err := e.loadMutable(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	index := -1
	for i := range sequence.Scenes {
		if sequence.Scenes[i].SceneNumber == sceneNumber {
			index = i
			break
		}
	}
	if index < 0 {
		return nil, e.sceneNotFoundError(sequenceID, sceneNumber)
	}

	sequence.Scenes = append(sequence.Scenes[:index], sequence.Scenes[index+1:]...)
	sequence.Recalculate()

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

func (e *sceneEditor) ReorderScenes(ctx context.Context, sequenceID string, order []int) (*domain.Sequence, error) {
	sequence, err := e.loadMutable(ctx, sequenceID)
	if err != nil {
		return nil, err
	}

	if len(order) != len(sequence.Scenes) {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceValidation,
			Message: fmt.Sprintf("reorder must list all %d scenes, got %d", len(sequence.Scenes), len(order)),
		}
	}

	reordered := make([]domain.Scene, 0, len(order))
	seen := make(map[int]bool, len(order))
	for _, sceneNumber := range order {
		scene := sequence.SceneByNumber(sceneNumber)
		if scene == nil || seen[sceneNumber] {
			return nil, &domain.SequenceError{
				Code:    domain.SequenceValidation,
				Message: fmt.Sprintf("reorder must be a permutation of the existing scene numbers, got %v", order),
			}
		}
		seen[sceneNumber] = true
		reordered = append(reordered, *scene)
	}

	sequence.Scenes = reordered
	sequence.Recalculate()

	if err := e.repository.Save(ctx, sequence); err != nil {
		return nil, err
	}
	return sequence, nil
}

// loadMutable re-reads the sequence and refuses mutation while a generation
// or export is running on it.
func (e *sceneEditor) loadMutable(ctx context.Context, sequenceID string) (*domain.Sequence, error) {
	sequence, err := e.repository.Load(ctx, sequenceID)
	if err != nil {
		return nil, err
	}
	if sequence.Status == domain.SequenceGenerating || sequence.Status == domain.SequenceExporting {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceConflict,
			Message: fmt.Sprintf("sequence %s is busy (%s)", sequenceID, sequence.Status),
		}
	}
	return sequence, nil
}

func (e *sceneEditor) validateSceneParams(params inbound.SceneParams, sceneNumber int) error {
	violations := domain.ValidateSceneInput(params.Prompt, params.Model, params.Config)
	if len(violations) == 0 {
		return nil
	}
	return &domain.SequenceError{
		Code:         domain.SequenceValidation,
		Message:      fmt.Sprintf("invalid scene %d: %v", sceneNumber, violations),
		SceneNumbers: []int{sceneNumber},
	}
}

func (e *sceneEditor) sceneCountError(count int) error {
	return &domain.SequenceError{
		Code:    domain.SequenceValidation,
		Message: fmt.Sprintf("a sequence holds between %d and %d scenes, got %d", e.cfg.MinScenes, e.cfg.MaxScenes, count),
	}
}

func (e *sceneEditor) sceneNotFoundError(sequenceID string, sceneNumber int) error {
	return &domain.SequenceError{
		Code:         domain.SequenceNotFound,
		Message:      fmt.Sprintf("scene %d not found in sequence %s", sceneNumber, sequenceID),
		SceneNumbers: []int{sceneNumber},
	}
}
