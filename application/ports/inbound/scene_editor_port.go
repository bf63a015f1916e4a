package inbound

import (
	"context"

	"video-sequence-api/domain"
)

type SceneParams struct {
	Prompt string
	Model  string
	Config domain.SceneConfig
}

type CreateSequenceParams struct {
	UserID      string
	Title       string
	Description string
	Scenes      []SceneParams
}

type UpdateSequenceParams struct {
	Title       *string
	Description *string
}

type UpdateSceneParams struct {
	Prompt *string
	Model  *string
	Config *domain.SceneConfig
}

// SceneEditorPort owns the synchronous, non-generation mutations of a
// sequence. Every operation re-reads the sequence, enforces the scene-count
// and prompt bounds, recomputes derived fields, and persists the result.
type SceneEditorPort interface {
	CreateSequence(ctx context.Context, params CreateSequenceParams) (*domain.Sequence, error)
	GetSequence(ctx context.Context, sequenceID string) (*domain.Sequence, error)
	ListSequences(ctx context.Context, userID string, limit int) ([]domain.Sequence, error)
	UpdateSequence(ctx context.Context, sequenceID string, params UpdateSequenceParams) (*domain.Sequence, error)
	DeleteSequence(ctx context.Context, sequenceID string) error
	AddScene(ctx context.Context, sequenceID string, params SceneParams) (*domain.Sequence, error)
	UpdateScene(ctx context.Context, sequenceID string, sceneNumber int, params UpdateSceneParams) (*domain.Sequence, error)
	DeleteScene(ctx context.Context, sequenceID string, sceneNumber int) (*domain.Sequence, error)
	// ReorderScenes takes the existing scene numbers in their desired new
	// order and renumbers the scenes to match.
	ReorderScenes(ctx context.Context, sequenceID string, order []int) (*domain.Sequence, error)
}
