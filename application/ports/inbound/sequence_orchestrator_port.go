package inbound

import (
	"context"

	"video-sequence-api/domain"
)

type SceneOutcome string

const (
	SceneOutcomeCompleted SceneOutcome = "completed"
	SceneOutcomeSkipped   SceneOutcome = "skipped"
	SceneOutcomeFailed    SceneOutcome = "failed"
)

type SceneReport struct {
	SceneNumber int          `json:"sceneNumber"`
	Outcome     SceneOutcome `json:"outcome"`
	Error       string       `json:"error,omitempty"`
}

// BatchResult is the whole-sequence generation report: one entry per scene
// the batch driver reached, alongside the refreshed sequence. It is distinct
// from an error so callers can render partial progress.
type BatchResult struct {
	Sequence  *domain.Sequence `json:"sequence"`
	Reports   []SceneReport    `json:"reports"`
	Cancelled bool             `json:"cancelled,omitempty"`
}

type SequenceOrchestratorPort interface {
	GenerateScene(ctx context.Context, sequenceID string, sceneNumber int) (*domain.Sequence, error)
	GenerateAllScenes(ctx context.Context, sequenceID string) (*BatchResult, error)
	CancelGeneration(ctx context.Context, sequenceID string) (*domain.Sequence, error)
	ExportSequence(ctx context.Context, sequenceID string) (*domain.Sequence, error)
}
