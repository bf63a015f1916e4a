package outbound

import (
	"context"

	"video-sequence-api/domain"
)

// SequenceRepositoryPort is the persistence collaborator backing sequences.
// The orchestrator treats it as authoritative and re-reads before every
// mutating operation. Save performs an optimistic version check and fails
// with a CONFLICT SequenceError when the stored version has moved on.
type SequenceRepositoryPort interface {
	Load(ctx context.Context, sequenceID string) (*domain.Sequence, error)
	Save(ctx context.Context, sequence *domain.Sequence) error
	List(ctx context.Context, userID string, limit int) ([]domain.Sequence, error)
	DeleteAll(ctx context.Context, sequenceID string) error
}
