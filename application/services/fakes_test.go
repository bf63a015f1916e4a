package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/domain"
)

type memorySequenceRepository struct {
	mu     sync.Mutex
	stored map[string]*domain.Sequence
}

func newMemorySequenceRepository() *memorySequenceRepository {
	return &memorySequenceRepository{stored: make(map[string]*domain.Sequence)}
}

func copySequence(sequence *domain.Sequence) *domain.Sequence {
	raw, err := json.Marshal(sequence)
	if err != nil {
		panic(err)
	}
	var copied domain.Sequence
	if err := json.Unmarshal(raw, &copied); err != nil {
		panic(err)
	}
	return &copied
}

func (r *memorySequenceRepository) Load(_ context.Context, sequenceID string) (*domain.Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sequence, ok := r.stored[sequenceID]
	if !ok {
		return nil, &domain.SequenceError{Code: domain.SequenceNotFound, Message: "sequence " + sequenceID + " not found"}
	}
	return copySequence(sequence), nil
}

func (r *memorySequenceRepository) Save(_ context.Context, sequence *domain.Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.stored[sequence.ID]; ok && current.Version != sequence.Version {
		return &domain.SequenceError{Code: domain.SequenceConflict, Message: "sequence " + sequence.ID + " was modified concurrently"}
	}
	sequence.Version++
	r.stored[sequence.ID] = copySequence(sequence)
	return nil
}

func (r *memorySequenceRepository) List(_ context.Context, userID string, limit int) ([]domain.Sequence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sequences []domain.Sequence
	for _, sequence := range r.stored {
		if sequence.UserID == userID {
			sequences = append(sequences, *copySequence(sequence))
		}
		if limit > 0 && len(sequences) == limit {
			break
		}
	}
	return sequences, nil
}

func (r *memorySequenceRepository) DeleteAll(_ context.Context, sequenceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stored, sequenceID)
	return nil
}

// mutate applies fn to the stored sequence directly, bypassing the version
// check, the way a concurrent caller would between two orchestrator reads.
func (r *memorySequenceRepository) mutate(sequenceID string, fn func(*domain.Sequence)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sequence, ok := r.stored[sequenceID]; ok {
		fn(sequence)
		sequence.Version++
	}
}

type fakeVideoGenerator struct {
	mu         sync.Mutex
	requests   []outbound.GenerateVideoRequest
	failOnCall map[int]error
	afterCall  func(callNumber int)
	actualCost float64
}

func newFakeVideoGenerator() *fakeVideoGenerator {
	return &fakeVideoGenerator{failOnCall: make(map[int]error), actualCost: 1.20}
}

func (g *fakeVideoGenerator) Generate(_ context.Context, req outbound.GenerateVideoRequest) (*outbound.GenerateVideoResponse, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	callNumber := len(g.requests)
	err := g.failOnCall[callNumber]
	after := g.afterCall
	g.mu.Unlock()

	if after != nil {
		defer after(callNumber)
	}
	if err != nil {
		return nil, err
	}

	return &outbound.GenerateVideoResponse{
		VideoURL:             fmt.Sprintf("https://videos.local/clip-%02d.mp4", callNumber),
		Format:               "mp4",
		ActualCost:           g.actualCost,
		GenerationTimeMillis: 1500,
	}, nil
}

func (g *fakeVideoGenerator) EstimateCost(model string, durationSeconds int) (float64, error) {
	price, ok := domain.PricePerSecond(model)
	if !ok {
		return 0, &domain.ValidationError{Violations: []string{"unknown model " + model}}
	}
	return domain.RoundCost(float64(durationSeconds) * price), nil
}

func (g *fakeVideoGenerator) Healthy() bool {
	return true
}

type fakeVideoProcessor struct {
	mu           sync.Mutex
	extractCalls []string
	combineCalls [][]string
	extractErr   error
	combineErr   error
}

func (p *fakeVideoProcessor) ExtractLastFrame(_ context.Context, videoURL string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.extractCalls = append(p.extractCalls, videoURL)
	if p.extractErr != nil {
		return "", p.extractErr
	}
	return fmt.Sprintf("/tmp/frame-%02d.jpg", len(p.extractCalls)), nil
}

func (p *fakeVideoProcessor) CombineVideos(_ context.Context, videoURLs []string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	combined := make([]string, len(videoURLs))
	copy(combined, videoURLs)
	p.combineCalls = append(p.combineCalls, combined)
	if p.combineErr != nil {
		return "", p.combineErr
	}
	return "/tmp/combined.mp4", nil
}

func (p *fakeVideoProcessor) GetMetadata(_ context.Context, _ string) (*outbound.VideoMetadata, error) {
	return &outbound.VideoMetadata{DurationSeconds: 8, Width: 1920, Height: 1080, Format: "mp4"}, nil
}

type fakeMediaStore struct {
	mu        sync.Mutex
	uploads   []outbound.UploadMediaRequest
	uploadErr error
	deleted   []string
}

func (s *fakeMediaStore) Upload(_ context.Context, req outbound.UploadMediaRequest) (*outbound.UploadMediaResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	s.uploads = append(s.uploads, req)
	return &outbound.UploadMediaResponse{PublicURL: "https://store.local/" + req.Key}, nil
}

func (s *fakeMediaStore) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, prefix)
	return 0, nil
}
