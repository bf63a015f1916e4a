package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"video-sequence-api/application/ports/inbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"
	"video-sequence-api/infrastructure/adapters"
)

func testSequenceConfig() *config.SequenceConfig {
	return &config.SequenceConfig{MinScenes: 2, MaxScenes: 12}
}

func testScene(sceneNumber int) domain.Scene {
	prompt := fmt.Sprintf("a slow pan across the harbor, shot %d of the commercial", sceneNumber)
	return domain.NewScene(prompt, "fast", domain.SceneConfig{
		AspectRatio: "16:9",
		Resolution:  "1080p",
		Duration:    8,
	}, sceneNumber)
}

func storedSequence(t *testing.T, repository *memorySequenceRepository, sceneCount int) *domain.Sequence {
	t.Helper()

	sequence := &domain.Sequence{
		ID:     "seq-test",
		UserID: "user-1",
		Title:  "Harbor commercial",
		Status: domain.SequenceDraft,
	}
	for i := 1; i <= sceneCount; i++ {
		sequence.Scenes = append(sequence.Scenes, testScene(i))
	}
	sequence.Recalculate()

	if err := repository.Save(context.Background(), sequence); err != nil {
		t.Fatal("Failed to seed sequence:", err)
	}
	return sequence
}

func newTestOrchestrator(repository *memorySequenceRepository, generator *fakeVideoGenerator,
	processor *fakeVideoProcessor, store *fakeMediaStore) inbound.SequenceOrchestratorPort {
	logger := adapters.NewZerologWrapper()
	continuity := NewContinuityPublisher(logger, processor, store)
	return NewSequenceOrchestrator(logger, repository, generator, processor, store, continuity, testSequenceConfig())
}

func TestGenerateAllScenes_PropagatesContinuity(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 2)

	result, err := orchestrator.GenerateAllScenes(context.Background(), "seq-test")
	if err != nil {
		t.Fatal("GenerateAllScenes failed:", err)
	}

	if len(generator.requests) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(generator.requests))
	}
	if generator.requests[0].ReferenceImageURL != "" {
		t.Errorf("scene 1 must not carry a reference image, got %q", generator.requests[0].ReferenceImageURL)
	}
	wantFrame := "https://store.local/frames/seq-test_scene1_lastframe.jpg"
	if generator.requests[1].ReferenceImageURL != wantFrame {
		t.Errorf("scene 2 reference = %q, want %q", generator.requests[1].ReferenceImageURL, wantFrame)
	}

	if len(result.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(result.Reports))
	}
	for i, report := range result.Reports {
		if report.Outcome != inbound.SceneOutcomeCompleted {
			t.Errorf("report %d outcome = %q, want completed", i, report.Outcome)
		}
	}

	if result.Sequence.Status != domain.SequenceDraft {
		t.Errorf("sequence status = %q, want draft", result.Sequence.Status)
	}
	for _, scene := range result.Sequence.Scenes {
		if scene.Status != domain.SceneCompleted {
			t.Errorf("scene %d status = %q, want completed", scene.SceneNumber, scene.Status)
		}
		if scene.Cost.Actual != 1.20 {
			t.Errorf("scene %d actual cost = %v, want 1.20", scene.SceneNumber, scene.Cost.Actual)
		}
	}
	if result.Sequence.TotalCost.Actual != 2.40 {
		t.Errorf("total actual cost = %v, want 2.40", result.Sequence.TotalCost.Actual)
	}
}

func TestGenerateScene_ProceedsWithoutContinuityWhenPriorFailed(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 2)
	repository.mutate("seq-test", func(sequence *domain.Sequence) {
		scene := sequence.SceneByNumber(1)
		scene.Status = domain.SceneFailed
		scene.Error = &domain.SceneFailure{Code: "API_ERROR", Message: "backend exploded"}
	})

	sequence, err := orchestrator.GenerateScene(context.Background(), "seq-test", 2)
	if err != nil {
		t.Fatal("GenerateScene must not fail on missing continuity:", err)
	}

	if len(generator.requests) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(generator.requests))
	}
	if generator.requests[0].ReferenceImageURL != "" {
		t.Errorf("scene 2 must omit the reference when scene 1 failed, got %q", generator.requests[0].ReferenceImageURL)
	}
	if scene := sequence.SceneByNumber(2); scene.Status != domain.SceneCompleted {
		t.Errorf("scene 2 status = %q, want completed", scene.Status)
	}
}

func TestGenerateAllScenes_StopsOnFirstFailure(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	generator.failOnCall[2] = &domain.APIError{Message: "model overloaded"}
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 3)

	result, err := orchestrator.GenerateAllScenes(context.Background(), "seq-test")
	if err != nil {
		t.Fatal("GenerateAllScenes failed:", err)
	}

	if len(result.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d: %v", len(result.Reports), result.Reports)
	}
	if result.Reports[0].Outcome != inbound.SceneOutcomeCompleted {
		t.Errorf("scene 1 outcome = %q, want completed", result.Reports[0].Outcome)
	}
	if result.Reports[1].Outcome != inbound.SceneOutcomeFailed {
		t.Errorf("scene 2 outcome = %q, want failed", result.Reports[1].Outcome)
	}

	scene2 := result.Sequence.SceneByNumber(2)
	if scene2.Status != domain.SceneFailed {
		t.Errorf("scene 2 status = %q, want failed", scene2.Status)
	}
	if scene2.Error == nil || scene2.Error.Code != "API_ERROR" {
		t.Errorf("scene 2 error = %+v, want API_ERROR", scene2.Error)
	}
	if scene3 := result.Sequence.SceneByNumber(3); scene3.Status != domain.ScenePending {
		t.Errorf("scene 3 status = %q, want pending (untouched)", scene3.Status)
	}
}

func TestGenerateAllScenes_SkipsCompletedScenes(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 2)
	repository.mutate("seq-test", func(sequence *domain.Sequence) {
		scene := sequence.SceneByNumber(1)
		scene.Status = domain.SceneCompleted
		scene.Result = &domain.SceneResult{
			VideoURL:     "https://videos.local/existing.mp4",
			LastFrameURL: "https://store.local/frames/existing.jpg",
			Format:       "mp4",
		}
	})

	result, err := orchestrator.GenerateAllScenes(context.Background(), "seq-test")
	if err != nil {
		t.Fatal("GenerateAllScenes failed:", err)
	}

	if result.Reports[0].Outcome != inbound.SceneOutcomeSkipped {
		t.Errorf("scene 1 outcome = %q, want skipped", result.Reports[0].Outcome)
	}
	if len(generator.requests) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(generator.requests))
	}
	if got := generator.requests[0].ReferenceImageURL; got != "https://store.local/frames/existing.jpg" {
		t.Errorf("scene 2 must continue from the existing frame, got %q", got)
	}
}

func TestGenerateAllScenes_EnforcesMinimumSceneCount(t *testing.T) {
	repository := newMemorySequenceRepository()
	orchestrator := newTestOrchestrator(repository, newFakeVideoGenerator(), &fakeVideoProcessor{}, &fakeMediaStore{})

	storedSequence(t, repository, 1)

	_, err := orchestrator.GenerateAllScenes(context.Background(), "seq-test")
	var sequenceErr *domain.SequenceError
	if !errors.As(err, &sequenceErr) || sequenceErr.Code != domain.SequenceValidation {
		t.Fatalf("expected VALIDATION_ERROR SequenceError, got %v", err)
	}
}

func TestGenerateAllScenes_CancelBetweenScenes(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	generator.afterCall = func(callNumber int) {
		if callNumber == 1 {
			repository.mutate("seq-test", func(sequence *domain.Sequence) {
				sequence.CancelRequested = true
			})
		}
	}
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 3)

	result, err := orchestrator.GenerateAllScenes(context.Background(), "seq-test")
	if err != nil {
		t.Fatal("GenerateAllScenes failed:", err)
	}

	if !result.Cancelled {
		t.Fatal("expected the batch to report cancellation")
	}
	if len(result.Reports) != 1 || result.Reports[0].Outcome != inbound.SceneOutcomeCompleted {
		t.Fatalf("unexpected reports: %v", result.Reports)
	}
	if result.Sequence.Status != domain.SequenceDraft {
		t.Errorf("sequence status = %q, want draft", result.Sequence.Status)
	}
	if result.Sequence.CancelRequested {
		t.Error("cancel flag must be cleared once honored")
	}
	for _, sceneNumber := range []int{2, 3} {
		if scene := result.Sequence.SceneByNumber(sceneNumber); scene.Status != domain.ScenePending {
			t.Errorf("scene %d status = %q, want pending", sceneNumber, scene.Status)
		}
	}
}

func TestGenerateScene_ToleratesContinuityFrameFailure(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	processor := &fakeVideoProcessor{
		extractErr: &domain.FFmpegError{Code: domain.FFmpegFrameExtraction, Message: "no keyframe"},
	}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, generator, processor, store)

	storedSequence(t, repository, 2)

	sequence, err := orchestrator.GenerateScene(context.Background(), "seq-test", 1)
	if err != nil {
		t.Fatal("frame extraction failure must not fail the scene:", err)
	}

	scene := sequence.SceneByNumber(1)
	if scene.Status != domain.SceneCompleted {
		t.Errorf("scene 1 status = %q, want completed", scene.Status)
	}
	if scene.Result.LastFrameURL != "" {
		t.Errorf("scene 1 lastFrameUrl = %q, want empty", scene.Result.LastFrameURL)
	}
}

func TestGenerateScene_PersistsFailureState(t *testing.T) {
	repository := newMemorySequenceRepository()
	generator := newFakeVideoGenerator()
	generator.failOnCall[1] = &domain.APIError{StatusCode: 500, Message: "backend exploded"}
	orchestrator := newTestOrchestrator(repository, generator, &fakeVideoProcessor{}, &fakeMediaStore{})

	storedSequence(t, repository, 2)

	_, err := orchestrator.GenerateScene(context.Background(), "seq-test", 1)
	if err == nil {
		t.Fatal("expected the generation error to propagate")
	}

	stored, loadErr := repository.Load(context.Background(), "seq-test")
	if loadErr != nil {
		t.Fatal("Failed to reload sequence:", loadErr)
	}
	scene := stored.SceneByNumber(1)
	if scene.Status != domain.SceneFailed {
		t.Errorf("scene 1 status = %q, want failed", scene.Status)
	}
	if scene.Error == nil || scene.Error.Code != "API_ERROR" {
		t.Fatalf("scene 1 error = %+v, want API_ERROR", scene.Error)
	}
	if scene.Error.Message != err.Error() {
		t.Errorf("scene error message %q must preserve the cause %q", scene.Error.Message, err.Error())
	}
}

func TestExportSequence_RequiresAllScenesCompleted(t *testing.T) {
	repository := newMemorySequenceRepository()
	processor := &fakeVideoProcessor{}
	orchestrator := newTestOrchestrator(repository, newFakeVideoGenerator(), processor, &fakeMediaStore{})

	storedSequence(t, repository, 3)
	repository.mutate("seq-test", func(sequence *domain.Sequence) {
		scene := sequence.SceneByNumber(1)
		scene.Status = domain.SceneCompleted
		scene.Result = &domain.SceneResult{VideoURL: "https://videos.local/clip-01.mp4", Format: "mp4"}
	})

	_, err := orchestrator.ExportSequence(context.Background(), "seq-test")
	var sequenceErr *domain.SequenceError
	if !errors.As(err, &sequenceErr) {
		t.Fatalf("expected SequenceError, got %v", err)
	}
	if len(sequenceErr.SceneNumbers) != 2 || sequenceErr.SceneNumbers[0] != 2 || sequenceErr.SceneNumbers[1] != 3 {
		t.Errorf("offending scenes = %v, want [2 3]", sequenceErr.SceneNumbers)
	}
	if len(processor.combineCalls) != 0 {
		t.Error("combine must not run when scenes are incomplete")
	}
}

func TestExportSequence_CombinesInSceneNumberOrder(t *testing.T) {
	repository := newMemorySequenceRepository()
	processor := &fakeVideoProcessor{}
	store := &fakeMediaStore{}
	orchestrator := newTestOrchestrator(repository, newFakeVideoGenerator(), processor, store)

	storedSequence(t, repository, 3)
	// Scenes completed out of declared order, e.g. scene 2 regenerated last.
	repository.mutate("seq-test", func(sequence *domain.Sequence) {
		for _, sceneNumber := range []int{3, 1, 2} {
			scene := sequence.SceneByNumber(sceneNumber)
			scene.Status = domain.SceneCompleted
			scene.Result = &domain.SceneResult{
				VideoURL: fmt.Sprintf("https://videos.local/scene-%d.mp4", sceneNumber),
				Format:   "mp4",
			}
		}
	})

	sequence, err := orchestrator.ExportSequence(context.Background(), "seq-test")
	if err != nil {
		t.Fatal("ExportSequence failed:", err)
	}

	if len(processor.combineCalls) != 1 {
		t.Fatalf("expected 1 combine call, got %d", len(processor.combineCalls))
	}
	want := []string{
		"https://videos.local/scene-1.mp4",
		"https://videos.local/scene-2.mp4",
		"https://videos.local/scene-3.mp4",
	}
	for i, url := range processor.combineCalls[0] {
		if url != want[i] {
			t.Errorf("combine input %d = %q, want %q", i, url, want[i])
		}
	}

	if sequence.Status != domain.SequenceExported {
		t.Errorf("sequence status = %q, want exported", sequence.Status)
	}
	if sequence.Export == nil {
		t.Fatal("export result missing")
	}
	if sequence.Export.FinalVideoURL != "https://store.local/videos/combined_seq-test.mp4" {
		t.Errorf("final video url = %q", sequence.Export.FinalVideoURL)
	}
	if sequence.Export.CombinedDurationSeconds != 24 {
		t.Errorf("combined duration = %d, want 24", sequence.Export.CombinedDurationSeconds)
	}
}

func TestExportSequence_FailureMarksSequenceFailed(t *testing.T) {
	repository := newMemorySequenceRepository()
	processor := &fakeVideoProcessor{
		combineErr: &domain.FFmpegError{Code: domain.FFmpegCombination, Message: "mismatched codecs"},
	}
	orchestrator := newTestOrchestrator(repository, newFakeVideoGenerator(), processor, &fakeMediaStore{})

	storedSequence(t, repository, 2)
	repository.mutate("seq-test", func(sequence *domain.Sequence) {
		for i := range sequence.Scenes {
			sequence.Scenes[i].Status = domain.SceneCompleted
			sequence.Scenes[i].Result = &domain.SceneResult{
				VideoURL: fmt.Sprintf("https://videos.local/scene-%d.mp4", i+1),
				Format:   "mp4",
			}
		}
	})

	_, err := orchestrator.ExportSequence(context.Background(), "seq-test")
	var sequenceErr *domain.SequenceError
	if !errors.As(err, &sequenceErr) || sequenceErr.Code != domain.SequenceExportError {
		t.Fatalf("expected EXPORT_ERROR SequenceError, got %v", err)
	}

	var ffmpegErr *domain.FFmpegError
	if !errors.As(err, &ffmpegErr) {
		t.Error("the underlying processor error must stay attached")
	}

	stored, loadErr := repository.Load(context.Background(), "seq-test")
	if loadErr != nil {
		t.Fatal("Failed to reload sequence:", loadErr)
	}
	if stored.Status != domain.SequenceFailed {
		t.Errorf("sequence status = %q, want failed", stored.Status)
	}
	if stored.Export != nil {
		t.Error("a failed export must not leave a final video reference")
	}
}
