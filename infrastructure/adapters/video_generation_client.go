package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"
	"video-sequence-api/retry_utils"

	"github.com/google/uuid"
)

const mockGenerationDelay = 200 * time.Millisecond

type submitJobRequest struct {
	Prompt          string `json:"prompt"`
	Model           string `json:"model"`
	AspectRatio     string `json:"aspect_ratio"`
	Resolution      string `json:"resolution"`
	DurationSeconds int    `json:"duration_seconds"`
	ReferenceImage  string `json:"reference_image,omitempty"`
}

type submitJobResponse struct {
	JobID string `json:"job_id"`
}

type jobStatusResponse struct {
	Status   string  `json:"status"`
	VideoURL string  `json:"video_url"`
	Format   string  `json:"format"`
	Cost     float64 `json:"cost"`
	Error    string  `json:"error"`
}

type videoGenerationClient struct {
	logger  outbound.LoggerPort
	cfg     *config.GenerationConfig
	client  *http.Client
	backoff retry_utils.Backoff
}

func NewVideoGenerationClient(cfg *config.GenerationConfig, logger outbound.LoggerPort) outbound.VideoGeneratorPort {
	return &videoGenerationClient{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{},
		backoff: retry_utils.Backoff{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBase,
			MaxDelay:    cfg.RetryMax,
		},
	}
}

func (g *videoGenerationClient) EstimateCost(model string, durationSeconds int) (float64, error) {
	price, ok := domain.PricePerSecond(model)
	if !ok {
		return 0, &domain.ValidationError{Violations: []string{fmt.Sprintf("unknown model %q", model)}}
	}
	return domain.RoundCost(float64(durationSeconds) * price), nil
}

func (g *videoGenerationClient) Healthy() bool {
	return g.cfg.MockMode || g.cfg.ApiKey != ""
}

func (g *videoGenerationClient) Generate(ctx context.Context, req outbound.GenerateVideoRequest) (*outbound.GenerateVideoResponse, error) {
	violations := domain.ValidateSceneInput(req.Prompt, req.Model, domain.SceneConfig{
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		Duration:    req.DurationSeconds,
	})
	if len(violations) > 0 {
		return nil, &domain.ValidationError{Violations: violations}
	}

	estimate, err := g.EstimateCost(req.Model, req.DurationSeconds)
	if err != nil {
		return nil, err
	}
	if g.cfg.MaxCostPerCall > 0 && estimate > g.cfg.MaxCostPerCall {
		return nil, &domain.ValidationError{Violations: []string{
			fmt.Sprintf("estimated cost %.2f exceeds the configured ceiling %.2f", estimate, g.cfg.MaxCostPerCall),
		}}
	}

	if g.cfg.MockMode || req.ForceMock {
		return g.mockGenerate(ctx, estimate)
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var jobID string
	err = g.backoff.Do(callCtx, func() error {
		id, submitErr := g.submit(callCtx, req)
		if submitErr != nil {
			return submitErr
		}
		jobID = id
		return nil
	})
	if err != nil {
		return nil, g.asGenerationError(err)
	}

	status, err := g.poll(callCtx, jobID)
	if err != nil {
		return nil, g.asGenerationError(err)
	}

	return &outbound.GenerateVideoResponse{
		VideoURL:             status.VideoURL,
		Format:               status.Format,
		ActualCost:           domain.RoundCost(status.Cost),
		GenerationTimeMillis: time.Since(start).Milliseconds(),
	}, nil
}

// submit posts the generation job. Backend 4xx responses are marked
// permanent so the retry wrapper does not replay them.
func (g *videoGenerationClient) submit(ctx context.Context, req outbound.GenerateVideoRequest) (string, error) {
	payload, err := json.Marshal(submitJobRequest{
		Prompt:          req.Prompt,
		Model:           req.Model,
		AspectRatio:     req.AspectRatio,
		Resolution:      req.Resolution,
		DurationSeconds: req.DurationSeconds,
		ReferenceImage:  req.ReferenceImageURL,
	})
	if err != nil {
		return "", retry_utils.Permanent(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.ApiUrl+"/v1/generations", bytes.NewBuffer(payload))
	if err != nil {
		return "", retry_utils.Permanent(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.ApiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error(err, "Failed to submit generation job")
		return "", err
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			g.logger.Error(closeErr, "Failed to close submit response body")
		}
	}()

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(res.Body)
		apiErr := &domain.APIError{StatusCode: res.StatusCode, Message: string(body)}
		g.logger.ErrorWithFields(apiErr, "Generation backend rejected the job", map[string]interface{}{
			"status": res.StatusCode,
		})
		if res.StatusCode >= 400 && res.StatusCode < 500 {
			return "", retry_utils.Permanent(apiErr)
		}
		return "", apiErr
	}

	var submitted submitJobResponse
	if err := json.NewDecoder(res.Body).Decode(&submitted); err != nil {
		return "", err
	}
	if submitted.JobID == "" {
		return "", &domain.APIError{Message: "backend returned no job id"}
	}

	return submitted.JobID, nil
}

// poll checks the job on a fixed interval until it reaches a terminal
// status. The poll loop itself is not retried; transient poll errors are
// absorbed and the next tick tries again.
func (g *videoGenerationClient) poll(ctx context.Context, jobID string) (*jobStatusResponse, error) {
	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := g.fetchStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.WarnWithFields("Poll attempt failed, will try again", map[string]interface{}{
				"job_id": jobID,
				"error":  err.Error(),
			})
			continue
		}

		switch status.Status {
		case "completed":
			return status, nil
		case "failed", "cancelled":
			message := status.Error
			if message == "" {
				message = "generation " + status.Status
			}
			return nil, &domain.APIError{Message: message}
		}
	}
}

func (g *videoGenerationClient) fetchStatus(ctx context.Context, jobID string) (*jobStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.ApiUrl+"/v1/generations/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.ApiKey)

	res, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			g.logger.Error(closeErr, "Failed to close poll response body")
		}
	}()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, &domain.APIError{StatusCode: res.StatusCode, Message: string(body)}
	}

	var status jobStatusResponse
	if err := json.NewDecoder(res.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (g *videoGenerationClient) mockGenerate(ctx context.Context, estimate float64) (*outbound.GenerateVideoResponse, error) {
	select {
	case <-time.After(mockGenerationDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &outbound.GenerateVideoResponse{
		VideoURL:             fmt.Sprintf("https://mock-generation.local/videos/%s.mp4", uuid.NewString()),
		Format:               "mp4",
		ActualCost:           estimate,
		GenerationTimeMillis: mockGenerationDelay.Milliseconds(),
	}, nil
}

func (g *videoGenerationClient) asGenerationError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.TimeoutError{Operation: "video generation", Limit: g.cfg.Timeout}
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &domain.APIError{Message: err.Error()}
}
