package domain

import (
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

type SequenceStatus string

const (
	SequenceDraft      SequenceStatus = "draft"
	SequenceGenerating SequenceStatus = "generating"
	SequenceExporting  SequenceStatus = "exporting"
	SequenceExported   SequenceStatus = "exported"
	SequenceFailed     SequenceStatus = "failed"
)

type SceneStatus string

const (
	ScenePending    SceneStatus = "pending"
	SceneGenerating SceneStatus = "generating"
	SceneCompleted  SceneStatus = "completed"
	SceneFailed     SceneStatus = "failed"
)

const (
	MinPromptLength = 10
	MaxPromptLength = 2000

	CostCurrency = "USD"
)

var modelPricePerSecond = map[string]float64{
	"fast":     0.15,
	"standard": 0.40,
	"premium":  0.80,
}

var allowedDurations = map[int]bool{4: true, 8: true}

var allowedAspectRatios = map[string]bool{"16:9": true, "9:16": true, "1:1": true}

var allowedResolutions = map[string]bool{"720p": true, "1080p": true}

func PricePerSecond(model string) (float64, bool) {
	price, ok := modelPricePerSecond[model]
	return price, ok
}

func RoundCost(cost float64) float64 {
	return math.Round(cost*100) / 100
}

// ValidateSceneInput checks a scene's generation parameters and returns the
// list of violated rules, empty when the input is valid. It is shared by the
// scene editor (write time) and the generation client (dispatch time).
func ValidateSceneInput(prompt string, model string, config SceneConfig) []string {
	var violations []string

	promptLen := utf8.RuneCountInString(prompt)
	if promptLen < MinPromptLength || promptLen > MaxPromptLength {
		violations = append(violations, fmt.Sprintf("prompt must be between %d and %d characters, got %d", MinPromptLength, MaxPromptLength, promptLen))
	}
	if _, ok := modelPricePerSecond[model]; !ok {
		violations = append(violations, fmt.Sprintf("unknown model %q", model))
	}
	if !allowedAspectRatios[config.AspectRatio] {
		violations = append(violations, fmt.Sprintf("unsupported aspect ratio %q", config.AspectRatio))
	}
	if !allowedResolutions[config.Resolution] {
		violations = append(violations, fmt.Sprintf("unsupported resolution %q", config.Resolution))
	}
	if !allowedDurations[config.Duration] {
		violations = append(violations, fmt.Sprintf("unsupported duration %d seconds", config.Duration))
	}

	return violations
}

type Cost struct {
	Estimated float64 `json:"estimated"`
	Actual    float64 `json:"actual"`
	Currency  string  `json:"currency"`
}

type SceneConfig struct {
	AspectRatio string `json:"aspectRatio"`
	Resolution  string `json:"resolution"`
	Duration    int    `json:"duration"`
}

type Continuity struct {
	UsesLastFrame   bool `json:"usesLastFrame"`
	FromSceneNumber int  `json:"fromSceneNumber,omitempty"`
}

type SceneResult struct {
	VideoURL     string `json:"videoUrl"`
	LastFrameURL string `json:"lastFrameUrl,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Format       string `json:"format"`
	FileSize     int64  `json:"fileSize,omitempty"`
}

type SceneFailure struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Scene struct {
	SceneNumber int           `json:"sceneNumber"`
	Prompt      string        `json:"prompt"`
	Model       string        `json:"model"`
	Config      SceneConfig   `json:"config"`
	Status      SceneStatus   `json:"status"`
	Continuity  Continuity    `json:"continuity"`
	Result      *SceneResult  `json:"result,omitempty"`
	Cost        Cost          `json:"cost"`
	Error       *SceneFailure `json:"error,omitempty"`
}

func NewScene(prompt string, model string, config SceneConfig, sceneNumber int) Scene {
	price := modelPricePerSecond[model]
	scene := Scene{
		SceneNumber: sceneNumber,
		Prompt:      prompt,
		Model:       model,
		Config:      config,
		Status:      ScenePending,
		Cost: Cost{
			Estimated: RoundCost(float64(config.Duration) * price),
			Currency:  CostCurrency,
		},
	}
	scene.Continuity = continuityFor(sceneNumber)
	return scene
}

func continuityFor(sceneNumber int) Continuity {
	if sceneNumber > 1 {
		return Continuity{UsesLastFrame: true, FromSceneNumber: sceneNumber - 1}
	}
	return Continuity{}
}

type ExportResult struct {
	FinalVideoURL           string    `json:"finalVideoUrl"`
	CombinedDurationSeconds int       `json:"combinedDurationSeconds"`
	ExportedAt              time.Time `json:"exportedAt"`
}

type Sequence struct {
	ID              string         `json:"sequenceId"`
	UserID          string         `json:"userId"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Status          SequenceStatus `json:"status"`
	Scenes          []Scene        `json:"scenes"`
	TotalCost       Cost           `json:"totalCost"`
	TotalDuration   int            `json:"totalDuration"`
	Export          *ExportResult  `json:"export,omitempty"`
	CancelRequested bool           `json:"cancelRequested,omitempty"`
	Version         int64          `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Recalculate restores the derived parts of a sequence after any mutation:
// contiguous 1-based scene numbers, continuity flags, estimated price per
// scene, and the cost/duration totals.
func (s *Sequence) Recalculate() {
	totalCost := Cost{Currency: CostCurrency}
	totalDuration := 0

	for i := range s.Scenes {
		scene := &s.Scenes[i]
		scene.SceneNumber = i + 1
		scene.Continuity = continuityFor(scene.SceneNumber)
		if price, ok := modelPricePerSecond[scene.Model]; ok {
			scene.Cost.Estimated = RoundCost(float64(scene.Config.Duration) * price)
		}
		scene.Cost.Currency = CostCurrency

		totalCost.Estimated = RoundCost(totalCost.Estimated + scene.Cost.Estimated)
		totalCost.Actual = RoundCost(totalCost.Actual + scene.Cost.Actual)
		totalDuration += scene.Config.Duration
	}

	s.TotalCost = totalCost
	s.TotalDuration = totalDuration
}

func (s *Sequence) SceneByNumber(sceneNumber int) *Scene {
	for i := range s.Scenes {
		if s.Scenes[i].SceneNumber == sceneNumber {
			return &s.Scenes[i]
		}
	}
	return nil
}

// IncompleteSceneNumbers lists the scenes that block an export.
func (s *Sequence) IncompleteSceneNumbers() []int {
	var incomplete []int
	for i := range s.Scenes {
		if s.Scenes[i].Status != SceneCompleted {
			incomplete = append(incomplete, s.Scenes[i].SceneNumber)
		}
	}
	return incomplete
}
