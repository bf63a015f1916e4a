package controllers

import (
	"context"
	"net/http"
	"strconv"

	"video-sequence-api/application/ports/inbound"
	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/domain"
	"video-sequence-api/infrastructure/gin_interface/dto"

	"github.com/gin-gonic/gin"
)

type SequenceController interface {
	RegisterRoutes(g *gin.Engine)
}

type sequenceController struct {
	logger       outbound.LoggerPort
	workerPool   outbound.TaskDispatcher
	editor       inbound.SceneEditorPort
	orchestrator inbound.SequenceOrchestratorPort
}

func NewSequenceController(logger outbound.LoggerPort, workerPool outbound.TaskDispatcher,
	editor inbound.SceneEditorPort, orchestrator inbound.SequenceOrchestratorPort) SequenceController {
	return &sequenceController{
		logger:       logger,
		workerPool:   workerPool,
		editor:       editor,
		orchestrator: orchestrator,
	}
}

func (s *sequenceController) RegisterRoutes(g *gin.Engine) {
	g.POST("/sequences", s.createSequence)
	g.GET("/sequences", s.listSequences)
	g.GET("/sequences/:id", s.getSequence)
	g.PATCH("/sequences/:id", s.updateSequence)
	g.DELETE("/sequences/:id", s.deleteSequence)

	g.POST("/sequences/:id/scenes", s.addScene)
	g.PATCH("/sequences/:id/scenes/:sceneNumber", s.updateScene)
	g.DELETE("/sequences/:id/scenes/:sceneNumber", s.deleteScene)
	g.POST("/sequences/:id/scenes/reorder", s.reorderScenes)

	g.POST("/sequences/:id/scenes/:sceneNumber/generate", s.generateScene)
	g.POST("/sequences/:id/generate", s.generateAllScenes)
	g.GET("/sequences/:id/status", s.generationStatus)
	g.POST("/sequences/:id/cancel", s.cancelGeneration)
	g.POST("/sequences/:id/export", s.exportSequence)
}

func (s *sequenceController) createSequence(c *gin.Context) {
	var request dto.CreateSequenceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: err.Error()})
		return
	}

	params := inbound.CreateSequenceParams{
		UserID:      request.UserID,
		Title:       request.Title,
		Description: request.Description,
	}
	for _, scene := range request.Scenes {
		params.Scenes = append(params.Scenes, sceneParamsFrom(scene))
	}

	sequence, err := s.editor.CreateSequence(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sequence)
}

func (s *sequenceController) listSequences(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: "userId query parameter is required"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: "limit must be an integer"})
			return
		}
		limit = parsed
	}

	sequences, err := s.editor.ListSequences(c.Request.Context(), userID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequences)
}

func (s *sequenceController) getSequence(c *gin.Context) {
	sequence, err := s.editor.GetSequence(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) updateSequence(c *gin.Context) {
	var request dto.UpdateSequenceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: err.Error()})
		return
	}

	sequence, err := s.editor.UpdateSequence(c.Request.Context(), c.Param("id"), inbound.UpdateSequenceParams{
		Title:       request.Title,
		Description: request.Description,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) deleteSequence(c *gin.Context) {
	if err := s.editor.DeleteSequence(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *sequenceController) addScene(c *gin.Context) {
	var request dto.SceneRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: err.Error()})
		return
	}

	sequence, err := s.editor.AddScene(c.Request.Context(), c.Param("id"), sceneParamsFrom(request))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) updateScene(c *gin.Context) {
	sceneNumber, ok := s.sceneNumberParam(c)
	if !ok {
		return
	}

	var request dto.UpdateSceneRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: err.Error()})
		return
	}

	params := inbound.UpdateSceneParams{
		Prompt: request.Prompt,
		Model:  request.Model,
	}
	if request.Config != nil {
		config := sceneConfigFrom(*request.Config)
		params.Config = &config
	}

	sequence, err := s.editor.UpdateScene(c.Request.Context(), c.Param("id"), sceneNumber, params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) deleteScene(c *gin.Context) {
	sceneNumber, ok := s.sceneNumberParam(c)
	if !ok {
		return
	}

	sequence, err := s.editor.DeleteScene(c.Request.Context(), c.Param("id"), sceneNumber)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) reorderScenes(c *gin.Context) {
	var request dto.ReorderScenesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: err.Error()})
		return
	}

	sequence, err := s.editor.ReorderScenes(c.Request.Context(), c.Param("id"), request.Order)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) generateScene(c *gin.Context) {
	sceneNumber, ok := s.sceneNumberParam(c)
	if !ok {
		return
	}

	sequence, err := s.orchestrator.GenerateScene(c.Request.Context(), c.Param("id"), sceneNumber)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

// generateAllScenes kicks the batch off in the background; callers poll the
// status endpoint for progress. The request context would die with the
// response, so the batch runs on its own context.
func (s *sequenceController) generateAllScenes(c *gin.Context) {
	sequenceID := c.Param("id")

	err := s.workerPool.Submit(func() {
		result, err := s.orchestrator.GenerateAllScenes(context.Background(), sequenceID)
		if err != nil {
			s.logger.ErrorWithFields(err, "Batch generation failed to start", map[string]interface{}{
				"sequence_id": sequenceID,
			})
			return
		}
		s.logger.InfoWithFields("Batch generation finished", map[string]interface{}{
			"sequence_id": sequenceID,
			"reports":     len(result.Reports),
			"cancelled":   result.Cancelled,
		})
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"sequenceId": sequenceID, "status": string(domain.SequenceGenerating)})
}

func (s *sequenceController) generationStatus(c *gin.Context) {
	sequence, err := s.editor.GetSequence(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	scenes := make([]gin.H, 0, len(sequence.Scenes))
	for _, scene := range sequence.Scenes {
		entry := gin.H{"sceneNumber": scene.SceneNumber, "status": scene.Status}
		if scene.Error != nil {
			entry["error"] = scene.Error
		}
		scenes = append(scenes, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"sequenceId": sequence.ID,
		"status":     sequence.Status,
		"scenes":     scenes,
	})
}

func (s *sequenceController) cancelGeneration(c *gin.Context) {
	sequence, err := s.orchestrator.CancelGeneration(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) exportSequence(c *gin.Context) {
	sequence, err := s.orchestrator.ExportSequence(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sequence)
}

func (s *sequenceController) sceneNumberParam(c *gin.Context) (int, bool) {
	sceneNumber, err := strconv.Atoi(c.Param("sceneNumber"))
	if err != nil || sceneNumber < 1 {
		s.respondError(c, &domain.SequenceError{Code: domain.SequenceValidation, Message: "sceneNumber must be a positive integer"})
		return 0, false
	}
	return sceneNumber, true
}

func (s *sequenceController) respondError(c *gin.Context, err error) {
	status, body := dto.EnvelopeFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(err, "Request failed")
	}
	c.JSON(status, body)
}

func sceneParamsFrom(request dto.SceneRequest) inbound.SceneParams {
	return inbound.SceneParams{
		Prompt: request.Prompt,
		Model:  request.Model,
		Config: sceneConfigFrom(request.Config),
	}
}

func sceneConfigFrom(request dto.SceneConfigRequest) domain.SceneConfig {
	return domain.SceneConfig{
		AspectRatio: request.AspectRatio,
		Resolution:  request.Resolution,
		Duration:    request.Duration,
	}
}
