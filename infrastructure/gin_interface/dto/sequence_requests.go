package dto

type SceneConfigRequest struct {
	AspectRatio string `json:"aspectRatio" binding:"required"`
	Resolution  string `json:"resolution" binding:"required"`
	Duration    int    `json:"duration" binding:"required"`
}

type SceneRequest struct {
	Prompt string             `json:"prompt" binding:"required"`
	Model  string             `json:"model" binding:"required"`
	Config SceneConfigRequest `json:"config" binding:"required"`
}

type CreateSequenceRequest struct {
	UserID      string         `json:"userId" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	Scenes      []SceneRequest `json:"scenes"`
}

type UpdateSequenceRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type UpdateSceneRequest struct {
	Prompt *string             `json:"prompt"`
	Model  *string             `json:"model"`
	Config *SceneConfigRequest `json:"config"`
}

type ReorderScenesRequest struct {
	Order []int `json:"order" binding:"required"`
}
