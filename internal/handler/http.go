package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storyteller-server/internal/models"
	"storyteller-server/internal/service"
)

// APIError — стандартизированный ответ об ошибке.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// startStoryRequest — тело запроса POST /start-story.
type startStoryRequest struct {
	ChildName   string `json:"child_name" binding:"required"`
	Age         int    `json:"age" binding:"required,gt=0"`
	Theme       string `json:"theme"`
	LessonOfDay string `json:"lesson_of_day"`
}

// continueStoryRequest — тело запроса POST /continue-story. Клиент
// присылает ID сегмента, на котором сделан выбор, и текст выбора.
type continueStoryRequest struct {
	SegmentID  int64  `json:"segment_id" binding:"required"`
	ChoiceText string `json:"choice_text" binding:"required"`
}

// storyHistoryResponse — ответ GET /stories/:id/history.
type storyHistoryResponse struct {
	Story    *models.Story          `json:"story"`
	Segments []*models.StorySegment `json:"segments"`
}

// StoryHandler обрабатывает HTTP-запросы интерактивных историй.
type StoryHandler struct {
	service service.StoryService
	logger  *zap.Logger
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(s service.StoryService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service: s,
		logger:  logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты сервиса историй.
func (h *StoryHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/start-story", h.startStory)
	router.POST("/continue-story", h.continueStory)
	router.GET("/get-audio/:key", h.getAudio)
	router.GET("/stories/:id/history", h.getStoryHistory)
}

func (h *StoryHandler) startStory(c *gin.Context) {
	var req startStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid start-story request", zap.Error(err))
		c.JSON(http.StatusBadRequest, APIError{
			Error:   "invalid request",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.StartStory(c.Request.Context(), service.StartStoryParams{
		ChildName:   req.ChildName,
		Age:         req.Age,
		Theme:       req.Theme,
		LessonOfDay: req.LessonOfDay,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) continueStory(c *gin.Context) {
	var req continueStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid continue-story request", zap.Error(err))
		c.JSON(http.StatusBadRequest, APIError{
			Error:   "invalid request",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.ContinueStory(c.Request.Context(), service.ContinueStoryParams{
		SegmentID: req.SegmentID,
		Choice:    req.ChoiceText,
	})
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) getAudio(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, APIError{Error: "audio key is required"})
		return
	}

	audio, err := h.service.GetAudio(c.Request.Context(), key)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Data(http.StatusOK, "audio/mpeg", audio)
}

func (h *StoryHandler) getStoryHistory(c *gin.Context) {
	storyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{
			Error:   "invalid story id",
			Details: err.Error(),
		})
		return
	}

	history, err := h.service.GetStoryHistory(c.Request.Context(), storyID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, storyHistoryResponse{
		Story:    history.Story,
		Segments: history.Segments,
	})
}

// handleServiceError отображает ошибки сервиса в HTTP-статусы.
func (h *StoryHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSegmentNotFound),
		errors.Is(err, models.ErrContextNotFound),
		errors.Is(err, models.ErrAudioNotFound),
		errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Error: err.Error()}
	case errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Error: err.Error()}
	case errors.Is(err, models.ErrTTSFailed):
		statusCode = http.StatusBadGateway
		apiErr = APIError{Error: "speech synthesis unavailable"}
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Error: "internal server error"}
	}

	c.JSON(statusCode, apiErr)
}
