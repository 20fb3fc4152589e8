package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
	"brandstory-server/internal/repository"
	"brandstory-server/internal/service"
)

// Имя cookie с идентификатором авторской сессии.
const sessionCookieName = "brandstory_session"

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// StoryHandler обрабатывает HTTP запросы сервера брендовых историй.
type StoryHandler struct {
	authoring *service.AuthoringService
	repo      repository.StoryRepository
	sessions  *service.SessionStore
	baseURL   string
	logger    *zap.Logger
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(
	authoring *service.AuthoringService,
	repo repository.StoryRepository,
	sessions *service.SessionStore,
	baseURL string,
	logger *zap.Logger,
) *StoryHandler {
	return &StoryHandler{
		authoring: authoring,
		repo:      repo,
		sessions:  sessions,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		logger:    logger.Named("StoryHandler"),
	}
}

// RegisterRoutes регистрирует маршруты сервера.
func (h *StoryHandler) RegisterRoutes(r *gin.Engine) {
	// Две публичные поверхности, выбираются по query-параметру story_id
	r.GET("/", h.rootPage)

	// Авторский поток (resume_id применяется не более одного раза за сессию)
	r.GET("/create", h.createPage)

	api := r.Group("/api")
	{
		api.GET("/session", h.getSession)
		api.POST("/chat", h.postChat)
		api.POST("/generate", h.postGenerate)
		api.POST("/save", h.postSave)
	}

	r.GET("/stories/:id/qr.png", h.storyQR)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// publicStoryURL возвращает публичный адрес истории: <base_url>/?story_id=<id>.
func (h *StoryHandler) publicStoryURL(id string) string {
	return fmt.Sprintf("%s/?story_id=%s", h.baseURL, id)
}

// session возвращает авторскую сессию текущего запроса, заводя ее
// (и выставляя cookie) при необходимости.
func (h *StoryHandler) session(c *gin.Context) *model.Session {
	cookieID, _ := c.Cookie(sessionCookieName)
	id, sess := h.sessions.GetOrCreate(cookieID)
	if id != cookieID {
		// Сессионная cookie: живет до закрытия браузера, как и сама сессия
		c.SetCookie(sessionCookieName, id, 0, "/", "", false, true)
	}
	return sess
}

// handleServiceError переводит ошибку слоя сервиса/хранилища в HTTP ответ.
// Все ошибки гасятся на границе действия: ничего не роняет процесс,
// автоматических ретраев нет.
func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var status int
	var message string

	switch {
	case errors.Is(err, model.ErrBadRequest):
		status = http.StatusBadRequest
		message = "Некорректный запрос."
	case errors.Is(err, model.ErrEmptyTranscript):
		status = http.StatusBadRequest
		message = "Сначала пройдите интервью: история интервью пуста."
	case errors.Is(err, model.ErrNoDraft):
		status = http.StatusBadRequest
		message = "Сначала сгенерируйте черновик истории."
	case errors.Is(err, model.ErrStoryNotFound):
		status = http.StatusNotFound
		message = "История не найдена."
	case errors.Is(err, model.ErrMalformedTranscript):
		status = http.StatusUnprocessableEntity
		message = "Не удалось прочитать сохраненную историю интервью: данные повреждены."
	case errors.Is(err, model.ErrGenerationFailed):
		status = http.StatusBadGateway
		message = "Сбой генерации. Попробуйте еще раз."
	case errors.Is(err, model.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		message = "Хранилище недоступно. Попробуйте позже."
	case errors.Is(err, model.ErrWriteFailure):
		status = http.StatusBadGateway
		message = "Не удалось записать данные. Попробуйте сохранить еще раз."
	default:
		status = http.StatusInternalServerError
		message = "Внутренняя ошибка сервера."
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}

	c.AbortWithStatusJSON(status, APIError{Message: message})
}
