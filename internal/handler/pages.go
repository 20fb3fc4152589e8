package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
)

// Формат дат на публичных страницах.
const pageTimeFormat = "2006/01/02 15:04"

type storyRow struct {
	ID        string
	Title     string
	CreatedAt string
	ResumeURL string
	PublicURL string
}

// rootPage выбирает поверхность по query-параметру story_id:
// с ним — публичная страница одной истории, без него — панель со списком.
func (h *StoryHandler) rootPage(c *gin.Context) {
	if storyID := c.Query("story_id"); storyID != "" {
		h.publicStoryPage(c, storyID)
		return
	}
	h.dashboardPage(c)
}

// publicStoryPage отдает read-only страницу опубликованной истории.
// Страница не зависит от транскрипта и не требует живой сессии.
func (h *StoryHandler) publicStoryPage(c *gin.Context, storyID string) {
	story, err := h.repo.GetStory(c.Request.Context(), storyID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			c.HTML(http.StatusNotFound, "story_notfound.html", gin.H{})
			return
		}
		h.logger.Error("Failed to load story page", zap.String("story_id", storyID), zap.Error(err))
		c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
			"Message": "Хранилище временно недоступно. Попробуйте позже.",
		})
		return
	}

	c.HTML(http.StatusOK, "story.html", gin.H{
		"Title":     story.Title,
		"Body":      story.Body,
		"CreatedAt": story.CreatedAt.Format(pageTimeFormat),
	})
}

// dashboardPage показывает список всех сохраненных историй со ссылками
// на возобновление редактирования и на публичные страницы.
func (h *StoryHandler) dashboardPage(c *gin.Context) {
	stories, err := h.repo.ListStories(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list stories", zap.Error(err))
		c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
			"Message": "Хранилище временно недоступно. Попробуйте позже.",
		})
		return
	}

	rows := make([]storyRow, 0, len(stories))
	for _, s := range stories {
		rows = append(rows, storyRow{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt.Format(pageTimeFormat),
			ResumeURL: "/create?resume_id=" + s.ID,
			PublicURL: h.publicStoryURL(s.ID),
		})
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Stories": rows})
}

// createPage отдает авторскую поверхность. Параметр resume_id применяется
// не более одного раза на сессию: повторная загрузка страницы не
// перетирает несохраненную работу.
func (h *StoryHandler) createPage(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	var notice string
	if token := c.Query("resume_id"); token != "" {
		if err := h.authoring.StartResume(c.Request.Context(), sess, token); err != nil {
			switch {
			case errors.Is(err, model.ErrStoryNotFound):
				notice = "История для продолжения не найдена. Начато новое интервью."
			case errors.Is(err, model.ErrMalformedTranscript):
				notice = "Сохраненное интервью повреждено и не может быть продолжено. Начато новое интервью."
			default:
				h.logger.Error("Resume failed", zap.String("resume_id", token), zap.Error(err))
				c.HTML(http.StatusServiceUnavailable, "error.html", gin.H{
					"Message": "Хранилище временно недоступно. Обновите страницу, чтобы повторить попытку.",
				})
				return
			}
			h.logger.Warn("Resume degraded to fresh session",
				zap.String("resume_id", token), zap.Error(err))
		}
	}

	c.HTML(http.StatusOK, "create.html", gin.H{"Notice": notice})
}
