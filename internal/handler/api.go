package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
)

// getSession отдает снимок текущей авторской сессии.
func (h *StoryHandler) getSession(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	c.JSON(http.StatusOK, sessionSnapshot(sess))
}

// postChat добавляет реплику владельца и возвращает ответ интервьюера.
func (h *StoryHandler) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleServiceError(c, model.ErrBadRequest, h.logger)
		return
	}

	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	reply, err := h.authoring.Interview(c.Request.Context(), sess, req.Message)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Reply: reply, Transcript: sess.Transcript})
}

// postGenerate генерирует черновик истории из накопленного интервью.
func (h *StoryHandler) postGenerate(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	usedFallback, err := h.authoring.GenerateDraft(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, generateResponse{
		Title:        sess.DraftTitle,
		Body:         sess.DraftBody,
		UsedFallback: usedFallback,
	})
}

// postSave сохраняет черновик: несвязанная сессия создает запись,
// связанная обновляет существующую.
func (h *StoryHandler) postSave(c *gin.Context) {
	sess := h.session(c)
	sess.Lock()
	defer sess.Unlock()

	id, err := h.authoring.Save(c.Request.Context(), sess)
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}

	h.logger.Info("Story saved", zap.String("story_id", id))
	c.JSON(http.StatusOK, saveResponse{
		StoryID:   id,
		PublicURL: h.publicStoryURL(id),
		QRURL:     "/stories/" + id + "/qr.png",
	})
}

func sessionSnapshot(sess *model.Session) sessionResponse {
	transcript := sess.Transcript
	if transcript == nil {
		transcript = []model.ChatTurn{}
	}
	return sessionResponse{
		State:      sess.State(),
		BoundID:    sess.BoundID,
		Transcript: transcript,
		DraftTitle: sess.DraftTitle,
		DraftBody:  sess.DraftBody,
	}
}
