package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
)

const qrImageSize = 256

// storyQR отдает PNG с QR-кодом публичного адреса истории.
// Код детерминирован: один и тот же id всегда дает одну и ту же картинку.
func (h *StoryHandler) storyQR(c *gin.Context) {
	storyID := c.Param("id")

	if _, err := h.repo.GetStory(c.Request.Context(), storyID); err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			c.JSON(http.StatusNotFound, APIError{Message: "История не найдена."})
			return
		}
		handleServiceError(c, err, h.logger)
		return
	}

	png, err := qrcode.Encode(h.publicStoryURL(storyID), qrcode.Medium, qrImageSize)
	if err != nil {
		h.logger.Error("Failed to encode QR code", zap.String("story_id", storyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "Не удалось сгенерировать QR-код."})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
