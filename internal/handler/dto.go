package handler

import "brandstory-server/internal/model"

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Reply      string           `json:"reply"`
	Transcript []model.ChatTurn `json:"transcript"`
}

type generateResponse struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	UsedFallback bool   `json:"usedFallback"`
}

type saveResponse struct {
	StoryID   string `json:"storyId"`
	PublicURL string `json:"publicUrl"`
	QRURL     string `json:"qrUrl"`
}

type sessionResponse struct {
	State      string           `json:"state"`
	BoundID    string           `json:"boundId,omitempty"`
	Transcript []model.ChatTurn `json:"transcript"`
	DraftTitle string           `json:"draftTitle,omitempty"`
	DraftBody  string           `json:"draftBody,omitempty"`
}
