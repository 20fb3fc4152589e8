package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Роли участников интервью.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn - одна реплика интервью (спикер + текст).
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Story - сохраненная история бренда.
// В таблице хранится одной строкой: [id, title, body, transcript, created_at].
// Transcript хранится как непрозрачный сериализованный текст; разбирает его
// только resume-загрузка сессии.
type Story struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Transcript string    `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
}

// EncodeTranscript сериализует историю интервью в JSON-текст для хранения.
func EncodeTranscript(turns []ChatTurn) (string, error) {
	if turns == nil {
		turns = []ChatTurn{}
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transcript: %w", err)
	}
	return string(data), nil
}

// DecodeTranscript разбирает сохраненный JSON-текст истории интервью.
// Пустая ячейка считается поврежденной записью: по контракту таблицы
// колонка transcript обязательна.
func DecodeTranscript(raw string) ([]ChatTurn, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: transcript cell is empty", ErrMalformedTranscript)
	}
	var turns []ChatTurn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}
	return turns, nil
}
