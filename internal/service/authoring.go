package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
	"brandstory-server/internal/repository"
)

var (
	draftGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandstory_draft_generations_total",
			Help: "Total number of story draft generations.",
		},
		[]string{"status"}, // success | fallback | error
	)
	storySavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "brandstory_story_saves_total",
			Help: "Total number of story save operations.",
		},
		[]string{"mode", "status"}, // mode: create | update
	)
)

// AuthoringService реализует жизненный цикл авторской сессии: интервью,
// генерацию черновика и согласование save с хранилищем записей.
//
// Все операции принимают *model.Session явно и мутируют его; скрытого
// состояния у сервиса нет. Внешние вызовы (AI, хранилище) синхронны,
// без ретраев: ошибка возвращается вызывающему как есть.
type AuthoringService struct {
	repo    repository.StoryRepository
	ai      AIClient
	prompts *PromptProvider
	logger  *zap.Logger
}

// NewAuthoringService создает сервис авторского потока.
func NewAuthoringService(repo repository.StoryRepository, ai AIClient, prompts *PromptProvider, logger *zap.Logger) *AuthoringService {
	return &AuthoringService{
		repo:    repo,
		ai:      ai,
		prompts: prompts,
		logger:  logger.Named("AuthoringService"),
	}
}

// formatTranscript собирает историю интервью в текст для промта,
// по строке "роль: реплика".
func formatTranscript(turns []model.ChatTurn) string {
	var sb strings.Builder
	for _, turn := range turns {
		sb.WriteString(turn.Role)
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// StartResume применяет resume-токен к сессии, не более одного раза за сессию.
//
// Повторный вызов с любым токеном - no-op: иначе перезагрузка страницы
// заново импортировала бы сохраненную запись и молча затирала несохраненные
// правки. Токен расходуется и при "не найдено", и при поврежденном
// транскрипте (чтобы битая запись не перечитывалась на каждый reload);
// при недоступном хранилище токен НЕ расходуется - ручная перезагрузка
// сможет попробовать еще раз.
func (s *AuthoringService) StartResume(ctx context.Context, sess *model.Session, token string) error {
	if sess.ResumeConsumed {
		s.logger.Debug("Resume token already consumed, ignoring", zap.String("token", token))
		return nil
	}

	story, err := s.repo.GetStory(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			sess.ResumeConsumed = true
			s.logger.Warn("Resume target not found", zap.String("token", token))
			return err
		}
		return err
	}

	sess.ResumeConsumed = true

	turns, err := model.DecodeTranscript(story.Transcript)
	if err != nil {
		// Сессия остается пустой, resume с этим токеном больше не повторяется
		s.logger.Warn("Failed to parse stored transcript on resume",
			zap.String("storyID", story.ID), zap.Error(err))
		return err
	}

	sess.Transcript = turns
	sess.DraftTitle = story.Title
	sess.DraftBody = story.Body
	sess.BoundID = story.ID

	s.logger.Info("Session resumed from story",
		zap.String("storyID", story.ID), zap.Int("turns", len(turns)))
	return nil
}

// Interview добавляет реплику пользователя, получает ответный вопрос
// интервьюера и добавляет его в историю. Возвращает ответ ассистента.
//
// Если AI-вызов упал, реплика пользователя ОСТАЕТСЯ в истории: текст
// не теряется, повторная отправка лишь добавит новую реплику.
func (s *AuthoringService) Interview(ctx context.Context, sess *model.Session, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", fmt.Errorf("%w: пустое сообщение", model.ErrBadRequest)
	}

	sess.AppendTurn(model.RoleUser, userText)

	systemPrompt, err := s.prompts.Get(interviewerPromptFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInternalServer, err)
	}

	reply, err := s.ai.GenerateText(ctx, systemPrompt, formatTranscript(sess.Transcript))
	if err != nil {
		return "", err
	}

	sess.AppendTurn(model.RoleAssistant, reply)
	return reply, nil
}

// GenerateDraft генерирует черновик истории по полной истории интервью.
//
// Ошибка транспорта/модели оставляет черновик нетронутым. Ответ без
// ожидаемых маркеров секций ошибкой не считается: тело = сырой текст,
// заголовок пустой, usedFallback=true - поток продолжается.
// Генерация никогда не снимает привязку сессии (BoundID).
func (s *AuthoringService) GenerateDraft(ctx context.Context, sess *model.Session) (usedFallback bool, err error) {
	if len(sess.Transcript) == 0 {
		return false, model.ErrEmptyTranscript
	}

	systemPrompt, err := s.prompts.Get(storytellerPromptFile)
	if err != nil {
		return false, fmt.Errorf("%w: %v", model.ErrInternalServer, err)
	}

	raw, err := s.ai.GenerateText(ctx, systemPrompt, formatTranscript(sess.Transcript))
	if err != nil {
		draftGenerationsTotal.With(prometheus.Labels{"status": "error"}).Inc()
		return false, err
	}

	title, body, usedFallback := ParseDraft(raw)
	sess.DraftTitle = title
	sess.DraftBody = body

	if usedFallback {
		draftGenerationsTotal.With(prometheus.Labels{"status": "fallback"}).Inc()
		s.logger.Warn("Model response missed section markers, using raw text as body",
			zap.Int("responseChars", len(raw)))
	} else {
		draftGenerationsTotal.With(prometheus.Labels{"status": "success"}).Inc()
	}

	return usedFallback, nil
}

// Save согласует сессию с хранилищем записей: create или update
// выводится из привязки сессии, а не выбирается клиентом.
//
//   - Непривязанная сессия: CreateStory; при успехе сессия привязывается
//     к выданному id. Это единственный путь появления нового идентификатора.
//   - Привязанная сессия: UpdateStory по BoundID; пропавший id - явная
//     ошибка ErrStoryNotFound, отката на create НЕТ.
//
// Повторный Save без правок не дедуплицируется: это безопасная
// перезапись того же содержимого.
func (s *AuthoringService) Save(ctx context.Context, sess *model.Session) (string, error) {
	if !sess.HasDraft() {
		return "", model.ErrNoDraft
	}

	transcript, err := model.EncodeTranscript(sess.Transcript)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrInternalServer, err)
	}

	if !sess.IsBound() {
		id, err := s.repo.CreateStory(ctx, sess.DraftTitle, sess.DraftBody, transcript)
		if err != nil {
			storySavesTotal.With(prometheus.Labels{"mode": "create", "status": "error"}).Inc()
			return "", err
		}
		sess.BoundID = id
		storySavesTotal.With(prometheus.Labels{"mode": "create", "status": "success"}).Inc()
		s.logger.Info("Story saved (create)", zap.String("storyID", id))
		return id, nil
	}

	found, err := s.repo.UpdateStory(ctx, sess.BoundID, sess.DraftTitle, sess.DraftBody, transcript)
	if err != nil {
		storySavesTotal.With(prometheus.Labels{"mode": "update", "status": "error"}).Inc()
		return "", err
	}
	if !found {
		storySavesTotal.With(prometheus.Labels{"mode": "update", "status": "not_found"}).Inc()
		s.logger.Error("Bound story disappeared from the store", zap.String("storyID", sess.BoundID))
		return "", fmt.Errorf("%w: bound story %s", model.ErrStoryNotFound, sess.BoundID)
	}

	storySavesTotal.With(prometheus.Labels{"mode": "update", "status": "success"}).Inc()
	s.logger.Info("Story saved (update)", zap.String("storyID", sess.BoundID))
	return sess.BoundID, nil
}
