package model

import "sync"

// Состояния авторской сессии. Drafted и Bound - независимые оси:
// генерация черновика не снимает привязку к сохраненной истории.
const (
	SessionStateEmpty        = "empty"
	SessionStateInterviewing = "interviewing"
	SessionStateDrafted      = "drafted"
)

// Session - рабочее состояние одной авторской сессии (одна вкладка браузера).
// Живет только в памяти процесса; долговечна только Story.
// Значение передается явно в каждую операцию, без скрытого глобального состояния.
//
// Действия над одной сессией строго последовательны: обработчик берет Lock
// на все время действия, поэтому двойной клик по "Отправить" не гоняет
// два Interview по одному Transcript одновременно.
type Session struct {
	mu sync.Mutex

	Transcript []ChatTurn
	DraftTitle string
	DraftBody  string
	// BoundID - идентификатор Story, к которой привязана сессия.
	// Пустая строка = сессия еще не привязана (save создаст новую запись).
	BoundID string
	// ResumeConsumed выставляется после первой попытки применить resume-токен,
	// чтобы перезагрузка страницы не затирала несохраненные правки повторным импортом.
	ResumeConsumed bool
}

// NewSession создает пустую сессию.
func NewSession() *Session {
	return &Session{Transcript: []ChatTurn{}}
}

// Lock захватывает сессию на время одного действия пользователя.
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock освобождает сессию.
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// AppendTurn добавляет реплику в конец истории интервью.
func (s *Session) AppendTurn(role, content string) {
	s.Transcript = append(s.Transcript, ChatTurn{Role: role, Content: content})
}

// IsBound сообщает, привязана ли сессия к сохраненной истории.
func (s *Session) IsBound() bool {
	return s.BoundID != ""
}

// HasDraft сообщает, есть ли сгенерированный черновик.
func (s *Session) HasDraft() bool {
	return s.DraftBody != ""
}

// State возвращает производное состояние для UI (привязка отражается
// отдельно через BoundID).
func (s *Session) State() string {
	switch {
	case s.HasDraft():
		return SessionStateDrafted
	case len(s.Transcript) > 0:
		return SessionStateInterviewing
	default:
		return SessionStateEmpty
	}
}
