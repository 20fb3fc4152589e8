package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
)

// TTL простоя по умолчанию: браузерная сессия, брошенная на сутки, мертва.
const defaultSessionTTL = 24 * time.Hour

type sessionEntry struct {
	sess     *model.Session
	lastSeen time.Time
}

// SessionStore хранит авторские сессии процесса по идентификатору из cookie.
// Сессии живут только в памяти: долговечна только Story в хранилище записей.
//
// Сессии, к которым не обращались дольше ttl, вычищаются попутной уборкой
// при создании новых - реестр не растет бесконечно от брошенных вкладок.
type SessionStore struct {
	lock      sync.Mutex
	sessions  map[string]*sessionEntry
	ttl       time.Duration
	lastSweep time.Time
	logger    *zap.Logger
}

// NewSessionStore создает пустой реестр сессий с данным TTL простоя.
func NewSessionStore(ttl time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		sessions:  make(map[string]*sessionEntry),
		ttl:       ttl,
		lastSweep: time.Now(),
		logger:    logger.Named("SessionStore"),
	}
}

// Get возвращает сессию по идентификатору, продлевая ее TTL.
func (st *SessionStore) Get(id string) (*model.Session, bool) {
	st.lock.Lock()
	defer st.lock.Unlock()

	entry, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = time.Now()
	return entry.sess, true
}

// Create заводит новую пустую сессию и возвращает ее идентификатор.
func (st *SessionStore) Create() (string, *model.Session) {
	id := uuid.NewString()
	sess := model.NewSession()

	st.lock.Lock()
	st.sweepLocked(time.Now())
	st.sessions[id] = &sessionEntry{sess: sess, lastSeen: time.Now()}
	st.lock.Unlock()

	st.logger.Debug("Session created", zap.String("sessionID", id))
	return id, sess
}

// GetOrCreate возвращает сессию по идентификатору, создавая новую,
// если идентификатор пуст или неизвестен (например, сессия вычищена
// по TTL или процесс перезапускался).
func (st *SessionStore) GetOrCreate(id string) (string, *model.Session) {
	if id != "" {
		if sess, ok := st.Get(id); ok {
			return id, sess
		}
	}
	return st.Create()
}

// sweepLocked удаляет сессии, простоявшие дольше ttl. Вызывается под lock,
// не чаще четверти ttl.
func (st *SessionStore) sweepLocked(now time.Time) {
	if now.Sub(st.lastSweep) < st.ttl/4 {
		return
	}
	st.lastSweep = now

	evicted := 0
	for id, entry := range st.sessions {
		if now.Sub(entry.lastSeen) > st.ttl {
			delete(st.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		st.logger.Info("Stale sessions evicted",
			zap.Int("evicted", evicted), zap.Int("remaining", len(st.sessions)))
	}
}

// Len возвращает число живых сессий.
func (st *SessionStore) Len() int {
	st.lock.Lock()
	defer st.lock.Unlock()
	return len(st.sessions)
}
