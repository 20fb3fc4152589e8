package handler_test

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"brandstory-server/internal/handler"
	"brandstory-server/internal/mocks"
	"brandstory-server/internal/model"
	"brandstory-server/internal/service"
)

const testBaseURL = "http://example.com"

// testEnv собирает роутер с моками и дает доступ к реестру сессий.
type testEnv struct {
	router   *gin.Engine
	sessions *service.SessionStore
	repo     *mocks.MockStoryRepository
	ai       *mocks.MockAIClient
}

func setupPrompts(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "interviewer.md"), []byte("Ты интервьюер."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storyteller.md"), []byte("Ты рассказчик."), 0o644))
	return dir
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	repo := mocks.NewMockStoryRepository(t)
	ai := mocks.NewMockAIClient(t)
	prompts := service.NewPromptProvider(setupPrompts(t), logger)
	authoring := service.NewAuthoringService(repo, ai, prompts, logger)
	sessions := service.NewSessionStore(time.Hour, logger)

	h := handler.NewStoryHandler(authoring, repo, sessions, testBaseURL, logger)

	r := gin.New()
	tmpl := template.Must(template.New("dashboard.html").Parse(`dashboard:{{len .Stories}}`))
	template.Must(tmpl.New("story.html").Parse(`story:{{.Title}}`))
	template.Must(tmpl.New("story_notfound.html").Parse(`notfound`))
	template.Must(tmpl.New("error.html").Parse(`error:{{.Message}}`))
	template.Must(tmpl.New("create.html").Parse(`create:{{.Notice}}`))
	r.SetHTMLTemplate(tmpl)
	h.RegisterRoutes(r)

	return &testEnv{router: r, sessions: sessions, repo: repo, ai: ai}
}

// do выполняет запрос, прокидывая cookie сессии из предыдущего ответа.
func (e *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "brandstory_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/session", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "empty", resp["state"])

	// Повторный запрос с той же cookie не заводит новую сессию
	w2 := env.do(t, http.MethodGet, "/api/session", nil, cookie)
	require.Equal(t, http.StatusOK, w2.Code)
	for _, c := range w2.Result().Cookies() {
		assert.NotEqual(t, "brandstory_session", c.Name)
	}
}

func TestPostChat(t *testing.T) {
	t.Run("Happy path appends two turns", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
			Return("Расскажите о вашем деле подробнее?", nil).Once()

		w := env.do(t, http.MethodPost, "/api/chat", gin.H{"message": "Я пеку хлеб."}, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Reply      string           `json:"reply"`
			Transcript []model.ChatTurn `json:"transcript"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Расскажите о вашем деле подробнее?", resp.Reply)
		require.Len(t, resp.Transcript, 2)
		assert.Equal(t, model.RoleUser, resp.Transcript[0].Role)
		assert.Equal(t, model.RoleAssistant, resp.Transcript[1].Role)
	})

	t.Run("Missing message is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/api/chat", gin.H{}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("AI failure maps to bad gateway", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
			Return("", model.ErrGenerationFailed).Once()

		w := env.do(t, http.MethodPost, "/api/chat", gin.H{"message": "Привет"}, nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

// Параллельные отправки с одной cookie (двойной клик по "Отправить")
// выполняются строго по очереди: каждая пара реплик попадает в историю целиком.
func TestConcurrentChatSerialized(t *testing.T) {
	env := newTestEnv(t)
	env.ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("Расскажите подробнее?", nil)

	w := env.do(t, http.MethodGet, "/api/session", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)

	const clients = 16
	var wg sync.WaitGroup
	codes := make([]int, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := env.do(t, http.MethodPost, "/api/chat", gin.H{"message": "Я пеку хлеб."}, cookie)
			codes[i] = resp.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}

	sess, ok := env.sessions.Get(cookie.Value)
	require.True(t, ok)
	require.Len(t, sess.Transcript, clients*2)
	for i, turn := range sess.Transcript {
		if i%2 == 0 {
			assert.Equal(t, model.RoleUser, turn.Role, "turn %d", i)
		} else {
			assert.Equal(t, model.RoleAssistant, turn.Role, "turn %d", i)
		}
	}
}

// Реальный шаблон панели показывает сырой id записи (для ручной
// перегенерации QR), а не только ссылки.
func TestDashboardTemplateShowsRawID(t *testing.T) {
	tmpl, err := template.ParseFiles(
		"../../web/templates/dashboard.html",
		"../../web/templates/layout_head.html",
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "dashboard.html", gin.H{
		"Stories": []struct {
			ID        string
			Title     string
			CreatedAt string
			ResumeURL string
			PublicURL string
		}{
			{
				ID:        "aaaa-bbbb-cccc",
				Title:     "Пекарня",
				CreatedAt: "2026/08/01 12:00",
				ResumeURL: "/create?resume_id=aaaa-bbbb-cccc",
				PublicURL: "http://example.com/?story_id=aaaa-bbbb-cccc",
			},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<code>aaaa-bbbb-cccc</code>")
}

func TestPostSave(t *testing.T) {
	t.Run("Unbound session creates story and returns public URL", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/api/session", nil, nil)
		cookie := sessionCookie(t, w)
		sess, ok := env.sessions.Get(cookie.Value)
		require.True(t, ok)
		sess.AppendTurn(model.RoleUser, "Я пеку хлеб.")
		sess.DraftTitle = "Пекарня у реки"
		sess.DraftBody = "История о хлебе."

		env.repo.On("CreateStory", mock.Anything, "Пекарня у реки", "История о хлебе.", mock.Anything).
			Return("story-1", nil).Once()

		w2 := env.do(t, http.MethodPost, "/api/save", nil, cookie)
		require.Equal(t, http.StatusOK, w2.Code)

		var resp struct {
			StoryID   string `json:"storyId"`
			PublicURL string `json:"publicUrl"`
			QRURL     string `json:"qrUrl"`
		}
		require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
		assert.Equal(t, "story-1", resp.StoryID)
		assert.Equal(t, testBaseURL+"/?story_id=story-1", resp.PublicURL)
		assert.Equal(t, "/stories/story-1/qr.png", resp.QRURL)
		assert.Equal(t, "story-1", sess.BoundID)

		// Снимок сессии отражает привязку: по нему UI переключает
		// подпись кнопки сохранения на "перезаписать"
		w3 := env.do(t, http.MethodGet, "/api/session", nil, cookie)
		require.Equal(t, http.StatusOK, w3.Code)
		var snapshot map[string]any
		require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &snapshot))
		assert.Equal(t, "story-1", snapshot["boundId"])
	})

	t.Run("Save without draft is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/api/save", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Bound save with vanished story returns not found", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/api/session", nil, nil)
		cookie := sessionCookie(t, w)
		sess, ok := env.sessions.Get(cookie.Value)
		require.True(t, ok)
		sess.AppendTurn(model.RoleUser, "Привет")
		sess.DraftTitle = "Заголовок"
		sess.DraftBody = "Текст"
		sess.BoundID = "story-gone"

		env.repo.On("UpdateStory", mock.Anything, "story-gone", "Заголовок", "Текст", mock.Anything).
			Return(false, nil).Once()

		w2 := env.do(t, http.MethodPost, "/api/save", nil, cookie)
		assert.Equal(t, http.StatusNotFound, w2.Code)
	})
}

func TestPostGenerate(t *testing.T) {
	t.Run("Draft fields returned", func(t *testing.T) {
		env := newTestEnv(t)
		env.ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
			Return("Вопрос?", nil).Once()
		env.ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
			Return("[TITLE]\nПекарня\n[BODY]\nИстория.", nil).Once()

		w := env.do(t, http.MethodPost, "/api/chat", gin.H{"message": "Я пеку хлеб."}, nil)
		require.Equal(t, http.StatusOK, w.Code)
		cookie := sessionCookie(t, w)

		w2 := env.do(t, http.MethodPost, "/api/generate", nil, cookie)
		require.Equal(t, http.StatusOK, w2.Code)

		var resp struct {
			Title        string `json:"title"`
			Body         string `json:"body"`
			UsedFallback bool   `json:"usedFallback"`
		}
		require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
		assert.Equal(t, "Пекарня", resp.Title)
		assert.Equal(t, "История.", resp.Body)
		assert.False(t, resp.UsedFallback)
	})

	t.Run("Empty transcript is rejected", func(t *testing.T) {
		env := newTestEnv(t)
		w := env.do(t, http.MethodPost, "/api/generate", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRootPage(t *testing.T) {
	t.Run("With story_id renders public page", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "story-1").Return(&model.Story{
			ID:        "story-1",
			Title:     "Пекарня",
			Body:      "История.",
			CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		}, nil).Once()

		w := env.do(t, http.MethodGet, "/?story_id=story-1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "story:Пекарня")
	})

	t.Run("Unknown story_id renders not found page", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "nope").Return(nil, model.ErrStoryNotFound).Once()

		w := env.do(t, http.MethodGet, "/?story_id=nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "notfound")
	})

	t.Run("Without story_id renders dashboard", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("ListStories", mock.Anything).Return([]model.Story{
			{ID: "a", Title: "Первая"},
			{ID: "b", Title: "Вторая"},
		}, nil).Once()

		w := env.do(t, http.MethodGet, "/", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "dashboard:2")
	})

	t.Run("Empty table renders empty dashboard", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("ListStories", mock.Anything).Return([]model.Story{}, nil).Once()

		w := env.do(t, http.MethodGet, "/", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "dashboard:0")
	})

	t.Run("Store failure renders error page", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("ListStories", mock.Anything).Return(nil, model.ErrStoreUnavailable).Once()

		w := env.do(t, http.MethodGet, "/", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestCreatePage(t *testing.T) {
	t.Run("Resume token binds session once", func(t *testing.T) {
		env := newTestEnv(t)
		transcript, err := model.EncodeTranscript([]model.ChatTurn{
			{Role: model.RoleUser, Content: "Я пеку хлеб."},
		})
		require.NoError(t, err)

		env.repo.On("GetStory", mock.Anything, "story-1").Return(&model.Story{
			ID:         "story-1",
			Title:      "Пекарня",
			Body:       "История.",
			Transcript: transcript,
			CreatedAt:  time.Now().UTC(),
		}, nil).Once()

		w := env.do(t, http.MethodGet, "/create?resume_id=story-1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		cookie := sessionCookie(t, w)

		sess, ok := env.sessions.Get(cookie.Value)
		require.True(t, ok)
		assert.Equal(t, "story-1", sess.BoundID)
		assert.Len(t, sess.Transcript, 1)

		// Перезагрузка страницы с тем же токеном не трогает сессию:
		// мок GetStory настроен на единственный вызов.
		w2 := env.do(t, http.MethodGet, "/create?resume_id=story-1", nil, cookie)
		assert.Equal(t, http.StatusOK, w2.Code)
	})

	t.Run("Unknown resume token degrades to fresh session", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "nope").Return(nil, model.ErrStoryNotFound).Once()

		w := env.do(t, http.MethodGet, "/create?resume_id=nope", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "не найдена")

		cookie := sessionCookie(t, w)
		sess, ok := env.sessions.Get(cookie.Value)
		require.True(t, ok)
		assert.Empty(t, sess.BoundID)
	})

	t.Run("Store outage during resume surfaces error page", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "story-1").
			Return(nil, model.ErrStoreUnavailable).Once()

		w := env.do(t, http.MethodGet, "/create?resume_id=story-1", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestStoryQR(t *testing.T) {
	t.Run("Existing story returns PNG", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "story-1").Return(&model.Story{ID: "story-1"}, nil).Once()

		w := env.do(t, http.MethodGet, "/stories/story-1/qr.png", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("Missing story returns 404", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.On("GetStory", mock.Anything, "nope").Return(nil, model.ErrStoryNotFound).Once()

		w := env.do(t, http.MethodGet, "/stories/nope/qr.png", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
