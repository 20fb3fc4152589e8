package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"brandstory-server/internal/model"
)

// Номер первой строки с данными (строка 1 - заголовок).
const firstDataRowNumber = 2

// SheetStoryRepository реализует StoryRepository поверх табличного RowBackend.
//
// Чтения кэшируются целиком на cacheTTL, чтобы ограничить нагрузку на таблицу;
// каждая успешная запись сбрасывает кэш, поэтому resume или список сразу после
// сохранения видят свежие данные. Поиск по id - линейный скан по строкам:
// первая совпавшая строка выигрывает, дубликаты (не ожидаются, но структурно
// возможны) не являются ошибкой.
type SheetStoryRepository struct {
	backend  RowBackend
	cacheTTL time.Duration
	logger   *zap.Logger

	cacheLock  sync.Mutex
	cachedRows [][]string
	cachedAt   time.Time
}

// NewSheetStoryRepository создает репозиторий историй.
func NewSheetStoryRepository(backend RowBackend, cacheTTL time.Duration, logger *zap.Logger) *SheetStoryRepository {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &SheetStoryRepository{
		backend:  backend,
		cacheTTL: cacheTTL,
		logger:   logger.Named("SheetStoryRepository"),
	}
}

// readRows возвращает все строки листа, используя кэш в пределах TTL.
func (r *SheetStoryRepository) readRows(ctx context.Context) ([][]string, error) {
	r.cacheLock.Lock()
	defer r.cacheLock.Unlock()

	if r.cachedRows != nil && time.Since(r.cachedAt) < r.cacheTTL {
		return r.cachedRows, nil
	}

	rows, err := r.backend.ReadAllRows(ctx)
	if err != nil {
		return nil, err
	}
	r.cachedRows = rows
	r.cachedAt = time.Now()
	r.logger.Debug("Sheet rows cached", zap.Int("rows", len(rows)))
	return rows, nil
}

// invalidateCache сбрасывает кэш чтения. Вызывается после каждой успешной записи.
func (r *SheetStoryRepository) invalidateCache() {
	r.cacheLock.Lock()
	r.cachedRows = nil
	r.cacheLock.Unlock()
}

// cell возвращает ячейку строки или пустую строку, если строка короче.
func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

// rowToStory собирает Story из строки листа.
func (r *SheetStoryRepository) rowToStory(row []string) model.Story {
	story := model.Story{
		ID:         cell(row, 0),
		Title:      cell(row, 1),
		Body:       cell(row, 2),
		Transcript: cell(row, 3),
	}
	if rawCreated := cell(row, 4); rawCreated != "" {
		createdAt, err := time.Parse(time.RFC3339, rawCreated)
		if err != nil {
			r.logger.Warn("Failed to parse created_at cell, leaving zero",
				zap.String("storyID", story.ID), zap.String("value", rawCreated))
		} else {
			story.CreatedAt = createdAt
		}
	}
	return story
}

// findRow ищет первую строку данных с данным id.
// Возвращает номер строки листа (с единицы) и саму строку; found=false если нет.
func (r *SheetStoryRepository) findRow(ctx context.Context, id string) (int, []string, bool, error) {
	rows, err := r.readRows(ctx)
	if err != nil {
		return 0, nil, false, err
	}
	for i, row := range rows {
		rowNumber := i + 1
		if rowNumber < firstDataRowNumber {
			continue // заголовок
		}
		if cell(row, 0) == id {
			return rowNumber, row, true, nil
		}
	}
	return 0, nil, false, nil
}

// CreateStory добавляет новую запись и возвращает выданный id.
func (r *SheetStoryRepository) CreateStory(ctx context.Context, title, body, transcript string) (string, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339)

	err := r.backend.AppendRow(ctx, []string{id, title, body, transcript, createdAt})
	if err != nil {
		r.logger.Error("Failed to append story row", zap.Error(err))
		return "", err
	}

	r.invalidateCache()
	r.logger.Info("Story created", zap.String("storyID", id), zap.String("title", title))
	return id, nil
}

// UpdateStory перезаписывает title/body/transcript записи с данным id.
func (r *SheetStoryRepository) UpdateStory(ctx context.Context, id, title, body, transcript string) (bool, error) {
	rowNumber, _, found, err := r.findRow(ctx, id)
	if err != nil {
		return false, err
	}
	if !found {
		r.logger.Warn("Update target not found", zap.String("storyID", id))
		return false, nil
	}

	if err := r.backend.UpdateRowFields(ctx, rowNumber, title, body, transcript); err != nil {
		r.logger.Error("Failed to update story row",
			zap.String("storyID", id), zap.Int("rowNumber", rowNumber), zap.Error(err))
		return false, err
	}

	r.invalidateCache()
	r.logger.Info("Story updated", zap.String("storyID", id), zap.Int("rowNumber", rowNumber))
	return true, nil
}

// GetStory возвращает первую запись с данным id или model.ErrStoryNotFound.
func (r *SheetStoryRepository) GetStory(ctx context.Context, id string) (*model.Story, error) {
	_, row, found, err := r.findRow(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: id=%s", model.ErrStoryNotFound, id)
	}
	story := r.rowToStory(row)
	return &story, nil
}

// ListStories возвращает все записи в порядке строк листа.
func (r *SheetStoryRepository) ListStories(ctx context.Context) ([]model.Story, error) {
	rows, err := r.readRows(ctx)
	if err != nil {
		return nil, err
	}

	stories := make([]model.Story, 0)
	for i, row := range rows {
		if i+1 < firstDataRowNumber {
			continue // заголовок
		}
		if cell(row, 0) == "" {
			continue // пустая строка листа
		}
		stories = append(stories, r.rowToStory(row))
	}
	return stories, nil
}
