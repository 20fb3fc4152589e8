package repository

import (
	"context"

	"brandstory-server/internal/model"
)

// StoryRepository определяет контракт хранилища историй.
// Транскрипт передается уже сериализованным текстом: хранилище не знает
// про его внутренний формат.
type StoryRepository interface {
	// CreateStory выдает новый id, проставляет createdAt и добавляет запись.
	// Это единственный путь появления нового идентификатора.
	CreateStory(ctx context.Context, title, body, transcript string) (string, error)
	// UpdateStory перезаписывает title/body/transcript записи с данным id.
	// Возвращает found=false (без ошибки), если записи нет; запись при этом
	// НЕ создается.
	UpdateStory(ctx context.Context, id, title, body, transcript string) (bool, error)
	// GetStory возвращает первую запись с данным id или model.ErrStoryNotFound.
	GetStory(ctx context.Context, id string) (*model.Story, error)
	// ListStories возвращает все записи в порядке добавления.
	// Пустая таблица - пустой срез, не ошибка.
	ListStories(ctx context.Context) ([]model.Story, error)
}

// RowBackend абстрагирует низкоуровневые операции над строками таблицы.
// Первая строка таблицы - заголовок, данные начинаются со второй.
type RowBackend interface {
	// ReadAllRows возвращает все строки листа, включая заголовок.
	ReadAllRows(ctx context.Context) ([][]string, error)
	// AppendRow добавляет строку в конец листа.
	AppendRow(ctx context.Context, row []string) error
	// UpdateRowFields перезаписывает колонки B:D (title, body, transcript)
	// строки с номером rowNumber (нумерация листа, с единицы).
	UpdateRowFields(ctx context.Context, rowNumber int, title, body, transcript string) error
}
