package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"brandstory-server/internal/model"
)

// Колонки листа: A=id, B=title, C=body, D=transcript, E=created_at.
const sheetColumnRange = "A:E"

// SheetsBackend реализует RowBackend поверх Google Sheets API v4.
// Соединение (клиент API) создается лениво, разделяется всеми сессиями
// процесса и пересоздается после истечения connTTL.
type SheetsBackend struct {
	spreadsheetID string
	sheetName     string
	credsJSON     []byte
	connTTL       time.Duration
	logger        *zap.Logger

	connLock    sync.Mutex
	svc         *sheets.Service
	connectedAt time.Time
}

// SheetsBackendConfig содержит настройки подключения к таблице.
type SheetsBackendConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	ConnTTL         time.Duration
}

// NewSheetsBackend создает бэкенд поверх Google Sheets.
func NewSheetsBackend(cfg SheetsBackendConfig, logger *zap.Logger) *SheetsBackend {
	if cfg.ConnTTL <= 0 {
		cfg.ConnTTL = time.Hour
	}
	return &SheetsBackend{
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		credsJSON:     []byte(cfg.CredentialsJSON),
		connTTL:       cfg.ConnTTL,
		logger:        logger.Named("SheetsBackend"),
	}
}

// service возвращает клиент Sheets API, создавая или обновляя его при необходимости.
func (b *SheetsBackend) service(ctx context.Context) (*sheets.Service, error) {
	b.connLock.Lock()
	defer b.connLock.Unlock()

	if b.svc != nil && time.Since(b.connectedAt) < b.connTTL {
		return b.svc, nil
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(b.credsJSON),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		b.logger.Error("Failed to create Sheets API client", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	b.svc = svc
	b.connectedAt = time.Now()
	b.logger.Info("Sheets API client (re)created",
		zap.String("spreadsheetID", b.spreadsheetID),
		zap.String("sheet", b.sheetName),
		zap.Duration("connTTL", b.connTTL))
	return svc, nil
}

func (b *SheetsBackend) dataRange() string {
	return fmt.Sprintf("%s!%s", b.sheetName, sheetColumnRange)
}

// ReadAllRows читает весь лист, включая строку заголовка.
func (b *SheetsBackend) ReadAllRows(ctx context.Context) ([][]string, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Spreadsheets.Values.Get(b.spreadsheetID, b.dataRange()).Context(ctx).Do()
	if err != nil {
		b.logger.Error("Failed to read sheet values", zap.Error(err))
		return nil, fmt.Errorf("%w: read failed: %v", model.ErrStoreUnavailable, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// AppendRow добавляет строку в конец листа.
func (b *SheetsBackend) AppendRow(ctx context.Context, row []string) error {
	svc, err := b.service(ctx)
	if err != nil {
		return err
	}

	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
	}

	_, err = svc.Spreadsheets.Values.
		Append(b.spreadsheetID, b.dataRange(), &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		b.logger.Error("Failed to append row", zap.Error(err))
		return fmt.Errorf("%w: append failed: %v", model.ErrWriteFailure, err)
	}
	return nil
}

// UpdateRowFields перезаписывает колонки B:D указанной строки листа.
// Колонки A (id) и E (created_at) не трогаем: id неизменяем, created_at
// проставляется один раз при создании.
func (b *SheetsBackend) UpdateRowFields(ctx context.Context, rowNumber int, title, body, transcript string) error {
	svc, err := b.service(ctx)
	if err != nil {
		return err
	}

	updateRange := fmt.Sprintf("%s!B%d:D%d", b.sheetName, rowNumber, rowNumber)
	_, err = svc.Spreadsheets.Values.
		Update(b.spreadsheetID, updateRange, &sheets.ValueRange{
			Values: [][]interface{}{{title, body, transcript}},
		}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		b.logger.Error("Failed to update row", zap.Int("rowNumber", rowNumber), zap.Error(err))
		return fmt.Errorf("%w: update failed: %v", model.ErrWriteFailure, err)
	}
	return nil
}
