package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервера брендовых историй.
type Config struct {
	// HTTP
	HTTPPort    string `envconfig:"HTTP_PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9091"`
	// Публичный адрес, на который указывает QR-код: <BASE_URL>/?story_id=<id>
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Логирование
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Промты
	PromptsDir string `envconfig:"PROMPTS_DIR" default:"prompts"`

	// TTL простоя авторской сессии в памяти
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Настройки AI (OpenAI-совместимый эндпоинт или Ollama)
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel      string        `envconfig:"AI_MODEL" default:"deepseek/deepseek-chat"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	// Секретное поле БЕЗ envconfig тега
	AIAPIKey string

	// Настройки Google Sheets (хранилище записей)
	SheetSpreadsheetID string        `envconfig:"SHEET_SPREADSHEET_ID" required:"true"`
	SheetName          string        `envconfig:"SHEET_NAME" default:"stories"`
	SheetCacheTTL      time.Duration `envconfig:"SHEET_CACHE_TTL" default:"10m"`
	SheetConnTTL       time.Duration `envconfig:"SHEET_CONN_TTL" default:"1h"`
	// JSON сервисного аккаунта GCP, секрет БЕЗ envconfig тега
	GCPCredentialsJSON string
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.AIAPIKey, loadErr = ReadSecret("ai_api_key")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.GCPCredentialsJSON, loadErr = ReadSecret("gcp_service_account")
	if loadErr != nil {
		return nil, loadErr
	}

	// Логируем загруженную конфигурацию (кроме секретов)
	log.Printf("Конфигурация загружена (секреты из файлов):")
	log.Printf("  HTTP Port: %s", cfg.HTTPPort)
	log.Printf("  Metrics Port: %s", cfg.MetricsPort)
	log.Printf("  Base URL: %s", cfg.BaseURL)
	log.Printf("  Prompts Dir: %s", cfg.PromptsDir)
	log.Printf("  Session TTL: %v", cfg.SessionTTL)
	log.Printf("  AI Client Type: %s", cfg.AIClientType)
	log.Printf("  AI Base URL: %s", cfg.AIBaseURL)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  AI Timeout: %v", cfg.AITimeout)
	log.Printf("  Sheet Spreadsheet ID: %s", cfg.SheetSpreadsheetID)
	log.Printf("  Sheet Name: %s", cfg.SheetName)
	log.Printf("  Sheet Cache TTL: %v", cfg.SheetCacheTTL)
	log.Printf("  Sheet Conn TTL: %v", cfg.SheetConnTTL)
	log.Println("  AI API Key: [ЗАГРУЖЕН]")
	log.Println("  GCP Service Account: [ЗАГРУЖЕН]")

	return &cfg, nil
}
