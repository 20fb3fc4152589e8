package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"brandstory-server/internal/config"
	"brandstory-server/internal/handler"
	"brandstory-server/internal/repository"
	"brandstory-server/internal/service"
	"brandstory-server/pkg/logger"
)

func main() {
	// Загружаем переменные окружения из .env файла (для локальной разработки)
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются системные переменные окружения")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zapLogger.Info("Логгер инициализирован", zap.String("level", cfg.LogLevel))

	// Хранилище записей поверх Google Sheets
	backend := repository.NewSheetsBackend(repository.SheetsBackendConfig{
		SpreadsheetID:   cfg.SheetSpreadsheetID,
		SheetName:       cfg.SheetName,
		CredentialsJSON: cfg.GCPCredentialsJSON,
		ConnTTL:         cfg.SheetConnTTL,
	}, zapLogger)
	repo := repository.NewSheetStoryRepository(backend, cfg.SheetCacheTTL, zapLogger)

	// AI клиент (OpenAI-совместимый или Ollama, по конфигурации)
	aiClient, err := service.NewAIClient(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Ошибка создания AI клиента", zap.Error(err))
	}

	prompts := service.NewPromptProvider(cfg.PromptsDir, zapLogger)
	authoring := service.NewAuthoringService(repo, aiClient, prompts, zapLogger)
	sessions := service.NewSessionStore(cfg.SessionTTL, zapLogger)

	storyHandler := handler.NewStoryHandler(authoring, repo, sessions, cfg.BaseURL, zapLogger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(handler.ZapLoggingMiddleware(zapLogger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.LoadHTMLGlob("web/templates/*.html")
	storyHandler.RegisterRoutes(router)

	// Метрики Prometheus на отдельном порту
	metricsServer := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		zapLogger.Info("Запуск сервера метрик", zap.String("port", cfg.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("Ошибка сервера метрик", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}
	go func() {
		zapLogger.Info("Запуск HTTP сервера", zap.String("port", cfg.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, останавливаем серверы...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка остановки HTTP сервера", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка остановки сервера метрик", zap.Error(err))
	}

	zapLogger.Info("Сервер остановлен")
}
