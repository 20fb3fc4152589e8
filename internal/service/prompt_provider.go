package service

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Файлы промтов в каталоге PromptsDir.
const (
	interviewerPromptFile = "interviewer.md"
	storytellerPromptFile = "storyteller.md"
)

// PromptProvider читает системные промты из файлов и кэширует их.
type PromptProvider struct {
	dir       string
	logger    *zap.Logger
	cacheLock sync.RWMutex
	cacheMap  map[string]string
}

// NewPromptProvider создает провайдер промтов.
func NewPromptProvider(dir string, logger *zap.Logger) *PromptProvider {
	return &PromptProvider{
		dir:      dir,
		logger:   logger.Named("PromptProvider"),
		cacheMap: make(map[string]string),
	}
}

// Get возвращает содержимое файла промта, читая его с диска при первом обращении.
func (p *PromptProvider) Get(filename string) (string, error) {
	p.cacheLock.RLock()
	content, ok := p.cacheMap[filename]
	p.cacheLock.RUnlock()
	if ok {
		return content, nil
	}

	filePath := filepath.Join(p.dir, filename)
	contentBytes, err := os.ReadFile(filePath)
	if err != nil {
		p.logger.Error("Failed to read prompt file", zap.String("file", filePath), zap.Error(err))
		return "", fmt.Errorf("failed to read prompt file %s: %w", filePath, err)
	}

	content = string(contentBytes)
	p.cacheLock.Lock()
	p.cacheMap[filename] = content
	p.cacheLock.Unlock()

	p.logger.Info("Prompt loaded", zap.String("file", filePath), zap.Int("bytes", len(content)))
	return content, nil
}
