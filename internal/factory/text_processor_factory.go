package factory

import (
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates text processors
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a TextProcessor bounded by classifier.max_body_size
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger, f.cfg.GetClassifier().MaxBodySize)
}
