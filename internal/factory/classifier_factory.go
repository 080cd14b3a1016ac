package factory

import (
	"fmt"

	"github.com/mikey/job-mail-tracker/internal/classifier"
	"github.com/mikey/job-mail-tracker/internal/config"
	"go.uber.org/zap"
)

// ClassifierFactory creates the rule classifier from configuration
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier with the configured precedence and
// extra sender domains
func (f *ClassifierFactory) CreateClassifier() (*classifier.Classifier, error) {
	cc := f.cfg.GetClassifier()

	opts := []classifier.Option{
		classifier.WithDomains(classifier.DefaultDomains().WithExtra(cc.ExtraJobBoardDomains, cc.ExtraFreeMailDomains)),
	}

	if len(cc.Precedence) > 0 {
		order, err := classifier.ParsePrecedence(cc.Precedence)
		if err != nil {
			return nil, fmt.Errorf("invalid classifier.precedence: %w", err)
		}
		resolver, err := classifier.NewResolver(order)
		if err != nil {
			return nil, fmt.Errorf("invalid classifier.precedence: %w", err)
		}
		opts = append(opts, classifier.WithResolver(resolver))
		f.logger.Info("Using custom rule precedence", zap.Strings("precedence", cc.Precedence))
	}

	return classifier.New(opts...), nil
}
