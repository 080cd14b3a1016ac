package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/job-mail-tracker/internal/adapters/httpapi"
	"github.com/mikey/job-mail-tracker/internal/classifier"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/factory"
	"github.com/mikey/job-mail-tracker/internal/logging"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"github.com/mikey/job-mail-tracker/internal/scheduler"
	"github.com/mikey/job-mail-tracker/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}

	if err := provideScanning(container); err != nil {
		return nil, err
	}

	// Register scheduler; nil without a source
	if err := container.Provide(func(
		cfg *config.Config,
		service *core.ClassificationService,
		source core.MessageSource,
		logger *zap.Logger,
	) (*scheduler.Scheduler, error) {
		if source == nil {
			return nil, nil
		}
		sc, err := cfg.GetScan()
		if err != nil {
			return nil, err
		}
		return scheduler.New(service, source, sc.Interval, sc.MaxMessages, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register SMTP intake; nil when disabled
	if err := container.Provide(factory.NewIntakeFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.IntakeFactory) ports.MailIntake {
		return f.CreateIntake()
	}); err != nil {
		return nil, err
	}

	// Register HTTP API; nil when disabled
	if err := container.Provide(func(
		cfg *config.Config,
		repo core.ResultRepository,
		service *core.ClassificationService,
		sched *scheduler.Scheduler,
		logger *zap.Logger,
	) *httpapi.Server {
		hc := cfg.GetHTTP()
		if !hc.Enabled {
			return nil
		}
		var scans httpapi.ScanTrigger
		if sched != nil {
			scans = sched
		}
		return httpapi.NewServer(repo, service, scans, logger, hc.ListenAddress)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideCore registers the classifier and text processor shared by the daemon and the CLI
func provideCore(container *dig.Container) error {
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.ClassifierFactory) (*classifier.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(c *classifier.Classifier) core.Classifier {
		return c
	}); err != nil {
		return err
	}

	// Register text processor
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	return nil
}

// provideScanning registers the store, classification service and message source
func provideScanning(container *dig.Container) error {
	// Register store
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.StoreFactory) (ports.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(s ports.Store) core.ResultRepository {
		return s
	}); err != nil {
		return err
	}

	// Register classification service
	if err := container.Provide(func(cfg *config.Config) (core.ScanOptions, error) {
		sc, err := cfg.GetScan()
		if err != nil {
			return core.ScanOptions{}, err
		}
		return core.ScanOptions{Workers: sc.Workers, MaxMessages: sc.MaxMessages}, nil
	}); err != nil {
		return err
	}
	if err := container.Provide(func(tp *utils.TextProcessor) core.BodyProcessor { return tp }); err != nil {
		return err
	}
	if err := container.Provide(core.NewClassificationService); err != nil {
		return err
	}

	// Register message source; nil when source.type is none
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.SourceFactory) (core.MessageSource, error) {
		return f.CreateSource(context.Background())
	}); err != nil {
		return err
	}

	return nil
}
