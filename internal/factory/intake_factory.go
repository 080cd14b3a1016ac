package factory

import (
	"github.com/mikey/job-mail-tracker/internal/adapters/intake"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"go.uber.org/zap"
)

// IntakeFactory creates the SMTP intake
type IntakeFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *core.ClassificationService
}

// NewIntakeFactory creates a new intake factory
func NewIntakeFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.ClassificationService,
) *IntakeFactory {
	return &IntakeFactory{
		cfg:     cfg,
		logger:  logger,
		service: service,
	}
}

// CreateIntake creates the SMTP intake, or returns nil when it is disabled
func (f *IntakeFactory) CreateIntake() ports.MailIntake {
	sc := f.cfg.GetSMTP()
	if !sc.Enabled {
		return nil
	}

	return intake.NewSMTPIntake(
		f.service,
		f.logger,
		sc.ListenAddress,
		sc.Header,
		intake.RelayConfig{
			Enabled: sc.RelayEnabled,
			Address: sc.RelayAddress,
			Port:    sc.RelayPort,
		},
	)
}
