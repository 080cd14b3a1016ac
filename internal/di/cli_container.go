package di

import (
	"io"

	"github.com/spf13/viper"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/job-mail-tracker/internal/adapters/cli"
	"github.com/mikey/job-mail-tracker/internal/classifier"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/logging"
	"github.com/mikey/job-mail-tracker/internal/utils"
)

// CLIFlags contains the command line flags shared by the CLI commands
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
	JSONLog    bool

	// Classifier overrides, applied on top of the configuration
	Precedence           []string
	ExtraJobBoardDomains []string
	MaxBodySize          int

	Out io.Writer
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile == "" {
			return createConfigFromFlags(flags, config.NewEmptyViper()), nil
		}

		cfg, err := config.NewFromFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
		return createConfigFromFlags(flags, cfg.GetViper()), nil
	}); err != nil {
		return nil, err
	}

	if err := provideCore(container); err != nil {
		return nil, err
	}
	if err := provideScanning(container); err != nil {
		return nil, err
	}

	// Register reporter
	if err := container.Provide(func(
		flags *CLIFlags,
		c *classifier.Classifier,
		tp *utils.TextProcessor,
		logger *zap.Logger,
	) *cli.Reporter {
		return cli.NewReporter(c, tp, logger, flags.Out, flags.Verbose, flags.JSONOutput)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags applies flag overrides to a configuration
func createConfigFromFlags(flags *CLIFlags, v *viper.Viper) *config.Config {
	if len(flags.Precedence) > 0 {
		v.Set("classifier.precedence", flags.Precedence)
	}
	if len(flags.ExtraJobBoardDomains) > 0 {
		v.Set("classifier.extra_job_board_domains", flags.ExtraJobBoardDomains)
	}
	if flags.MaxBodySize > 0 {
		v.Set("classifier.max_body_size", flags.MaxBodySize)
	}
	return config.NewFromViper(v)
}
