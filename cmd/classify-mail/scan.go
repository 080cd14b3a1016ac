package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/job-mail-tracker/internal/adapters/cli"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/di"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var scanMax int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan of the configured mailbox",
	Long:  "Fetches messages from the configured source, classifies them and stores the results in the configured store.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVarP(&scanMax, "max", "n", 0, "Maximum messages to fetch (default scan.max_messages)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(_ *cobra.Command, _ []string) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(
		service *core.ClassificationService,
		source core.MessageSource,
		store ports.Store,
		reporter *cli.Reporter,
		logger *zap.Logger,
	) error {
		defer logger.Sync()
		defer store.Stop()

		if source == nil {
			return fmt.Errorf("no message source configured (set source.type)")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := service.Scan(ctx, source, scanMax)
		if report != nil {
			if werr := reporter.ReportScan(report); werr != nil {
				return werr
			}
		}
		return err
	})
}
