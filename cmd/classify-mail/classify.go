package main

import (
	"fmt"
	"os"

	"github.com/mikey/job-mail-tracker/internal/adapters/cli"
	"github.com/mikey/job-mail-tracker/internal/di"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file.eml ...]",
	Short: "Classify raw messages",
	Long:  "Classifies each message file, or a single message from stdin when no files are given.",
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(_ *cobra.Command, args []string) error {
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(reporter *cli.Reporter, logger *zap.Logger) error {
		defer logger.Sync()

		if len(args) == 0 {
			_, err := reporter.Report("stdin", os.Stdin)
			return err
		}

		failed := 0
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				logger.Error("Failed to open message", zap.String("file", path), zap.Error(err))
				failed++
				continue
			}
			_, err = reporter.Report(path, f)
			f.Close()
			if err != nil {
				logger.Error("Failed to classify message", zap.String("file", path), zap.Error(err))
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d messages failed", failed, len(args))
		}
		return nil
	})
}
