package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mikey/job-mail-tracker/internal/adapters/httpapi"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/di"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"github.com/mikey/job-mail-tracker/internal/scheduler"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type components struct {
	dig.In

	Config    *config.Config
	Logger    *zap.Logger
	Store     ports.Store
	Scheduler *scheduler.Scheduler
	Intake    ports.MailIntake
	Server    *httpapi.Server
}

// run is the main application function that gets all dependencies injected
func run(c components) error {
	logger := c.Logger
	defer logger.Sync()
	defer c.Store.Stop()

	if c.Scheduler == nil && c.Intake == nil && c.Server == nil {
		return fmt.Errorf("nothing to run: enable a message source, smtp or http")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if c.Intake != nil {
		if err := c.Intake.Start(); err != nil {
			return fmt.Errorf("failed to start SMTP intake: %w", err)
		}
	}

	if c.Server != nil {
		if err := c.Server.Start(); err != nil {
			return fmt.Errorf("failed to start HTTP API: %w", err)
		}
	}

	schedulerDone := make(chan struct{})
	scan, err := c.Config.GetScan()
	if err != nil {
		return err
	}
	if c.Scheduler != nil && scan.Enabled {
		go func() {
			defer close(schedulerDone)
			c.Scheduler.Run(ctx)
		}()
	} else {
		close(schedulerDone)
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")
	cancel()

	if c.Intake != nil {
		if err := c.Intake.Stop(); err != nil {
			logger.Error("Failed to stop SMTP intake", zap.Error(err))
		}
	}

	if c.Server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := c.Server.Stop(shutdownCtx); err != nil {
			logger.Error("Failed to stop HTTP API", zap.Error(err))
		}
	}

	<-schedulerDone

	logger.Info("Shutdown complete")
	return nil
}
