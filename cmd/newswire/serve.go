package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswire/internal/api"
	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/scheduler"
)

var (
	servePort    int
	serveCron    string
	runOnStartup bool
)

// serveCmd creates the "serve" subcommand that runs the control API.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON control API and scheduled runs",
		RunE:  runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "API port (0 = use config)")
	cmd.Flags().StringVar(&serveCron, "cron", "", "cron expression for scheduled runs (overrides config)")
	cmd.Flags().BoolVar(&runOnStartup, "run-now", false, "start a run as soon as the server is up")

	return cmd
}

func applyServeOverrides(cfg *config.Config) {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if serveCron != "" {
		cfg.Schedule.Cron = serveCron
	}
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyServeOverrides)
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(cfg.Server.Port, a.controller, a.store, a.metrics, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start API server: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.Schedule.Cron != "" {
		sched, err = scheduler.New(cfg.Schedule.Cron, a.controller, logger)
		if err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
	}

	if runOnStartup {
		if _, err := a.controller.Start(); err != nil {
			logger.Warn("startup run not started", "error", err)
		}
	}

	fmt.Fprintf(os.Stdout, "Newswire API listening on :%d\n", cfg.Server.Port)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Ask an active run to finish its current article before tearing down.
	if err := a.controller.RequestStop(); err == nil {
		logger.Info("waiting for active run to stop")
		stopped := make(chan struct{})
		go func() {
			a.controller.Wait()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			logger.Warn("active run did not stop in time, aborting")
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown failed", "error", err)
	}
	return nil
}
