package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/drfailover/internal/activity"
	"github.com/edvin/drfailover/internal/cloud"
	"github.com/edvin/drfailover/internal/config"
	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/logging"
	"github.com/edvin/drfailover/internal/metrics"
	"github.com/edvin/drfailover/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("failover-worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create AWS clients")
	}

	dialOpts, err := cfg.TemporalOptions()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal client")
	}
	if dialOpts.ConnectionOptions.TLS != nil {
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ActivityInterceptor{}},
	})

	// Register activities
	waiter := failover.NewWaiter(cfg.DBWaitInterval, cfg.DBWaitMaxAttempts)
	activity.HeartbeatOnPoll(waiter)
	w.RegisterActivity(activity.NewFailover(failover.New(clients, waiter, logger)))
	w.RegisterActivity(activity.NewWebhook())
	w.RegisterActivity(activity.NewReport(clients.S3))

	// Register workflows
	w.RegisterWorkflow(workflow.DRFailoverWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr, func() error {
			checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
			defer checkCancel()
			_, err := tc.CheckHealth(checkCtx, &temporalclient.CheckHealthRequest{})
			return err
		})
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", cfg.TemporalTaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}
