// Command drfailover runs one DR failover in-process and prints the result.
// It exits 0 when the failover succeeded and 1 otherwise.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/drfailover/internal/activity"
	"github.com/edvin/drfailover/internal/cloud"
	"github.com/edvin/drfailover/internal/config"
	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/logging"
	"github.com/edvin/drfailover/internal/model"
)

func main() {
	eventFile := flag.String("event", "", "Path to the triggering event payload (logged only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("drfailover"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the result document.
	logger := logging.New(os.Stderr, cfg)

	event := "{}"
	if *eventFile != "" {
		b, err := os.ReadFile(*eventFile)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *eventFile).Msg("failed to read event")
		}
		event = string(b)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := run(ctx, cfg, event, logger)

	out, _ := json.Marshal(result)
	fmt.Println(string(out))
	if !result.Succeeded() {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, event string, logger zerolog.Logger) model.Result {
	req, err := cfg.FailoverRequest(event)
	if err != nil {
		logger.Error().Err(err).Msg("invalid failover configuration")
		return failover.ErrorResult(err)
	}

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create AWS clients")
		return failover.ErrorResult(err)
	}

	f := failover.New(clients, failover.NewWaiter(cfg.DBWaitInterval, cfg.DBWaitMaxAttempts), logger)
	result := failover.NewOrchestrator(f, logger).Run(ctx, req)

	// Delivery must not be cut short by the signal that cancelled the run.
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	runID := "dr-failover-" + uuid.NewString()

	if cfg.WebhookURL != "" {
		err := activity.NewWebhook().SendFailoverWebhook(deliverCtx, activity.SendWebhookParams{
			URL:        cfg.WebhookURL,
			Template:   cfg.WebhookTemplate,
			WorkflowID: runID,
			Result:     result,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to send failover webhook")
		}
	}
	if cfg.ReportBucket != "" {
		key, err := activity.NewReport(clients.S3).ArchiveReport(deliverCtx, activity.ArchiveReportParams{
			Bucket:     cfg.ReportBucket,
			RunID:      runID,
			FinishedAt: time.Now(),
			Result:     result,
		})
		if err != nil {
			logger.Warn().Err(err).Str("bucket", cfg.ReportBucket).Msg("failed to archive failover report")
		} else {
			logger.Info().Str("bucket", cfg.ReportBucket).Str("key", key).Msg("archived failover report")
		}
	}
	return result
}
