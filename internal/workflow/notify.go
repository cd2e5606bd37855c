package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/drfailover/internal/activity"
	"github.com/edvin/drfailover/internal/model"
)

func notifyActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
}

// notifyFailover sends the completion webhook if one is configured. Errors are
// logged but not propagated.
func notifyFailover(ctx workflow.Context, params DRFailoverParams, result model.Result) {
	if params.WebhookURL == "" {
		return
	}
	template := params.WebhookTemplate
	if template == "" {
		template = "generic"
	}

	err := workflow.ExecuteActivity(notifyActivityCtx(ctx), "SendFailoverWebhook", activity.SendWebhookParams{
		URL:        params.WebhookURL,
		Template:   template,
		WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
		Result:     result,
	}).Get(ctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to send failover webhook", "error", err)
	}
}

// archiveFailover writes the run report to S3 if a bucket is configured.
// Errors are logged but not propagated.
func archiveFailover(ctx workflow.Context, params DRFailoverParams, result model.Result) {
	if params.ReportBucket == "" {
		return
	}

	var key string
	err := workflow.ExecuteActivity(notifyActivityCtx(ctx), "ArchiveReport", activity.ArchiveReportParams{
		Bucket:     params.ReportBucket,
		RunID:      workflow.GetInfo(ctx).WorkflowExecution.ID,
		FinishedAt: workflow.Now(ctx),
		Result:     result,
	}).Get(ctx, &key)
	if err != nil {
		workflow.GetLogger(ctx).Warn("failed to archive failover report", "bucket", params.ReportBucket, "error", err)
		return
	}
	workflow.GetLogger(ctx).Info("archived failover report", "bucket", params.ReportBucket, "key", key)
}
