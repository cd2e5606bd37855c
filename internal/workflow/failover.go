package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/model"
)

// DRFailoverParams holds the input of DRFailoverWorkflow.
type DRFailoverParams struct {
	Request           model.FailoverRequest `json:"request"`
	WebhookURL        string                `json:"webhook_url,omitempty"`
	WebhookTemplate   string                `json:"webhook_template,omitempty"`
	ReportBucket      string                `json:"report_bucket,omitempty"`
	DBWaitInterval    time.Duration         `json:"db_wait_interval,omitempty"`
	DBWaitMaxAttempts int                   `json:"db_wait_max_attempts,omitempty"`
}

// DRFailoverWorkflow runs the failover pipeline with one activity per stage,
// applying each stage's failure policy. The workflow itself never fails: a
// fatal stage error is reported as a 500 result so callers always get a body.
func DRFailoverWorkflow(ctx workflow.Context, params DRFailoverParams) (model.Result, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("received DR failover event", "event", params.Request.Event)

	var b failover.ResultBuilder
	for _, stage := range failover.Pipeline {
		if err := ctx.Err(); err != nil {
			logger.Error("failover cancelled before stage", "stage", stage.Name, "error", err)
			b.Abort(stage.Name, fmt.Errorf("cancelled before %s: %w", stage.Name, err))
			break
		}

		actCtx := stageActivityCtx(ctx, stage, params.DBWaitInterval, params.DBWaitMaxAttempts)
		var outcome model.StageOutcome
		err := workflow.ExecuteActivity(actCtx, stageActivities[stage.Name], params.Request).Get(ctx, &outcome)
		if err != nil {
			outcome = failedOutcome(err)
			err = cause(err)
			logger.Error("stage failed", "stage", stage.Name, "policy", stage.Policy.String(), "error", err)
		} else {
			logger.Info("stage finished", "stage", stage.Name, "outcome", string(outcome.Kind), "reason", outcome.Reason)
		}

		if halt := b.Record(stage, outcome, err); halt {
			logger.Error("halting failover", "stage", stage.Name)
			break
		}
	}

	result := b.Result()
	logger.Info("DR failover finished", "status_code", result.StatusCode, "body", result.Body)

	// Notification and archiving run even when the workflow was cancelled.
	dctx, _ := workflow.NewDisconnectedContext(ctx)
	notifyFailover(dctx, params, result)
	archiveFailover(dctx, params, result)

	return result, nil
}
