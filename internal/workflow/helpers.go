package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/model"
)

// stageActivities maps pipeline stage names to the activity methods of
// activity.Failover.
var stageActivities = map[string]string{
	model.StagePromoteDatabase:    "PromoteDatabase",
	model.StageScaleComputeGroups: "ScaleComputeGroups",
	model.StageScaleServices:      "ScaleServices",
	model.StageRegisterTargets:    "RegisterTargets",
}

// stageActivityCtx returns a workflow context with the activity options of
// one pipeline stage.
func stageActivityCtx(ctx workflow.Context, stage failover.Stage, waitInterval time.Duration, waitAttempts int) workflow.Context {
	return workflow.WithActivityOptions(ctx, stageActivityOptions(stage, waitInterval, waitAttempts))
}

// stageActivityOptions returns the activity options for one pipeline stage.
// The promotion stage polls RDS for up to interval*attempts and heartbeats on
// every poll; the other stages are short control-plane calls.
//
// Only PolicyFail stages are retried. ASG updates are idempotent, so a rerun
// is harmless. A promotion attempt that fails after PromoteReadReplica was
// accepted would call it again on an instance already being promoted, which
// RDS rejects. PolicyContinue stages already report item failures in their
// outcome, and a rerun would repeat successful mutations.
func stageActivityOptions(stage failover.Stage, waitInterval time.Duration, waitAttempts int) workflow.ActivityOptions {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    1,
			InitialInterval:    5 * time.Second,
			MaximumInterval:    30 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	if stage.Policy == failover.PolicyFail {
		ao.RetryPolicy.MaximumAttempts = 3
	}

	if stage.Name == model.StagePromoteDatabase {
		if waitInterval <= 0 {
			waitInterval = failover.DefaultWaitInterval
		}
		if waitAttempts <= 0 {
			waitAttempts = failover.DefaultWaitMaxAttempts
		}
		ao.StartToCloseTimeout = waitInterval*time.Duration(waitAttempts) + 5*time.Minute
		ao.HeartbeatTimeout = 2*waitInterval + time.Minute
	}
	return ao
}

// failedOutcome recovers the stage outcome an activity attached to its error.
// Temporal drops an activity's return value when it fails, so the activity
// carries the outcome in the error details instead.
func failedOutcome(err error) model.StageOutcome {
	var outcome model.StageOutcome
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.HasDetails() {
		_ = appErr.Details(&outcome)
	}
	return outcome
}

// cause unwraps Temporal activity errors down to the message the activity
// returned, so the result body reads the same as an in-process run.
func cause(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return errors.New(appErr.Message())
	}
	var canceled *temporal.CanceledError
	if errors.As(err, &canceled) {
		return errors.New("failover cancelled")
	}
	return err
}
