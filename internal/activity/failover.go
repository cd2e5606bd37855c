package activity

import (
	"context"
	"errors"

	temporalactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/drfailover/internal/failover"
	"github.com/edvin/drfailover/internal/model"
)

// Failover contains one activity per failover stage. Each activity runs the
// stage against AWS and returns its outcome; a returned error means the stage
// failed fatally.
type Failover struct {
	runner failover.StageRunner
}

// NewFailover creates a new Failover activity struct.
func NewFailover(runner failover.StageRunner) *Failover {
	return &Failover{runner: runner}
}

// PromoteDatabase promotes the configured RDS read replica.
func (a *Failover) PromoteDatabase(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	return a.run(ctx, model.StagePromoteDatabase, req)
}

// ScaleComputeGroups raises capacity on the configured auto-scaling groups.
func (a *Failover) ScaleComputeGroups(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	return a.run(ctx, model.StageScaleComputeGroups, req)
}

// ScaleServices raises the desired count of the configured ECS services.
func (a *Failover) ScaleServices(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	return a.run(ctx, model.StageScaleServices, req)
}

// RegisterTargets registers discovered endpoints with the target groups.
func (a *Failover) RegisterTargets(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	return a.run(ctx, model.StageRegisterTargets, req)
}

// run executes one stage. Temporal discards an activity's return value when
// it fails, so a failed stage carries its outcome in the error details.
func (a *Failover) run(ctx context.Context, stage string, req model.FailoverRequest) (model.StageOutcome, error) {
	outcome, err := a.runner.RunStage(ctx, stage, req)
	if err == nil {
		return outcome, nil
	}
	// Retrying cannot help once the instance is gone, broken, or the wait
	// budget is spent.
	if errors.Is(err, failover.ErrTerminalState) ||
		errors.Is(err, failover.ErrDBInstanceNotFound) ||
		errors.Is(err, failover.ErrWaitTimeout) {
		return outcome, temporal.NewNonRetryableApplicationError(err.Error(), "FAILOVER_FATAL", err, outcome)
	}
	return outcome, temporal.NewApplicationErrorWithCause(err.Error(), stage, err, outcome)
}

// HeartbeatOnPoll makes the waiter record an activity heartbeat on every poll
// while it runs inside an activity.
func HeartbeatOnPoll(w *failover.Waiter) {
	w.OnAttempt = func(ctx context.Context, attempt int, status string) {
		if temporalactivity.IsActivity(ctx) {
			temporalactivity.RecordHeartbeat(ctx, attempt, status)
		}
	}
}
