// Package failover implements the disaster-recovery failover runbook: promote
// the database replica, scale up standby compute groups and ECS services, and
// register the discovered endpoints with load balancer target groups.
package failover

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/drfailover/internal/cloud"
	"github.com/edvin/drfailover/internal/metrics"
	"github.com/edvin/drfailover/internal/model"
)

var (
	ErrDBInstanceNotFound = errors.New("db instance not found")
	ErrInvalidECSSource   = errors.New("invalid ECS service reference, expected cluster/service")
)

// Policy declares what a fatal error in a stage does to the invocation.
type Policy int

const (
	// PolicyContinue stages isolate per-item failures and never fail the
	// invocation.
	PolicyContinue Policy = iota
	// PolicyFail stages fail the invocation on error, but later stages still run.
	PolicyFail
	// PolicyHalt stages fail the invocation and stop the pipeline on error.
	PolicyHalt
)

func (p Policy) String() string {
	switch p {
	case PolicyContinue:
		return "continue"
	case PolicyFail:
		return "fail"
	case PolicyHalt:
		return "halt"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// Stage is one entry of the pipeline dispatch table.
type Stage struct {
	Name   string
	Policy Policy
}

// Pipeline lists the failover stages in execution order with their failure
// policy. The database must be writable before anything else matters, so a
// promotion failure halts; compute groups gate target registration, so a
// scaling failure fails the run without stopping the independent stages.
var Pipeline = []Stage{
	{Name: model.StagePromoteDatabase, Policy: PolicyHalt},
	{Name: model.StageScaleComputeGroups, Policy: PolicyFail},
	{Name: model.StageScaleServices, Policy: PolicyContinue},
	{Name: model.StageRegisterTargets, Policy: PolicyContinue},
}

// Failover runs the individual failover stages against the AWS control plane.
type Failover struct {
	rds    cloud.RDSAPI
	asg    cloud.AutoScalingAPI
	ecs    cloud.ECSAPI
	elb    cloud.ELBv2API
	waiter *Waiter
	logger zerolog.Logger
}

// New creates a Failover. A nil waiter uses DefaultWaiter.
func New(clients *cloud.Clients, waiter *Waiter, logger zerolog.Logger) *Failover {
	if waiter == nil {
		waiter = DefaultWaiter()
	}
	return &Failover{
		rds:    clients.RDS,
		asg:    clients.AutoScaling,
		ecs:    clients.ECS,
		elb:    clients.ELBv2,
		waiter: waiter,
		logger: logger.With().Str("component", "failover").Logger(),
	}
}

// RunStage runs the named stage, logging its start and end and recording
// metrics. A non-nil error means the stage failed fatally; the returned
// outcome is then marked OutcomeFatalFailure.
func (f *Failover) RunStage(ctx context.Context, name string, req model.FailoverRequest) (model.StageOutcome, error) {
	var fn func(context.Context, model.FailoverRequest) (model.StageOutcome, error)
	switch name {
	case model.StagePromoteDatabase:
		fn = f.PromoteDatabase
	case model.StageScaleComputeGroups:
		fn = f.ScaleComputeGroups
	case model.StageScaleServices:
		fn = f.ScaleServices
	case model.StageRegisterTargets:
		fn = f.RegisterTargets
	default:
		return model.StageOutcome{Stage: name, Kind: model.OutcomeFatalFailure}, fmt.Errorf("unknown stage %q", name)
	}

	logger := f.logger.With().Str("stage", name).Logger()
	logger.Info().Msg("stage started")
	start := time.Now()

	outcome, err := fn(ctx, req)
	outcome.Stage = name
	if err != nil {
		outcome.Kind = model.OutcomeFatalFailure
		outcome.Reason = err.Error()
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("stage failed")
	} else {
		logger.Info().
			Str("outcome", string(outcome.Kind)).
			Str("reason", outcome.Reason).
			Dur("duration", time.Since(start)).
			Msg("stage finished")
	}
	metrics.ObserveStage(name, string(outcome.Kind), time.Since(start))
	return outcome, err
}

// forEach calls fn for every index in [0, n) with at most parallel calls in
// flight. fn reports failures through its own outcome slot, never through the
// group, so one item's failure cannot cancel another.
func forEach(ctx context.Context, n, parallel int, fn func(ctx context.Context, i int)) {
	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i := range n {
		g.Go(func() error {
			fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// summarize derives a stage outcome kind from its items: any failed item
// makes the stage a recoverable failure.
func summarize(stage string, out *model.StageOutcome) {
	out.Kind = model.OutcomeCompleted
	failed := 0
	for _, item := range out.Items {
		metrics.ObserveItem(stage, string(item.Kind))
		if item.Kind.Failed() {
			failed++
		}
	}
	if failed > 0 {
		out.Kind = model.OutcomeRecoverableFailure
		out.Reason = fmt.Sprintf("%d of %d items failed", failed, len(out.Items))
	}
}

func skipped(reason string) model.StageOutcome {
	return model.StageOutcome{Kind: model.OutcomeSkipped, Reason: reason}
}
