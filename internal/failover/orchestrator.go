package failover

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/drfailover/internal/model"
)

const (
	successBody   = "DR failover completed successfully"
	failurePrefix = "Error during DR failover: "
)

// StageRunner runs one named stage. *Failover implements it.
type StageRunner interface {
	RunStage(ctx context.Context, name string, req model.FailoverRequest) (model.StageOutcome, error)
}

// Orchestrator runs the Pipeline in-process.
type Orchestrator struct {
	runner StageRunner
	logger zerolog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(runner StageRunner, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		runner: runner,
		logger: logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Run executes every stage of the Pipeline in order and returns the overall
// result. Stage failures are handled according to each stage's Policy. A
// cancelled context stops the pipeline before the next stage starts; mutations
// already issued are not rolled back.
func (o *Orchestrator) Run(ctx context.Context, req model.FailoverRequest) model.Result {
	o.logger.Info().Str("event", req.Event).Msg("received DR failover event")

	var b ResultBuilder
	for _, stage := range Pipeline {
		if err := ctx.Err(); err != nil {
			o.logger.Error().Err(err).Str("stage", stage.Name).Msg("failover cancelled before stage")
			b.Abort(stage.Name, fmt.Errorf("cancelled before %s: %w", stage.Name, err))
			break
		}
		outcome, err := o.runner.RunStage(ctx, stage.Name, req)
		if halt := b.Record(stage, outcome, err); halt {
			o.logger.Error().Str("stage", stage.Name).Msg("halting failover")
			break
		}
	}

	result := b.Result()
	if result.Succeeded() {
		o.logger.Info().Int("status_code", result.StatusCode).Msg(result.Body)
	} else {
		o.logger.Error().Int("status_code", result.StatusCode).Msg(result.Body)
	}
	return result
}

// ResultBuilder accumulates stage outcomes and applies the stage policies.
// The zero value is ready to use.
type ResultBuilder struct {
	stages []model.StageOutcome
	fatal  error
}

// Record adds a stage outcome. err is the stage's fatal error, if any. It
// reports whether the pipeline must halt.
func (b *ResultBuilder) Record(stage Stage, outcome model.StageOutcome, err error) bool {
	outcome.Stage = stage.Name
	if err == nil {
		b.stages = append(b.stages, outcome)
		return false
	}

	if stage.Policy == PolicyContinue {
		// Stages with this policy contain their own failures; an error that
		// still escapes is demoted rather than failing the run.
		outcome.Kind = model.OutcomeRecoverableFailure
		outcome.Reason = err.Error()
		b.stages = append(b.stages, outcome)
		return false
	}

	outcome.Kind = model.OutcomeFatalFailure
	outcome.Reason = err.Error()
	b.stages = append(b.stages, outcome)
	if b.fatal == nil {
		b.fatal = err
	}
	return stage.Policy == PolicyHalt
}

// Abort records that the pipeline stopped before the named stage.
func (b *ResultBuilder) Abort(stageName string, err error) {
	b.stages = append(b.stages, model.StageOutcome{
		Stage:  stageName,
		Kind:   model.OutcomeFatalFailure,
		Reason: err.Error(),
	})
	if b.fatal == nil {
		b.fatal = err
	}
}

// Result returns 200 unless a fatal failure was recorded, in which case it
// returns 500 with the first fatal error in the body.
func (b *ResultBuilder) Result() model.Result {
	if b.fatal != nil {
		result := ErrorResult(b.fatal)
		result.Stages = b.stages
		return result
	}
	return model.Result{
		StatusCode: http.StatusOK,
		Body:       successBody,
		Stages:     b.stages,
	}
}

// ErrorResult returns the 500 result for a failover that could not complete.
func ErrorResult(err error) model.Result {
	return model.Result{
		StatusCode: http.StatusInternalServerError,
		Body:       failurePrefix + err.Error(),
	}
}
