package workflow

import (
	"context"
	"errors"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/temporal"

	"github.com/edvin/drfailover/internal/metrics"
)

// ActivityInterceptor is a Temporal worker interceptor that records activity
// durations and tags untyped activity errors with the activity name, so a
// failed stage shows up by name in the Temporal UI.
type ActivityInterceptor struct {
	interceptor.WorkerInterceptorBase
}

func (e *ActivityInterceptor) InterceptActivity(
	ctx context.Context,
	next interceptor.ActivityInboundInterceptor,
) interceptor.ActivityInboundInterceptor {
	return &activityInterceptor{next: next}
}

type activityInterceptor struct {
	interceptor.ActivityInboundInterceptorBase
	next interceptor.ActivityInboundInterceptor
}

func (e *activityInterceptor) Init(outbound interceptor.ActivityOutboundInterceptor) error {
	return e.next.Init(outbound)
}

func (e *activityInterceptor) ExecuteActivity(
	ctx context.Context,
	in *interceptor.ExecuteActivityInput,
) (interface{}, error) {
	name := activity.GetInfo(ctx).ActivityType.Name
	start := time.Now()
	result, err := e.next.ExecuteActivity(ctx, in)
	metrics.ObserveActivity(name, err, time.Since(start))
	if err != nil {
		var appErr *temporal.ApplicationError
		if errors.As(err, &appErr) && appErr.Type() != "" {
			return result, err
		}
		return result, temporal.NewApplicationError(err.Error(), name, err)
	}
	return result, nil
}
