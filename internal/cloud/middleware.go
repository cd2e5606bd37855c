package cloud

import (
	"context"
	"time"

	awsmiddleware "github.com/aws/aws-sdk-go-v2/aws/middleware"
	"github.com/aws/smithy-go/middleware"

	"github.com/edvin/drfailover/internal/metrics"
)

// callMetricsAPIOptions adds a middleware recording the duration and outcome
// of every AWS API call.
var callMetricsAPIOptions = []func(*middleware.Stack) error{
	func(stack *middleware.Stack) error {
		return stack.Initialize.Add(middleware.InitializeMiddlewareFunc("DRFailoverCallMetrics",
			func(ctx context.Context, in middleware.InitializeInput, next middleware.InitializeHandler) (middleware.InitializeOutput, middleware.Metadata, error) {
				start := time.Now()
				out, md, err := next.HandleInitialize(ctx, in)
				metrics.ObserveAWSCall(
					awsmiddleware.GetServiceID(ctx),
					awsmiddleware.GetOperationName(ctx),
					err,
					time.Since(start),
				)
				return out, md, err
			}), middleware.After)
	},
}
