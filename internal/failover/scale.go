package failover

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"

	"github.com/edvin/drfailover/internal/model"
)

// ecsServiceInactive is the status ECS reports for deleted services that are
// still visible to DescribeServices.
const ecsServiceInactive = "INACTIVE"

// ScaleComputeGroups raises the capacity of every configured auto-scaling
// group. The first failure aborts the stage and is returned.
func (f *Failover) ScaleComputeGroups(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	if len(req.ComputeGroups) == 0 {
		f.logger.Warn().Msg("no ASGs configured for scaling, skipping ASG scaling")
		return skipped("no compute groups configured"), nil
	}

	c := req.Capacity
	out := model.StageOutcome{Kind: model.OutcomeCompleted}
	for _, name := range req.ComputeGroups {
		logger := f.logger.With().
			Str("asg", name).
			Int32("min", c.MinSize).
			Int32("max", c.MaxSize).
			Int32("desired", c.DesiredCapacity).
			Logger()
		logger.Info().Msg("scaling ASG")

		_, err := f.asg.UpdateAutoScalingGroup(ctx, &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(name),
			MinSize:              aws.Int32(c.MinSize),
			MaxSize:              aws.Int32(c.MaxSize),
			DesiredCapacity:      aws.Int32(c.DesiredCapacity),
		})
		if err != nil {
			logger.Error().Err(err).Msg("error scaling ASG")
			out.Items = append(out.Items, model.ItemOutcome{Name: name, Kind: model.OutcomeFatalFailure, Detail: err.Error()})
			return out, fmt.Errorf("scale asg %s: %w", name, err)
		}

		logger.Info().Msg("updated ASG")
		out.Items = append(out.Items, model.ItemOutcome{Name: name, Kind: model.OutcomeCompleted})
	}
	summarize(model.StageScaleComputeGroups, &out)
	return out, nil
}

// ScaleServices sets the desired task count of every configured ECS service.
// Failures are recorded per service and never abort the stage.
func (f *Failover) ScaleServices(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	services := req.ServiceNames()
	if req.ECSCluster == "" || len(services) == 0 {
		f.logger.Warn().Msg("ECS_CLUSTER_NAME or ECS_SERVICES not provided, skipping ECS scaling")
		return skipped("no ECS cluster or services configured"), nil
	}

	out := model.StageOutcome{Items: make([]model.ItemOutcome, len(services))}
	forEach(ctx, len(services), req.MaxParallel, func(ctx context.Context, i int) {
		out.Items[i] = f.scaleService(ctx, req.ECSCluster, services[i], req.ECSDesiredCount)
	})
	summarize(model.StageScaleServices, &out)
	return out, nil
}

func (f *Failover) scaleService(ctx context.Context, cluster, service string, desired int32) model.ItemOutcome {
	item := model.ItemOutcome{Name: service}
	logger := f.logger.With().Str("cluster", cluster).Str("service", service).Logger()

	if err := ctx.Err(); err != nil {
		item.Kind = model.OutcomeSkipped
		item.Detail = err.Error()
		return item
	}

	logger.Info().Int32("desired_count", desired).Msg("scaling ECS service")

	resp, err := f.ecs.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		logger.Error().Err(err).Msg("error scaling ECS service")
		item.Kind = model.OutcomeRecoverableFailure
		item.Detail = fmt.Sprintf("describe service: %v", err)
		return item
	}
	if len(resp.Services) == 0 || aws.ToString(resp.Services[0].Status) == ecsServiceInactive {
		logger.Warn().Msg("ECS service not found in cluster")
		item.Kind = model.OutcomeSkipped
		item.Detail = "service not found"
		return item
	}

	if _, err := f.ecs.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(cluster),
		Service:      aws.String(service),
		DesiredCount: aws.Int32(desired),
	}); err != nil {
		logger.Error().Err(err).Msg("error scaling ECS service")
		item.Kind = model.OutcomeRecoverableFailure
		item.Detail = fmt.Sprintf("update service: %v", err)
		return item
	}

	logger.Info().Msg("scaled ECS service")
	item.Kind = model.OutcomeCompleted
	return item
}
