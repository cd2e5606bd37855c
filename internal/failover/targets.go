package failover

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/edvin/drfailover/internal/metrics"
	"github.com/edvin/drfailover/internal/model"
)

// describeTasksBatch is the maximum number of tasks ECS DescribeTasks accepts.
const describeTasksBatch = 100

// RegisterTargets discovers endpoints for every configured target group
// binding and registers them. Each binding succeeds or fails on its own.
func (f *Failover) RegisterTargets(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	if len(req.TargetGroups) == 0 {
		f.logger.Warn().Msg("TARGET_GROUPS not provided, skipping target registration")
		return skipped("no target groups configured"), nil
	}

	out := model.StageOutcome{Items: make([]model.ItemOutcome, len(req.TargetGroups))}
	forEach(ctx, len(req.TargetGroups), req.MaxParallel, func(ctx context.Context, i int) {
		out.Items[i] = f.registerBinding(ctx, req, req.TargetGroups[i])
	})
	summarize(model.StageRegisterTargets, &out)
	return out, nil
}

func (f *Failover) registerBinding(ctx context.Context, req model.FailoverRequest, b model.TargetGroupBinding) model.ItemOutcome {
	item := model.ItemOutcome{Name: b.TargetGroupARN}
	logger := f.logger.With().Str("target_group", b.TargetGroupARN).Str("type", b.Kind()).Logger()

	if err := ctx.Err(); err != nil {
		item.Kind = model.OutcomeSkipped
		item.Detail = err.Error()
		return item
	}

	var (
		targets []model.DiscoveredTarget
		err     error
	)
	switch {
	case b.Kind() == model.TargetKindInstance && b.SourceASG != "":
		logger.Info().Str("asg", b.SourceASG).Msg("registering instances from ASG")
		targets, err = f.DiscoverASGInstances(ctx, b.SourceASG)
	case b.Kind() == model.TargetKindIP && b.SourceECS != "":
		cluster, service, perr := ParseECSSource(b.SourceECS)
		if perr != nil {
			logger.Error().Err(perr).Str("source_ecs", b.SourceECS).Msg("invalid ECS service info format")
			item.Kind = model.OutcomeSkipped
			item.Detail = perr.Error()
			return item
		}
		port := b.Port
		if port == 0 {
			port = req.DefaultTargetPort
		}
		if port < 1 || port > 65535 {
			logger.Error().Int32("port", port).Msg("invalid target port")
			item.Kind = model.OutcomeSkipped
			item.Detail = fmt.Sprintf("invalid target port %d", port)
			return item
		}
		logger.Info().Str("cluster", cluster).Str("service", service).Int32("port", port).Msg("registering IPs from ECS service")
		targets, err = f.DiscoverTaskAddresses(ctx, cluster, service, port)
	default:
		logger.Warn().Msg("unsupported target configuration")
		item.Kind = model.OutcomeSkipped
		item.Detail = "unsupported target configuration"
		return item
	}
	if err != nil {
		logger.Error().Err(err).Msg("error registering targets")
		item.Kind = model.OutcomeRecoverableFailure
		item.Detail = err.Error()
		return item
	}
	if len(targets) == 0 {
		item.Kind = model.OutcomeSkipped
		item.Detail = "no targets discovered"
		return item
	}

	descs := make([]elbv2types.TargetDescription, 0, len(targets))
	for _, t := range targets {
		descs = append(descs, elbv2types.TargetDescription{Id: aws.String(t.ID), Port: t.Port})
	}
	if _, err := f.elb.RegisterTargets(ctx, &elbv2.RegisterTargetsInput{
		TargetGroupArn: aws.String(b.TargetGroupARN),
		Targets:        descs,
	}); err != nil {
		logger.Error().Err(err).Int("targets", len(descs)).Msg("error registering targets")
		item.Kind = model.OutcomeRecoverableFailure
		item.Detail = fmt.Sprintf("register targets: %v", err)
		return item
	}

	metrics.AddTargetsRegistered(len(descs))
	logger.Info().Int("targets", len(descs)).Msg("registered targets with target group")
	item.Kind = model.OutcomeCompleted
	item.Count = len(descs)
	return item
}

// DiscoverASGInstances returns one target per InService instance of the
// group. Instance targets carry no port; the target group's port applies.
// A missing group or one without InService members yields no targets.
func (f *Failover) DiscoverASGInstances(ctx context.Context, asgName string) ([]model.DiscoveredTarget, error) {
	resp, err := f.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{asgName},
	})
	if err != nil {
		return nil, fmt.Errorf("describe asg %s: %w", asgName, err)
	}
	if len(resp.AutoScalingGroups) == 0 {
		f.logger.Warn().Str("asg", asgName).Msg("ASG not found")
		return nil, nil
	}

	var targets []model.DiscoveredTarget
	for _, inst := range resp.AutoScalingGroups[0].Instances {
		if inst.LifecycleState != asgtypes.LifecycleStateInService {
			continue
		}
		if id := aws.ToString(inst.InstanceId); id != "" {
			targets = append(targets, model.DiscoveredTarget{ID: id})
		}
	}
	if len(targets) == 0 {
		f.logger.Warn().Str("asg", asgName).Msg("no InService instances found in ASG")
	}
	return targets, nil
}

// DiscoverTaskAddresses returns one target per distinct private IPv4 address
// of the service's running tasks, each with the given port.
func (f *Failover) DiscoverTaskAddresses(ctx context.Context, cluster, service string, port int32) ([]model.DiscoveredTarget, error) {
	logger := f.logger.With().Str("cluster", cluster).Str("service", service).Logger()

	var taskARNs []string
	pages := ecs.NewListTasksPaginator(f.ecs, &ecs.ListTasksInput{
		Cluster:       aws.String(cluster),
		ServiceName:   aws.String(service),
		DesiredStatus: ecstypes.DesiredStatusRunning,
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tasks for %s/%s: %w", cluster, service, err)
		}
		taskARNs = append(taskARNs, page.TaskArns...)
	}
	if len(taskARNs) == 0 {
		logger.Warn().Msg("no running tasks found for service")
		return nil, nil
	}

	seen := map[string]bool{}
	var targets []model.DiscoveredTarget
	for start := 0; start < len(taskARNs); start += describeTasksBatch {
		batch := taskARNs[start:min(start+describeTasksBatch, len(taskARNs))]
		resp, err := f.ecs.DescribeTasks(ctx, &ecs.DescribeTasksInput{
			Cluster: aws.String(cluster),
			Tasks:   batch,
		})
		if err != nil {
			return nil, fmt.Errorf("describe tasks for %s/%s: %w", cluster, service, err)
		}
		for _, failure := range resp.Failures {
			logger.Warn().
				Str("task", aws.ToString(failure.Arn)).
				Str("reason", aws.ToString(failure.Reason)).
				Msg("could not describe task")
		}
		for _, task := range resp.Tasks {
			for _, container := range task.Containers {
				for _, ni := range container.NetworkInterfaces {
					ip := aws.ToString(ni.PrivateIpv4Address)
					if ip == "" || seen[ip] {
						continue
					}
					seen[ip] = true
					targets = append(targets, model.DiscoveredTarget{ID: ip, Port: aws.Int32(port)})
				}
			}
		}
	}
	if len(targets) == 0 {
		logger.Warn().Int("tasks", len(taskARNs)).Msg("no valid network interfaces found for tasks in service")
	}
	return targets, nil
}

// ParseECSSource splits a "cluster/service" reference.
func ParseECSSource(s string) (cluster, service string, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidECSSource, s)
	}
	return parts[0], parts[1], nil
}
