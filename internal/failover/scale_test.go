package failover

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/drfailover/internal/model"
)

var defaultCapacity = model.Capacity{MinSize: 1, MaxSize: 3, DesiredCapacity: 1}

func matchASGUpdate(name string, c model.Capacity) interface{} {
	return mock.MatchedBy(func(in *autoscaling.UpdateAutoScalingGroupInput) bool {
		return aws.ToString(in.AutoScalingGroupName) == name &&
			aws.ToInt32(in.MinSize) == c.MinSize &&
			aws.ToInt32(in.MaxSize) == c.MaxSize &&
			aws.ToInt32(in.DesiredCapacity) == c.DesiredCapacity
	})
}

func TestScaleComputeGroups_UpdatesEveryGroup(t *testing.T) {
	h := newHarness(3)
	groups := []string{"jenkins-dr", "monitoring-dr", "bastion-dr"}
	for _, g := range groups {
		h.asg.On("UpdateAutoScalingGroup", mock.Anything, matchASGUpdate(g, defaultCapacity)).
			Return(&autoscaling.UpdateAutoScalingGroupOutput{}, nil).Once()
	}

	out, err := h.f.ScaleComputeGroups(context.Background(), model.FailoverRequest{
		ComputeGroups: groups,
		Capacity:      defaultCapacity,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCompleted, out.Kind)
	assert.Len(t, out.Items, 3)
	h.asg.AssertNumberOfCalls(t, "UpdateAutoScalingGroup", 3)
	h.assertExpectations(t)
}

func TestScaleComputeGroups_CustomCapacity(t *testing.T) {
	h := newHarness(3)
	c := model.Capacity{MinSize: 2, MaxSize: 6, DesiredCapacity: 4}
	h.asg.On("UpdateAutoScalingGroup", mock.Anything, matchASGUpdate("jenkins-dr", c)).
		Return(&autoscaling.UpdateAutoScalingGroupOutput{}, nil).Once()

	_, err := h.f.ScaleComputeGroups(context.Background(), model.FailoverRequest{
		ComputeGroups: []string{"jenkins-dr"},
		Capacity:      c,
	})
	require.NoError(t, err)
	h.assertExpectations(t)
}

func TestScaleComputeGroups_ErrorAbortsStage(t *testing.T) {
	h := newHarness(3)
	h.asg.On("UpdateAutoScalingGroup", mock.Anything, matchASGUpdate("jenkins-dr", defaultCapacity)).
		Return(&autoscaling.UpdateAutoScalingGroupOutput{}, nil).Once()
	h.asg.On("UpdateAutoScalingGroup", mock.Anything, matchASGUpdate("monitoring-dr", defaultCapacity)).
		Return(nil, errors.New("ValidationError: group not found")).Once()

	out, err := h.f.ScaleComputeGroups(context.Background(), model.FailoverRequest{
		ComputeGroups: []string{"jenkins-dr", "monitoring-dr", "bastion-dr"},
		Capacity:      defaultCapacity,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scale asg monitoring-dr")
	require.Len(t, out.Items, 2)
	assert.Equal(t, model.OutcomeFatalFailure, out.Items[1].Kind)
	h.asg.AssertNumberOfCalls(t, "UpdateAutoScalingGroup", 2)
	h.assertExpectations(t)
}

func TestScaleComputeGroups_NoGroupsSkips(t *testing.T) {
	h := newHarness(3)
	out, err := h.f.ScaleComputeGroups(context.Background(), model.FailoverRequest{Capacity: defaultCapacity})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, out.Kind)
	h.asg.AssertNotCalled(t, "UpdateAutoScalingGroup", mock.Anything, mock.Anything)
}

func matchService(name string) interface{} {
	return mock.MatchedBy(func(in *ecs.DescribeServicesInput) bool {
		return aws.ToString(in.Cluster) == "prod" && len(in.Services) == 1 && in.Services[0] == name
	})
}

func matchServiceUpdate(name string, desired int32) interface{} {
	return mock.MatchedBy(func(in *ecs.UpdateServiceInput) bool {
		return aws.ToString(in.Cluster) == "prod" &&
			aws.ToString(in.Service) == name &&
			aws.ToInt32(in.DesiredCount) == desired
	})
}

func existingService(name string) *ecs.DescribeServicesOutput {
	return &ecs.DescribeServicesOutput{Services: []ecstypes.Service{
		{ServiceName: aws.String(name), Status: aws.String("ACTIVE")},
	}}
}

func TestScaleServices_FailureDoesNotStopOthers(t *testing.T) {
	for _, parallel := range []int{1, 3} {
		h := newHarness(3)
		h.ecs.On("DescribeServices", mock.Anything, matchService("api")).Return(existingService("api"), nil).Once()
		h.ecs.On("DescribeServices", mock.Anything, matchService("worker")).Return(nil, errors.New("ClusterNotFound")).Once()
		h.ecs.On("DescribeServices", mock.Anything, matchService("web")).Return(existingService("web"), nil).Once()
		h.ecs.On("UpdateService", mock.Anything, matchServiceUpdate("api", 1)).Return(&ecs.UpdateServiceOutput{}, nil).Once()
		h.ecs.On("UpdateService", mock.Anything, matchServiceUpdate("web", 1)).Return(&ecs.UpdateServiceOutput{}, nil).Once()

		out, err := h.f.ScaleServices(context.Background(), model.FailoverRequest{
			ECSCluster:      "prod",
			ECSServices:     []string{"api", "worker", "web"},
			ECSDesiredCount: 1,
			MaxParallel:     parallel,
		})
		require.NoError(t, err)
		assert.Equal(t, model.OutcomeRecoverableFailure, out.Kind)
		require.Len(t, out.Items, 3)
		assert.Equal(t, model.OutcomeCompleted, out.Items[0].Kind)
		assert.Equal(t, model.OutcomeRecoverableFailure, out.Items[1].Kind)
		assert.Equal(t, model.OutcomeCompleted, out.Items[2].Kind)
		h.assertExpectations(t)
	}
}

func TestScaleServices_UpdateErrorIsRecoverable(t *testing.T) {
	h := newHarness(3)
	h.ecs.On("DescribeServices", mock.Anything, matchService("api")).Return(existingService("api"), nil).Once()
	h.ecs.On("UpdateService", mock.Anything, matchServiceUpdate("api", 2)).
		Return(nil, errors.New("AccessDenied")).Once()

	out, err := h.f.ScaleServices(context.Background(), model.FailoverRequest{
		ECSCluster:      "prod",
		ECSServices:     []string{"api"},
		ECSDesiredCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, model.OutcomeRecoverableFailure, out.Items[0].Kind)
	assert.Contains(t, out.Items[0].Detail, "AccessDenied")
	h.assertExpectations(t)
}

func TestScaleServices_MissingServiceSkipped(t *testing.T) {
	h := newHarness(3)
	h.ecs.On("DescribeServices", mock.Anything, matchService("gone")).
		Return(&ecs.DescribeServicesOutput{Failures: []ecstypes.Failure{{Reason: aws.String("MISSING")}}}, nil).Once()
	h.ecs.On("DescribeServices", mock.Anything, matchService("old")).Return(&ecs.DescribeServicesOutput{
		Services: []ecstypes.Service{{ServiceName: aws.String("old"), Status: aws.String("INACTIVE")}},
	}, nil).Once()
	h.ecs.On("DescribeServices", mock.Anything, matchService("api")).Return(existingService("api"), nil).Once()
	h.ecs.On("UpdateService", mock.Anything, matchServiceUpdate("api", 1)).Return(&ecs.UpdateServiceOutput{}, nil).Once()

	out, err := h.f.ScaleServices(context.Background(), model.FailoverRequest{
		ECSCluster:      "prod",
		ECSServices:     []string{"gone", " ", "old", "api"},
		ECSDesiredCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCompleted, out.Kind)
	require.Len(t, out.Items, 3)
	assert.Equal(t, model.OutcomeSkipped, out.Items[0].Kind)
	assert.Equal(t, model.OutcomeSkipped, out.Items[1].Kind)
	assert.Equal(t, model.OutcomeCompleted, out.Items[2].Kind)
	h.ecs.AssertNumberOfCalls(t, "UpdateService", 1)
	h.assertExpectations(t)
}

func TestScaleServices_NoClusterOrServicesSkips(t *testing.T) {
	h := newHarness(3)

	out, err := h.f.ScaleServices(context.Background(), model.FailoverRequest{ECSServices: []string{"api"}})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, out.Kind)

	out, err = h.f.ScaleServices(context.Background(), model.FailoverRequest{ECSCluster: "prod", ECSServices: []string{"", " "}})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeSkipped, out.Kind)

	h.ecs.AssertNotCalled(t, "DescribeServices", mock.Anything, mock.Anything)
}

func TestScaleServices_CancelledContextSkipsItems(t *testing.T) {
	h := newHarness(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := h.f.ScaleServices(ctx, model.FailoverRequest{
		ECSCluster:      "prod",
		ECSServices:     []string{"api", "web"},
		ECSDesiredCount: 1,
	})
	require.NoError(t, err)
	for _, item := range out.Items {
		assert.Equal(t, model.OutcomeSkipped, item.Kind)
	}
	h.ecs.AssertNotCalled(t, "DescribeServices", mock.Anything, mock.Anything)
}
