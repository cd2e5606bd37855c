package failover

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/drfailover/internal/cloud"
)

// --- AWS client mocks ---

type mockRDS struct{ mock.Mock }

func (m *mockRDS) DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, _ ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rds.DescribeDBInstancesOutput), args.Error(1)
}

func (m *mockRDS) PromoteReadReplica(ctx context.Context, in *rds.PromoteReadReplicaInput, _ ...func(*rds.Options)) (*rds.PromoteReadReplicaOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rds.PromoteReadReplicaOutput), args.Error(1)
}

type mockASG struct{ mock.Mock }

func (m *mockASG) DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, _ ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*autoscaling.DescribeAutoScalingGroupsOutput), args.Error(1)
}

func (m *mockASG) UpdateAutoScalingGroup(ctx context.Context, in *autoscaling.UpdateAutoScalingGroupInput, _ ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*autoscaling.UpdateAutoScalingGroupOutput), args.Error(1)
}

type mockECS struct{ mock.Mock }

func (m *mockECS) DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, _ ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecs.DescribeServicesOutput), args.Error(1)
}

func (m *mockECS) UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, _ ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecs.UpdateServiceOutput), args.Error(1)
}

func (m *mockECS) ListTasks(ctx context.Context, in *ecs.ListTasksInput, _ ...func(*ecs.Options)) (*ecs.ListTasksOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecs.ListTasksOutput), args.Error(1)
}

func (m *mockECS) DescribeTasks(ctx context.Context, in *ecs.DescribeTasksInput, _ ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ecs.DescribeTasksOutput), args.Error(1)
}

type mockELB struct{ mock.Mock }

func (m *mockELB) RegisterTargets(ctx context.Context, in *elbv2.RegisterTargetsInput, _ ...func(*elbv2.Options)) (*elbv2.RegisterTargetsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*elbv2.RegisterTargetsOutput), args.Error(1)
}

// --- test harness ---

type harness struct {
	rds    *mockRDS
	asg    *mockASG
	ecs    *mockECS
	elb    *mockELB
	sleeps int
	f      *Failover
}

func newHarness(maxAttempts int) *harness {
	h := &harness{rds: &mockRDS{}, asg: &mockASG{}, ecs: &mockECS{}, elb: &mockELB{}}
	w := NewWaiter(0, maxAttempts)
	w.Sleep = func(ctx context.Context, _ time.Duration) error {
		h.sleeps++
		return ctx.Err()
	}
	h.f = New(&cloud.Clients{RDS: h.rds, AutoScaling: h.asg, ECS: h.ecs, ELBv2: h.elb}, w, zerolog.Nop())
	return h
}

func (h *harness) assertExpectations(t mock.TestingT) {
	h.rds.AssertExpectations(t)
	h.asg.AssertExpectations(t)
	h.ecs.AssertExpectations(t)
	h.elb.AssertExpectations(t)
}

func dbInstances(status, replicaSource string) *rds.DescribeDBInstancesOutput {
	inst := rdstypes.DBInstance{
		DBInstanceIdentifier: aws.String("app-db-dr"),
		DBInstanceStatus:     aws.String(status),
	}
	if replicaSource != "" {
		inst.ReadReplicaSourceDBInstanceIdentifier = aws.String(replicaSource)
	}
	return &rds.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{inst}}
}
