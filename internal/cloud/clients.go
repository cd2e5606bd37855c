// Package cloud wires the AWS control-plane clients the failover talks to.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/edvin/drfailover/internal/config"
)

// RDSAPI is the subset of the RDS client used for replica promotion.
type RDSAPI interface {
	DescribeDBInstances(ctx context.Context, in *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	PromoteReadReplica(ctx context.Context, in *rds.PromoteReadReplicaInput, optFns ...func(*rds.Options)) (*rds.PromoteReadReplicaOutput, error)
}

// AutoScalingAPI is the subset of the Auto Scaling client used for compute
// group scale-up and instance discovery.
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, in *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	UpdateAutoScalingGroup(ctx context.Context, in *autoscaling.UpdateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error)
}

// ECSAPI is the subset of the ECS client used for service scale-up and task
// discovery.
type ECSAPI interface {
	DescribeServices(ctx context.Context, in *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, in *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	ListTasks(ctx context.Context, in *ecs.ListTasksInput, optFns ...func(*ecs.Options)) (*ecs.ListTasksOutput, error)
	DescribeTasks(ctx context.Context, in *ecs.DescribeTasksInput, optFns ...func(*ecs.Options)) (*ecs.DescribeTasksOutput, error)
}

// ELBv2API is the subset of the Elastic Load Balancing v2 client used for
// target registration.
type ELBv2API interface {
	RegisterTargets(ctx context.Context, in *elbv2.RegisterTargetsInput, optFns ...func(*elbv2.Options)) (*elbv2.RegisterTargetsOutput, error)
}

// S3API is the subset of the S3 client used to archive run reports.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Clients bundles the control-plane clients for one region.
type Clients struct {
	RDS         RDSAPI
	AutoScaling AutoScalingAPI
	ECS         ECSAPI
	ELBv2       ELBv2API
	S3          S3API
}

// NewClients loads the default AWS credential chain and builds every client.
// AWS_ENDPOINT_URL points all clients at one endpoint (e.g. LocalStack), and
// static keys override the default chain when both are set.
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithAPIOptions(callMetricsAPIOptions),
	}
	if cfg.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("load aws config: no region configured (set AWS_REGION)")
	}

	var endpoint *string
	if cfg.AWSEndpointURL != "" {
		endpoint = aws.String(cfg.AWSEndpointURL)
	}

	return &Clients{
		RDS: rds.NewFromConfig(awsCfg, func(o *rds.Options) {
			o.BaseEndpoint = endpoint
		}),
		AutoScaling: autoscaling.NewFromConfig(awsCfg, func(o *autoscaling.Options) {
			o.BaseEndpoint = endpoint
		}),
		ECS: ecs.NewFromConfig(awsCfg, func(o *ecs.Options) {
			o.BaseEndpoint = endpoint
		}),
		ELBv2: elbv2.NewFromConfig(awsCfg, func(o *elbv2.Options) {
			o.BaseEndpoint = endpoint
		}),
		S3: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = endpoint != nil
		}),
	}, nil
}
