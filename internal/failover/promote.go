package failover

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/edvin/drfailover/internal/model"
)

var ErrTerminalState = errors.New("db instance entered a terminal state")

// PromoteDatabase promotes the configured read replica to a standalone
// instance and waits until it is available. An instance that is not a replica
// is left alone. Any error is fatal.
func (f *Failover) PromoteDatabase(ctx context.Context, req model.FailoverRequest) (model.StageOutcome, error) {
	id := req.DBInstanceIdentifier
	if id == "" {
		f.logger.Warn().Msg("DB_INSTANCE_IDENTIFIER not provided, skipping RDS promotion")
		return skipped("no db instance identifier configured"), nil
	}

	logger := f.logger.With().Str("db_instance", id).Logger()
	logger.Info().Msg("promoting RDS read replica to standalone instance")

	inst, err := f.describeDBInstance(ctx, id)
	if err != nil {
		return model.StageOutcome{}, fmt.Errorf("promote %s: %w", id, err)
	}

	source := aws.ToString(inst.ReadReplicaSourceDBInstanceIdentifier)
	if source == "" {
		logger.Warn().Msg("db instance is not a read replica, skipping promotion")
		out := skipped("db instance is not a read replica")
		out.Promotion = &model.PromotionOutcome{
			FinalStatus: aws.ToString(inst.DBInstanceStatus),
			SkipReason:  out.Reason,
		}
		return out, nil
	}

	if _, err := f.rds.PromoteReadReplica(ctx, &rds.PromoteReadReplicaInput{
		DBInstanceIdentifier: aws.String(id),
	}); err != nil {
		return model.StageOutcome{}, fmt.Errorf("promote read replica %s: %w", id, err)
	}
	logger.Info().Str("replica_source", source).Msg("initiated promotion, waiting for instance to become available")

	status, err := f.waiter.Wait(ctx, func(ctx context.Context) (bool, string, error) {
		inst, err := f.describeDBInstance(ctx, id)
		if err != nil {
			return false, "", err
		}
		status := aws.ToString(inst.DBInstanceStatus)
		if model.IsTerminalDBStatus(status) {
			return false, status, fmt.Errorf("%w: %s", ErrTerminalState, status)
		}
		logger.Debug().Str("status", status).Msg("polled db instance")
		// The instance can still report available for a moment after the
		// promote call, so completion also requires the replica link to be gone.
		return status == model.DBStatusAvailable && aws.ToString(inst.ReadReplicaSourceDBInstanceIdentifier) == "", status, nil
	})
	if err != nil {
		return model.StageOutcome{}, fmt.Errorf("wait for %s to become available: %w", id, err)
	}

	logger.Info().Str("status", status).Msg("RDS instance promoted to standalone instance")
	return model.StageOutcome{
		Kind:      model.OutcomeCompleted,
		Promotion: &model.PromotionOutcome{Promoted: true, FinalStatus: status},
	}, nil
}

func (f *Failover) describeDBInstance(ctx context.Context, id string) (*rdstypes.DBInstance, error) {
	out, err := f.rds.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, fmt.Errorf("describe db instance %s: %w", id, err)
	}
	if len(out.DBInstances) == 0 {
		return nil, fmt.Errorf("describe db instance %s: %w", id, ErrDBInstanceNotFound)
	}
	return &out.DBInstances[0], nil
}
