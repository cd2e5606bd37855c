package model

import "strings"

// Target kinds accepted in a target-group binding.
const (
	TargetKindInstance = "instance"
	TargetKindIP       = "ip"
)

// Default capacity values used when re-enabling a dormant standby fleet.
const (
	DefaultASGMinSize         int32 = 1
	DefaultASGMaxSize         int32 = 3
	DefaultASGDesiredCapacity int32 = 1
	DefaultECSDesiredCount    int32 = 1
	DefaultTargetPort         int32 = 80
)

// Capacity is the min/max/desired triple applied to every compute group.
type Capacity struct {
	MinSize         int32 `json:"min_size" validate:"gte=0"`
	MaxSize         int32 `json:"max_size" validate:"gtefield=MinSize"`
	DesiredCapacity int32 `json:"desired_capacity" validate:"gtefield=MinSize,ltefield=MaxSize"`
}

// TargetGroupBinding describes where the endpoints for one load balancer
// target group come from.
type TargetGroupBinding struct {
	TargetGroupARN string `json:"target_group_arn" yaml:"-"`
	Type           string `json:"type" yaml:"type"`
	SourceASG      string `json:"source_asg,omitempty" yaml:"source_asg,omitempty"`
	SourceECS      string `json:"source_ecs,omitempty" yaml:"source_ecs,omitempty"`
	// Port applies to ip targets only. Zero means the request default. An
	// out-of-range port skips the binding at registration time.
	Port int32 `json:"port,omitempty" yaml:"port,omitempty"`
}

// Kind returns the binding's target kind, defaulting to instance like the
// load balancer does.
func (b TargetGroupBinding) Kind() string {
	if b.Type == "" {
		return TargetKindInstance
	}
	return b.Type
}

// Supported reports whether the kind/source combination is one the failover
// knows how to discover endpoints for.
func (b TargetGroupBinding) Supported() bool {
	switch b.Kind() {
	case TargetKindInstance:
		return b.SourceASG != ""
	case TargetKindIP:
		return b.SourceECS != ""
	}
	return false
}

// FailoverRequest carries everything one failover invocation needs. It is
// built once from configuration and passed to every stage.
type FailoverRequest struct {
	DBInstanceIdentifier string               `json:"db_instance_identifier,omitempty"`
	ComputeGroups        []string             `json:"compute_groups,omitempty" validate:"dive,required"`
	Capacity             Capacity             `json:"capacity"`
	ECSCluster           string               `json:"ecs_cluster,omitempty"`
	ECSServices          []string             `json:"ecs_services,omitempty"`
	ECSDesiredCount      int32                `json:"ecs_desired_count" validate:"gte=0"`
	TargetGroups         []TargetGroupBinding `json:"target_groups,omitempty"`
	DefaultTargetPort    int32                `json:"default_target_port"`
	MaxParallel          int                  `json:"max_parallel" validate:"gte=0"`
	// Event is the raw trigger payload. It is logged, never interpreted.
	Event string `json:"event,omitempty"`
}

// ServiceNames returns the configured ECS service names with blanks removed.
func (r FailoverRequest) ServiceNames() []string {
	var out []string
	for _, s := range r.ECSServices {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PromotionOutcome is the result of the database promotion stage.
type PromotionOutcome struct {
	Promoted    bool   `json:"promoted"`
	FinalStatus string `json:"final_status,omitempty"`
	SkipReason  string `json:"skip_reason,omitempty"`
}

// DiscoveredTarget is one endpoint to register with a target group.
type DiscoveredTarget struct {
	ID   string `json:"id"`
	Port *int32 `json:"port,omitempty"`
}
