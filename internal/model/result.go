package model

import "net/http"

// Stage names in pipeline order.
const (
	StagePromoteDatabase    = "promote_database"
	StageScaleComputeGroups = "scale_compute_groups"
	StageScaleServices      = "scale_services"
	StageRegisterTargets    = "register_targets"
)

// ItemOutcome records what happened to one item inside a stage: a compute
// group, an ECS service or a target group binding.
type ItemOutcome struct {
	Name   string      `json:"name"`
	Kind   OutcomeKind `json:"kind"`
	Detail string      `json:"detail,omitempty"`
	// Count is the number of targets registered, for bindings.
	Count int `json:"count,omitempty"`
}

// StageOutcome records what happened to one pipeline stage.
type StageOutcome struct {
	Stage     string            `json:"stage"`
	Kind      OutcomeKind       `json:"kind"`
	Reason    string            `json:"reason,omitempty"`
	Items     []ItemOutcome     `json:"items,omitempty"`
	Promotion *PromotionOutcome `json:"promotion,omitempty"`
}

// Result is the externally observed output of one failover invocation.
type Result struct {
	StatusCode int            `json:"statusCode"`
	Body       string         `json:"body"`
	Stages     []StageOutcome `json:"stages,omitempty"`
}

// Succeeded reports whether the invocation completed without a fatal failure.
func (r Result) Succeeded() bool {
	return r.StatusCode == http.StatusOK
}
