package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/edvin/drfailover/internal/model"
)

var validate = validator.New()

// targetGroupEntry is one value of the TARGET_GROUPS map.
type targetGroupEntry struct {
	Type      string `json:"type" yaml:"type"`
	SourceASG string `json:"source_asg" yaml:"source_asg"`
	SourceECS string `json:"source_ecs" yaml:"source_ecs"`
	Port      int32  `json:"port" yaml:"port"`
}

// TargetGroups parses the target-group binding map from TARGET_GROUPS_FILE
// (YAML) and TARGET_GROUPS (JSON). Entries from the env var override entries
// with the same ARN from the file. Bindings are returned sorted by ARN.
func (c *Config) TargetGroups() ([]model.TargetGroupBinding, error) {
	entries := map[string]targetGroupEntry{}

	if c.TargetGroupsFile != "" {
		data, err := os.ReadFile(c.TargetGroupsFile)
		if err != nil {
			return nil, fmt.Errorf("read target groups file: %w", err)
		}
		var fromFile map[string]targetGroupEntry
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse target groups file %s: %w", c.TargetGroupsFile, err)
		}
		for arn, e := range fromFile {
			entries[arn] = e
		}
	}

	if c.TargetGroupsJSON != "" {
		var fromEnv map[string]targetGroupEntry
		if err := json.Unmarshal([]byte(c.TargetGroupsJSON), &fromEnv); err != nil {
			return nil, fmt.Errorf("parse TARGET_GROUPS: %w", err)
		}
		for arn, e := range fromEnv {
			entries[arn] = e
		}
	}

	arns := make([]string, 0, len(entries))
	for arn := range entries {
		arns = append(arns, arn)
	}
	sort.Strings(arns)

	bindings := make([]model.TargetGroupBinding, 0, len(arns))
	for _, arn := range arns {
		e := entries[arn]
		bindings = append(bindings, model.TargetGroupBinding{
			TargetGroupARN: arn,
			Type:           e.Type,
			SourceASG:      e.SourceASG,
			SourceECS:      e.SourceECS,
			Port:           e.Port,
		})
	}
	return bindings, nil
}

// ComputeGroups returns the named auto-scaling groups to scale up, in the
// order Jenkins, monitoring, extras. Duplicates are dropped.
func (c *Config) ComputeGroups() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append([]string{c.JenkinsASGName, c.MonitoringASGName}, c.ExtraASGNames...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// FailoverRequest builds the request for one failover invocation. The event
// payload is carried along for logging only.
func (c *Config) FailoverRequest(event string) (model.FailoverRequest, error) {
	bindings, err := c.TargetGroups()
	if err != nil {
		return model.FailoverRequest{}, err
	}

	req := model.FailoverRequest{
		DBInstanceIdentifier: c.DBInstanceIdentifier,
		ComputeGroups:        c.ComputeGroups(),
		Capacity: model.Capacity{
			MinSize:         c.ASGMinSize,
			MaxSize:         c.ASGMaxSize,
			DesiredCapacity: c.ASGDesiredCapacity,
		},
		ECSCluster:        c.ECSClusterName,
		ECSServices:       c.ECSServices,
		ECSDesiredCount:   c.ECSDesiredCount,
		TargetGroups:      bindings,
		DefaultTargetPort: c.DefaultTargetPort,
		MaxParallel:       c.MaxParallel,
		Event:             event,
	}
	if err := ValidateRequest(req); err != nil {
		return model.FailoverRequest{}, err
	}
	return req, nil
}

// ValidateRequest checks the struct-level constraints of a request.
func ValidateRequest(req model.FailoverRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
