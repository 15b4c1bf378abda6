/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"fmt"
)

// Rule types understood by RuleSpec
const (
	// RuleApart forbids the listed agents from sharing any resource.
	RuleApart = "apart"
	// RuleTogether requires the listed agents to share the same resource.
	RuleTogether = "together"
	// RuleImplies requires Then to hold whenever If holds.
	RuleImplies = "implies"
	// RuleAtLeast requires at least Count of the listed agents on Resource.
	RuleAtLeast = "atLeast"
	// RuleAtMost allows at most Count of the listed agents on Resource.
	RuleAtMost = "atMost"
	// RulePin assigns every listed agent to Resource.
	RulePin = "pin"
	// RuleForbid keeps every listed agent away from Resource.
	RuleForbid = "forbid"
)

// ProblemData is the serialized form of an allocation problem.
type ProblemData struct {
	// Agents are the agent IDs in declaration order.
	Agents []string `yaml:"agents" json:"agents"`

	// Resources are the resources with their capacities, in declaration order.
	Resources []ResourceSpec `yaml:"resources" json:"resources"`

	// Preferences maps agent IDs to resource IDs, most preferred first.
	// Agents without an entry, or with an empty list, accept any resource.
	Preferences map[string][]string `yaml:"preferences,omitempty" json:"preferences,omitempty"`

	// Rules are custom constraints honored by the exact strategy only.
	Rules []RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// ResourceSpec declares a resource and its capacity.
type ResourceSpec struct {
	Name     string `yaml:"name" json:"name"`
	Capacity int    `yaml:"capacity" json:"capacity"`
}

// AssignmentRef references the assignment of an agent to a resource.
type AssignmentRef struct {
	Agent    string `yaml:"agent" json:"agent"`
	Resource string `yaml:"resource" json:"resource"`
}

// RuleSpec is the serialized form of a built-in custom rule.
type RuleSpec struct {
	// Type is one of the Rule* constants.
	Type string `yaml:"type" json:"type"`

	// Agents are the agents the rule applies to (apart, together, atLeast, atMost, pin, forbid).
	Agents []string `yaml:"agents,omitempty" json:"agents,omitempty"`

	// Resource is the resource the rule applies to (atLeast, atMost, pin, forbid).
	Resource string `yaml:"resource,omitempty" json:"resource,omitempty"`

	// Count is the cardinality bound (atLeast, atMost).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// If and Then are the premise and conclusion of an implies rule.
	If   *AssignmentRef `yaml:"if,omitempty" json:"if,omitempty"`
	Then *AssignmentRef `yaml:"then,omitempty" json:"then,omitempty"`
}

// Validate checks the shape of a rule spec. References to agents and
// resources are resolved when the rule is built against a problem.
func (r *RuleSpec) Validate() error {
	switch r.Type {
	case RuleApart, RuleTogether:
		if len(r.Agents) < 2 {
			return fmt.Errorf("%s rule needs at least 2 agents, got %d", r.Type, len(r.Agents))
		}
	case RuleAtLeast, RuleAtMost:
		if len(r.Agents) == 0 || r.Resource == "" {
			return fmt.Errorf("%s rule needs agents and a resource", r.Type)
		}
		if r.Count < 0 {
			return fmt.Errorf("%s rule count must be >= 0, got %d", r.Type, r.Count)
		}
	case RulePin, RuleForbid:
		if len(r.Agents) == 0 || r.Resource == "" {
			return fmt.Errorf("%s rule needs agents and a resource", r.Type)
		}
	case RuleImplies:
		if r.If == nil || r.Then == nil {
			return fmt.Errorf("implies rule needs both if and then")
		}
		if r.If.Agent == "" || r.If.Resource == "" || r.Then.Agent == "" || r.Then.Resource == "" {
			return fmt.Errorf("implies rule references must name an agent and a resource")
		}
	case "":
		return fmt.Errorf("rule type is required")
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

// Validate checks the rule specs of the problem data. Agents, resources,
// capacities and preferences are validated when the problem is built.
func (d *ProblemData) Validate() error {
	for i := range d.Rules {
		if err := d.Rules[i].Validate(); err != nil {
			return fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return nil
}
