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

package core

import (
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
)

// NewProblemFromSpec builds a Problem from its serialized form.
// Duplicate resource declarations are reported as invalid input.
func NewProblemFromSpec(data *config.ProblemData) (*Problem, error) {
	if data == nil {
		return nil, NewValidationError("problem", "", "problem data is nil")
	}
	agents := make([]AgentID, len(data.Agents))
	for i, a := range data.Agents {
		agents[i] = AgentID(a)
	}

	resources := make([]ResourceID, len(data.Resources))
	capacities := make(map[ResourceID]int, len(data.Resources))
	for i, rs := range data.Resources {
		r := ResourceID(rs.Name)
		if _, dup := capacities[r]; dup {
			return nil, NewValidationError("resources", rs.Name, "duplicate resource")
		}
		resources[i] = r
		capacities[r] = rs.Capacity
	}

	var preferences map[AgentID][]ResourceID
	if len(data.Preferences) > 0 {
		preferences = make(map[AgentID][]ResourceID, len(data.Preferences))
		for a, prefs := range data.Preferences {
			list := make([]ResourceID, len(prefs))
			for i, r := range prefs {
				list[i] = ResourceID(r)
			}
			preferences[AgentID(a)] = list
		}
	}
	return NewProblem(agents, resources, preferences, capacities)
}

// ToSpec returns the serialized form of the problem, without rules.
func (p *Problem) ToSpec() *config.ProblemData {
	data := &config.ProblemData{
		Agents:    make([]string, len(p.agents)),
		Resources: make([]config.ResourceSpec, len(p.resources)),
	}
	for i, a := range p.agents {
		data.Agents[i] = string(a)
	}
	for i, r := range p.resources {
		data.Resources[i] = config.ResourceSpec{Name: string(r), Capacity: p.capacities[r]}
	}
	if len(p.preferences) > 0 {
		data.Preferences = make(map[string][]string, len(p.preferences))
		for a, prefs := range p.preferences {
			list := make([]string, len(prefs))
			for i, r := range prefs {
				list[i] = string(r)
			}
			data.Preferences[string(a)] = list
		}
	}
	return data
}
