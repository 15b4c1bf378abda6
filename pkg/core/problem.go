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
	"k8s.io/apimachinery/pkg/util/sets"
)

// AgentID identifies an entity that requires an assignment (e.g. a student).
type AgentID string

// ResourceID identifies a capacity-limited entity receiving assignments (e.g. a project).
type ResourceID string

// Problem is the validated input of a solve invocation.
// It is immutable after NewProblem returns and may be shared between strategies.
type Problem struct {
	agents      []AgentID
	agentIndex  map[AgentID]int
	resources   []ResourceID
	preferences map[AgentID][]ResourceID
	capacities  map[ResourceID]int

	// rank[agent][resource] is the index of resource in the agent's preference list
	rank map[AgentID]map[ResourceID]int
}

// NewProblem validates the caller-supplied input and builds a Problem.
// Agents and resources keep their declaration order, which strategies use for tie-breaking.
// Agents missing from preferences, or mapped to an empty list, may be assigned to any resource.
// All returned errors wrap ErrInvalidInput.
func NewProblem(
	agents []AgentID,
	resources []ResourceID,
	preferences map[AgentID][]ResourceID,
	capacities map[ResourceID]int,
) (*Problem, error) {
	agentSet := sets.New[AgentID]()
	for _, a := range agents {
		if a == "" {
			return nil, NewValidationError("agents", "", "agent ID must not be empty")
		}
		if agentSet.Has(a) {
			return nil, NewValidationError("agents", string(a), "duplicate agent")
		}
		agentSet.Insert(a)
	}

	resourceSet := sets.New[ResourceID]()
	for _, r := range resources {
		if r == "" {
			return nil, NewValidationError("resources", "", "resource ID must not be empty")
		}
		if resourceSet.Has(r) {
			return nil, NewValidationError("resources", string(r), "duplicate resource")
		}
		resourceSet.Insert(r)
	}

	for r, c := range capacities {
		if !resourceSet.Has(r) {
			return nil, NewValidationError("capacities", string(r), "capacity declared for unknown resource")
		}
		if c < 0 {
			return nil, NewValidationError("capacities", string(r), "capacity must be non-negative")
		}
	}

	p := &Problem{
		agents:      append([]AgentID(nil), agents...),
		agentIndex:  make(map[AgentID]int, len(agents)),
		resources:   append([]ResourceID(nil), resources...),
		preferences: make(map[AgentID][]ResourceID, len(preferences)),
		capacities:  make(map[ResourceID]int, len(resources)),
		rank:        make(map[AgentID]map[ResourceID]int, len(preferences)),
	}
	for i, a := range agents {
		p.agentIndex[a] = i
	}
	for _, r := range resources {
		c, ok := capacities[r]
		if !ok {
			return nil, NewValidationError("capacities", string(r), "missing capacity for resource")
		}
		p.capacities[r] = c
	}

	for a, prefs := range preferences {
		if !agentSet.Has(a) {
			return nil, NewValidationError("preferences", string(a), "preference list for unknown agent")
		}
		ranks := make(map[ResourceID]int, len(prefs))
		for i, r := range prefs {
			if !resourceSet.Has(r) {
				return nil, NewValidationError("preferences", string(a), "preference references unknown resource "+string(r))
			}
			if _, dup := ranks[r]; dup {
				return nil, NewValidationError("preferences", string(a), "resource "+string(r)+" listed twice")
			}
			ranks[r] = i
		}
		if len(prefs) == 0 {
			continue
		}
		p.preferences[a] = append([]ResourceID(nil), prefs...)
		p.rank[a] = ranks
	}
	return p, nil
}

// Agents returns the agents in declaration order.
func (p *Problem) Agents() []AgentID {
	return append([]AgentID(nil), p.agents...)
}

// Resources returns the resources in declaration order.
func (p *Problem) Resources() []ResourceID {
	return append([]ResourceID(nil), p.resources...)
}

// NumAgents returns the number of agents.
func (p *Problem) NumAgents() int {
	return len(p.agents)
}

// NumResources returns the number of resources.
func (p *Problem) NumResources() int {
	return len(p.resources)
}

// Preferences returns a copy of the agent's preference list, most preferred first.
// An empty result means the agent has no restriction.
func (p *Problem) Preferences(agent AgentID) []ResourceID {
	return append([]ResourceID(nil), p.preferences[agent]...)
}

// HasPreferences reports whether the agent has a non-empty preference list.
func (p *Problem) HasPreferences(agent AgentID) bool {
	return len(p.preferences[agent]) > 0
}

// Rank returns the index of resource in the agent's preference list, or false
// if the agent has no preferences or did not list the resource.
func (p *Problem) Rank(agent AgentID, resource ResourceID) (int, bool) {
	i, ok := p.rank[agent][resource]
	return i, ok
}

// Eligible reports whether the agent may be assigned to resource under the
// preference restriction. Agents without preferences are eligible everywhere.
func (p *Problem) Eligible(agent AgentID, resource ResourceID) bool {
	if !p.HasPreferences(agent) {
		_, known := p.capacities[resource]
		return known
	}
	_, ok := p.rank[agent][resource]
	return ok
}

// Capacity returns the capacity of a resource (0 for unknown resources).
func (p *Problem) Capacity(resource ResourceID) int {
	return p.capacities[resource]
}

// TotalCapacity returns the sum of all resource capacities.
func (p *Problem) TotalCapacity() int {
	total := 0
	for _, c := range p.capacities {
		total += c
	}
	return total
}

// HasAgent reports whether the agent was declared.
func (p *Problem) HasAgent(agent AgentID) bool {
	_, ok := p.agentIndex[agent]
	return ok
}

// AgentIndex returns the declaration index of the agent.
func (p *Problem) AgentIndex(agent AgentID) (int, bool) {
	i, ok := p.agentIndex[agent]
	return i, ok
}

// HasResource reports whether the resource was declared.
func (p *Problem) HasResource(resource ResourceID) bool {
	_, ok := p.capacities[resource]
	return ok
}
