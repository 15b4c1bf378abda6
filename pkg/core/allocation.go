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
	"fmt"
	"sort"
	"strings"
)

// Allocation maps every agent to the resource it is assigned to.
// Strategies only ever return complete allocations; a partial one is a strategy failure.
type Allocation map[AgentID]ResourceID

// Clone returns an independent copy of the allocation.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	for agent, resource := range a {
		out[agent] = resource
	}
	return out
}

// Loads returns the number of agents assigned to each resource.
func (a Allocation) Loads() map[ResourceID]int {
	loads := make(map[ResourceID]int)
	for _, r := range a {
		loads[r]++
	}
	return loads
}

// Validate checks that the allocation is complete and within capacity for the problem:
// every agent is assigned exactly once, only declared resources are used and no
// resource receives more agents than its capacity.
// Preference restriction is not checked, since heuristic fallbacks may relax it.
func (a Allocation) Validate(p *Problem) error {
	if len(a) != p.NumAgents() {
		return fmt.Errorf("allocation assigns %d agents, expected %d", len(a), p.NumAgents())
	}
	for agent, resource := range a {
		if !p.HasAgent(agent) {
			return fmt.Errorf("allocation references unknown agent %q", agent)
		}
		if !p.HasResource(resource) {
			return fmt.Errorf("agent %q assigned to unknown resource %q", agent, resource)
		}
	}
	for resource, load := range a.Loads() {
		if load > p.Capacity(resource) {
			return fmt.Errorf("resource %q receives %d agents, capacity is %d", resource, load, p.Capacity(resource))
		}
	}
	return nil
}

// PreferenceViolations returns, in agent declaration order, the agents with a
// non-empty preference list that were assigned outside of it.
func (a Allocation) PreferenceViolations(p *Problem) []AgentID {
	var out []AgentID
	for _, agent := range p.agents {
		resource, ok := a[agent]
		if !ok || !p.HasPreferences(agent) {
			continue
		}
		if !p.Eligible(agent, resource) {
			out = append(out, agent)
		}
	}
	return out
}

// String renders the allocation sorted by agent ID.
func (a Allocation) String() string {
	agents := make([]string, 0, len(a))
	for agent := range a {
		agents = append(agents, string(agent))
	}
	sort.Strings(agents)
	var b strings.Builder
	b.WriteByte('{')
	for i, agent := range agents {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(agent)
		b.WriteByte(':')
		b.WriteString(string(a[AgentID(agent)]))
	}
	b.WriteByte('}')
	return b.String()
}
