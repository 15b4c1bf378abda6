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

// CapacityCounters returns a fresh, strategy-owned copy of the resource capacities.
// Strategies decrement the counters while constructing an allocation.
func (p *Problem) CapacityCounters() map[ResourceID]int {
	remaining := make(map[ResourceID]int, len(p.capacities))
	for r, c := range p.capacities {
		remaining[r] = c
	}
	return remaining
}

// RemainingCapacity calculates the capacity of each resource that is not
// consumed by the given (possibly partial) allocation. Counts never go below zero.
func (p *Problem) RemainingCapacity(allocation Allocation) map[ResourceID]int {
	remaining := p.CapacityCounters()
	for _, r := range allocation {
		if c, exists := remaining[r]; exists {
			c--
			if c < 0 {
				c = 0
			}
			remaining[r] = c
		}
	}
	return remaining
}

// AvailableResources returns, in declaration order, the resources whose counter is positive.
func (p *Problem) AvailableResources(remaining map[ResourceID]int) []ResourceID {
	var out []ResourceID
	for _, r := range p.resources {
		if remaining[r] > 0 {
			out = append(out, r)
		}
	}
	return out
}
