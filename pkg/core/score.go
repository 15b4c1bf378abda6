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

// OutsidePreferencePenalty is the score contribution of an agent assigned to a
// resource that is not in its preference list (including agents without preferences).
const OutsidePreferencePenalty = -0.5

// RankWeight returns the score contribution of assigning agent to resource:
// (n - rank) / n for a resource at index rank in a preference list of length n,
// so the first choice contributes 1.0 and the last one 1/n, and
// OutsidePreferencePenalty otherwise.
func RankWeight(p *Problem, agent AgentID, resource ResourceID) float64 {
	rank, ok := p.Rank(agent, resource)
	if !ok {
		return OutsidePreferencePenalty
	}
	n := float64(len(p.preferences[agent]))
	return (n - float64(rank)) / n
}

// Score computes the canonical satisfaction score of an allocation: the sum of
// RankWeight over all assigned pairs. It is the only measure used to compare
// strategies and is only defined for allocations a strategy actually returned.
func Score(allocation Allocation, p *Problem) float64 {
	// iterate in declaration order so floating point sums are reproducible
	score := 0.0
	for _, agent := range p.agents {
		if resource, ok := allocation[agent]; ok {
			score += RankWeight(p, agent, resource)
		}
	}
	return score
}
