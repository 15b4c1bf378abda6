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

package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// GreedyStrategy places the most constrained agents first, in a single deterministic pass.
//
// Agents are ordered by ascending preference-list length (agents without
// preferences last, stable on declaration order). Each agent takes its first
// preferred resource with remaining capacity, and otherwise the first resource
// in declaration order with remaining capacity, which may fall outside its
// preferences. Rules are not enforced.
type GreedyStrategy struct{}

// NewGreedyStrategy creates a greedy strategy.
func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{}
}

func (g *GreedyStrategy) Name() string {
	return config.GreedyStrategyName
}

func (g *GreedyStrategy) Solve(ctx context.Context, p *core.Problem, _ []Rule) *Outcome {
	logger := logging.FromContext(ctx, "strategy", g.Name())
	start := time.Now()

	allocation, fallbacks, err := greedyAllocate(p)
	if err != nil {
		outcome := infeasible(err.Error())
		outcome.Elapsed = time.Since(start)
		logger.V(logging.DEBUG).Info("greedy construction failed", "reason", outcome.Reason)
		return outcome
	}
	if fallbacks > 0 {
		logger.V(logging.DEBUG).Info("agents placed outside their preferences", "count", fallbacks)
	}
	return &Outcome{
		Allocation: allocation,
		Status:     StatusFeasibleNotProven,
		Elapsed:    time.Since(start),
	}
}

// greedyOrder returns the agents sorted by scarcity of options.
func greedyOrder(p *core.Problem) []core.AgentID {
	agents := p.Agents()
	sort.SliceStable(agents, func(i, j int) bool {
		return optionCount(p, agents[i]) < optionCount(p, agents[j])
	})
	return agents
}

// optionCount is the length of the preference list, unbounded when empty.
func optionCount(p *core.Problem, agent core.AgentID) int {
	if !p.HasPreferences(agent) {
		return math.MaxInt
	}
	return len(p.Preferences(agent))
}

// greedyAllocate returns a complete allocation and the number of agents placed
// through the fallback scan, or an error naming the first unplaceable agent.
func greedyAllocate(p *core.Problem) (core.Allocation, int, error) {
	remaining := p.CapacityCounters()
	resources := p.Resources()
	allocation := make(core.Allocation, p.NumAgents())
	fallbacks := 0

	for _, agent := range greedyOrder(p) {
		placed := false
		for _, r := range p.Preferences(agent) {
			if remaining[r] > 0 {
				allocation[agent] = r
				remaining[r]--
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		for _, r := range resources {
			if remaining[r] > 0 {
				allocation[agent] = r
				remaining[r]--
				placed = true
				if p.HasPreferences(agent) {
					fallbacks++
				}
				break
			}
		}
		if !placed {
			return nil, 0, fmt.Errorf("no remaining capacity for agent %s", agent)
		}
	}
	return allocation, fallbacks, nil
}
