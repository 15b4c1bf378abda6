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
	"time"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
	"github.com/llm-d/llm-d-allocation-engine/pkg/solver/cp"
)

// ExactStrategy solves the assignment as a 0/1 linear model with the cp search.
//
// The model has one variable x[a,r] per agent/resource pair, an exactly-one
// constraint per agent, a capacity constraint per resource, x[a,r] = 0 for
// resources outside a non-empty preference list, and every rule. The objective
// maximizes the sum of (len - rank) * WeightScale over preferred assignments.
type ExactStrategy struct {
	spec config.ExactSpec
}

// NewExactStrategy creates an exact strategy.
func NewExactStrategy(spec config.ExactSpec) *ExactStrategy {
	if spec.WeightScale <= 0 {
		spec.WeightScale = config.DefaultWeightScale
	}
	return &ExactStrategy{spec: spec}
}

func (e *ExactStrategy) Name() string {
	return config.ExactStrategyName
}

// BuildModel creates the cp model of the problem and its rules.
func (e *ExactStrategy) BuildModel(p *core.Problem, rules []Rule) (*cp.Model, *AssignmentVars, error) {
	m := cp.NewModel()
	vars := NewAssignmentVars(m, p)
	resources := p.Resources()

	var objective []cp.Term
	for _, agent := range p.Agents() {
		xs, err := vars.AgentVars(agent)
		if err != nil {
			return nil, nil, err
		}
		if err := m.AddExactlyOne(xs); err != nil {
			return nil, nil, err
		}
		if !p.HasPreferences(agent) {
			continue
		}
		n := int64(len(p.Preferences(agent)))
		for j, r := range resources {
			rank, ok := p.Rank(agent, r)
			if !ok {
				if err := m.Fix(xs[j].Not()); err != nil {
					return nil, nil, err
				}
				continue
			}
			objective = append(objective, cp.Term{Var: xs[j], Coef: (n - int64(rank)) * e.spec.WeightScale})
		}
	}

	agents := p.Agents()
	for _, r := range resources {
		xs, err := vars.ResourceVars(r, agents)
		if err != nil {
			return nil, nil, err
		}
		terms := make([]cp.Term, len(xs))
		for i, x := range xs {
			terms[i] = cp.Term{Var: x, Coef: 1}
		}
		if err := m.AddLinear(terms, cp.LessOrEqual, int64(p.Capacity(r))); err != nil {
			return nil, nil, err
		}
	}

	if err := m.Maximize(objective); err != nil {
		return nil, nil, err
	}
	if err := applyRules(m, vars, rules); err != nil {
		return nil, nil, err
	}
	return m, vars, nil
}

func (e *ExactStrategy) Solve(ctx context.Context, p *core.Problem, rules []Rule) *Outcome {
	logger := logging.FromContext(ctx, "strategy", e.Name())
	start := time.Now()

	m, vars, err := e.BuildModel(p, rules)
	if err != nil {
		return &Outcome{Status: StatusInvalidInput, Reason: err.Error(), Elapsed: time.Since(start)}
	}
	logger.V(logging.DEBUG).Info("exact model built", "variables", m.NumVars(), "constraints", m.NumConstraints())

	sol, err := cp.Solve(ctx, m, cp.Config{TimeLimit: e.spec.TimeLimit, NodeLimit: e.spec.NodeLimit})
	if err != nil {
		return &Outcome{Status: StatusInfeasible, Reason: err.Error(), Elapsed: time.Since(start)}
	}
	outcome := &Outcome{
		Elapsed: time.Since(start),
		Search: &SearchStats{
			Nodes:       sol.Nodes,
			Objective:   sol.Objective,
			Variables:   m.NumVars(),
			Constraints: m.NumConstraints(),
			Proven:      sol.Status == cp.StatusOptimal || sol.Status == cp.StatusInfeasible,
		},
	}
	switch sol.Status {
	case cp.StatusOptimal:
		outcome.Status = StatusOptimal
	case cp.StatusFeasible:
		outcome.Status = StatusFeasibleNotProven
		outcome.Reason = "search budget exhausted before optimality was proven"
	case cp.StatusInfeasible:
		outcome.Status = StatusInfeasible
		outcome.Reason = "no assignment satisfies the hard constraints"
	default:
		outcome.Status = StatusInfeasible
		outcome.Reason = fmt.Sprintf("search budget exhausted after %d nodes without a feasible assignment", sol.Nodes)
	}
	logger.V(logging.DEBUG).Info("exact search finished", "status", sol.Status.String(), "nodes", sol.Nodes, "objective", sol.Objective)

	if !outcome.Status.Feasible() {
		return outcome
	}
	allocation := make(core.Allocation, p.NumAgents())
	resources := p.Resources()
	for _, agent := range p.Agents() {
		xs, _ := vars.AgentVars(agent)
		for j, x := range xs {
			if sol.Value(x) {
				allocation[agent] = resources[j]
				break
			}
		}
	}
	outcome.Allocation = allocation
	return outcome
}
