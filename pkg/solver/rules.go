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
	"errors"
	"fmt"

	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
	"github.com/llm-d/llm-d-allocation-engine/pkg/solver/cp"
)

// AssignmentVars holds the decision variables x[a,r] of the exact model:
// x[a,r] is true when agent a is assigned to resource r.
type AssignmentVars struct {
	problem       *core.Problem
	resourceIndex map[core.ResourceID]int
	x             [][]cp.Var
}

// NewAssignmentVars adds one boolean variable per agent/resource pair to m.
func NewAssignmentVars(m *cp.Model, p *core.Problem) *AssignmentVars {
	resources := p.Resources()
	vars := &AssignmentVars{
		problem:       p,
		resourceIndex: make(map[core.ResourceID]int, len(resources)),
		x:             make([][]cp.Var, p.NumAgents()),
	}
	for i, r := range resources {
		vars.resourceIndex[r] = i
	}
	for i, a := range p.Agents() {
		vars.x[i] = make([]cp.Var, len(resources))
		for j, r := range resources {
			vars.x[i][j] = m.NewBoolVar(fmt.Sprintf("x[%s,%s]", a, r))
		}
	}
	return vars
}

// Problem returns the problem the variables were built for.
func (v *AssignmentVars) Problem() *core.Problem {
	return v.problem
}

// Var returns x[agent, resource].
func (v *AssignmentVars) Var(agent core.AgentID, resource core.ResourceID) (cp.Var, error) {
	i, ok := v.problem.AgentIndex(agent)
	if !ok {
		return 0, core.NewValidationError("rules", string(agent), "unknown agent")
	}
	j, ok := v.resourceIndex[resource]
	if !ok {
		return 0, core.NewValidationError("rules", string(resource), "unknown resource")
	}
	return v.x[i][j], nil
}

// AgentVars returns the variables of an agent, in resource declaration order.
func (v *AssignmentVars) AgentVars(agent core.AgentID) ([]cp.Var, error) {
	i, ok := v.problem.AgentIndex(agent)
	if !ok {
		return nil, core.NewValidationError("rules", string(agent), "unknown agent")
	}
	return append([]cp.Var(nil), v.x[i]...), nil
}

// ResourceVars returns the variables of the given agents for one resource.
func (v *AssignmentVars) ResourceVars(resource core.ResourceID, agents []core.AgentID) ([]cp.Var, error) {
	out := make([]cp.Var, 0, len(agents))
	for _, a := range agents {
		x, err := v.Var(a, resource)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, nil
}

// Rule is a custom constraint added to the exact model.
// Apply may only add constraints to m; it must not keep references to it.
// Only the exact strategy applies rules.
type Rule interface {
	Name() string
	Apply(m *cp.Model, vars *AssignmentVars) error
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(m *cp.Model, vars *AssignmentVars) error
}

func (r RuleFunc) Name() string { return r.RuleName }

func (r RuleFunc) Apply(m *cp.Model, vars *AssignmentVars) error {
	if r.Fn == nil {
		return core.NewValidationError("rules", r.RuleName, "rule function is nil")
	}
	return r.Fn(m, vars)
}

// Apart forbids the agents from sharing any resource.
func Apart(agents ...core.AgentID) Rule {
	return &apartRule{agents: agents}
}

type apartRule struct {
	agents []core.AgentID
}

func (r *apartRule) Name() string { return config.RuleApart }

func (r *apartRule) Apply(m *cp.Model, vars *AssignmentVars) error {
	if len(r.agents) < 2 {
		return core.NewValidationError("rules", config.RuleApart, "needs at least 2 agents")
	}
	for _, res := range vars.problem.Resources() {
		xs, err := vars.ResourceVars(res, r.agents)
		if err != nil {
			return err
		}
		if err := m.AddAtMostOne(xs); err != nil {
			return err
		}
	}
	return nil
}

// Together requires the agents to be assigned to the same resource.
func Together(agents ...core.AgentID) Rule {
	return &togetherRule{agents: agents}
}

type togetherRule struct {
	agents []core.AgentID
}

func (r *togetherRule) Name() string { return config.RuleTogether }

func (r *togetherRule) Apply(m *cp.Model, vars *AssignmentVars) error {
	if len(r.agents) < 2 {
		return core.NewValidationError("rules", config.RuleTogether, "needs at least 2 agents")
	}
	for _, res := range vars.problem.Resources() {
		xs, err := vars.ResourceVars(res, r.agents)
		if err != nil {
			return err
		}
		// x[first,r] == x[other,r]
		for _, x := range xs[1:] {
			if err := m.AddLinear([]cp.Term{{Var: xs[0], Coef: 1}, {Var: x, Coef: -1}}, cp.Equal, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// Implies requires thenAgent to be on thenResource whenever ifAgent is on ifResource.
func Implies(ifAgent core.AgentID, ifResource core.ResourceID, thenAgent core.AgentID, thenResource core.ResourceID) Rule {
	return &impliesRule{ifAgent: ifAgent, ifResource: ifResource, thenAgent: thenAgent, thenResource: thenResource}
}

type impliesRule struct {
	ifAgent      core.AgentID
	ifResource   core.ResourceID
	thenAgent    core.AgentID
	thenResource core.ResourceID
}

func (r *impliesRule) Name() string { return config.RuleImplies }

func (r *impliesRule) Apply(m *cp.Model, vars *AssignmentVars) error {
	premise, err := vars.Var(r.ifAgent, r.ifResource)
	if err != nil {
		return err
	}
	conclusion, err := vars.Var(r.thenAgent, r.thenResource)
	if err != nil {
		return err
	}
	return m.AddImplication(premise.Lit(), conclusion.Lit())
}

// AtLeast requires at least count of the agents to be assigned to resource.
func AtLeast(resource core.ResourceID, count int, agents ...core.AgentID) Rule {
	return &cardinalityRule{op: cp.GreaterOrEqual, resource: resource, count: count, agents: agents}
}

// AtMost allows at most count of the agents to be assigned to resource.
func AtMost(resource core.ResourceID, count int, agents ...core.AgentID) Rule {
	return &cardinalityRule{op: cp.LessOrEqual, resource: resource, count: count, agents: agents}
}

type cardinalityRule struct {
	op       cp.Op
	resource core.ResourceID
	count    int
	agents   []core.AgentID
}

func (r *cardinalityRule) Name() string {
	if r.op == cp.GreaterOrEqual {
		return config.RuleAtLeast
	}
	return config.RuleAtMost
}

func (r *cardinalityRule) Apply(m *cp.Model, vars *AssignmentVars) error {
	if r.count < 0 {
		return core.NewValidationError("rules", r.Name(), "count must be non-negative")
	}
	xs, err := vars.ResourceVars(r.resource, r.agents)
	if err != nil {
		return err
	}
	terms := make([]cp.Term, len(xs))
	for i, x := range xs {
		terms[i] = cp.Term{Var: x, Coef: 1}
	}
	return m.AddLinear(terms, r.op, int64(r.count))
}

// Pin assigns the agents to resource.
func Pin(resource core.ResourceID, agents ...core.AgentID) Rule {
	return &fixRule{resource: resource, agents: agents, assigned: true}
}

// Forbid keeps the agents away from resource.
func Forbid(resource core.ResourceID, agents ...core.AgentID) Rule {
	return &fixRule{resource: resource, agents: agents}
}

type fixRule struct {
	resource core.ResourceID
	agents   []core.AgentID
	assigned bool
}

func (r *fixRule) Name() string {
	if r.assigned {
		return config.RulePin
	}
	return config.RuleForbid
}

func (r *fixRule) Apply(m *cp.Model, vars *AssignmentVars) error {
	xs, err := vars.ResourceVars(r.resource, r.agents)
	if err != nil {
		return err
	}
	for _, x := range xs {
		lit := x.Lit()
		if !r.assigned {
			lit = x.Not()
		}
		if err := m.Fix(lit); err != nil {
			return err
		}
	}
	return nil
}

// RulesFromSpec builds the built-in rules described by specs.
func RulesFromSpec(specs []config.RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	for i := range specs {
		spec := &specs[i]
		if err := spec.Validate(); err != nil {
			return nil, core.NewValidationError(fmt.Sprintf("rules[%d]", i), spec.Type, err.Error())
		}
		agents := toAgentIDs(spec.Agents)
		resource := core.ResourceID(spec.Resource)
		var rule Rule
		switch spec.Type {
		case config.RuleApart:
			rule = Apart(agents...)
		case config.RuleTogether:
			rule = Together(agents...)
		case config.RuleImplies:
			rule = Implies(core.AgentID(spec.If.Agent), core.ResourceID(spec.If.Resource),
				core.AgentID(spec.Then.Agent), core.ResourceID(spec.Then.Resource))
		case config.RuleAtLeast:
			rule = AtLeast(resource, spec.Count, agents...)
		case config.RuleAtMost:
			rule = AtMost(resource, spec.Count, agents...)
		case config.RulePin:
			rule = Pin(resource, agents...)
		case config.RuleForbid:
			rule = Forbid(resource, agents...)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ValidateRules applies the rules to a scratch model so that malformed rules
// are reported before any strategy runs.
func ValidateRules(p *core.Problem, rules []Rule) error {
	m := cp.NewModel()
	vars := NewAssignmentVars(m, p)
	for i, rule := range rules {
		if rule == nil {
			return core.NewValidationError(fmt.Sprintf("rules[%d]", i), "", "rule is nil")
		}
		if err := rule.Apply(m, vars); err != nil {
			return wrapRuleError(i, rule, err)
		}
	}
	return nil
}

func applyRules(m *cp.Model, vars *AssignmentVars, rules []Rule) error {
	for i, rule := range rules {
		if err := rule.Apply(m, vars); err != nil {
			return wrapRuleError(i, rule, err)
		}
	}
	return nil
}

func wrapRuleError(i int, rule Rule, err error) error {
	if errors.Is(err, core.ErrInvalidInput) {
		return fmt.Errorf("rules[%d] (%s): %w", i, rule.Name(), err)
	}
	return fmt.Errorf("rules[%d] (%s): %w: %w", i, rule.Name(), core.ErrInvalidInput, err)
}

func toAgentIDs(ids []string) []core.AgentID {
	out := make([]core.AgentID, len(ids))
	for i, id := range ids {
		out[i] = core.AgentID(id)
	}
	return out
}
