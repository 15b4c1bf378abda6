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

package cp

import (
	"context"
	"fmt"
	"time"
)

// Status is the terminal state of a search.
type Status int

const (
	// StatusUnknown means the budget ran out before any solution was found.
	StatusUnknown Status = iota
	// StatusOptimal means the search space was exhausted and the best solution is proven optimal.
	StatusOptimal
	// StatusFeasible means a solution was found but the budget ran out before optimality was proven.
	StatusFeasible
	// StatusInfeasible means the search space was exhausted without finding any solution.
	StatusInfeasible
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusOptimal:
		return "Optimal"
	case StatusFeasible:
		return "Feasible"
	case StatusInfeasible:
		return "Infeasible"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// HasSolution reports whether the status carries a solution.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Config bounds the search. Zero values mean "no limit"; the context deadline always applies.
type Config struct {
	// TimeLimit is the maximum wall-clock time spent searching.
	TimeLimit time.Duration
	// NodeLimit is the maximum number of search nodes explored.
	NodeLimit int64
}

// Solution is the result of Solve.
type Solution struct {
	Status    Status
	Objective int64
	// Nodes is the number of search nodes explored.
	Nodes   int64
	Elapsed time.Duration

	values []bool
}

// Value returns the value of a variable in the solution.
// It returns false when the status carries no solution.
func (s *Solution) Value(v Var) bool {
	if int(v) < 0 || int(v) >= len(s.values) {
		return false
	}
	return s.values[v]
}

// LitValue returns the value of a literal in the solution.
func (s *Solution) LitValue(l Lit) bool {
	if !s.Status.HasSolution() {
		return false
	}
	return s.Value(l.Var) != l.Negated
}

const unassigned int8 = -1

// checkEvery is how many nodes are explored between budget checks.
const checkEvery = 256

type search struct {
	m        *Model
	val      []int8
	trail    []Var
	queue    []Var
	varCons  [][]int
	relax    *relaxation
	deadline time.Time
	ctx      context.Context
	cfg      Config

	nodes   int64
	aborted bool

	best    []bool
	bestObj int64
}

// Solve searches for an assignment maximizing the objective of the model.
//
// The search is a depth-first branch-and-bound: every node propagates the
// bounds of all linear constraints touched by newly fixed variables, solves a
// min-cost flow over the exactly-one groups and the capacity-like constraints
// they feed, prunes when that flow cannot place every open group or the
// objective upper bound cannot beat the incumbent, and branches on the most
// constrained exactly-one group, trying the flow's choice first. The first
// dive follows the flow, so models without side constraints reach an
// incumbent that already meets the bound.
//
// Solve returns when the space is exhausted or the budget (cfg, ctx) runs out;
// in the latter case the best solution found so far is returned with StatusFeasible.
// An error is only returned for a nil model.
func Solve(ctx context.Context, m *Model, cfg Config) (*Solution, error) {
	if m == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	s := &search{
		m:       m,
		val:     make([]int8, m.NumVars()),
		varCons: make([][]int, m.NumVars()),
		ctx:     ctx,
		cfg:     cfg,
		relax:   newRelaxation(m),
	}
	if cfg.TimeLimit > 0 {
		s.deadline = start.Add(cfg.TimeLimit)
	}
	for i := range s.val {
		s.val[i] = unassigned
	}
	for ci, c := range m.constraints {
		for _, t := range c.terms {
			s.varCons[t.Var] = append(s.varCons[t.Var], ci)
		}
	}

	if !m.contradiction && s.propagateAll() {
		s.dfs()
	}

	sol := &Solution{Nodes: s.nodes, Elapsed: time.Since(start)}
	switch {
	case s.best != nil && !s.aborted:
		sol.Status = StatusOptimal
	case s.best != nil:
		sol.Status = StatusFeasible
	case s.aborted:
		sol.Status = StatusUnknown
	default:
		sol.Status = StatusInfeasible
	}
	if s.best != nil {
		sol.values = s.best
		sol.Objective = s.bestObj
	}
	return sol, nil
}

func (s *search) dfs() {
	if s.aborted || s.outOfBudget() {
		s.aborted = true
		return
	}
	s.nodes++

	bound, ok := s.bound()
	if !ok || (s.best != nil && bound <= s.bestObj) {
		return
	}

	v, ok := s.pickBranchVar()
	if !ok {
		s.record()
		return
	}

	first := int8(1)
	if s.m.group[v] == -1 && s.m.objective[v] <= 0 {
		first = 0
	}
	for _, value := range [2]int8{first, 1 - first} {
		mark := len(s.trail)
		if s.assign(v, value) && s.propagate() {
			s.dfs()
		}
		s.undo(mark)
		if s.aborted {
			return
		}
	}
}

func (s *search) outOfBudget() bool {
	if s.cfg.NodeLimit > 0 && s.nodes >= s.cfg.NodeLimit {
		return true
	}
	if s.nodes%checkEvery != 0 {
		return false
	}
	if !s.deadline.IsZero() && time.Now().After(s.deadline) {
		return true
	}
	return s.ctx.Err() != nil
}

// record stores the current complete assignment as the new incumbent.
// Pruning guarantees it is strictly better than the previous one.
func (s *search) record() {
	values := make([]bool, len(s.val))
	var obj int64
	for i, x := range s.val {
		values[i] = x == 1
		if x == 1 {
			obj += s.m.objective[i]
		}
	}
	if s.best == nil || obj > s.bestObj {
		s.best = values
		s.bestObj = obj
	}
}

// bound is the fixed objective plus the min-cost flow value of the open
// complete groups, plus per other exactly-one group without a true member the
// largest positive coefficient still selectable, plus every remaining positive
// coefficient outside of groups. It returns false when the flow cannot place
// every open group.
func (s *search) bound() (int64, bool) {
	var bound int64
	groupMax := make([]int64, len(s.m.groups))
	groupOpen := make([]bool, len(s.m.groups))
	groupDone := make([]bool, len(s.m.groups))
	for i, x := range s.val {
		c := s.m.objective[i]
		g := s.m.group[i]
		switch {
		case x == 1:
			bound += c
			if g >= 0 {
				groupDone[g] = true
			}
		case x == unassigned && g >= 0 && s.m.complete[g]:
			// counted by the flow
		case x == unassigned && g >= 0:
			if !groupOpen[g] || c > groupMax[g] {
				groupMax[g] = c
			}
			groupOpen[g] = true
		case x == unassigned && c > 0:
			bound += c
		}
	}
	for g := range groupMax {
		if groupOpen[g] && !groupDone[g] && groupMax[g] > 0 {
			bound += groupMax[g]
		}
	}
	flow, ok := s.relax.solve(s.m, s.val, groupDone)
	if !ok {
		return 0, false
	}
	return bound + flow, true
}

// pickBranchVar selects a variable of the open exactly-one group with the
// fewest candidates: the one chosen by the flow of the last bound when the
// group is complete, its best objective variable otherwise. Without open
// groups, it returns the first unassigned variable.
func (s *search) pickBranchVar() (Var, bool) {
	bestGroup, bestSize := -1, 0
	for g, members := range s.m.groups {
		size := 0
		done := false
		for _, v := range members {
			switch s.val[v] {
			case 1:
				done = true
			case unassigned:
				size++
			}
		}
		if done || size == 0 {
			continue
		}
		if bestGroup == -1 || size < bestSize {
			bestGroup, bestSize = g, size
		}
	}
	if bestGroup >= 0 {
		if s.m.complete[bestGroup] {
			if v := s.relax.choice[bestGroup]; s.val[v] == unassigned && s.m.group[v] == bestGroup {
				return v, true
			}
		}
		chosen := Var(-1)
		for _, v := range s.m.groups[bestGroup] {
			if s.val[v] != unassigned {
				continue
			}
			if chosen == -1 || s.m.objective[v] > s.m.objective[chosen] {
				chosen = v
			}
		}
		return chosen, true
	}
	for i, x := range s.val {
		if x == unassigned {
			return Var(i), true
		}
	}
	return 0, false
}

func (s *search) assign(v Var, value int8) bool {
	switch s.val[v] {
	case unassigned:
		s.val[v] = value
		s.trail = append(s.trail, v)
		s.queue = append(s.queue, v)
		return true
	default:
		return s.val[v] == value
	}
}

func (s *search) undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		s.val[s.trail[i]] = unassigned
	}
	s.trail = s.trail[:mark]
	s.queue = s.queue[:0]
}

// propagateAll checks every constraint once, then runs propagation to a fixpoint.
func (s *search) propagateAll() bool {
	for ci := range s.m.constraints {
		if !s.propagateConstraint(ci) {
			s.queue = s.queue[:0]
			return false
		}
	}
	return s.propagate()
}

// propagate processes queued variables until no constraint fixes anything else.
func (s *search) propagate() bool {
	for len(s.queue) > 0 {
		v := s.queue[len(s.queue)-1]
		s.queue = s.queue[:len(s.queue)-1]
		for _, ci := range s.varCons[v] {
			if !s.propagateConstraint(ci) {
				s.queue = s.queue[:0]
				return false
			}
		}
	}
	return true
}

// propagateConstraint computes the activity bounds of lo <= sum <= hi and fixes
// every unassigned variable whose other value would violate them.
func (s *search) propagateConstraint(ci int) bool {
	c := &s.m.constraints[ci]
	var minAct, maxAct int64
	for _, t := range c.terms {
		switch s.val[t.Var] {
		case 1:
			minAct += t.Coef
			maxAct += t.Coef
		case unassigned:
			if t.Coef > 0 {
				maxAct += t.Coef
			} else {
				minAct += t.Coef
			}
		}
	}
	if minAct > c.hi || maxAct < c.lo {
		return false
	}
	for _, t := range c.terms {
		if s.val[t.Var] != unassigned {
			continue
		}
		var forced int8 = unassigned
		if t.Coef > 0 {
			switch {
			case c.hi != noUpper && minAct+t.Coef > c.hi:
				forced = 0
			case c.lo != noLower && maxAct-t.Coef < c.lo:
				forced = 1
			}
		} else {
			switch {
			case c.hi != noUpper && minAct-t.Coef > c.hi:
				forced = 1
			case c.lo != noLower && maxAct+t.Coef < c.lo:
				forced = 0
			}
		}
		if forced != unassigned && !s.assign(t.Var, forced) {
			return false
		}
	}
	return true
}
