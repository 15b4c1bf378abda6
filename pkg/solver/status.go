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
	"time"

	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// Status is the outcome of a strategy run or of a whole solve.
type Status string

const (
	// StatusOptimal means the allocation is proven optimal for the exact objective.
	StatusOptimal Status = "Optimal"
	// StatusFeasibleNotProven means a complete allocation was found without an optimality proof.
	StatusFeasibleNotProven Status = "FeasibleNotProven"
	// StatusInfeasible means no complete allocation was found.
	StatusInfeasible Status = "Infeasible"
	// StatusInvalidInput means the input was rejected before any strategy ran.
	StatusInvalidInput Status = "InvalidInput"
)

// Feasible reports whether the status carries an allocation.
func (s Status) Feasible() bool {
	return s == StatusOptimal || s == StatusFeasibleNotProven
}

// SearchStats describes the exact search of a strategy run.
type SearchStats struct {
	Nodes       int64 `json:"nodes" yaml:"nodes"`
	Objective   int64 `json:"objective" yaml:"objective"`
	Variables   int   `json:"variables" yaml:"variables"`
	Constraints int   `json:"constraints" yaml:"constraints"`
	// Proven is set when the search space was exhausted, so an Optimal or
	// Infeasible status is a proof rather than the end of the budget.
	Proven bool `json:"proven" yaml:"proven"`
}

// AttemptStats describes the construction attempts of the randomized strategy.
type AttemptStats struct {
	// Attempts is the number of attempts started.
	Attempts int `json:"attempts" yaml:"attempts"`
	// Completed is the number of attempts that placed every agent.
	Completed int `json:"completed" yaml:"completed"`
	// FirstScore is the score of the first completed attempt of the winning worker.
	FirstScore float64 `json:"firstScore" yaml:"firstScore"`
	BestScore  float64 `json:"bestScore" yaml:"bestScore"`
	MeanScore  float64 `json:"meanScore" yaml:"meanScore"`
	StdDev     float64 `json:"stdDev" yaml:"stdDev"`
}

// Outcome is the result of a single strategy run.
// Allocation is nil unless Status is feasible; partial allocations are never returned.
type Outcome struct {
	Allocation core.Allocation
	Status     Status
	Elapsed    time.Duration
	// Reason explains an infeasible or non-proven outcome.
	Reason string

	Search   *SearchStats
	Attempts *AttemptStats
}

// Feasible reports whether the outcome carries a complete allocation.
func (o *Outcome) Feasible() bool {
	return o != nil && o.Allocation != nil && o.Status.Feasible()
}

func infeasible(reason string) *Outcome {
	return &Outcome{Status: StatusInfeasible, Reason: reason}
}
