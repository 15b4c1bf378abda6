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

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// Recorder observes strategy outcomes and solves, e.g. to export metrics.
type Recorder interface {
	ObserveStrategy(record *BenchmarkRecord)
	ObserveSolve(report *Report)
}

// Optimizer benchmarks the configured strategies on a problem and returns the best allocation.
type Optimizer struct {
	spec     *config.OptimizerSpec
	registry *Registry
	recorder Recorder
}

// Option configures an Optimizer.
type Option func(*Optimizer) error

// WithRecorder forwards every record and report to r.
func WithRecorder(r Recorder) Option {
	return func(o *Optimizer) error {
		o.recorder = r
		return nil
	}
}

// WithStrategies replaces the configured strategies, in invocation order.
func WithStrategies(strategies ...Strategy) Option {
	return func(o *Optimizer) error {
		registry, err := NewRegistryOf(strategies...)
		if err != nil {
			return err
		}
		o.registry = registry
		return nil
	}
}

// NewOptimizer validates spec and builds the strategy registry once.
// A nil spec uses DefaultOptimizerSpec.
func NewOptimizer(spec *config.OptimizerSpec, opts ...Option) (*Optimizer, error) {
	if spec == nil {
		spec = config.DefaultOptimizerSpec()
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid optimizer configuration: %w", err)
	}
	registry, err := NewRegistry(spec)
	if err != nil {
		return nil, err
	}
	o := &Optimizer{spec: spec, registry: registry}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.registry.Len() == 0 {
		return nil, fmt.Errorf("at least one strategy is required")
	}
	return o, nil
}

// Strategies returns the strategy names in invocation order.
func (o *Optimizer) Strategies() []string {
	return o.registry.Names()
}

// Optimize runs every strategy on the problem and returns the allocation with
// the highest canonical score, together with a report of all strategies.
//
// An infeasible problem is a normal result: the allocation is nil, the report
// has no winner and err is nil. An error is returned only for invalid input
// (wrapping core.ErrInvalidInput), in which case no strategy runs and the
// report status is StatusInvalidInput.
func (o *Optimizer) Optimize(ctx context.Context, problem *core.Problem, rules ...Rule) (core.Allocation, *Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Status: StatusInfeasible, Records: []BenchmarkRecord{}}
	logger := logging.FromContext(ctx, "runID", report.RunID)
	ctx = logging.IntoContext(ctx, logger)

	if problem == nil {
		err := core.NewValidationError("problem", "", "problem cannot be nil")
		return nil, o.reject(report, start, err), err
	}
	if err := ValidateRules(problem, rules); err != nil {
		logger.Error(err, "rejecting invalid rules")
		return nil, o.reject(report, start, err), err
	}

	if o.spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.spec.Timeout)
		defer cancel()
	}

	logger.V(logging.DEBUG).Info("solving",
		"agents", problem.NumAgents(), "resources", problem.NumResources(), "rules", len(rules),
		"strategies", o.registry.Names(), "parallel", o.spec.Parallel)

	names := o.registry.Names()
	outcomes := make([]*Outcome, len(names))
	if o.spec.Parallel {
		// each task writes only its own slot
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range names {
			strategy, _ := o.registry.Get(name)
			g.Go(func() error {
				outcomes[i] = runStrategy(gctx, strategy, problem, rules)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, name := range names {
			strategy, _ := o.registry.Get(name)
			outcomes[i] = runStrategy(ctx, strategy, problem, rules)
		}
	}

	allocations := make([]core.Allocation, len(names))
	for i, name := range names {
		record := newRecord(name, outcomes[i])
		if outcomes[i].Feasible() {
			allocations[i] = outcomes[i].Allocation
			record.Feasible = true
			record.Score = ptr.To(core.Score(allocations[i], problem))
		}
		logger.V(logging.DEBUG).Info("strategy finished",
			"strategy", name, "status", record.Status, "feasible", record.Feasible,
			"elapsed", record.Elapsed, "score", ptr.Deref(record.Score, 0), "reason", record.Reason)
		report.Records = append(report.Records, record)
		if o.recorder != nil {
			o.recorder.ObserveStrategy(&report.Records[len(report.Records)-1])
		}
	}

	var allocation core.Allocation
	if winner := selectWinner(report.Records); winner >= 0 {
		report.setWinner(winner)
		allocation = allocations[winner]
		logger.Info("allocation selected", "strategy", report.WinningStrategy, "score", *report.WinningScore)
	} else {
		report.Reason = "no strategy produced a complete allocation"
		logger.Info("no feasible allocation found", "strategies", len(names))
	}
	report.Elapsed = time.Since(start)
	if o.recorder != nil {
		o.recorder.ObserveSolve(report)
	}
	return allocation, report, nil
}

func (o *Optimizer) reject(report *Report, start time.Time, err error) *Report {
	report.Status = StatusInvalidInput
	report.Reason = err.Error()
	report.Elapsed = time.Since(start)
	if o.recorder != nil {
		o.recorder.ObserveSolve(report)
	}
	return report
}

// runStrategy runs a strategy and checks that a returned allocation is complete
// and within capacity. Rules are not checked here.
func runStrategy(ctx context.Context, strategy Strategy, problem *core.Problem, rules []Rule) *Outcome {
	start := time.Now()
	outcome := strategy.Solve(ctx, problem, rules)
	if outcome == nil {
		outcome = infeasible("strategy returned no outcome")
	}
	if outcome.Elapsed == 0 {
		outcome.Elapsed = time.Since(start)
	}
	if outcome.Status.Feasible() {
		if err := outcome.Allocation.Validate(problem); err != nil {
			outcome.Allocation = nil
			outcome.Status = StatusInfeasible
			outcome.Reason = fmt.Sprintf("discarding incomplete allocation: %v", err)
		}
	} else {
		outcome.Allocation = nil
	}
	return outcome
}

// Solve validates the input, runs the default strategies and returns the best allocation.
func Solve(
	ctx context.Context,
	agents []core.AgentID,
	resources []core.ResourceID,
	preferences map[core.AgentID][]core.ResourceID,
	capacities map[core.ResourceID]int,
	rules ...Rule,
) (core.Allocation, *Report, error) {
	problem, err := core.NewProblem(agents, resources, preferences, capacities)
	if err != nil {
		report := &Report{RunID: uuid.NewString(), Status: StatusInvalidInput, Reason: err.Error(), Records: []BenchmarkRecord{}}
		return nil, report, err
	}
	o, err := NewOptimizer(nil)
	if err != nil {
		return nil, nil, err
	}
	return o.Optimize(ctx, problem, rules...)
}
