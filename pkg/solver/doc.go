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

// Package solver allocates agents to capacity-limited resources.
//
// Three strategies solve the same core.Problem independently:
//   - exact: a 0/1 linear model searched by package cp, the only strategy honoring rules
//   - greedy: a deterministic single pass placing the most constrained agents first
//   - randomized: independent randomized constructions keeping the best one
//
// The Optimizer runs the configured strategies, scores every complete
// allocation with core.Score and returns the best one with a Report of all runs.
//
// Example usage:
//
//	problem, err := core.NewProblem(agents, resources, preferences, capacities)
//	if err != nil {
//	    return err // wraps core.ErrInvalidInput
//	}
//	opt, err := solver.NewOptimizer(config.DefaultOptimizerSpec())
//	if err != nil {
//	    return err
//	}
//	allocation, report, err := opt.Optimize(ctx, problem, solver.Apart("1", "2"))
//	if err != nil {
//	    return err
//	}
//	if allocation == nil {
//	    log.Info("no feasible allocation", "status", report.Status)
//	}
//
// Greedy and randomized fall back to resources outside an agent's preferences
// when all preferred resources are full, and they ignore rules. Their results
// are only checked for completeness and capacity.
package solver
