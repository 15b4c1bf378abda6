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
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/llm-d/llm-d-allocation-engine/internal/logging"
	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// RandomizedStrategy runs independent randomized constructions and keeps the best one.
//
// Each attempt shuffles the agent order and a local copy of every preference
// list (all resources for agents without preferences), takes the first option
// with remaining capacity and otherwise a random resource with remaining
// capacity. Attempts that cannot place an agent are discarded. Rules are not enforced.
type RandomizedStrategy struct {
	spec config.RandomizedSpec
}

// NewRandomizedStrategy creates a randomized strategy.
func NewRandomizedStrategy(spec config.RandomizedSpec) *RandomizedStrategy {
	if spec.MaxIterations <= 0 {
		spec.MaxIterations = config.DefaultMaxIterations
	}
	if spec.Workers <= 0 {
		spec.Workers = config.DefaultWorkers
	}
	return &RandomizedStrategy{spec: spec}
}

func (s *RandomizedStrategy) Name() string {
	return config.RandomizedStrategyName
}

// workerResult is the best-so-far fold of one worker.
type workerResult struct {
	best       core.Allocation
	bestScore  float64
	firstScore float64
	attempts   int
	scores     []float64
}

// better reports whether r should replace other in the reduction.
// Ties keep other, the lower worker.
func (r *workerResult) better(other *workerResult) bool {
	if r.best == nil {
		return false
	}
	return other.best == nil || r.bestScore > other.bestScore
}

func (s *RandomizedStrategy) Solve(ctx context.Context, p *core.Problem, _ []Rule) *Outcome {
	logger := logging.FromContext(ctx, "strategy", s.Name())
	start := time.Now()

	seed := s.spec.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	workers := min(s.spec.Workers, s.spec.MaxIterations)
	results := make([]*workerResult, workers)

	// every worker owns its result slot, the fold below runs after Wait
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		iterations := s.spec.MaxIterations / workers
		if w < s.spec.MaxIterations%workers {
			iterations++
		}
		rng := rand.New(rand.NewPCG(seed, uint64(w)))
		g.Go(func() error {
			results[w] = runAttempts(gctx, p, rng, iterations)
			return nil
		})
	}
	_ = g.Wait()

	best := &workerResult{}
	stats := &AttemptStats{}
	var scores []float64
	for _, r := range results {
		stats.Attempts += r.attempts
		scores = append(scores, r.scores...)
		if r.better(best) {
			best = r
		}
	}
	stats.Completed = len(scores)

	outcome := &Outcome{Elapsed: time.Since(start), Attempts: stats}
	if best.best == nil {
		outcome.Status = StatusInfeasible
		outcome.Reason = "no attempt placed every agent"
		if ctx.Err() != nil {
			outcome.Reason += ": " + ctx.Err().Error()
		}
		logger.V(logging.DEBUG).Info("randomized construction failed", "attempts", stats.Attempts)
		return outcome
	}

	stats.FirstScore = best.firstScore
	stats.BestScore = best.bestScore
	if len(scores) > 1 {
		stats.MeanScore, stats.StdDev = stat.MeanStdDev(scores, nil)
	} else {
		stats.MeanScore = scores[0]
	}
	outcome.Allocation = best.best
	outcome.Status = StatusFeasibleNotProven
	logger.V(logging.DEBUG).Info("randomized construction completed",
		"attempts", stats.Attempts, "completed", stats.Completed, "first", stats.FirstScore, "best", stats.BestScore)
	return outcome
}

// runAttempts performs up to iterations attempts and folds them into a
// best-so-far result. The first completed attempt is the initial best; later
// attempts replace it only with a strictly higher score.
func runAttempts(ctx context.Context, p *core.Problem, rng *rand.Rand, iterations int) *workerResult {
	result := &workerResult{}
	agents := p.Agents()
	resources := p.Resources()
	for i := 0; i < iterations; i++ {
		if ctx.Err() != nil {
			break
		}
		result.attempts++
		allocation, score, ok := randomAttempt(p, rng, agents, resources)
		if !ok {
			continue
		}
		result.scores = append(result.scores, score)
		if result.best == nil {
			result.firstScore = score
		}
		if result.best == nil || score > result.bestScore {
			result.best = allocation
			result.bestScore = score
		}
	}
	return result
}

// randomAttempt builds one allocation and scores it with core.RankWeight.
// agents and resources are scratch copies shuffled in place.
func randomAttempt(p *core.Problem, rng *rand.Rand, agents []core.AgentID, resources []core.ResourceID) (core.Allocation, float64, bool) {
	remaining := p.CapacityCounters()
	allocation := make(core.Allocation, len(agents))
	score := 0.0

	rng.Shuffle(len(agents), func(i, j int) { agents[i], agents[j] = agents[j], agents[i] })
	for _, agent := range agents {
		options := p.Preferences(agent)
		if len(options) == 0 {
			options = resources
		}
		rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

		var chosen core.ResourceID
		for _, r := range options {
			if remaining[r] > 0 {
				chosen = r
				break
			}
		}
		if chosen == "" {
			available := p.AvailableResources(remaining)
			if len(available) == 0 {
				return nil, 0, false
			}
			chosen = available[rng.IntN(len(available))]
		}
		allocation[agent] = chosen
		remaining[chosen]--
		score += core.RankWeight(p, agent, chosen)
	}
	return allocation, score, true
}
