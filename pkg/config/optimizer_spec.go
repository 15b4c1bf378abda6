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

package config

import (
	"fmt"
	"time"
)

// Strategy names
const (
	ExactStrategyName      = "exact"
	GreedyStrategyName     = "greedy"
	RandomizedStrategyName = "randomized"
)

// Default configuration values
const (
	DefaultMaxIterations  = 1000
	DefaultWorkers        = 1
	DefaultWeightScale    = 100
	DefaultExactTimeLimit = 30 * time.Second
	DefaultTimeout        = 2 * time.Minute
)

// DefaultStrategies returns the default invocation order of the strategies.
// The order also breaks score ties: the earlier strategy wins.
func DefaultStrategies() []string {
	return []string{ExactStrategyName, GreedyStrategyName, RandomizedStrategyName}
}

// OptimizerSpec is the configuration of the benchmark orchestrator.
type OptimizerSpec struct {
	// Strategies lists the strategies to run, in invocation order.
	Strategies []string `yaml:"strategies" json:"strategies" mapstructure:"strategies"`

	// Parallel runs the strategies concurrently instead of one after the other.
	Parallel bool `yaml:"parallel" json:"parallel" mapstructure:"parallel"`

	// Timeout bounds a whole solve; zero means no bound beyond the caller's context.
	// Without Parallel the strategies share it in turn, so the exact time limit
	// must stay below it for the later strategies to get any time; a zero
	// exact time limit lets the exact search use all of it.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	Exact      ExactSpec      `yaml:"exact" json:"exact" mapstructure:"exact"`
	Randomized RandomizedSpec `yaml:"randomized" json:"randomized" mapstructure:"randomized"`
}

// ExactSpec configures the exact strategy.
type ExactSpec struct {
	// TimeLimit bounds the search; the best solution found so far is returned when it elapses.
	TimeLimit time.Duration `yaml:"timeLimit" json:"timeLimit" mapstructure:"timeLimit"`

	// NodeLimit bounds the number of search nodes; zero means no limit.
	NodeLimit int64 `yaml:"nodeLimit" json:"nodeLimit" mapstructure:"nodeLimit"`

	// WeightScale multiplies preference ranks to keep the objective integral.
	WeightScale int64 `yaml:"weightScale" json:"weightScale" mapstructure:"weightScale"`
}

// RandomizedSpec configures the randomized multi-start strategy.
type RandomizedSpec struct {
	// MaxIterations is the number of independent construction attempts.
	MaxIterations int `yaml:"maxIterations" json:"maxIterations" mapstructure:"maxIterations"`

	// Workers splits the attempts across goroutines; 1 runs them sequentially.
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers"`

	// Seed makes runs reproducible; zero seeds from the clock.
	Seed uint64 `yaml:"seed" json:"seed" mapstructure:"seed"`
}

// DefaultOptimizerSpec returns the default configuration.
func DefaultOptimizerSpec() *OptimizerSpec {
	return &OptimizerSpec{
		Strategies: DefaultStrategies(),
		Parallel:   false,
		Timeout:    DefaultTimeout,
		Exact: ExactSpec{
			TimeLimit:   DefaultExactTimeLimit,
			WeightScale: DefaultWeightScale,
		},
		Randomized: RandomizedSpec{
			MaxIterations: DefaultMaxIterations,
			Workers:       DefaultWorkers,
		},
	}
}

// Validate checks for invalid configuration values.
func (s *OptimizerSpec) Validate() error {
	if len(s.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := make(map[string]bool, len(s.Strategies))
	for _, name := range s.Strategies {
		switch name {
		case ExactStrategyName, GreedyStrategyName, RandomizedStrategyName:
		default:
			return fmt.Errorf("unknown strategy %q", name)
		}
		if seen[name] {
			return fmt.Errorf("strategy %q listed twice", name)
		}
		seen[name] = true
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", s.Timeout)
	}
	if s.Exact.TimeLimit < 0 {
		return fmt.Errorf("exact.timeLimit must be >= 0, got %s", s.Exact.TimeLimit)
	}
	if !s.Parallel && s.Timeout > 0 && seen[ExactStrategyName] && s.Exact.TimeLimit >= s.Timeout {
		return fmt.Errorf("exact.timeLimit (%s) must be below timeout (%s) when strategies run sequentially",
			s.Exact.TimeLimit, s.Timeout)
	}
	if s.Exact.NodeLimit < 0 {
		return fmt.Errorf("exact.nodeLimit must be >= 0, got %d", s.Exact.NodeLimit)
	}
	if s.Exact.WeightScale <= 0 {
		return fmt.Errorf("exact.weightScale must be > 0, got %d", s.Exact.WeightScale)
	}
	if s.Randomized.MaxIterations <= 0 {
		return fmt.Errorf("randomized.maxIterations must be > 0, got %d", s.Randomized.MaxIterations)
	}
	if s.Randomized.Workers <= 0 {
		return fmt.Errorf("randomized.workers must be > 0, got %d", s.Randomized.Workers)
	}
	return nil
}
