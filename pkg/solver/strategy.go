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

	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// Strategy is a solving approach benchmarked by the Optimizer.
// Solve must not modify the problem and must return a non-nil outcome;
// only complete allocations may be returned.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, problem *core.Problem, rules []Rule) *Outcome
}

// NewStrategy is a factory that creates the named strategy from its configuration.
func NewStrategy(name string, spec *config.OptimizerSpec) (Strategy, error) {
	switch name {
	case config.ExactStrategyName:
		return NewExactStrategy(spec.Exact), nil
	case config.GreedyStrategyName:
		return NewGreedyStrategy(), nil
	case config.RandomizedStrategyName:
		return NewRandomizedStrategy(spec.Randomized), nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", name)
	}
}

// Registry maps strategy names to strategies and keeps their invocation order.
// It is built once and read-only afterwards.
type Registry struct {
	order      []string
	strategies map[string]Strategy
}

// NewRegistry creates the strategies listed in spec.Strategies.
func NewRegistry(spec *config.OptimizerSpec) (*Registry, error) {
	r := &Registry{strategies: make(map[string]Strategy, len(spec.Strategies))}
	for _, name := range spec.Strategies {
		s, err := NewStrategy(name, spec)
		if err != nil {
			return nil, err
		}
		if err := r.register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewRegistryOf creates a registry of the given strategies, in order.
func NewRegistryOf(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		if err := r.register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(s Strategy) error {
	if s == nil {
		return fmt.Errorf("strategy cannot be nil")
	}
	name := s.Name()
	if _, exists := r.strategies[name]; exists {
		return fmt.Errorf("strategy %q registered twice", name)
	}
	r.order = append(r.order, name)
	r.strategies[name] = s
	return nil
}

// Names returns the strategy names in invocation order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Get returns the named strategy.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Len returns the number of strategies.
func (r *Registry) Len() int {
	return len(r.order)
}
