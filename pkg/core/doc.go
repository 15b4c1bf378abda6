// Package core provides the fundamental data structures of the allocation engine.
//
// This package contains the domain model shared by every solving strategy:
//
//   - AgentID / ResourceID: identifiers of the entities being assigned and receiving assignments
//   - Problem: agents, resources, capacities and ranked preference lists, validated once
//   - Allocation: a complete agent-to-resource mapping produced by a strategy
//   - Score: the canonical rank-based satisfaction score used to compare strategies
//
// A Problem is read-only after construction and safe for concurrent use by
// multiple strategies. Strategies keep their own capacity counters (see
// Problem.CapacityCounters) and allocation maps.
//
// Example usage:
//
//	problem, err := core.NewProblem(
//	    []core.AgentID{"1", "2", "3"},
//	    []core.ResourceID{"A", "B"},
//	    map[core.AgentID][]core.ResourceID{
//	        "1": {"A", "B"},
//	        "2": {"A", "B"},
//	        "3": {"B"},
//	    },
//	    map[core.ResourceID]int{"A": 1, "B": 2},
//	)
//	if errors.Is(err, core.ErrInvalidInput) {
//	    // malformed input, no strategy may run
//	}
//
//	score := core.Score(allocation, problem)
package core
