package solver

import (
	"fmt"
	"math/rand/v2"

	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
)

// scenarioProblem is agents {1,2,3}, resources {A:1, B:2},
// preferences {1:[A,B], 2:[A,B], 3:[B]}.
func scenarioProblem() (*core.Problem, error) {
	return core.NewProblem(
		[]core.AgentID{"1", "2", "3"},
		[]core.ResourceID{"A", "B"},
		map[core.AgentID][]core.ResourceID{
			"1": {"A", "B"},
			"2": {"A", "B"},
			"3": {"B"},
		},
		map[core.ResourceID]int{"A": 1, "B": 2},
	)
}

// overloadedProblem has 3 agents and a single resource of capacity 1.
func overloadedProblem() (*core.Problem, error) {
	return core.NewProblem(
		[]core.AgentID{"1", "2", "3"},
		[]core.ResourceID{"A"},
		nil,
		map[core.ResourceID]int{"A": 1},
	)
}

// unrestrictedProblem has no preference lists at all.
func unrestrictedProblem() (*core.Problem, error) {
	return core.NewProblem(
		[]core.AgentID{"1", "2", "3", "4", "5"},
		[]core.ResourceID{"A", "B", "C"},
		map[core.AgentID][]core.ResourceID{"1": {}, "2": {}},
		map[core.ResourceID]int{"A": 2, "B": 1, "C": 2},
	)
}

// randomProblem generates a small problem with enough total capacity.
// With uniformLength every agent ranks the same number of resources.
func randomProblem(rng *rand.Rand, uniformLength bool) (*core.Problem, error) {
	numAgents := 2 + rng.IntN(5)
	numResources := 2 + rng.IntN(3)

	agents := make([]core.AgentID, numAgents)
	for i := range agents {
		agents[i] = core.AgentID(fmt.Sprintf("a%d", i))
	}
	resources := make([]core.ResourceID, numResources)
	capacities := make(map[core.ResourceID]int, numResources)
	for i := range resources {
		resources[i] = core.ResourceID(fmt.Sprintf("r%d", i))
		capacities[resources[i]] = rng.IntN(3)
	}
	for totalCapacity(capacities) < numAgents {
		capacities[resources[rng.IntN(numResources)]]++
	}

	length := 1 + rng.IntN(numResources)
	preferences := make(map[core.AgentID][]core.ResourceID, numAgents)
	for _, a := range agents {
		n := length
		if !uniformLength {
			n = rng.IntN(numResources + 1)
		}
		perm := rng.Perm(numResources)
		prefs := make([]core.ResourceID, n)
		for i := 0; i < n; i++ {
			prefs[i] = resources[perm[i]]
		}
		preferences[a] = prefs
	}
	return core.NewProblem(agents, resources, preferences, capacities)
}

func totalCapacity(capacities map[core.ResourceID]int) int {
	total := 0
	for _, c := range capacities {
		total += c
	}
	return total
}

// bruteForce enumerates every assignment respecting capacities and the
// preference restriction, and returns the best canonical score and the best
// exact objective (at the given weight scale), or false if none exists.
func bruteForce(p *core.Problem, weightScale int64) (float64, int64, bool) {
	agents := p.Agents()
	resources := p.Resources()
	remaining := p.CapacityCounters()
	current := make(core.Allocation, len(agents))

	found := false
	var bestScore float64
	var bestObjective int64

	var visit func(i int)
	visit = func(i int) {
		if i == len(agents) {
			score := core.Score(current, p)
			var objective int64
			for a, r := range current {
				if rank, ok := p.Rank(a, r); ok {
					objective += (int64(len(p.Preferences(a))) - int64(rank)) * weightScale
				}
			}
			if !found || score > bestScore {
				bestScore = score
			}
			if !found || objective > bestObjective {
				bestObjective = objective
			}
			found = true
			return
		}
		a := agents[i]
		for _, r := range resources {
			if remaining[r] == 0 || !p.Eligible(a, r) {
				continue
			}
			remaining[r]--
			current[a] = r
			visit(i + 1)
			delete(current, a)
			remaining[r]++
		}
	}
	visit(0)
	return bestScore, bestObjective, found
}
