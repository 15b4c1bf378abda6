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

import "math"

const unbounded = -1

// relaxation is the transportation structure of a model: every complete
// exactly-one group sends one unit into a bucket, where a bucket is a
// unit-coefficient upper-bounded constraint over variables of distinct groups.
// Variables outside of any bucket flow into a single unbounded bucket.
//
// Every other constraint is dropped, so the min-cost flow of the open groups
// bounds the objective they can still contribute, and a flow that cannot
// place every open group proves the current node infeasible.
type relaxation struct {
	groups   []int
	bucket   []int
	capacity []int64

	net    network
	edges  []flowEdge
	choice []Var
}

// flowEdge maps a group to bucket edge of the network back to its variable.
type flowEdge struct {
	edge  int
	group int
	v     Var
}

func newRelaxation(m *Model) *relaxation {
	r := &relaxation{
		bucket: make([]int, m.NumVars()),
		choice: make([]Var, len(m.groups)),
	}
	for i := range r.bucket {
		r.bucket[i] = unbounded
	}
	for g, complete := range m.complete {
		if complete {
			r.groups = append(r.groups, g)
		}
	}
	for _, c := range m.constraints {
		if !r.isCapacity(m, c) {
			continue
		}
		b := len(r.capacity)
		for _, t := range c.terms {
			r.bucket[t.Var] = b
		}
		r.capacity = append(r.capacity, c.hi)
	}
	return r
}

// isCapacity reports whether c can act as a bucket. A variable belongs to at most one bucket.
func (r *relaxation) isCapacity(m *Model, c linear) bool {
	if c.hi == noUpper || c.hi < 0 || (c.lo != noLower && c.lo > 0) {
		return false
	}
	seen := make(map[int]bool, len(c.terms))
	for _, t := range c.terms {
		g := m.group[t.Var]
		if t.Coef != 1 || g < 0 || !m.complete[g] || seen[g] || r.bucket[t.Var] != unbounded {
			return false
		}
		seen[g] = true
	}
	return true
}

// solve computes the best objective the open groups can reach under the
// current assignment. It returns false when they cannot all be placed.
// On success choice[g] holds the variable the flow selects for each open group.
func (r *relaxation) solve(m *Model, val []int8, done []bool) (int64, bool) {
	var open []int
	for _, g := range r.groups {
		if !done[g] {
			open = append(open, g)
		}
	}
	if len(open) == 0 {
		return 0, true
	}

	residual := make([]int64, len(r.capacity))
	copy(residual, r.capacity)
	for v, x := range val {
		if x == 1 && r.bucket[v] != unbounded {
			residual[r.bucket[v]]--
		}
	}

	// source, open groups, buckets, the unbounded bucket, sink
	source := 0
	free := 1 + len(open) + len(r.capacity)
	sink := free + 1
	r.net.reset(sink + 1)
	r.edges = r.edges[:0]
	for i, g := range open {
		r.net.addEdge(source, 1+i, 1, 0)
		for _, v := range m.groups[g] {
			if val[v] != unassigned {
				continue
			}
			to := free
			if b := r.bucket[v]; b != unbounded {
				to = 1 + len(open) + b
			}
			e := r.net.addEdge(1+i, to, 1, -m.objective[v])
			r.edges = append(r.edges, flowEdge{edge: e, group: g, v: v})
		}
	}
	for b, c := range residual {
		if c < 0 {
			return 0, false
		}
		if c > 0 {
			r.net.addEdge(1+len(open)+b, sink, c, 0)
		}
	}
	r.net.addEdge(free, sink, int64(len(open)), 0)

	flow, cost := r.net.minCostFlow(source, sink, int64(len(open)))
	if flow < int64(len(open)) {
		return 0, false
	}
	for _, fe := range r.edges {
		if r.net.cap[fe.edge] == 0 {
			r.choice[fe.group] = fe.v
		}
	}
	return -cost, true
}

// network is a residual graph for successive shortest path min-cost flow.
// Edges are stored in pairs: edge e and its reverse e^1.
type network struct {
	head []int
	next []int
	to   []int
	cap  []int64
	cost []int64

	dist    []int64
	prev    []int
	inQueue []bool
	queue   []int
}

func (n *network) reset(nodes int) {
	n.head = resize(n.head, nodes)
	for i := range n.head {
		n.head[i] = -1
	}
	n.next = n.next[:0]
	n.to = n.to[:0]
	n.cap = n.cap[:0]
	n.cost = n.cost[:0]
}

func (n *network) addEdge(u, v int, capacity, cost int64) int {
	e := len(n.to)
	n.to = append(n.to, v, u)
	n.cap = append(n.cap, capacity, 0)
	n.cost = append(n.cost, cost, -cost)
	n.next = append(n.next, n.head[u], n.head[v])
	n.head[u] = e
	n.head[v] = e + 1
	return e
}

// minCostFlow pushes up to want units from s to t along shortest paths.
// The graph starts without negative cycles, which augmenting along shortest paths preserves.
func (n *network) minCostFlow(s, t int, want int64) (int64, int64) {
	nodes := len(n.head)
	n.dist = resize64(n.dist, nodes)
	n.prev = resize(n.prev, nodes)
	if cap(n.inQueue) < nodes {
		n.inQueue = make([]bool, nodes)
	}
	n.inQueue = n.inQueue[:nodes]

	var flow, cost int64
	for flow < want {
		for i := range n.dist {
			n.dist[i] = math.MaxInt64
			n.prev[i] = -1
		}
		n.dist[s] = 0
		n.queue = append(n.queue[:0], s)
		n.inQueue[s] = true
		for len(n.queue) > 0 {
			u := n.queue[0]
			n.queue = n.queue[1:]
			n.inQueue[u] = false
			for e := n.head[u]; e != -1; e = n.next[e] {
				if n.cap[e] == 0 {
					continue
				}
				v := n.to[e]
				if d := n.dist[u] + n.cost[e]; d < n.dist[v] {
					n.dist[v] = d
					n.prev[v] = e
					if !n.inQueue[v] {
						n.inQueue[v] = true
						n.queue = append(n.queue, v)
					}
				}
			}
		}
		if n.dist[t] == math.MaxInt64 {
			break
		}

		push := want - flow
		for v := t; v != s; v = n.to[n.prev[v]^1] {
			push = min(push, n.cap[n.prev[v]])
		}
		for v := t; v != s; v = n.to[n.prev[v]^1] {
			n.cap[n.prev[v]] -= push
			n.cap[n.prev[v]^1] += push
		}
		flow += push
		cost += push * n.dist[t]
	}
	return flow, cost
}

func resize(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	return s[:n]
}

func resize64(s []int64, n int) []int64 {
	if cap(s) < n {
		return make([]int64, n)
	}
	return s[:n]
}
