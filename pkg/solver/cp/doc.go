// Package cp provides a small 0/1 linear constraint model and an exact
// branch-and-bound search over it.
//
// It is the engine behind the exact allocation strategy: decision variables
// are booleans, constraints are linear (<=, >=, ==) over them, and helpers
// express exactly-one, at-most-one, clause and implication constraints.
// Search runs until optimality is proven, the model is shown infeasible or
// the configured budget runs out. Exactly-one groups feeding unit capacity
// constraints are recognized as a transportation problem, whose min-cost
// flow bounds the objective and detects overfull capacities at every node.
//
// Example usage:
//
//	m := cp.NewModel()
//	x := m.NewBoolVar("x")
//	y := m.NewBoolVar("y")
//	_ = m.AddExactlyOne([]cp.Var{x, y})
//	_ = m.Maximize([]cp.Term{{Var: x, Coef: 2}, {Var: y, Coef: 3}})
//
//	sol, err := cp.Solve(ctx, m, cp.Config{TimeLimit: 10 * time.Second})
//	if err == nil && sol.Status.HasSolution() {
//	    fmt.Println(sol.Value(y)) // true
//	}
package cp
