package cp_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-allocation-engine/pkg/solver/cp"
)

func newVars(m *cp.Model, n int) []cp.Var {
	vars := make([]cp.Var, n)
	for i := range vars {
		vars[i] = m.NewBoolVar("v")
	}
	return vars
}

func unitTerms(vars []cp.Var, coef int64) []cp.Term {
	terms := make([]cp.Term, len(vars))
	for i, v := range vars {
		terms[i] = cp.Term{Var: v, Coef: coef}
	}
	return terms
}

// buildSquare creates rows exactly-one groups over cols columns and gives
// every column the constraint coef * sum <= coef, so at most one row takes it.
// Unit columns are recognized as capacities by the search, wider ones are not.
func buildSquare(rows, cols int, coef int64) (*cp.Model, [][]cp.Var) {
	m := cp.NewModel()
	x := make([][]cp.Var, rows)
	for r := range x {
		x[r] = newVars(m, cols)
		Expect(m.AddExactlyOne(x[r])).To(Succeed())
	}
	for c := 0; c < cols; c++ {
		col := make([]cp.Var, 0, rows)
		for r := range x {
			col = append(col, x[r][c])
		}
		Expect(m.AddLinear(unitTerms(col, coef), cp.LessOrEqual, coef)).To(Succeed())
	}
	return m, x
}

func countTrue(sol *cp.Solution, vars []cp.Var) int {
	count := 0
	for _, v := range vars {
		if sol.Value(v) {
			count++
		}
	}
	return count
}

var _ = Describe("Model", func() {
	It("should reject unknown variables", func() {
		m := cp.NewModel()
		x := m.NewBoolVar("x")
		Expect(m.AddLinear([]cp.Term{{Var: x, Coef: 1}, {Var: 7, Coef: 1}}, cp.LessOrEqual, 1)).To(MatchError(cp.ErrUnknownVar))
		Expect(m.Maximize([]cp.Term{{Var: -1, Coef: 1}})).To(MatchError(cp.ErrUnknownVar))
		Expect(m.NumConstraints()).To(Equal(0))
	})

	It("should reject mismatched literal coefficients", func() {
		m := cp.NewModel()
		x := m.NewBoolVar("x")
		Expect(m.AddLinearLits([]cp.Lit{x.Lit()}, nil, cp.Equal, 1)).To(HaveOccurred())
	})

	It("should merge duplicate terms", func() {
		m := cp.NewModel()
		x := m.NewBoolVar("x")
		y := m.NewBoolVar("y")
		// x + 2y - x <= 1 leaves 2y <= 1
		Expect(m.AddLinear([]cp.Term{{Var: x, Coef: 1}, {Var: y, Coef: 2}, {Var: x, Coef: -1}}, cp.LessOrEqual, 1)).To(Succeed())
		Expect(m.Maximize([]cp.Term{{Var: x, Coef: 1}, {Var: y, Coef: 5}})).To(Succeed())
		Expect(m.Name(y)).To(Equal("y"))
		Expect(m.ObjectiveCoef(y)).To(Equal(int64(5)))

		sol, err := cp.Solve(context.Background(), m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Value(x)).To(BeTrue())
		Expect(sol.Value(y)).To(BeFalse())
		Expect(sol.Objective).To(Equal(int64(1)))
	})
})

var _ = Describe("Solve", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should pick the best member of an exactly-one group", func() {
		m := cp.NewModel()
		vars := newVars(m, 3)
		Expect(m.AddExactlyOne(vars)).To(Succeed())
		Expect(m.Maximize([]cp.Term{{Var: vars[0], Coef: 1}, {Var: vars[1], Coef: 5}, {Var: vars[2], Coef: 3}})).To(Succeed())

		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Objective).To(Equal(int64(5)))
		Expect(sol.Value(vars[1])).To(BeTrue())
		Expect(sol.Value(vars[0])).To(BeFalse())
		Expect(sol.Value(vars[2])).To(BeFalse())
	})

	It("should solve a small assignment with capacities optimally", func() {
		// 3 agents x 2 resources, capacity A=1, B=2, agent 2 only accepts B
		m := cp.NewModel()
		x := make([][]cp.Var, 3)
		for a := range x {
			x[a] = newVars(m, 2)
			Expect(m.AddExactlyOne(x[a])).To(Succeed())
		}
		Expect(m.AddLinear([]cp.Term{{Var: x[0][0], Coef: 1}, {Var: x[1][0], Coef: 1}, {Var: x[2][0], Coef: 1}}, cp.LessOrEqual, 1)).To(Succeed())
		Expect(m.AddLinear([]cp.Term{{Var: x[0][1], Coef: 1}, {Var: x[1][1], Coef: 1}, {Var: x[2][1], Coef: 1}}, cp.LessOrEqual, 2)).To(Succeed())
		Expect(m.Fix(x[2][0].Not())).To(Succeed())
		Expect(m.Maximize([]cp.Term{
			{Var: x[0][0], Coef: 200}, {Var: x[0][1], Coef: 100},
			{Var: x[1][0], Coef: 200}, {Var: x[1][1], Coef: 100},
			{Var: x[2][1], Coef: 100},
		})).To(Succeed())

		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Objective).To(Equal(int64(400)))
		Expect(sol.Value(x[2][1])).To(BeTrue())
		Expect(sol.Value(x[0][0]) != sol.Value(x[1][0])).To(BeTrue())
	})

	It("should report infeasible models", func() {
		m := cp.NewModel()
		vars := newVars(m, 3)
		Expect(m.AddLinear(unitTerms(vars, 1), cp.GreaterOrEqual, 2)).To(Succeed())
		Expect(m.AddAtMostOne(vars)).To(Succeed())

		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusInfeasible))
		Expect(sol.Status.HasSolution()).To(BeFalse())
		Expect(sol.Value(vars[0])).To(BeFalse())
	})

	It("should treat an empty unsatisfiable constraint as infeasible", func() {
		m := cp.NewModel()
		x := m.NewBoolVar("x")
		Expect(m.AddLinear([]cp.Term{{Var: x, Coef: 1}, {Var: x, Coef: -1}}, cp.GreaterOrEqual, 1)).To(Succeed())
		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusInfeasible))
	})

	It("should propagate implications and clauses", func() {
		m := cp.NewModel()
		a := m.NewBoolVar("a")
		b := m.NewBoolVar("b")
		c := m.NewBoolVar("c")
		Expect(m.Fix(a.Lit())).To(Succeed())
		Expect(m.AddImplication(a.Lit(), b.Lit())).To(Succeed())
		Expect(m.AddBoolOr([]cp.Lit{b.Not(), c.Not()})).To(Succeed())
		Expect(m.Maximize([]cp.Term{{Var: c, Coef: 10}})).To(Succeed())

		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Value(a)).To(BeTrue())
		Expect(sol.Value(b)).To(BeTrue())
		Expect(sol.Value(c)).To(BeFalse())
		Expect(sol.LitValue(c.Not())).To(BeTrue())
		Expect(sol.Objective).To(Equal(int64(0)))
	})

	It("should handle negative coefficients", func() {
		m := cp.NewModel()
		x := m.NewBoolVar("x")
		y := m.NewBoolVar("y")
		// x - y >= 1 forces x=1, y=0
		Expect(m.AddLinear([]cp.Term{{Var: x, Coef: 1}, {Var: y, Coef: -1}}, cp.GreaterOrEqual, 1)).To(Succeed())
		Expect(m.Maximize([]cp.Term{{Var: y, Coef: 3}, {Var: x, Coef: -1}})).To(Succeed())

		sol, err := cp.Solve(ctx, m, cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Value(x)).To(BeTrue())
		Expect(sol.Value(y)).To(BeFalse())
		Expect(sol.Objective).To(Equal(int64(-1)))
	})

	It("should solve an empty model", func() {
		sol, err := cp.Solve(ctx, cp.NewModel(), cp.Config{})
		Expect(err).NotTo(HaveOccurred())
		Expect(sol.Status).To(Equal(cp.StatusOptimal))
		Expect(sol.Objective).To(Equal(int64(0)))
	})

	It("should reject a nil model", func() {
		_, err := cp.Solve(ctx, nil, cp.Config{})
		Expect(err).To(HaveOccurred())
	})

	Context("with capacity constraints", func() {
		It("should prove a pigeonhole model infeasible at the root", func() {
			m, _ := buildSquare(10, 9, 1)
			sol, err := cp.Solve(ctx, m, cp.Config{NodeLimit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusInfeasible))
			Expect(sol.Nodes).To(Equal(int64(1)))
		})

		It("should detect a crowded subset of groups", func() {
			// three groups can only use two unit columns, the others have room to spare
			m, x := buildSquare(3, 6, 1)
			for r := range x {
				for c := 2; c < 6; c++ {
					Expect(m.Fix(x[r][c].Not())).To(Succeed())
				}
			}
			sol, err := cp.Solve(ctx, m, cp.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusInfeasible))
			Expect(sol.Nodes).To(Equal(int64(1)))
		})

		It("should solve a tight assignment without search", func() {
			// 60 rows, 10 columns of capacity 6, four ranked choices per row
			const rows, cols, capacity = 60, 10, 6
			m := cp.NewModel()
			x := make([][]cp.Var, rows)
			var objective []cp.Term
			for r := range x {
				x[r] = newVars(m, cols)
				Expect(m.AddExactlyOne(x[r])).To(Succeed())
				allowed := map[int]int64{}
				for k := 0; k < 4; k++ {
					allowed[(r+3*k)%cols] = int64(4 - k)
				}
				for c, v := range x[r] {
					coef, ok := allowed[c]
					if !ok {
						Expect(m.Fix(v.Not())).To(Succeed())
						continue
					}
					objective = append(objective, cp.Term{Var: v, Coef: coef})
				}
			}
			for c := 0; c < cols; c++ {
				col := make([]cp.Var, 0, rows)
				for r := range x {
					col = append(col, x[r][c])
				}
				Expect(m.AddLinear(unitTerms(col, 1), cp.LessOrEqual, capacity)).To(Succeed())
			}
			Expect(m.Maximize(objective)).To(Succeed())

			sol, err := cp.Solve(ctx, m, cp.Config{TimeLimit: time.Minute})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusOptimal))
			// every row gets its first choice: row r starts at column r%10, six rows per column
			Expect(sol.Objective).To(Equal(int64(4 * rows)))
			Expect(sol.Nodes).To(BeNumerically("<", 1000))
			for r := range x {
				Expect(countTrue(sol, x[r])).To(Equal(1))
			}
			for c := 0; c < cols; c++ {
				load := 0
				for r := range x {
					if sol.Value(x[r][c]) {
						load++
					}
				}
				Expect(load).To(BeNumerically("<=", capacity))
			}
		})
	})

	Context("with a budget", func() {
		// columns of width two hide the pigeonhole from the flow bound
		It("should return Unknown when the node budget runs out before a solution", func() {
			m, _ := buildSquare(10, 9, 2)
			sol, err := cp.Solve(ctx, m, cp.Config{NodeLimit: 50})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusUnknown))
			Expect(sol.Nodes).To(BeNumerically("<=", 50))
		})

		It("should return Unknown on a cancelled context", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			m, _ := buildSquare(10, 9, 1)
			sol, err := cp.Solve(cancelled, m, cp.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusUnknown))
		})

		It("should return the incumbent as Feasible when stopped before proving optimality", func() {
			m, x := buildSquare(12, 12, 2)
			var obj []cp.Term
			for r := range x {
				for c, v := range x[r] {
					obj = append(obj, cp.Term{Var: v, Coef: int64((r*7+c*3)%11 + 1)})
				}
			}
			Expect(m.Maximize(obj)).To(Succeed())

			sol, err := cp.Solve(ctx, m, cp.Config{NodeLimit: 16, TimeLimit: time.Minute})
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Status).To(Equal(cp.StatusFeasible))
			for r := range x {
				Expect(countTrue(sol, x[r])).To(Equal(1))
			}
		})
	})
})

var _ = Describe("Status", func() {
	It("should render names", func() {
		Expect(cp.StatusOptimal.String()).To(Equal("Optimal"))
		Expect(cp.StatusFeasible.String()).To(Equal("Feasible"))
		Expect(cp.StatusInfeasible.String()).To(Equal("Infeasible"))
		Expect(cp.StatusUnknown.String()).To(Equal("Unknown"))
		Expect(cp.Status(42).String()).To(Equal("Status(42)"))
		Expect(cp.LessOrEqual.String()).To(Equal("<="))
	})
})
