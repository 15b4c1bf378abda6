package solver_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-allocation-engine/pkg/config"
	"github.com/llm-d/llm-d-allocation-engine/pkg/core"
	"github.com/llm-d/llm-d-allocation-engine/pkg/solver"
)

type fakeRecorder struct {
	mu      sync.Mutex
	records []solver.BenchmarkRecord
	reports []*solver.Report
}

func (f *fakeRecorder) ObserveStrategy(record *solver.BenchmarkRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *record)
}

func (f *fakeRecorder) ObserveSolve(report *solver.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
}

// fixedStrategy returns a canned outcome.
type fixedStrategy struct {
	name    string
	outcome func(p *core.Problem) *solver.Outcome
}

func (f *fixedStrategy) Name() string { return f.name }

func (f *fixedStrategy) Solve(_ context.Context, p *core.Problem, _ []solver.Rule) *solver.Outcome {
	return f.outcome(p)
}

func testSpec(parallel bool) *config.OptimizerSpec {
	spec := config.DefaultOptimizerSpec()
	spec.Parallel = parallel
	spec.Exact.TimeLimit = 10 * time.Second
	spec.Randomized.MaxIterations = 200
	spec.Randomized.Seed = 17
	return spec
}

var _ = Describe("Optimizer", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should reject invalid configuration", func() {
		spec := config.DefaultOptimizerSpec()
		spec.Strategies = []string{"annealing"}
		_, err := solver.NewOptimizer(spec)
		Expect(err).To(HaveOccurred())
	})

	It("should use the default strategies without a spec", func() {
		o, err := solver.NewOptimizer(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(o.Strategies()).To(Equal([]string{"exact", "greedy", "randomized"}))
	})

	for _, parallel := range []bool{false, true} {
		Context(fmt.Sprintf("with parallel=%t", parallel), func() {
			var (
				o        *solver.Optimizer
				recorder *fakeRecorder
			)

			BeforeEach(func() {
				recorder = &fakeRecorder{}
				var err error
				o, err = solver.NewOptimizer(testSpec(parallel), solver.WithRecorder(recorder))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should allocate the small scenario", func() {
				p, err := solver.ScenarioProblem()
				Expect(err).NotTo(HaveOccurred())

				allocation, report, err := o.Optimize(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(allocation).To(HaveLen(3))
				Expect(allocation.Validate(p)).To(Succeed())
				Expect(allocation["3"]).To(Equal(core.ResourceID("B")))
				Expect([]core.ResourceID{allocation["1"], allocation["2"]}).To(ConsistOf(core.ResourceID("A"), core.ResourceID("B")))

				Expect(report.RunID).NotTo(BeEmpty())
				Expect(report.Records).To(HaveLen(3))
				Expect(report.Records[0].Strategy).To(Equal("exact"))
				Expect(report.Records[1].Strategy).To(Equal("greedy"))
				Expect(report.Records[2].Strategy).To(Equal("randomized"))
				for _, record := range report.Records {
					Expect(record.Feasible).To(BeTrue())
					Expect(record.Score).NotTo(BeNil())
					Expect(*record.Score).To(BeNumerically("~", 2.5, 1e-9))
				}
				// all strategies tie, the first one wins
				Expect(report.WinningStrategy).To(Equal("exact"))
				Expect(report.Status).To(Equal(solver.StatusOptimal))
				Expect(*report.WinningScore).To(BeNumerically("~", 2.5, 1e-9))

				Expect(recorder.records).To(HaveLen(3))
				Expect(recorder.reports).To(ConsistOf(report))
			})

			It("should return no allocation when capacity is insufficient", func() {
				p, err := solver.OverloadedProblem()
				Expect(err).NotTo(HaveOccurred())

				allocation, report, err := o.Optimize(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(allocation).To(BeNil())
				Expect(report.HasWinner()).To(BeFalse())
				Expect(report.WinningStrategy).To(BeEmpty())
				Expect(report.WinningScore).To(BeNil())
				Expect(report.Status).To(Equal(solver.StatusInfeasible))
				Expect(report.Records).To(HaveLen(3))
				for _, record := range report.Records {
					Expect(record.Feasible).To(BeFalse())
					Expect(record.Score).To(BeNil())
					Expect(record.Status).To(Equal(solver.StatusInfeasible))
				}
			})

			It("should allocate agents without preferences anywhere within capacity", func() {
				p, err := solver.UnrestrictedProblem()
				Expect(err).NotTo(HaveOccurred())

				allocation, report, err := o.Optimize(ctx, p)
				Expect(err).NotTo(HaveOccurred())
				Expect(allocation.Validate(p)).To(Succeed())
				for _, record := range report.Records {
					Expect(record.Feasible).To(BeTrue())
					Expect(*record.Score).To(BeNumerically("~", 5*core.OutsidePreferencePenalty, 1e-9))
				}
			})

			It("should honor rules only in the exact strategy", func() {
				p, err := core.NewProblem(
					[]core.AgentID{"1", "2"},
					[]core.ResourceID{"A", "B"},
					map[core.AgentID][]core.ResourceID{"1": {"A", "B"}, "2": {"A", "B"}},
					map[core.ResourceID]int{"A": 2, "B": 2},
				)
				Expect(err).NotTo(HaveOccurred())

				_, report, err := o.Optimize(ctx, p, solver.Apart("1", "2"))
				Expect(err).NotTo(HaveOccurred())

				exact, ok := report.Record("exact")
				Expect(ok).To(BeTrue())
				Expect(exact.Status).To(Equal(solver.StatusOptimal))
				Expect(*exact.Score).To(BeNumerically("~", 1.5, 1e-9))

				// both heuristics put the agents together on their first choice
				greedy, ok := report.Record("greedy")
				Expect(ok).To(BeTrue())
				Expect(*greedy.Score).To(BeNumerically("~", 2.0, 1e-9))
				Expect(report.WinningStrategy).To(Equal("greedy"))
			})

			It("should fail fast on invalid rules", func() {
				p, err := solver.ScenarioProblem()
				Expect(err).NotTo(HaveOccurred())

				allocation, report, err := o.Optimize(ctx, p, solver.Apart("1", "ghost"))
				Expect(err).To(MatchError(core.ErrInvalidInput))
				Expect(allocation).To(BeNil())
				Expect(report.Status).To(Equal(solver.StatusInvalidInput))
				Expect(report.Records).To(BeEmpty())
				Expect(recorder.records).To(BeEmpty())
				Expect(recorder.reports).To(HaveLen(1))
			})
		})
	}

	It("should reject a nil problem", func() {
		o, err := solver.NewOptimizer(nil)
		Expect(err).NotTo(HaveOccurred())
		_, report, err := o.Optimize(ctx, nil)
		Expect(err).To(MatchError(core.ErrInvalidInput))
		Expect(report.Status).To(Equal(solver.StatusInvalidInput))
	})

	Context("with custom strategies", func() {
		var p *core.Problem

		BeforeEach(func() {
			var err error
			p, err = solver.ScenarioProblem()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pick the strictly highest score", func() {
			low := &fixedStrategy{name: "low", outcome: func(*core.Problem) *solver.Outcome {
				return &solver.Outcome{Status: solver.StatusFeasibleNotProven, Allocation: core.Allocation{"1": "B", "2": "B", "3": "A"}}
			}}
			high := &fixedStrategy{name: "high", outcome: func(*core.Problem) *solver.Outcome {
				return &solver.Outcome{Status: solver.StatusFeasibleNotProven, Allocation: core.Allocation{"1": "A", "2": "B", "3": "B"}}
			}}
			o, err := solver.NewOptimizer(nil, solver.WithStrategies(low, high))
			Expect(err).NotTo(HaveOccurred())

			allocation, report, err := o.Optimize(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.WinningStrategy).To(Equal("high"))
			Expect(report.Status).To(Equal(solver.StatusFeasibleNotProven))
			Expect(allocation).To(Equal(core.Allocation{"1": "A", "2": "B", "3": "B"}))
		})

		It("should discard incomplete or over-capacity allocations", func() {
			partial := &fixedStrategy{name: "partial", outcome: func(*core.Problem) *solver.Outcome {
				return &solver.Outcome{Status: solver.StatusFeasibleNotProven, Allocation: core.Allocation{"1": "A"}}
			}}
			crowded := &fixedStrategy{name: "crowded", outcome: func(*core.Problem) *solver.Outcome {
				return &solver.Outcome{Status: solver.StatusOptimal, Allocation: core.Allocation{"1": "A", "2": "A", "3": "B"}}
			}}
			silent := &fixedStrategy{name: "silent", outcome: func(*core.Problem) *solver.Outcome { return nil }}
			o, err := solver.NewOptimizer(nil, solver.WithStrategies(partial, crowded, silent))
			Expect(err).NotTo(HaveOccurred())

			allocation, report, err := o.Optimize(ctx, p)
			Expect(err).NotTo(HaveOccurred())
			Expect(allocation).To(BeNil())
			Expect(report.HasWinner()).To(BeFalse())
			for _, record := range report.Records {
				Expect(record.Feasible).To(BeFalse())
				Expect(record.Status).To(Equal(solver.StatusInfeasible))
				Expect(record.Reason).NotTo(BeEmpty())
			}
		})
	})
})

var _ = Describe("Solve", func() {
	It("should validate the input before solving", func() {
		_, report, err := solver.Solve(context.Background(),
			[]core.AgentID{"1"}, []core.ResourceID{"A"},
			map[core.AgentID][]core.ResourceID{"1": {"Z"}},
			map[core.ResourceID]int{"A": 1})
		Expect(err).To(MatchError(core.ErrInvalidInput))
		Expect(report.Status).To(Equal(solver.StatusInvalidInput))
	})

	It("should reject negative capacities", func() {
		_, _, err := solver.Solve(context.Background(),
			[]core.AgentID{"1"}, []core.ResourceID{"A"}, nil,
			map[core.ResourceID]int{"A": -1})
		Expect(err).To(MatchError(core.ErrInvalidInput))
	})

	It("should solve with the default strategies", func() {
		allocation, report, err := solver.Solve(context.Background(),
			[]core.AgentID{"1", "2", "3"}, []core.ResourceID{"A", "B"},
			map[core.AgentID][]core.ResourceID{"1": {"A", "B"}, "2": {"A", "B"}, "3": {"B"}},
			map[core.ResourceID]int{"A": 1, "B": 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(allocation).To(HaveLen(3))
		Expect(report.WinningStrategy).To(Equal("exact"))
	})
})
