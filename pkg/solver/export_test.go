package solver

// Fixtures shared with the solver_test suite.
var (
	ScenarioProblem     = scenarioProblem
	OverloadedProblem   = overloadedProblem
	UnrestrictedProblem = unrestrictedProblem
)
