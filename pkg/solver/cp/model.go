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

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownVar is returned when a constraint references a variable that does not belong to the model.
var ErrUnknownVar = errors.New("unknown variable")

// Var is a boolean (0/1) decision variable of a Model.
type Var int

// Lit returns the positive literal of the variable.
func (v Var) Lit() Lit {
	return Lit{Var: v}
}

// Not returns the negated literal of the variable.
func (v Var) Not() Lit {
	return Lit{Var: v, Negated: true}
}

// Lit is a variable or its negation. The value of a negated literal is 1 - x.
type Lit struct {
	Var     Var
	Negated bool
}

// Not returns the opposite literal.
func (l Lit) Not() Lit {
	return Lit{Var: l.Var, Negated: !l.Negated}
}

// Term is a coefficient applied to a variable in a linear expression.
type Term struct {
	Var  Var
	Coef int64
}

// Op is the comparison operator of a linear constraint.
type Op int

const (
	LessOrEqual Op = iota
	GreaterOrEqual
	Equal
)

func (o Op) String() string {
	switch o {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "=="
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

const (
	noLower = math.MinInt64
	noUpper = math.MaxInt64
)

// linear is the normalized form lo <= sum(terms) <= hi of every constraint.
type linear struct {
	terms []Term
	lo    int64
	hi    int64
}

// Model is a 0/1 linear model: boolean variables, linear constraints over
// them and a linear objective to maximize.
//
// A Model is built by a single goroutine and must not be modified while Solve runs.
type Model struct {
	names       []string
	constraints []linear
	objective   []int64

	// group[v] is the exactly-one group used to bound the objective, or -1
	group  []int
	groups [][]Var
	// complete[g] is set when every variable of the exactly-one constraint belongs to group g
	complete []bool

	// trivially infeasible constraints (no variables, unsatisfiable bounds)
	contradiction bool
}

// NewModel creates an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar adds a boolean variable to the model.
func (m *Model) NewBoolVar(name string) Var {
	v := Var(len(m.names))
	m.names = append(m.names, name)
	m.objective = append(m.objective, 0)
	m.group = append(m.group, -1)
	return v
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int {
	return len(m.names)
}

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

// Name returns the name of a variable.
func (m *Model) Name(v Var) string {
	if !m.valid(v) {
		return ""
	}
	return m.names[v]
}

func (m *Model) valid(v Var) bool {
	return v >= 0 && int(v) < len(m.names)
}

func (m *Model) checkTerms(terms []Term) error {
	for _, t := range terms {
		if !m.valid(t.Var) {
			return fmt.Errorf("%w: %d", ErrUnknownVar, t.Var)
		}
	}
	return nil
}

// AddLinear adds the constraint sum(terms) op rhs.
func (m *Model) AddLinear(terms []Term, op Op, rhs int64) error {
	if err := m.checkTerms(terms); err != nil {
		return err
	}
	lo, hi := int64(noLower), int64(noUpper)
	switch op {
	case LessOrEqual:
		hi = rhs
	case GreaterOrEqual:
		lo = rhs
	case Equal:
		lo, hi = rhs, rhs
	default:
		return fmt.Errorf("unsupported operator %v", op)
	}
	m.add(merge(terms), lo, hi)
	return nil
}

// AddLinearLits adds the constraint sum(coef_i * lit_i) op rhs, where a negated
// literal contributes coef * (1 - x).
func (m *Model) AddLinearLits(lits []Lit, coefs []int64, op Op, rhs int64) error {
	if len(lits) != len(coefs) {
		return fmt.Errorf("got %d literals and %d coefficients", len(lits), len(coefs))
	}
	terms := make([]Term, len(lits))
	for i, l := range lits {
		c := coefs[i]
		if l.Negated {
			// c * (1 - x) = c - c*x
			rhs -= c
			c = -c
		}
		terms[i] = Term{Var: l.Var, Coef: c}
	}
	return m.AddLinear(terms, op, rhs)
}

// AddExactlyOne requires exactly one of the variables to be true.
// The first exactly-one group of a variable is also used to bound the objective during search.
func (m *Model) AddExactlyOne(vars []Var) error {
	if err := m.AddLinear(unitTerms(vars), Equal, 1); err != nil {
		return err
	}
	g := len(m.groups)
	var members []Var
	for _, v := range vars {
		if m.group[v] == -1 {
			m.group[v] = g
			members = append(members, v)
		}
	}
	m.groups = append(m.groups, members)
	m.complete = append(m.complete, len(members) > 0 && len(members) == len(vars))
	return nil
}

// AddAtMostOne requires at most one of the variables to be true.
func (m *Model) AddAtMostOne(vars []Var) error {
	return m.AddLinear(unitTerms(vars), LessOrEqual, 1)
}

// AddBoolOr requires at least one literal to be true.
func (m *Model) AddBoolOr(lits []Lit) error {
	coefs := make([]int64, len(lits))
	for i := range coefs {
		coefs[i] = 1
	}
	return m.AddLinearLits(lits, coefs, GreaterOrEqual, 1)
}

// AddImplication requires b to be true whenever a is true.
func (m *Model) AddImplication(a, b Lit) error {
	return m.AddBoolOr([]Lit{a.Not(), b})
}

// Fix forces the literal to be true.
func (m *Model) Fix(l Lit) error {
	return m.AddLinearLits([]Lit{l}, []int64{1}, Equal, 1)
}

// Maximize adds terms to the objective function to maximize.
func (m *Model) Maximize(terms []Term) error {
	if err := m.checkTerms(terms); err != nil {
		return err
	}
	for _, t := range terms {
		m.objective[t.Var] += t.Coef
	}
	return nil
}

// ObjectiveCoef returns the objective coefficient of a variable.
func (m *Model) ObjectiveCoef(v Var) int64 {
	if !m.valid(v) {
		return 0
	}
	return m.objective[v]
}

func (m *Model) add(terms []Term, lo, hi int64) {
	if len(terms) == 0 {
		if lo > 0 || hi < 0 {
			m.contradiction = true
		}
		return
	}
	m.constraints = append(m.constraints, linear{terms: terms, lo: lo, hi: hi})
}

func unitTerms(vars []Var) []Term {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return terms
}

// merge combines duplicate variables and drops zero coefficients.
func merge(terms []Term) []Term {
	index := make(map[Var]int, len(terms))
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		if i, ok := index[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		index[t.Var] = len(out)
		out = append(out, t)
	}
	kept := out[:0]
	for _, t := range out {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	return kept
}
