// Package solver assembles mixed-integer linear programs and hands them to
// an external MILP engine for solving.
//
// The package owns the model side only: variable declaration, linear
// expressions, constraints, the minimize objective and the LP-format text
// of the assembled model. The actual branch-and-bound / simplex search is
// delegated to a solver binary (HiGHS or CBC) invoked on the exported
// model; the parsed solution is handed back with an explicit status.
//
// Basic Usage:
//
//	model, err := solver.NewModel("highs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	x, _ := model.IntVar(0, 10, "x")
//	y, _ := model.NumVar(0, model.Infinity(), "y")
//
//	model.AddConstraint(solver.NewExpr().Term(x, 2).Term(y, 1), solver.LessEq, 14, "cap")
//	model.Minimize(solver.NewExpr().Term(x, 3).Term(y, 1))
//
//	sol, err := model.Solve(context.Background())
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(sol.Value(x), sol.Value(y))
package solver

import (
	"errors"
	"fmt"
	"math"
	"os/exec"
)

// Sense is the relational operator of a linear constraint.
type Sense int

const (
	LessEq Sense = iota
	Equal
	GreaterEq
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case Equal:
		return "="
	case GreaterEq:
		return ">="
	default:
		return "?"
	}
}

// Variable is a single decision variable owned by a Model.
type Variable struct {
	index   int
	name    string
	lower   float64
	upper   float64
	integer bool
}

// Name returns the variable name as it appears in the LP export.
func (v *Variable) Name() string { return v.name }

// Index returns the column index of the variable within its model.
func (v *Variable) Index() int { return v.index }

// IsInteger reports whether the variable is integer-valued.
func (v *Variable) IsInteger() bool { return v.integer }

// Term is one coefficient-variable product of a linear expression.
type Term struct {
	Var  *Variable
	Coef float64
}

// Expr is a linear expression over declared variables.
type Expr struct {
	terms []Term
}

// NewExpr returns an empty linear expression.
func NewExpr() *Expr {
	return &Expr{}
}

// Term appends coef*v to the expression and returns the expression for
// chaining. Zero coefficients are dropped.
func (e *Expr) Term(v *Variable, coef float64) *Expr {
	if coef != 0 {
		e.terms = append(e.terms, Term{Var: v, Coef: coef})
	}
	return e
}

// Len returns the number of stored terms.
func (e *Expr) Len() int { return len(e.terms) }

type constraint struct {
	name  string
	terms []Term
	sense Sense
	rhs   float64
}

// Model is an in-progress MILP: variables, constraints and the objective,
// bound to a named solver backend.
type Model struct {
	backend backend
	name    string

	vars       []*Variable
	varsByName map[string]*Variable
	cons       []constraint

	objective []Term
	hasObj    bool

	output bool
}

// BackendError reports that a solver backend could not be used.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("solver backend %q unavailable: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewModel creates an empty model bound to the named backend ("highs" or
// "cbc"). The backend binary is looked up on PATH immediately; an
// unavailable backend fails here, before any model construction.
func NewModel(backendName string) (*Model, error) {
	b, err := backendByName(backendName)
	if err != nil {
		return nil, err
	}
	path, err := exec.LookPath(b.binary)
	if err != nil {
		return nil, &BackendError{Backend: backendName, Err: err}
	}
	b.binary = path
	return newModel(b), nil
}

// NewModelWithBinary creates a model bound to the named backend using an
// explicit binary path. The path is not checked until Solve; callers that
// override the binary take responsibility for its existence.
func NewModelWithBinary(backendName, binaryPath string) (*Model, error) {
	b, err := backendByName(backendName)
	if err != nil {
		return nil, err
	}
	if binaryPath != "" {
		b.binary = binaryPath
	}
	return newModel(b), nil
}

func newModel(b backend) *Model {
	return &Model{
		backend:    b,
		name:       "model",
		varsByName: make(map[string]*Variable),
	}
}

// SetName sets the model name written to the LP export header.
func (m *Model) SetName(name string) {
	if name != "" {
		m.name = name
	}
}

// Backend returns the name of the bound solver backend.
func (m *Model) Backend() string { return m.backend.name }

// Infinity returns the sentinel used as an unbounded upper bound.
func (m *Model) Infinity() float64 {
	return math.Inf(1)
}

// IntVar declares an integer variable with inclusive bounds [lower, upper].
func (m *Model) IntVar(lower, upper float64, name string) (*Variable, error) {
	return m.addVar(lower, upper, name, true)
}

// NumVar declares a continuous variable with inclusive bounds [lower, upper].
func (m *Model) NumVar(lower, upper float64, name string) (*Variable, error) {
	return m.addVar(lower, upper, name, false)
}

func (m *Model) addVar(lower, upper float64, name string, integer bool) (*Variable, error) {
	if lower > upper {
		return nil, fmt.Errorf("variable %q: lower bound %g exceeds upper bound %g", name, lower, upper)
	}
	if name == "" {
		name = fmt.Sprintf("x%d", len(m.vars))
	}
	if _, exists := m.varsByName[name]; exists {
		return nil, fmt.Errorf("variable %q already declared", name)
	}
	v := &Variable{
		index:   len(m.vars),
		name:    name,
		lower:   lower,
		upper:   upper,
		integer: integer,
	}
	m.vars = append(m.vars, v)
	m.varsByName[name] = v
	return v, nil
}

// AddConstraint adds the linear constraint "expr sense rhs" to the model.
func (m *Model) AddConstraint(expr *Expr, sense Sense, rhs float64, name string) error {
	if expr == nil || len(expr.terms) == 0 {
		return fmt.Errorf("constraint %q: empty expression", name)
	}
	for _, t := range expr.terms {
		if t.Var == nil {
			return fmt.Errorf("constraint %q: nil variable", name)
		}
	}
	if name == "" {
		name = fmt.Sprintf("c%d", len(m.cons))
	}
	m.cons = append(m.cons, constraint{
		name:  name,
		terms: expr.terms,
		sense: sense,
		rhs:   rhs,
	})
	return nil
}

// Minimize sets the objective to minimize the given expression, replacing
// any previously set objective.
func (m *Model) Minimize(expr *Expr) {
	m.objective = expr.terms
	m.hasObj = true
}

// NumVariables returns the number of declared variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of added constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// EnableOutput makes Solve pass the engine's diagnostic output through to
// stdout instead of capturing it.
func (m *Model) EnableOutput() { m.output = true }

// Status is the outcome of a solve attempt.
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusError:
		return "error"
	default:
		return "not solved"
	}
}

// Sentinel errors returned by Solve for non-optimal outcomes, so that
// callers can distinguish them without string matching and can never read
// solution values off an unsolved model by accident.
var (
	ErrInfeasible = errors.New("model is infeasible")
	ErrUnbounded  = errors.New("model is unbounded")
	ErrNotSolved  = errors.New("model was not solved")
)

// Solution holds the values bound to the model variables after a solve.
type Solution struct {
	Status    Status
	Objective float64

	values []float64
}

// HasSolution reports whether primal values are available.
func (s *Solution) HasSolution() bool {
	return s.Status == StatusOptimal
}

// Value returns the solved value of v, or 0 if v is nil or unknown.
func (s *Solution) Value(v *Variable) float64 {
	if v == nil || v.index < 0 || v.index >= len(s.values) {
		return 0
	}
	return s.values[v.index]
}

func statusErr(st Status) error {
	switch st {
	case StatusOptimal:
		return nil
	case StatusInfeasible:
		return ErrInfeasible
	case StatusUnbounded:
		return ErrUnbounded
	case StatusError:
		return fmt.Errorf("solver reported an internal error")
	default:
		return ErrNotSolved
	}
}
