// Package sizing builds a two-stage stochastic MILP that sizes a
// solar-module-plus-battery installation: stage one picks the investment
// (module count, storage kWh), stage two models per-scenario hourly
// operation (buy, sell, store) under sampled solar and consumption
// profiles. The assembled model is solved by an external MILP engine
// through the solver package.
package sizing

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"time"

	"github.com/devskill-org/storage-sizing/solver"
)

// Progress describes one build/solve phase, reported to an optional
// observer (the status web server subscribes to these).
type Progress struct {
	Phase     string `json:"phase"`
	Scenario  int    `json:"scenario"`
	Scenarios int    `json:"scenarios"`
}

// ProgressFunc observes build and solve progress.
type ProgressFunc func(Progress)

// Result is a read-only snapshot of a successful solve.
type Result struct {
	NumberOfModules   int       `json:"number_of_modules"`
	StorageSizeKwh    float64   `json:"storage_size_kwh"`
	ObjectiveEuro     float64   `json:"objective_euro"`
	InvestmentEuro    float64   `json:"investment_euro"`
	ScenarioCostsEuro []float64 `json:"scenario_costs_euro"`
	SolveDuration     time.Duration
	Status            string `json:"status"`
}

// ExpectedRecourseEuro returns the mean of the per-scenario recourse costs.
func (r *Result) ExpectedRecourseEuro() float64 {
	if len(r.ScenarioCostsEuro) == 0 {
		return 0
	}
	var sum float64
	for _, c := range r.ScenarioCostsEuro {
		sum += c
	}
	return sum / float64(len(r.ScenarioCostsEuro))
}

// StorageSelectionProblem owns one in-progress model: configuration,
// sampled profiles, declared variables and the bound solver model. One
// configuration maps to exactly one problem instance; construction is
// strictly sequential and single-threaded.
type StorageSelectionProblem struct {
	cfg    *ProblemConfiguration
	model  *solver.Model
	logger *log.Logger

	sampler  *ScenarioSampler
	base     *BaseVariableSet
	scenario *ScenarioVariableSet
	profiles []*ScenarioProfile

	solution *solver.Solution
	progress ProgressFunc
}

// NewStorageSelectionProblem validates the configuration and creates the
// solver backend. Both failure modes abort before any model construction.
func NewStorageSelectionProblem(cfg *ProblemConfiguration, logger *log.Logger) (*StorageSelectionProblem, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sampler, err := NewScenarioSampler(cfg)
	if err != nil {
		return nil, err
	}

	var model *solver.Model
	if cfg.SolverBinary != "" {
		model, err = solver.NewModelWithBinary(cfg.SolverBackend, cfg.SolverBinary)
	} else {
		model, err = solver.NewModel(cfg.SolverBackend)
	}
	if err != nil {
		return nil, err
	}
	model.SetName("storage-selection")
	if cfg.EnableSolverOutput {
		model.EnableOutput()
	}

	return &StorageSelectionProblem{
		cfg:     cfg,
		model:   model,
		logger:  logger,
		sampler: sampler,
	}, nil
}

// SetProgressFunc registers an observer for build/solve progress. Must be
// called before BuildModel.
func (p *StorageSelectionProblem) SetProgressFunc(fn ProgressFunc) {
	p.progress = fn
}

// Model exposes the underlying solver model for inspection and export.
func (p *StorageSelectionProblem) Model() *solver.Model {
	return p.model
}

// Profiles returns the sampled scenario profiles. Valid after BuildModel.
func (p *StorageSelectionProblem) Profiles() []*ScenarioProfile {
	return p.profiles
}

func (p *StorageSelectionProblem) report(phase string, scenario int) {
	if p.progress != nil {
		p.progress(Progress{Phase: phase, Scenario: scenario, Scenarios: p.cfg.NumberOfScenarios})
	}
}

// BuildModel samples every scenario and assembles variables, constraints
// and the objective. Scenario constraints are built per scenario in
// increasing timeslot order because the storage recursion references the
// previous timeslot.
func (p *StorageSelectionProblem) BuildModel() error {
	cfg := p.cfg

	p.logger.Printf("sampling %d scenario profiles (%d timeslots each)", cfg.NumberOfScenarios, cfg.TimeslotCount())
	p.report("sampling", 0)
	p.profiles = make([]*ScenarioProfile, cfg.NumberOfScenarios)
	for s := 0; s < cfg.NumberOfScenarios; s++ {
		p.profiles[s] = p.sampler.Sample(s)
	}

	p.logger.Printf("building decision variables")
	p.report("variables", 0)
	factory := NewVariableFactory(cfg, p.model)
	base, err := factory.BuildBaseVariables()
	if err != nil {
		return &BuildError{Stage: "base variables", Err: err}
	}
	scenario, err := factory.BuildScenarioVariables()
	if err != nil {
		return &BuildError{Stage: "scenario variables", Err: err}
	}
	p.base = base
	p.scenario = scenario

	p.logger.Printf("building constraints")
	constraints := NewConstraintBuilder(cfg, p.model, base, scenario)
	for s := 0; s < cfg.NumberOfScenarios; s++ {
		p.report("constraints", s)
		if err := constraints.BuildScenario(s, p.profiles[s]); err != nil {
			return &BuildError{Stage: fmt.Sprintf("constraints scenario %d", s), Err: err}
		}
	}

	p.logger.Printf("building objective")
	p.report("objective", 0)
	objective, err := NewObjectiveBuilder(cfg, base, scenario).Build(p.profiles)
	if err != nil {
		return &BuildError{Stage: "objective", Err: err}
	}
	p.model.Minimize(objective)

	p.logger.Printf("model ready: %d variables, %d constraints", p.model.NumVariables(), p.model.NumConstraints())
	return nil
}

// ExportModel overwrites path with the LP text of the assembled model.
func (p *StorageSelectionProblem) ExportModel(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create model export: %w", err)
	}
	defer f.Close()
	if err := p.model.WriteLP(f); err != nil {
		return fmt.Errorf("failed to export model: %w", err)
	}
	return nil
}

// Solve runs the external engine once, blocking. The solve status is
// checked before any solution value is read back; non-optimal statuses
// surface as the solver package's sentinel errors.
func (p *StorageSelectionProblem) Solve(ctx context.Context) (*Result, error) {
	if p.base == nil {
		return nil, fmt.Errorf("model not built")
	}

	if p.cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.SolveTimeout)
		defer cancel()
	}

	p.logger.Printf("solving with backend %s", p.model.Backend())
	p.report("solving", 0)
	start := time.Now()
	sol, err := p.model.Solve(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("solve failed after %s: %w", elapsed.Round(time.Millisecond), err)
	}
	p.solution = sol

	result := &Result{
		NumberOfModules:   int(math.Round(sol.Value(p.base.NumberOfModules))),
		StorageSizeKwh:    sol.Value(p.base.SizeOfStorageKwh),
		ObjectiveEuro:     sol.Objective,
		ScenarioCostsEuro: p.scenarioCosts(sol),
		SolveDuration:     elapsed,
		Status:            sol.Status.String(),
	}
	result.InvestmentEuro = float64(result.NumberOfModules)*p.cfg.PricePerModuleEuro +
		result.StorageSizeKwh*p.cfg.StoragePricePerKwhEuro

	p.logger.Printf("solved in %s: %d modules, %.2f kWh storage, objective %.2f EUR",
		elapsed.Round(time.Millisecond), result.NumberOfModules, result.StorageSizeKwh, result.ObjectiveEuro)
	p.report("done", 0)
	return result, nil
}

// scenarioCosts recomputes the realized recourse cost of every scenario
// from the solved operational variables.
func (p *StorageSelectionProblem) scenarioCosts(sol *solver.Solution) []float64 {
	costs := make([]float64, p.cfg.NumberOfScenarios)
	for s := 0; s < p.cfg.NumberOfScenarios; s++ {
		profile := p.profiles[s]
		var cost float64
		for t := 0; t < p.cfg.TimeslotCount(); t++ {
			bought := sol.Value(p.scenario.At(s, t, FieldBoughtEnergy))
			sold := sol.Value(p.scenario.At(s, t, FieldSoldEnergy))
			cost += profile.PurchasePriceEuroPerKwh[t] * bought / 1000
			cost -= profile.SellPriceEuroPerKwh[t] * sold / 1000
		}
		costs[s] = cost
	}
	return costs
}

// StorageLevel returns the solved storage level in Wh for one scenario
// timeslot. Valid only after a successful solve.
func (p *StorageSelectionProblem) StorageLevel(scenario, timeslot int) float64 {
	if p.solution == nil {
		return 0
	}
	return p.solution.Value(p.scenario.At(scenario, timeslot, FieldStorageLevel))
}
