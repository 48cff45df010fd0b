package sizing

import (
	"fmt"

	"github.com/devskill-org/storage-sizing/solver"
)

// Field identifies one of the six operational variables of a timeslot.
type Field int

const (
	FieldStorageLevel Field = iota
	FieldStorageEnergyDelta
	FieldProducedEnergy
	FieldConsumedEnergy
	FieldBoughtEnergy
	FieldSoldEnergy

	numFields
)

var fieldNames = [numFields]string{
	"storageLevel",
	"storageEnergyDelta",
	"producedEnergy",
	"consumedEnergy",
	"boughtEnergy",
	"soldEnergy",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "unknown"
	}
	return fieldNames[f]
}

// BaseVariableSet holds the two stage-one investment variables. They are
// created once and shared read-only by every scenario's constraints and by
// the objective.
type BaseVariableSet struct {
	NumberOfModules  *solver.Variable
	SizeOfStorageKwh *solver.Variable
}

// ScenarioVariableSet is a dense container of the operational variables,
// indexed by (scenario, timeslot, field). All values are in watt-hours.
type ScenarioVariableSet struct {
	scenarios int
	timeslots int
	vars      []*solver.Variable
}

// At returns the variable for the given scenario, timeslot and field.
func (s *ScenarioVariableSet) At(scenario, timeslot int, field Field) *solver.Variable {
	return s.vars[(scenario*s.timeslots+timeslot)*int(numFields)+int(field)]
}

// Len returns the number of contained variables.
func (s *ScenarioVariableSet) Len() int { return len(s.vars) }

// VariableFactory declares the variable scheme of the two-stage program
// against a solver model.
type VariableFactory struct {
	cfg   *ProblemConfiguration
	model *solver.Model
}

// NewVariableFactory returns a factory bound to the given model.
func NewVariableFactory(cfg *ProblemConfiguration, model *solver.Model) *VariableFactory {
	return &VariableFactory{cfg: cfg, model: model}
}

// BuildBaseVariables declares the investment variables: an integer module
// count and a continuous storage size in kWh, both bounded from the
// configuration.
func (f *VariableFactory) BuildBaseVariables() (*BaseVariableSet, error) {
	modules, err := f.model.IntVar(float64(f.cfg.MinNumberOfModules), float64(f.cfg.MaxNumberOfModules), "numberOfModules")
	if err != nil {
		return nil, err
	}
	storage, err := f.model.NumVar(f.cfg.MinStorageSizeKwh, f.cfg.MaxStorageSizeKwh, "sizeOfStorageKwh")
	if err != nil {
		return nil, err
	}
	return &BaseVariableSet{NumberOfModules: modules, SizeOfStorageKwh: storage}, nil
}

// BuildScenarioVariables declares the six operational variables for every
// (scenario, timeslot) pair. Variable names carry scenario and timeslot so
// the LP export stays unambiguous across scenarios.
func (f *VariableFactory) BuildScenarioVariables() (*ScenarioVariableSet, error) {
	scenarios := f.cfg.NumberOfScenarios
	timeslots := f.cfg.TimeslotCount()
	storageCapWh := f.cfg.MaxStorageSizeKwh * 1000
	inf := f.model.Infinity()

	set := &ScenarioVariableSet{
		scenarios: scenarios,
		timeslots: timeslots,
		vars:      make([]*solver.Variable, 0, scenarios*timeslots*int(numFields)),
	}

	for s := 0; s < scenarios; s++ {
		for t := 0; t < timeslots; t++ {
			bounds := [numFields][2]float64{
				FieldStorageLevel:       {0, storageCapWh},
				FieldStorageEnergyDelta: {-storageCapWh, storageCapWh},
				FieldProducedEnergy:     {0, inf},
				FieldConsumedEnergy:     {0, inf},
				FieldBoughtEnergy:       {0, inf},
				FieldSoldEnergy:         {0, inf},
			}
			for field := Field(0); field < numFields; field++ {
				name := fmt.Sprintf("s%d_t%d_%s", s, t, fieldNames[field])
				v, err := f.model.NumVar(bounds[field][0], bounds[field][1], name)
				if err != nil {
					return nil, err
				}
				set.vars = append(set.vars, v)
			}
		}
	}

	return set, nil
}
