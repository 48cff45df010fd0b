package sizing

import (
	"fmt"

	"github.com/devskill-org/storage-sizing/solver"
)

// ConstraintBuilder emits the per-scenario constraint system: production
// and consumption links, hourly energy balance, the storage-level
// recursion and the capacity bound coupling storage level to the
// investment decision.
type ConstraintBuilder struct {
	cfg   *ProblemConfiguration
	model *solver.Model
	base  *BaseVariableSet
	vars  *ScenarioVariableSet
}

// NewConstraintBuilder returns a builder over the declared variable sets.
func NewConstraintBuilder(cfg *ProblemConfiguration, model *solver.Model, base *BaseVariableSet, vars *ScenarioVariableSet) *ConstraintBuilder {
	return &ConstraintBuilder{cfg: cfg, model: model, base: base, vars: vars}
}

// BuildScenario emits all constraints of one scenario. Timeslots are
// processed in increasing order: the storage recursion at t references the
// variables of t-1.
func (b *ConstraintBuilder) BuildScenario(scenario int, profile *ScenarioProfile) error {
	timeslots := b.cfg.TimeslotCount()
	if len(profile.SolarWattsPerModule) != timeslots || len(profile.ConsumptionWatts) != timeslots {
		return fmt.Errorf("scenario %d: profile length does not match %d timeslots", scenario, timeslots)
	}

	for t := 0; t < timeslots; t++ {
		produced := b.vars.At(scenario, t, FieldProducedEnergy)
		consumed := b.vars.At(scenario, t, FieldConsumedEnergy)
		bought := b.vars.At(scenario, t, FieldBoughtEnergy)
		sold := b.vars.At(scenario, t, FieldSoldEnergy)
		delta := b.vars.At(scenario, t, FieldStorageEnergyDelta)
		level := b.vars.At(scenario, t, FieldStorageLevel)

		// producedEnergy = solar[t] * numberOfModules. The sampled solar
		// coefficient is the stochastic element of the program.
		err := b.model.AddConstraint(
			solver.NewExpr().Term(produced, 1).Term(b.base.NumberOfModules, -profile.SolarWattsPerModule[t]),
			solver.Equal, 0,
			fmt.Sprintf("s%d_t%d_production", scenario, t))
		if err != nil {
			return err
		}

		// consumedEnergy pinned to the exogenous load; kept as a named
		// variable so balance and objective stay uniform.
		err = b.model.AddConstraint(
			solver.NewExpr().Term(consumed, 1),
			solver.Equal, profile.ConsumptionWatts[t],
			fmt.Sprintf("s%d_t%d_consumption", scenario, t))
		if err != nil {
			return err
		}

		// produced - consumed = sold + storageDelta - bought
		err = b.model.AddConstraint(
			solver.NewExpr().
				Term(produced, 1).
				Term(consumed, -1).
				Term(sold, -1).
				Term(delta, -1).
				Term(bought, 1),
			solver.Equal, 0,
			fmt.Sprintf("s%d_t%d_balance", scenario, t))
		if err != nil {
			return err
		}

		if t == 0 {
			// storage starts empty in every scenario
			err = b.model.AddConstraint(
				solver.NewExpr().Term(level, 1),
				solver.Equal, 0,
				fmt.Sprintf("s%d_t0_storageInit", scenario))
		} else {
			// storageLevel[t] = storageLevel[t-1] + storageDelta[t-1]
			prevLevel := b.vars.At(scenario, t-1, FieldStorageLevel)
			prevDelta := b.vars.At(scenario, t-1, FieldStorageEnergyDelta)
			err = b.model.AddConstraint(
				solver.NewExpr().Term(level, 1).Term(prevLevel, -1).Term(prevDelta, -1),
				solver.Equal, 0,
				fmt.Sprintf("s%d_t%d_storageLink", scenario, t))
		}
		if err != nil {
			return err
		}

		// storageLevel <= sizeOfStorageKwh * 1000 (kWh -> Wh)
		err = b.model.AddConstraint(
			solver.NewExpr().Term(level, 1).Term(b.base.SizeOfStorageKwh, -1000),
			solver.LessEq, 0,
			fmt.Sprintf("s%d_t%d_capacity", scenario, t))
		if err != nil {
			return err
		}
	}

	return nil
}
