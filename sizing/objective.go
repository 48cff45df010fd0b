package sizing

import (
	"fmt"

	"github.com/devskill-org/storage-sizing/solver"
)

// ObjectiveBuilder assembles the two-stage objective: deterministic
// investment cost plus the expected recourse cost over all scenarios.
type ObjectiveBuilder struct {
	cfg  *ProblemConfiguration
	base *BaseVariableSet
	vars *ScenarioVariableSet
}

// NewObjectiveBuilder returns a builder over the declared variable sets.
func NewObjectiveBuilder(cfg *ProblemConfiguration, base *BaseVariableSet, vars *ScenarioVariableSet) *ObjectiveBuilder {
	return &ObjectiveBuilder{cfg: cfg, base: base, vars: vars}
}

// Build returns the minimize expression
//
//	modules*pricePerModule + storageKwh*pricePerKwh
//	+ (1/S) * sum_s sum_t [ purchase[t]*bought[s,t]/1000 - sell[t]*sold[s,t]/1000 ]
//
// The /1000 converts the Wh-denominated operational variables back to kWh
// to match the kWh-denominated prices. Scenarios are weighted equally; the
// 1/S mean is folded into the recourse coefficients.
func (b *ObjectiveBuilder) Build(profiles []*ScenarioProfile) (*solver.Expr, error) {
	scenarios := b.cfg.NumberOfScenarios
	timeslots := b.cfg.TimeslotCount()
	if len(profiles) != scenarios {
		return nil, fmt.Errorf("expected %d scenario profiles, got %d", scenarios, len(profiles))
	}

	expr := solver.NewExpr().
		Term(b.base.NumberOfModules, b.cfg.PricePerModuleEuro).
		Term(b.base.SizeOfStorageKwh, b.cfg.StoragePricePerKwhEuro)

	weight := 1.0 / float64(scenarios)
	for s := 0; s < scenarios; s++ {
		profile := profiles[s]
		if len(profile.PurchasePriceEuroPerKwh) != timeslots || len(profile.SellPriceEuroPerKwh) != timeslots {
			return nil, fmt.Errorf("scenario %d: price profile length does not match %d timeslots", s, timeslots)
		}
		for t := 0; t < timeslots; t++ {
			expr.Term(b.vars.At(s, t, FieldBoughtEnergy), weight*profile.PurchasePriceEuroPerKwh[t]/1000)
			expr.Term(b.vars.At(s, t, FieldSoldEnergy), -weight*profile.SellPriceEuroPerKwh[t]/1000)
		}
	}

	return expr, nil
}
