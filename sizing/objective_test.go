package sizing

import (
	"strings"
	"testing"
)

func TestObjectiveCoefficients(t *testing.T) {
	config := samplerConfig(t)
	config.NumberOfScenarios = 1

	model := newBuildModel(t)
	base, vars := buildVariables(t, config, model)

	profile := constantProfile(config.TimeslotCount(), 600, 10000, 0.5, 0.12)
	expr, err := NewObjectiveBuilder(config, base, vars).Build([]*ScenarioProfile{profile})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	model.Minimize(expr)

	lp := model.ExportLPString()

	wantTerms := []string{
		// stage-one investment costs
		" + 670 numberOfModules",
		" + 1400 sizeOfStorageKwh",
		// single scenario, weight 1: 0.5 EUR/kWh over Wh variables
		" + 0.0005 s0_t0_boughtEnergy",
		" - 0.00012 s0_t0_soldEnergy",
		" + 0.0005 s0_t23_boughtEnergy",
	}
	for _, want := range wantTerms {
		if !strings.Contains(lp, want) {
			t.Errorf("LP objective missing term %q", want)
		}
	}
}

func TestObjectiveScenarioWeighting(t *testing.T) {
	config := samplerConfig(t)
	config.NumberOfScenarios = 2

	model := newBuildModel(t)
	base, vars := buildVariables(t, config, model)

	slots := config.TimeslotCount()
	profiles := []*ScenarioProfile{
		constantProfile(slots, 600, 10000, 0.5, 0.12),
		constantProfile(slots, 600, 10000, 0.5, 0.12),
	}
	expr, err := NewObjectiveBuilder(config, base, vars).Build(profiles)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	model.Minimize(expr)

	lp := model.ExportLPString()

	// two scenarios halve every recourse coefficient: 0.5/2/1000
	for _, want := range []string{
		" + 0.00025 s0_t0_boughtEnergy",
		" + 0.00025 s1_t0_boughtEnergy",
		" - 6e-05 s1_t0_soldEnergy",
	} {
		if !strings.Contains(lp, want) {
			t.Errorf("LP objective missing term %q", want)
		}
	}
}

func TestObjectiveRejectsProfileMismatch(t *testing.T) {
	config := samplerConfig(t)
	config.NumberOfScenarios = 2

	model := newBuildModel(t)
	base, vars := buildVariables(t, config, model)
	builder := NewObjectiveBuilder(config, base, vars)

	// one profile for a two-scenario horizon
	profile := constantProfile(config.TimeslotCount(), 600, 10000, 0.5, 0.12)
	if _, err := builder.Build([]*ScenarioProfile{profile}); err == nil {
		t.Error("expected error for profile count mismatch")
	}

	// correct count but short price vectors
	short := constantProfile(config.TimeslotCount()-1, 600, 10000, 0.5, 0.12)
	if _, err := builder.Build([]*ScenarioProfile{profile, short}); err == nil {
		t.Error("expected error for short price profile")
	}
}
