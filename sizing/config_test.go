package sizing

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	config := DefaultConfig()
	if err := config.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
	if got := config.TimeslotCount(); got != 365*24 {
		t.Errorf("TimeslotCount = %d, want %d", got, 365*24)
	}
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ProblemConfiguration)
		wantField string
	}{
		{
			name:      "zero scenarios",
			mutate:    func(c *ProblemConfiguration) { c.NumberOfScenarios = 0 },
			wantField: "number_of_scenarios",
		},
		{
			name:      "zero days",
			mutate:    func(c *ProblemConfiguration) { c.NumberOfDays = 0 },
			wantField: "number_of_days",
		},
		{
			name:      "negative module minimum",
			mutate:    func(c *ProblemConfiguration) { c.MinNumberOfModules = -1 },
			wantField: "min_number_of_modules",
		},
		{
			name: "module bounds inverted",
			mutate: func(c *ProblemConfiguration) {
				c.MinNumberOfModules = 10
				c.MaxNumberOfModules = 5
			},
			wantField: "max_number_of_modules",
		},
		{
			name: "storage bounds inverted",
			mutate: func(c *ProblemConfiguration) {
				c.MinStorageSizeKwh = 100
				c.MaxStorageSizeKwh = 10
			},
			wantField: "max_storage_size_kwh",
		},
		{
			name:      "zero module wattage",
			mutate:    func(c *ProblemConfiguration) { c.MaxWattsPerModule = 0 },
			wantField: "max_watts_per_module",
		},
		{
			name:      "zero module area",
			mutate:    func(c *ProblemConfiguration) { c.AreaPerModuleM2 = 0 },
			wantField: "area_per_module_m2",
		},
		{
			name:      "negative module price",
			mutate:    func(c *ProblemConfiguration) { c.PricePerModuleEuro = -1 },
			wantField: "price_per_module_euro",
		},
		{
			name:      "negative solar stddev",
			mutate:    func(c *ProblemConfiguration) { c.SolarStddevWattsPerM2 = -1 },
			wantField: "solar_stddev_watts_per_m2",
		},
		{
			name: "bad latitude with sun position",
			mutate: func(c *ProblemConfiguration) {
				c.UseSunPosition = true
				c.Latitude = 91
			},
			wantField: "latitude",
		},
		{
			name: "bad start date with sun position",
			mutate: func(c *ProblemConfiguration) {
				c.UseSunPosition = true
				c.StartDate = "January 1st"
			},
			wantField: "start_date",
		},
		{
			name:      "unknown solver backend",
			mutate:    func(c *ProblemConfiguration) { c.SolverBackend = "scip" },
			wantField: "solver_backend",
		},
		{
			name:      "negative solve timeout",
			mutate:    func(c *ProblemConfiguration) { c.SolveTimeout = -time.Second },
			wantField: "solve_timeout",
		},
		{
			name:      "status server port out of range",
			mutate:    func(c *ProblemConfiguration) { c.StatusServerPort = 70000 },
			wantField: "status_server_port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			ce, ok := err.(*ConfigError)
			if !ok {
				t.Fatalf("error type = %T, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("error field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestLoadConfigFromReader(t *testing.T) {
	input := `{
		"number_of_scenarios": 3,
		"number_of_days": 2,
		"random_seed": 42,
		"solver_backend": "cbc",
		"solve_timeout": "5m"
	}`

	config, err := LoadConfigFromReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("LoadConfigFromReader failed: %v", err)
	}

	if config.NumberOfScenarios != 3 {
		t.Errorf("NumberOfScenarios = %d, want 3", config.NumberOfScenarios)
	}
	if config.NumberOfDays != 2 {
		t.Errorf("NumberOfDays = %d, want 2", config.NumberOfDays)
	}
	if config.RandomSeed != 42 {
		t.Errorf("RandomSeed = %d, want 42", config.RandomSeed)
	}
	if config.SolveTimeout != 5*time.Minute {
		t.Errorf("SolveTimeout = %s, want 5m", config.SolveTimeout)
	}

	// untouched fields keep their defaults
	if config.PricePerModuleEuro != 670 {
		t.Errorf("PricePerModuleEuro = %g, want default 670", config.PricePerModuleEuro)
	}
	if config.MaxWattsPerModule != 800 {
		t.Errorf("MaxWattsPerModule = %g, want default 800", config.MaxWattsPerModule)
	}
}

func TestLoadConfigFromReaderRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "malformed json", input: `{"number_of_scenarios": `},
		{name: "bad duration", input: `{"solve_timeout": "five minutes"}`},
		{name: "fails validation", input: `{"number_of_scenarios": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfigFromReader(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCalibrateConsumption(t *testing.T) {
	config := DefaultConfig()

	config.CalibrateConsumption(7500)
	if config.ConsumptionMeanWatts != 7500 {
		t.Errorf("ConsumptionMeanWatts = %g, want 7500", config.ConsumptionMeanWatts)
	}

	// non-positive measurements leave the mean alone
	config.CalibrateConsumption(0)
	if config.ConsumptionMeanWatts != 7500 {
		t.Errorf("ConsumptionMeanWatts changed on zero load: %g", config.ConsumptionMeanWatts)
	}
	config.CalibrateConsumption(-100)
	if config.ConsumptionMeanWatts != 7500 {
		t.Errorf("ConsumptionMeanWatts changed on negative load: %g", config.ConsumptionMeanWatts)
	}
}
