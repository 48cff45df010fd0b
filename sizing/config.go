package sizing

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ProblemConfiguration holds every parameter of a sizing run: investment
// bounds and prices, the stochastic horizon, sampling distribution
// parameters, solver engine selection and the optional integrations.
// Treat it as immutable once validated.
type ProblemConfiguration struct {
	// Investment parameters
	MaxWattsPerModule      float64 `json:"max_watts_per_module"`      // per-module wattage cap
	AreaPerModuleM2        float64 `json:"area_per_module_m2"`        // module area in m2
	PricePerModuleEuro     float64 `json:"price_per_module_euro"`     // EUR per module
	MinNumberOfModules     int     `json:"min_number_of_modules"`     // lower bound on module count
	MaxNumberOfModules     int     `json:"max_number_of_modules"`     // upper bound on module count
	StoragePricePerKwhEuro float64 `json:"storage_price_per_kwh_euro"` // EUR per kWh of storage
	MinStorageSizeKwh      float64 `json:"min_storage_size_kwh"`      // kWh
	MaxStorageSizeKwh      float64 `json:"max_storage_size_kwh"`      // kWh

	// Stochastic horizon
	NumberOfScenarios int `json:"number_of_scenarios"` // sampled realizations of the horizon
	NumberOfDays      int `json:"number_of_days"`      // horizon length, 24 timeslots per day

	// Sampling distributions
	RandomSeed                  uint64  `json:"random_seed"`                      // base seed; scenario s draws from seed+s
	SolarMeanWattsPerM2         float64 `json:"solar_mean_watts_per_m2"`          // W/m2
	SolarStddevWattsPerM2       float64 `json:"solar_stddev_watts_per_m2"`        // W/m2
	ConsumptionMeanWatts        float64 `json:"consumption_mean_watts"`           // W
	ConsumptionStddevWatts      float64 `json:"consumption_stddev_watts"`         // W
	PurchasePriceMeanEuroPerKwh float64 `json:"purchase_price_mean_euro_per_kwh"` // EUR/kWh
	PurchasePriceStddev         float64 `json:"purchase_price_stddev"`            // EUR/kWh
	SellPriceMeanEuroPerKwh     float64 `json:"sell_price_mean_euro_per_kwh"`     // EUR/kWh
	SellPriceStddev             float64 `json:"sell_price_stddev"`                // EUR/kWh

	// Sun-position envelope for the solar profile (optional)
	UseSunPosition bool    `json:"use_sun_position"` // scale solar draws by sun altitude
	Latitude       float64 `json:"latitude"`         // site latitude
	Longitude      float64 `json:"longitude"`        // site longitude
	StartDate      string  `json:"start_date"`       // horizon start, YYYY-MM-DD (UTC)

	// Solver engine
	SolverBackend      string        `json:"solver_backend"`       // "highs" or "cbc"
	SolverBinary       string        `json:"solver_binary"`        // override binary path, empty = PATH lookup
	SolveTimeout       time.Duration `json:"solve_timeout"`        // 0 = no limit
	EnableSolverOutput bool          `json:"enable_solver_output"` // pass engine diagnostics through
	ModelExportPath    string        `json:"model_export_path"`    // LP text file, empty disables export

	// Integrations (empty / zero disables)
	PostgresConnString string `json:"postgres_conn_string"` // result persistence
	StatusServerPort   int    `json:"status_server_port"`   // progress web server
	PlantModbusAddress string `json:"plant_modbus_address"` // live load calibration (IP:PORT)
}

// DefaultConfig returns a configuration with default values matching a
// small residential study.
func DefaultConfig() *ProblemConfiguration {
	return &ProblemConfiguration{
		MaxWattsPerModule:      800,
		AreaPerModuleM2:        1.2,
		PricePerModuleEuro:     670,
		MinNumberOfModules:     0,
		MaxNumberOfModules:     100,
		StoragePricePerKwhEuro: 1400,
		MinStorageSizeKwh:      0,
		MaxStorageSizeKwh:      1000,

		NumberOfScenarios: 10,
		NumberOfDays:      365,

		RandomSeed:                  1,
		SolarMeanWattsPerM2:         500,
		SolarStddevWattsPerM2:       200,
		ConsumptionMeanWatts:        10000,
		ConsumptionStddevWatts:      2000,
		PurchasePriceMeanEuroPerKwh: 0.50,
		PurchasePriceStddev:         0,
		SellPriceMeanEuroPerKwh:     0.12,
		SellPriceStddev:             0,

		UseSunPosition: false,
		Latitude:       56.9496, // Riga, Latvia
		Longitude:      24.1052, // Riga, Latvia
		StartDate:      "2025-01-01",

		SolverBackend:   "highs",
		SolveTimeout:    0,
		ModelExportPath: "model.lp",
	}
}

// TimeslotCount returns the number of hourly timeslots in the horizon.
func (c *ProblemConfiguration) TimeslotCount() int {
	return c.NumberOfDays * 24
}

// LoadConfig loads configuration from a JSON file.
func LoadConfig(filename string) (*ProblemConfiguration, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader on top of the
// defaults and validates the result.
func LoadConfigFromReader(reader io.Reader) (*ProblemConfiguration, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file.
func (c *ProblemConfiguration) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// Validate checks the configuration and returns the first violation found.
// Every bound pair requires min <= max; horizon and scenario counts must be
// positive; distribution parameters must be non-negative.
func (c *ProblemConfiguration) Validate() error {
	if c.NumberOfScenarios < 1 {
		return &ConfigError{Field: "number_of_scenarios", Message: fmt.Sprintf("must be at least 1, got %d", c.NumberOfScenarios)}
	}
	if c.NumberOfDays < 1 {
		return &ConfigError{Field: "number_of_days", Message: fmt.Sprintf("must be at least 1, got %d", c.NumberOfDays)}
	}
	if c.MinNumberOfModules < 0 {
		return &ConfigError{Field: "min_number_of_modules", Message: fmt.Sprintf("must be non-negative, got %d", c.MinNumberOfModules)}
	}
	if c.MinNumberOfModules > c.MaxNumberOfModules {
		return &ConfigError{Field: "max_number_of_modules", Message: fmt.Sprintf("min %d exceeds max %d", c.MinNumberOfModules, c.MaxNumberOfModules)}
	}
	if c.MinStorageSizeKwh < 0 {
		return &ConfigError{Field: "min_storage_size_kwh", Message: fmt.Sprintf("must be non-negative, got %g", c.MinStorageSizeKwh)}
	}
	if c.MinStorageSizeKwh > c.MaxStorageSizeKwh {
		return &ConfigError{Field: "max_storage_size_kwh", Message: fmt.Sprintf("min %g exceeds max %g", c.MinStorageSizeKwh, c.MaxStorageSizeKwh)}
	}
	if c.MaxWattsPerModule <= 0 {
		return &ConfigError{Field: "max_watts_per_module", Message: fmt.Sprintf("must be positive, got %g", c.MaxWattsPerModule)}
	}
	if c.AreaPerModuleM2 <= 0 {
		return &ConfigError{Field: "area_per_module_m2", Message: fmt.Sprintf("must be positive, got %g", c.AreaPerModuleM2)}
	}
	if c.PricePerModuleEuro < 0 {
		return &ConfigError{Field: "price_per_module_euro", Message: fmt.Sprintf("must be non-negative, got %g", c.PricePerModuleEuro)}
	}
	if c.StoragePricePerKwhEuro < 0 {
		return &ConfigError{Field: "storage_price_per_kwh_euro", Message: fmt.Sprintf("must be non-negative, got %g", c.StoragePricePerKwhEuro)}
	}

	if c.SolarStddevWattsPerM2 < 0 {
		return &ConfigError{Field: "solar_stddev_watts_per_m2", Message: fmt.Sprintf("must be non-negative, got %g", c.SolarStddevWattsPerM2)}
	}
	if c.ConsumptionStddevWatts < 0 {
		return &ConfigError{Field: "consumption_stddev_watts", Message: fmt.Sprintf("must be non-negative, got %g", c.ConsumptionStddevWatts)}
	}
	if c.PurchasePriceStddev < 0 {
		return &ConfigError{Field: "purchase_price_stddev", Message: fmt.Sprintf("must be non-negative, got %g", c.PurchasePriceStddev)}
	}
	if c.SellPriceStddev < 0 {
		return &ConfigError{Field: "sell_price_stddev", Message: fmt.Sprintf("must be non-negative, got %g", c.SellPriceStddev)}
	}

	if c.UseSunPosition {
		if c.Latitude < -90 || c.Latitude > 90 {
			return &ConfigError{Field: "latitude", Message: fmt.Sprintf("must be between -90 and 90, got %g", c.Latitude)}
		}
		if c.Longitude < -180 || c.Longitude > 180 {
			return &ConfigError{Field: "longitude", Message: fmt.Sprintf("must be between -180 and 180, got %g", c.Longitude)}
		}
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return &ConfigError{Field: "start_date", Message: fmt.Sprintf("must be YYYY-MM-DD, got %q", c.StartDate)}
		}
	}

	switch c.SolverBackend {
	case "highs", "cbc":
	default:
		return &ConfigError{Field: "solver_backend", Message: fmt.Sprintf("must be \"highs\" or \"cbc\", got %q", c.SolverBackend)}
	}
	if c.SolveTimeout < 0 {
		return &ConfigError{Field: "solve_timeout", Message: fmt.Sprintf("must be non-negative, got %s", c.SolveTimeout)}
	}
	if c.StatusServerPort < 0 || c.StatusServerPort > 65535 {
		return &ConfigError{Field: "status_server_port", Message: fmt.Sprintf("must be between 0 and 65535, got %d", c.StatusServerPort)}
	}

	return nil
}

// CalibrateConsumption recenters the consumption distribution on a
// measured site load in watts. Used with a live plant snapshot.
func (c *ProblemConfiguration) CalibrateConsumption(loadWatts float64) {
	if loadWatts > 0 {
		c.ConsumptionMeanWatts = loadWatts
	}
}

// MarshalJSON implements custom JSON marshaling to handle durations.
func (c *ProblemConfiguration) MarshalJSON() ([]byte, error) {
	type Alias ProblemConfiguration
	return json.Marshal(&struct {
		*Alias
		SolveTimeout string `json:"solve_timeout"`
	}{
		Alias:        (*Alias)(c),
		SolveTimeout: c.SolveTimeout.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling to handle durations.
func (c *ProblemConfiguration) UnmarshalJSON(data []byte) error {
	type Alias ProblemConfiguration
	aux := &struct {
		*Alias
		SolveTimeout string `json:"solve_timeout"`
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.SolveTimeout != "" {
		d, err := time.ParseDuration(aux.SolveTimeout)
		if err != nil {
			return fmt.Errorf("invalid solve_timeout: %w", err)
		}
		c.SolveTimeout = d
	}

	return nil
}

// String returns a string representation of the config.
func (c *ProblemConfiguration) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
