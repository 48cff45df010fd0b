// Package main provides the solar-plus-storage sizing tool entry point
// and CLI interface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/devskill-org/storage-sizing/plant"
	"github.com/devskill-org/storage-sizing/sizing"
)

func main() {
	var (
		configFile = flag.String("config", "config.json", "Configuration file path")
		seed       = flag.Int64("seed", -1, "Override the random seed (-1 = use configured seed)")
		exportPath = flag.String("export", "", "Override the LP model export path (empty = use configured path)")
		output     = flag.Bool("output", false, "Pass solver diagnostic output through")
		printConf  = flag.Bool("printConfig", false, "Print the effective configuration and exit")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	config, err := loadConfig(*configFile)
	if err != nil {
		fmt.Println("Error loading configuration:", err)
		os.Exit(1)
	}

	if *seed >= 0 {
		config.RandomSeed = uint64(*seed)
	}
	if *exportPath != "" {
		config.ModelExportPath = *exportPath
	}
	if *output {
		config.EnableSolverOutput = true
	}

	if *printConf {
		fmt.Println(config.String())
		return
	}

	logger := log.New(os.Stdout, "[SIZING] ", log.LstdFlags)

	if err := run(config, logger); err != nil {
		logger.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*sizing.ProblemConfiguration, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := sizing.DefaultConfig()
		if err := config.Validate(); err != nil {
			return nil, err
		}
		return config, nil
	}
	return sizing.LoadConfig(path)
}

func run(config *sizing.ProblemConfiguration, logger *log.Logger) error {
	ctx := context.Background()

	if config.PlantModbusAddress != "" {
		calibrateFromPlant(config, logger)
	}

	server := sizing.NewStatusServer(config.StatusServerPort)
	server.Start()
	defer server.Stop(ctx)

	problem, err := sizing.NewStorageSelectionProblem(config, logger)
	if err != nil {
		return err
	}
	problem.SetProgressFunc(server.ReportProgress)

	if err := problem.BuildModel(); err != nil {
		return err
	}

	fmt.Println("Starting to solve problem. Problem characteristics:")
	fmt.Println("variables:", problem.Model().NumVariables())
	fmt.Println("constraints:", problem.Model().NumConstraints())

	if config.ModelExportPath != "" {
		if err := problem.ExportModel(config.ModelExportPath); err != nil {
			return err
		}
		logger.Printf("model exported to %s", config.ModelExportPath)
	}

	result, err := problem.Solve(ctx)
	if err != nil {
		return err
	}

	printResult(config, result)

	if config.PostgresConnString != "" {
		store, err := sizing.OpenResultStore(config.PostgresConnString, logger)
		if err != nil {
			logger.Printf("Result persistence unavailable: %v", err)
		} else {
			defer store.Close()
			if err := store.SaveResult(ctx, config, result); err != nil {
				logger.Printf("Failed to persist result: %v", err)
			}
		}
	}

	server.SetResult(result)
	return nil
}

// calibrateFromPlant recenters the consumption distribution on the load
// measured at the live plant. Failures only log; the configured defaults
// remain in effect.
func calibrateFromPlant(config *sizing.ProblemConfiguration, logger *log.Logger) {
	client, err := plant.Dial(config.PlantModbusAddress)
	if err != nil {
		logger.Printf("Plant calibration: failed to connect: %v", err)
		return
	}
	defer client.Close()

	snapshot, err := client.ReadSnapshot()
	if err != nil {
		logger.Printf("Plant calibration: failed to read snapshot: %v", err)
		return
	}

	load := snapshot.LoadWatts()
	logger.Printf("Plant calibration: measured load %.0f W, PV %.2f kW, battery SOC %.1f%%",
		load, snapshot.PVPowerKW, snapshot.BatterySOCPercent)
	config.CalibrateConsumption(load)
}

func printResult(config *sizing.ProblemConfiguration, result *sizing.Result) {
	fmt.Println("\n========================================")
	fmt.Println("SIZING RESULT")
	fmt.Println("========================================")
	fmt.Printf("Solar modules:          %d\n", result.NumberOfModules)
	fmt.Printf("Storage size:           %.2f kWh\n", result.StorageSizeKwh)
	fmt.Printf("Investment:             %.2f EUR\n", result.InvestmentEuro)
	fmt.Printf("Expected recourse cost: %.2f EUR\n", result.ExpectedRecourseEuro())
	fmt.Printf("Objective:              %.2f EUR\n", result.ObjectiveEuro)
	fmt.Printf("Solve time:             %s\n", result.SolveDuration)
	fmt.Printf("Status:                 %s\n", result.Status)

	fmt.Println("\n┌──────────┬─────────────────────┐")
	fmt.Println("│ Scenario │ Recourse Cost (EUR) │")
	fmt.Println("├──────────┼─────────────────────┤")
	for s, cost := range result.ScenarioCostsEuro {
		fmt.Printf("│ %8d │ %19.2f │\n", s, cost)
	}
	fmt.Println("└──────────┴─────────────────────┘")

	fmt.Println("\n========================================")
	fmt.Println("HORIZON")
	fmt.Println("========================================")
	fmt.Printf("Scenarios: %d\n", config.NumberOfScenarios)
	fmt.Printf("Days:      %d (%d timeslots per scenario)\n", config.NumberOfDays, config.TimeslotCount())
	fmt.Println("========================================")
}

func showHelp() {
	fmt.Println("Storage Sizing - size a solar-plus-battery installation under uncertainty")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Builds a two-stage stochastic MILP: stage one picks the investment")
	fmt.Println("  (solar module count, battery storage capacity), stage two models the")
	fmt.Println("  hourly operation (buy/sell/store energy) of every sampled scenario.")
	fmt.Println("  The model is solved by an external MILP engine (HiGHS or CBC) and the")
	fmt.Println("  assembled model is exported as an LP text file for inspection.")
	fmt.Println()
	fmt.Println("  Key Features:")
	fmt.Println("  - Seeded, reproducible scenario sampling")
	fmt.Println("  - Optional sun-position envelope for the solar profile")
	fmt.Println("  - Optional live load calibration via Modbus")
	fmt.Println("  - Optional result persistence to PostgreSQL")
	fmt.Println("  - Optional status web server with progress websocket")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  storage-sizing [OPTIONS]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Run with defaults (config.json if present)")
	fmt.Println("  storage-sizing")
	fmt.Println()
	fmt.Println("  # Custom configuration and a fixed seed")
	fmt.Println("  storage-sizing --config=study.json --seed=42")
	fmt.Println()
	fmt.Println("  # Export the model elsewhere and show solver output")
	fmt.Println("  storage-sizing --export=/tmp/model.lp --output")
}
