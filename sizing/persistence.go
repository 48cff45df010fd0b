package sizing

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// ResultStore persists sizing run results to PostgreSQL.
//
// Expected schema:
//
//	CREATE TABLE sizing_runs (
//	    id BIGSERIAL PRIMARY KEY,
//	    finished_at TIMESTAMPTZ NOT NULL,
//	    random_seed BIGINT NOT NULL,
//	    scenarios INT NOT NULL,
//	    days INT NOT NULL,
//	    number_of_modules INT NOT NULL,
//	    storage_size_kwh DOUBLE PRECISION NOT NULL,
//	    investment_euro DOUBLE PRECISION NOT NULL,
//	    objective_euro DOUBLE PRECISION NOT NULL,
//	    solve_ms BIGINT NOT NULL,
//	    status TEXT NOT NULL
//	);
//	CREATE TABLE sizing_scenario_costs (
//	    run_id BIGINT NOT NULL REFERENCES sizing_runs(id) ON DELETE CASCADE,
//	    scenario INT NOT NULL,
//	    recourse_cost_euro DOUBLE PRECISION NOT NULL,
//	    PRIMARY KEY (run_id, scenario)
//	);
type ResultStore struct {
	db     *sql.DB
	logger *log.Logger
}

// OpenResultStore connects to PostgreSQL and verifies the connection.
func OpenResultStore(connString string, logger *log.Logger) (*ResultStore, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &ResultStore{db: db, logger: logger}, nil
}

// Close releases the database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// SaveResult stores one run and its per-scenario recourse costs in a
// single transaction.
func (s *ResultStore) SaveResult(ctx context.Context, cfg *ProblemConfiguration, result *Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO sizing_runs (
			finished_at,
			random_seed,
			scenarios,
			days,
			number_of_modules,
			storage_size_kwh,
			investment_euro,
			objective_euro,
			solve_ms,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`,
		time.Now(),
		int64(cfg.RandomSeed),
		cfg.NumberOfScenarios,
		cfg.NumberOfDays,
		result.NumberOfModules,
		result.StorageSizeKwh,
		result.InvestmentEuro,
		result.ObjectiveEuro,
		result.SolveDuration.Milliseconds(),
		result.Status,
	).Scan(&runID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sizing_scenario_costs (run_id, scenario, recourse_cost_euro)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for scenario, cost := range result.ScenarioCostsEuro {
		if _, err := stmt.ExecContext(ctx, runID, scenario, cost); err != nil {
			return fmt.Errorf("failed to insert cost for scenario %d: %w", scenario, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.logger != nil {
		s.logger.Printf("Saved run %d with %d scenario costs to database", runID, len(result.ScenarioCostsEuro))
	}
	return nil
}

// LoadLatestResult returns the most recently stored run, or nil when the
// table is empty.
func (s *ResultStore) LoadLatestResult(ctx context.Context) (*Result, error) {
	var (
		runID   int64
		result  Result
		solveMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number_of_modules, storage_size_kwh, investment_euro, objective_euro, solve_ms, status
		FROM sizing_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&runID, &result.NumberOfModules, &result.StorageSizeKwh, &result.InvestmentEuro, &result.ObjectiveEuro, &solveMs, &result.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	result.SolveDuration = time.Duration(solveMs) * time.Millisecond

	rows, err := s.db.QueryContext(ctx, `
		SELECT recourse_cost_euro
		FROM sizing_scenario_costs
		WHERE run_id = $1
		ORDER BY scenario ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenario costs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cost float64
		if err := rows.Scan(&cost); err != nil {
			return nil, fmt.Errorf("failed to scan scenario cost: %w", err)
		}
		result.ScenarioCostsEuro = append(result.ScenarioCostsEuro, cost)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scenario costs: %w", err)
	}

	return &result, nil
}
