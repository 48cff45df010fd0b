package solver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

type backend struct {
	name   string
	binary string
}

func backendByName(name string) (backend, error) {
	switch strings.ToLower(name) {
	case "highs":
		return backend{name: "highs", binary: "highs"}, nil
	case "cbc":
		return backend{name: "cbc", binary: "cbc"}, nil
	default:
		return backend{}, &BackendError{Backend: name, Err: fmt.Errorf("unknown backend, expected \"highs\" or \"cbc\"")}
	}
}

// Solve writes the model to a temporary LP file, runs the backend binary
// on it and parses the engine's solution file. It is a single blocking
// attempt; cancel or bound it through ctx. Non-optimal outcomes return the
// matching sentinel error alongside the parsed solution.
func (m *Model) Solve(ctx context.Context) (*Solution, error) {
	if !m.hasObj {
		return nil, fmt.Errorf("no objective set")
	}

	dir, err := os.MkdirTemp("", "milp-")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	modelPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "solution.txt")

	f, err := os.Create(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create model file: %w", err)
	}
	if err := m.WriteLP(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write model: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to write model: %w", err)
	}

	var args []string
	switch m.backend.name {
	case "highs":
		args = []string{modelPath, "--solution_file", solPath}
	case "cbc":
		args = []string{modelPath, "solve", "solu", solPath}
	}

	cmd := exec.CommandContext(ctx, m.backend.binary, args...)
	var captured bytes.Buffer
	if m.output {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	}

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("solve aborted: %w", ctx.Err())
		}
		// CBC exits nonzero on some unsolved models while still writing a
		// solution file; fall through to parsing when one exists.
		if _, statErr := os.Stat(solPath); statErr != nil {
			return nil, fmt.Errorf("solver %s failed: %w (output: %s)", m.backend.name, err, strings.TrimSpace(captured.String()))
		}
	}

	sol, err := m.parseSolutionFile(solPath)
	if err != nil {
		return nil, err
	}
	return sol, statusErr(sol.Status)
}

func (m *Model) parseSolutionFile(path string) (*Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("solver wrote no solution file: %w", err)
	}
	defer f.Close()

	switch m.backend.name {
	case "cbc":
		return m.parseCBCSolution(f)
	default:
		return m.parseHighsSolution(f)
	}
}

// parseHighsSolution reads the HiGHS raw solution format:
//
//	Model status
//	Optimal
//
//	# Primal solution values
//	Feasible
//	Objective 670
//	# Columns 2
//	numberOfModules 1
//	sizeOfStorageKwh 0
//	...
func (m *Model) parseHighsSolution(r io.Reader) (*Solution, error) {
	sol := &Solution{
		Status: StatusNotSolved,
		values: make([]float64, len(m.vars)),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	inColumns := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "Model status":
			if sc.Scan() {
				sol.Status = highsStatus(strings.TrimSpace(sc.Text()))
			}
		case strings.HasPrefix(line, "Objective"):
			fields := strings.Fields(line)
			if len(fields) == 2 {
				sol.Objective, _ = strconv.ParseFloat(fields[1], 64)
			}
		case strings.HasPrefix(line, "# Columns"):
			inColumns = true
		case strings.HasPrefix(line, "# Rows"):
			inColumns = false
		case inColumns && line != "":
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			value, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				continue
			}
			if v, ok := m.varsByName[fields[0]]; ok {
				sol.values[v.index] = value
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read solution file: %w", err)
	}
	return sol, nil
}

func highsStatus(s string) Status {
	switch {
	case strings.EqualFold(s, "Optimal"):
		return StatusOptimal
	case strings.Contains(strings.ToLower(s), "infeasible"):
		return StatusInfeasible
	case strings.Contains(strings.ToLower(s), "unbounded"):
		return StatusUnbounded
	case strings.Contains(strings.ToLower(s), "error"):
		return StatusError
	default:
		return StatusNotSolved
	}
}

// parseCBCSolution reads the CBC "solu" file format: a status header line
// followed by one "index name value reduced-cost" row per nonbasic column.
//
//	Optimal - objective value 670.00000000
//	      0 numberOfModules               1                       0
func (m *Model) parseCBCSolution(r io.Reader) (*Solution, error) {
	sol := &Solution{
		Status: StatusNotSolved,
		values: make([]float64, len(m.vars)),
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			first = false
			sol.Status = cbcStatus(line)
			if i := strings.Index(line, "objective value"); i >= 0 {
				fields := strings.Fields(line[i+len("objective value"):])
				if len(fields) > 0 {
					sol.Objective, _ = strconv.ParseFloat(fields[0], 64)
				}
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		if v, ok := m.varsByName[fields[1]]; ok {
			sol.values[v.index] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read solution file: %w", err)
	}
	return sol, nil
}

func cbcStatus(header string) Status {
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "optimal"):
		return StatusOptimal
	case strings.Contains(lower, "infeasible"):
		return StatusInfeasible
	case strings.Contains(lower, "unbounded"):
		return StatusUnbounded
	case strings.Contains(lower, "error"):
		return StatusError
	default:
		return StatusNotSolved
	}
}
