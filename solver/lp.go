package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// termsPerLine bounds the number of objective/constraint terms written per
// line. LP readers accept expressions spanning lines; very long single
// lines are what breaks them.
const termsPerLine = 8

// WriteLP writes the assembled model in CPLEX LP text format: objective,
// constraints, bounds and the integer (General) section.
func (m *Model) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\ %s\n", m.name)
	fmt.Fprintln(bw, "Minimize")
	writeTerms(bw, "obj", m.objective)

	fmt.Fprintln(bw, "Subject To")
	for i := range m.cons {
		c := &m.cons[i]
		writeConstraint(bw, c)
	}

	fmt.Fprintln(bw, "Bounds")
	for _, v := range m.vars {
		writeBounds(bw, v)
	}

	var generals []*Variable
	for _, v := range m.vars {
		if v.integer {
			generals = append(generals, v)
		}
	}
	if len(generals) > 0 {
		fmt.Fprintln(bw, "General")
		for _, v := range generals {
			fmt.Fprintf(bw, " %s\n", v.name)
		}
	}

	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

// ExportLPString returns the LP text of the assembled model.
func (m *Model) ExportLPString() string {
	var sb strings.Builder
	m.WriteLP(&sb)
	return sb.String()
}

// writeTerms writes "label: t1 + t2 ..." folding duplicate variables and
// wrapping long expressions over continuation lines.
func writeTerms(w io.Writer, label string, terms []Term) {
	merged := mergeTerms(terms)

	fmt.Fprintf(w, " %s:", label)
	if len(merged) == 0 {
		fmt.Fprint(w, " 0 ")
	}
	for i, t := range merged {
		if i > 0 && i%termsPerLine == 0 {
			fmt.Fprint(w, "\n  ")
		}
		if t.Coef < 0 {
			fmt.Fprintf(w, " - %s %s", fmtNum(-t.Coef), t.Var.name)
		} else {
			fmt.Fprintf(w, " + %s %s", fmtNum(t.Coef), t.Var.name)
		}
	}
	fmt.Fprintln(w)
}

func writeConstraint(w io.Writer, c *constraint) {
	merged := mergeTerms(c.terms)

	fmt.Fprintf(w, " %s:", c.name)
	for i, t := range merged {
		if i > 0 && i%termsPerLine == 0 {
			fmt.Fprint(w, "\n  ")
		}
		if t.Coef < 0 {
			fmt.Fprintf(w, " - %s %s", fmtNum(-t.Coef), t.Var.name)
		} else {
			fmt.Fprintf(w, " + %s %s", fmtNum(t.Coef), t.Var.name)
		}
	}
	fmt.Fprintf(w, " %s %s\n", c.sense, fmtNum(c.rhs))
}

// mergeTerms folds repeated variables into a single coefficient, keeping
// first-occurrence order and dropping terms that cancel to zero.
func mergeTerms(terms []Term) []Term {
	coefs := make(map[int]float64, len(terms))
	order := make([]*Variable, 0, len(terms))
	for _, t := range terms {
		if _, seen := coefs[t.Var.index]; !seen {
			order = append(order, t.Var)
		}
		coefs[t.Var.index] += t.Coef
	}
	out := make([]Term, 0, len(order))
	for _, v := range order {
		if c := coefs[v.index]; c != 0 {
			out = append(out, Term{Var: v, Coef: c})
		}
	}
	return out
}

// writeBounds writes the Bounds entry for v. The LP-format default of
// [0, +inf) is left implicit.
func writeBounds(w io.Writer, v *Variable) {
	lowInf := math.IsInf(v.lower, -1)
	upInf := math.IsInf(v.upper, 1)

	switch {
	case v.lower == 0 && upInf:
		// default bounds, nothing to write
	case lowInf && upInf:
		fmt.Fprintf(w, " %s free\n", v.name)
	case v.lower == v.upper:
		fmt.Fprintf(w, " %s = %s\n", v.name, fmtNum(v.lower))
	case upInf:
		fmt.Fprintf(w, " %s >= %s\n", v.name, fmtNum(v.lower))
	case lowInf:
		fmt.Fprintf(w, " %s <= %s\n", v.name, fmtNum(v.upper))
	default:
		fmt.Fprintf(w, " %s <= %s <= %s\n", fmtNum(v.lower), v.name, fmtNum(v.upper))
	}
}

func fmtNum(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
