package solver

import (
	"strings"
	"testing"
)

func TestWriteLPSections(t *testing.T) {
	m := newTestModel(t)
	m.SetName("lp-test")

	x, _ := m.IntVar(0, 10, "x")
	y, _ := m.NumVar(0, m.Infinity(), "y")
	d, _ := m.NumVar(-100, 100, "d")

	if err := m.AddConstraint(NewExpr().Term(x, 2).Term(y, 1), LessEq, 14, "cap"); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	if err := m.AddConstraint(NewExpr().Term(x, 1).Term(y, -1), Equal, 0, "match"); err != nil {
		t.Fatalf("AddConstraint failed: %v", err)
	}
	m.Minimize(NewExpr().Term(x, 3).Term(y, 1).Term(d, -2))

	lp := m.ExportLPString()

	wantLines := []string{
		"\\ lp-test",
		"Minimize",
		" obj: + 3 x + 1 y - 2 d",
		"Subject To",
		" cap: + 2 x + 1 y <= 14",
		" match: + 1 x - 1 y = 0",
		"Bounds",
		" 0 <= x <= 10",
		" -100 <= d <= 100",
		"General",
		" x",
		"End",
	}
	for _, want := range wantLines {
		if !strings.Contains(lp, want) {
			t.Errorf("LP text missing line %q\ngot:\n%s", want, lp)
		}
	}

	// y has the LP default bounds [0, +inf) and must not appear in Bounds
	if strings.Contains(lp, " y >=") || strings.Contains(lp, " y <=") || strings.Contains(lp, "<= y") {
		t.Errorf("default-bounded variable written to Bounds section:\n%s", lp)
	}
}

func TestWriteLPBoundForms(t *testing.T) {
	m := newTestModel(t)
	inf := m.Infinity()

	m.NumVar(-inf, inf, "free")
	m.NumVar(5, 5, "fixed")
	m.NumVar(2, inf, "lowOnly")
	m.NumVar(-inf, 3, "upOnly")
	x, _ := m.NumVar(0, 1, "x")
	m.Minimize(NewExpr().Term(x, 1))

	lp := m.ExportLPString()

	wantLines := []string{
		" free free",
		" fixed = 5",
		" lowOnly >= 2",
		" upOnly <= 3",
		" 0 <= x <= 1",
	}
	for _, want := range wantLines {
		if !strings.Contains(lp, want) {
			t.Errorf("LP text missing bound %q\ngot:\n%s", want, lp)
		}
	}
}

func TestWriteLPNoIntegerSection(t *testing.T) {
	m := newTestModel(t)
	x, _ := m.NumVar(0, 1, "x")
	m.Minimize(NewExpr().Term(x, 1))

	if lp := m.ExportLPString(); strings.Contains(lp, "General") {
		t.Errorf("General section written for a model without integer variables:\n%s", lp)
	}
}

func TestMergeTerms(t *testing.T) {
	m := newTestModel(t)
	x, _ := m.NumVar(0, 1, "x")
	y, _ := m.NumVar(0, 1, "y")

	tests := []struct {
		name string
		expr *Expr
		want string
	}{
		{
			name: "duplicates fold",
			expr: NewExpr().Term(x, 1).Term(y, 1).Term(x, 2),
			want: " obj: + 3 x + 1 y",
		},
		{
			name: "cancellation drops the term",
			expr: NewExpr().Term(x, 1).Term(y, 5).Term(x, -1),
			want: " obj: + 5 y",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.Minimize(tt.expr)
			if lp := m.ExportLPString(); !strings.Contains(lp, tt.want) {
				t.Errorf("LP text missing %q\ngot:\n%s", tt.want, lp)
			}
		})
	}
}

func TestWriteLPWrapsLongExpressions(t *testing.T) {
	m := newTestModel(t)

	expr := NewExpr()
	for i := 0; i < termsPerLine+1; i++ {
		v, err := m.NumVar(0, 1, "")
		if err != nil {
			t.Fatalf("NumVar failed: %v", err)
		}
		expr.Term(v, 1)
	}
	m.Minimize(expr)

	lp := m.ExportLPString()
	objLine := ""
	for _, line := range strings.Split(lp, "\n") {
		if strings.HasPrefix(line, " obj:") {
			objLine = line
			break
		}
	}
	if objLine == "" {
		t.Fatalf("no objective line in LP text:\n%s", lp)
	}
	if got := strings.Count(objLine, " + "); got != termsPerLine {
		t.Errorf("first objective line holds %d terms, want %d\n%s", got, termsPerLine, objLine)
	}
	if !strings.Contains(lp, "\n  ") {
		t.Errorf("no continuation line for a long expression:\n%s", lp)
	}
}

func TestFmtNum(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{0.0005, "0.0005"},
		{1000, "1000"},
	}
	for _, tt := range tests {
		if got := fmtNum(tt.in); got != tt.want {
			t.Errorf("fmtNum(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
