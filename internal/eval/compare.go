// Package eval grades agent-issued dashboard queries offline: each case runs
// a fresh session, and the last recorded update_dashboard query is compared
// against a reference query by executing both and diffing the result sets.
package eval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sidebot/internal/dataset"
)

// Verdict classifies one comparison.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictPartial   Verdict = "partial"
	VerdictIncorrect Verdict = "incorrect"
)

// Letter returns the compact single-letter form used in report output.
func (v Verdict) Letter() string {
	switch v {
	case VerdictCorrect:
		return "C"
	case VerdictPartial:
		return "P"
	case VerdictIncorrect:
		return "I"
	default:
		return "?"
	}
}

// Result is a comparison outcome with its human-readable explanation. It is
// computed fresh from two result sets, never stored.
type Result struct {
	Verdict     Verdict
	Explanation string
}

// Compare diffs the actual result set against the expected one.
//
// Expected columns must all be present in actual; extra actual columns are
// dropped with a caveat. Cells are then compared in row order; if that fails,
// both sides are re-sorted by the full column list and compared again, which
// downgrades a pure row-order difference to partial instead of incorrect.
func Compare(actual, expected *dataset.ResultSet) Result {
	for _, col := range expected.Columns {
		if !actual.HasColumn(col) {
			return Result{VerdictIncorrect, "Query did not return all expected columns"}
		}
	}

	var caveats []string
	if len(actual.Columns) > len(expected.Columns) {
		caveats = append(caveats, "Query returned extra columns.")
	}
	projected, err := actual.Project(expected.Columns)
	if err != nil {
		return Result{VerdictIncorrect, err.Error()}
	}

	if !cellsEqual(projected, expected) {
		if !cellsEqual(sortRows(projected), sortRows(expected)) {
			return Result{VerdictIncorrect, "Query returned different values than expected"}
		}
		caveats = append(caveats, "Query results differ by row order.")
	}

	if len(caveats) > 0 {
		return Result{VerdictPartial, strings.Join(caveats, " ")}
	}
	return Result{VerdictCorrect, "Query returned expected results"}
}

// CompareQueries executes both queries and compares their results. The
// absence rule applies first: no actual query and no expected query is
// correct, exactly one missing is incorrect. Callers pass hasActual=false
// when the agent never called the mutating tool with a non-empty query.
func CompareQueries(ctx context.Context, engine *dataset.Engine, actualQuery, expectedQuery string, hasActual bool) (Result, error) {
	hasExpected := expectedQuery != ""
	switch {
	case !hasActual && !hasExpected:
		return Result{VerdictCorrect, "No query expected and none issued"}, nil
	case !hasActual:
		return Result{VerdictIncorrect, "Expected a query but none was issued"}, nil
	case !hasExpected:
		return Result{VerdictIncorrect, "Issued a query where none was expected"}, nil
	}

	actual, err := engine.Query(ctx, actualQuery)
	if err != nil {
		return Result{VerdictIncorrect, fmt.Sprintf("Actual query failed: %v", err)}, nil
	}
	expected, err := engine.Query(ctx, expectedQuery)
	if err != nil {
		return Result{}, fmt.Errorf("reference query failed: %w", err)
	}
	return Compare(actual, expected), nil
}

func cellsEqual(a, b *dataset.ResultSet) bool {
	if len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Rows {
		for j := range a.Columns {
			if normalizeCell(a.Rows[i][j]) != normalizeCell(b.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

// normalizeCell maps a cell to a comparable string so that 3 and 3.0 from
// differently typed expressions still match.
func normalizeCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00nil"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// sortRows returns a copy sorted lexicographically by every column.
func sortRows(rs *dataset.ResultSet) *dataset.ResultSet {
	sorted := &dataset.ResultSet{
		Columns: rs.Columns,
		Rows:    append([][]any(nil), rs.Rows...),
	}
	sort.SliceStable(sorted.Rows, func(i, j int) bool {
		for k := range sorted.Columns {
			a, b := normalizeCell(sorted.Rows[i][k]), normalizeCell(sorted.Rows[j][k])
			if a != b {
				return a < b
			}
		}
		return false
	})
	return sorted
}
