package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// DefaultCategoricalThreshold is the distinct-value cutoff below which a TEXT
// column is described by enumerating its values.
const DefaultCategoricalThreshold = 10

// SchemaPrompt renders a plain-text description of the loaded table for the
// model's system prompt: column names and SQL types, categorical values for
// low-cardinality TEXT columns, min/max ranges for the rest.
func (e *Engine) SchemaPrompt(ctx context.Context, categoricalThreshold int) (string, error) {
	if e.table == "" {
		return "", fmt.Errorf("no table loaded")
	}
	if categoricalThreshold <= 0 {
		categoricalThreshold = DefaultCategoricalThreshold
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Table: %s\n", e.table)
	b.WriteString("Columns:\n")

	for _, col := range e.columns {
		fmt.Fprintf(&b, "- %s (%s)\n", col.Name, col.Type)

		switch col.Type {
		case TypeText:
			values, err := e.categoricalValues(ctx, col.Name, categoricalThreshold)
			if err != nil {
				return "", err
			}
			if values != nil {
				quoted := make([]string, len(values))
				for i, v := range values {
					quoted[i] = "'" + v + "'"
				}
				fmt.Fprintf(&b, "  Categorical values: %s\n", strings.Join(quoted, ", "))
			}
		case TypeInteger, TypeFloat, TypeDatetime:
			lo, hi, err := e.columnRange(ctx, col.Name)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "  Range: %v to %v\n", lo, hi)
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

// categoricalValues returns the column's distinct values in first-appearance
// order, or nil when the column has more than threshold distinct values.
func (e *Engine) categoricalValues(ctx context.Context, column string, threshold int) ([]string, error) {
	var distinct int
	row := e.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(DISTINCT "%s") FROM "%s"`, column, e.table))
	if err := row.Scan(&distinct); err != nil {
		return nil, fmt.Errorf("failed to count distinct %s: %w", column, err)
	}
	if distinct > threshold {
		return nil, nil
	}

	rs, err := e.Query(ctx, fmt.Sprintf(
		`SELECT "%s" FROM "%s" WHERE "%s" IS NOT NULL GROUP BY "%s" ORDER BY MIN(rowid)`,
		column, e.table, column, column))
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(rs.Rows))
	for _, r := range rs.Rows {
		values = append(values, fmt.Sprintf("%v", r[0]))
	}
	return values, nil
}

func (e *Engine) columnRange(ctx context.Context, column string) (any, any, error) {
	rs, err := e.Query(ctx, fmt.Sprintf(
		`SELECT MIN("%s"), MAX("%s") FROM "%s"`, column, column, e.table))
	if err != nil {
		return nil, nil, err
	}
	if len(rs.Rows) == 0 {
		return nil, nil, fmt.Errorf("empty range result for %s", column)
	}
	return rs.Rows[0][0], rs.Rows[0][1], nil
}

// DistinctCSV returns the distinct combinations of the given columns as CSV
// text with a header row, preserving first-appearance order. Used to list the
// available species in the system prompt.
func (e *Engine) DistinctCSV(ctx context.Context, columns []string) (string, error) {
	if e.table == "" {
		return "", fmt.Errorf("no table loaded")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column required")
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	cols := strings.Join(quoted, ", ")

	rs, err := e.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM "%s" GROUP BY %s ORDER BY MIN(rowid)`, cols, e.table, cols))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rs.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprintf("%v", v)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to render CSV: %w", err)
	}
	return b.String(), nil
}
