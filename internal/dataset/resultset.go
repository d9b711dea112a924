package dataset

import (
	"encoding/json"
	"fmt"
)

// ResultSet is a fully materialized query result: named columns plus rows in
// the order the engine returned them.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of rows.
func (rs *ResultSet) RowCount() int {
	return len(rs.Rows)
}

// ColumnIndex returns the position of the named column, or -1 if absent.
func (rs *ResultSet) ColumnIndex(name string) int {
	for i, c := range rs.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column is present.
func (rs *ResultSet) HasColumn(name string) bool {
	return rs.ColumnIndex(name) >= 0
}

// Records converts the result set to row-oriented records (column name to
// value), the shape LLMs read most reliably.
func (rs *ResultSet) Records() []map[string]any {
	records := make([]map[string]any, len(rs.Rows))
	for i, row := range rs.Rows {
		rec := make(map[string]any, len(rs.Columns))
		for j, col := range rs.Columns {
			rec[col] = row[j]
		}
		records[i] = rec
	}
	return records
}

// RecordsJSON serializes the result set as a JSON array of row records.
func (rs *ResultSet) RecordsJSON() (string, error) {
	data, err := json.Marshal(rs.Records())
	if err != nil {
		return "", fmt.Errorf("failed to serialize result set: %w", err)
	}
	return string(data), nil
}

// Project returns a copy of the result set restricted to the given columns,
// in the given order. Unknown columns are an error.
func (rs *ResultSet) Project(columns []string) (*ResultSet, error) {
	idx := make([]int, len(columns))
	for i, col := range columns {
		j := rs.ColumnIndex(col)
		if j < 0 {
			return nil, fmt.Errorf("unknown column %q", col)
		}
		idx[i] = j
	}

	out := &ResultSet{Columns: append([]string(nil), columns...)}
	out.Rows = make([][]any, len(rs.Rows))
	for i, row := range rs.Rows {
		projected := make([]any, len(idx))
		for k, j := range idx {
			projected[k] = row[j]
		}
		out.Rows[i] = projected
	}
	return out, nil
}
